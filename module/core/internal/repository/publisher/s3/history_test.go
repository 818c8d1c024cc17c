package s3

import (
	"testing"
	"time"

	"github.com/nandanugg/proximity/module/core/domain"
)

func TestObjectKey(t *testing.T) {
	batch := &domain.HistoryBatch{PublishedAt: time.UnixMilli(1715009999000)}

	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{"with prefix", "proximity/history", "proximity/history/1715009999000.json"},
		{"trailing slash", "proximity/history/", "proximity/history/1715009999000.json"},
		{"no prefix", "", "1715009999000.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ObjectKey(tt.prefix, batch); got != tt.want {
				t.Errorf("ObjectKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
