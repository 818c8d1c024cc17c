package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nandanugg/proximity/module/core/domain"
	"github.com/nandanugg/proximity/module/core/internal/repository/publisher"
)

type mockWriter struct {
	writeFn func(ctx context.Context, msgs ...kafka.Message) error
	closed  bool
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.writeFn(ctx, msgs...)
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestPublishHistory_WritesOneMessage(t *testing.T) {
	var written []kafka.Message
	w := &mockWriter{
		writeFn: func(_ context.Context, msgs ...kafka.Message) error {
			written = append(written, msgs...)
			return nil
		},
	}
	p := &HistoryPublisher{writer: w}

	batch := &domain.HistoryBatch{PublishedAt: time.UnixMilli(1715003456000)}
	if err := p.PublishHistory(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(written) != 1 {
		t.Fatalf("expected 1 message, got %d", len(written))
	}
	msg := written[0]
	if string(msg.Key) != "1715003456000" {
		t.Errorf("expected key 1715003456000, got %s", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != publisher.ContentType {
		t.Errorf("unexpected headers: %+v", msg.Headers)
	}
	want, _ := publisher.EncodeHistory(batch)
	if string(msg.Value) != string(want) {
		t.Errorf("expected %s, got %s", want, msg.Value)
	}
}

func TestPublishHistory_WriteError(t *testing.T) {
	brokerErr := errors.New("leader not available")
	w := &mockWriter{
		writeFn: func(context.Context, ...kafka.Message) error { return brokerErr },
	}
	p := &HistoryPublisher{writer: w}

	err := p.PublishHistory(context.Background(), &domain.HistoryBatch{})
	if !errors.Is(err, brokerErr) {
		t.Fatalf("expected broker error, got %v", err)
	}
}

func TestClose(t *testing.T) {
	w := &mockWriter{}
	p := &HistoryPublisher{writer: w}
	_ = p.Close()
	if !w.closed {
		t.Error("expected writer closed")
	}
}
