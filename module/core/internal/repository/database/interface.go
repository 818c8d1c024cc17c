package database

import (
	"context"
	"time"

	"github.com/nandanugg/proximity/module/core/domain"
)

type HistoryRepository interface {
	InsertScan(ctx context.Context, rec *domain.ScanRecord) error
	InsertAction(ctx context.Context, rec *domain.ActionRecord) error
	NotSentScans(ctx context.Context) ([]domain.ScanRecord, error)
	NotSentActions(ctx context.Context) ([]domain.ActionRecord, error)
	MarkSent(ctx context.Context, scanIDs, actionIDs []string, sentAt time.Time) error
	DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)
}
