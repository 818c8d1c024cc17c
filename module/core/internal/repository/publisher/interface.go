package publisher

import (
	"context"

	"github.com/nandanugg/proximity/module/core/domain"
)

// HistoryTransport delivers a batch of history records to the remote service.
// A nil error means the batch was accepted and may be marked sent.
type HistoryTransport interface {
	PublishHistory(ctx context.Context, batch *domain.HistoryBatch) error
}
