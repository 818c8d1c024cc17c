package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nandanugg/proximity/module/core/domain"
	"github.com/nandanugg/proximity/module/core/internal/metrics"
	"github.com/nandanugg/proximity/module/core/internal/repository/database"
	"github.com/nandanugg/proximity/module/core/internal/repository/publisher"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// HistoryPublisher records scan events and presented actions and pushes the
// unsent ones to a transport. Records are marked sent only after the transport
// accepted the batch.
type HistoryPublisher struct {
	repo      database.HistoryRepository
	transport publisher.HistoryTransport
	clock     Clock
	cacheTTL  time.Duration

	// serialises PublishHistory so overlapping callers never send the same records
	publishMu sync.Mutex
}

func NewHistoryPublisher(repo database.HistoryRepository, transport publisher.HistoryTransport, clock Clock, cacheTTL time.Duration) *HistoryPublisher {
	return &HistoryPublisher{
		repo:      repo,
		transport: transport,
		clock:     clock,
		cacheTTL:  cacheTTL,
	}
}

func (p *HistoryPublisher) OnScanEventDetected(ctx context.Context, event *domain.ScanEvent) error {
	rec := &domain.ScanRecord{
		ID:        uuid.NewString(),
		BeaconID:  event.BeaconID,
		EventMask: event.EventMask,
		EventTime: event.EventTime,
		CreatedAt: p.clock.Now(),
	}
	if err := p.repo.InsertScan(ctx, rec); err != nil {
		return fmt.Errorf("save scan: %w", err)
	}
	metrics.HistoryRecordsTotal.WithLabelValues("scan").Inc()
	return nil
}

func (p *HistoryPublisher) OnActionPresented(ctx context.Context, event *domain.BeaconEvent) error {
	if event.Action == nil {
		return fmt.Errorf("save action: beacon event has no action")
	}
	rec := &domain.ActionRecord{
		ID:               uuid.NewString(),
		ActionID:         event.Action.UUID.String(),
		BeaconID:         event.BeaconID,
		Trigger:          event.Trigger,
		PresentationTime: event.PresentationTime,
		CreatedAt:        p.clock.Now(),
	}
	if err := p.repo.InsertAction(ctx, rec); err != nil {
		return fmt.Errorf("save action: %w", err)
	}
	metrics.HistoryRecordsTotal.WithLabelValues("action").Inc()
	return nil
}

// Pending returns every record not yet accepted by the transport.
func (p *HistoryPublisher) Pending(ctx context.Context) (*domain.HistoryBatch, error) {
	scans, err := p.repo.NotSentScans(ctx)
	if err != nil {
		return nil, fmt.Errorf("load unsent scans: %w", err)
	}
	actions, err := p.repo.NotSentActions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load unsent actions: %w", err)
	}
	return &domain.HistoryBatch{Scans: scans, Actions: actions}, nil
}

// PublishHistory sends all unsent records. On transport failure nothing is
// marked, so the same records are retried by the next call. Concurrent calls
// run one after another.
func (p *HistoryPublisher) PublishHistory(ctx context.Context) error {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	batch, err := p.Pending(ctx)
	if err != nil {
		return err
	}
	if batch.Empty() {
		return nil
	}
	batch.PublishedAt = p.clock.Now()

	start := time.Now()
	err = p.transport.PublishHistory(ctx, batch)
	metrics.HistoryPublishDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.HistoryPublishTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("publish history: %w", err)
	}

	if err := p.repo.MarkSent(ctx, batch.ScanIDs(), batch.ActionIDs(), p.clock.Now()); err != nil {
		metrics.HistoryPublishTotal.WithLabelValues("unmarked").Inc()
		return fmt.Errorf("mark history sent: %w", err)
	}
	metrics.HistoryPublishTotal.WithLabelValues("published").Inc()
	slog.Info("history published", "scans", len(batch.Scans), "actions", len(batch.Actions))

	if p.cacheTTL > 0 {
		if _, err := p.repo.DeleteSentBefore(ctx, p.clock.Now().Add(-p.cacheTTL)); err != nil {
			slog.Warn("prune sent history failed", "error", err)
		}
	}
	return nil
}

// Run publishes history every interval until ctx is cancelled. Failures are
// logged and retried on the next tick.
func (p *HistoryPublisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.PublishHistory(ctx); err != nil {
				slog.Error("history upload failed", "error", err)
			}
		}
	}
}
