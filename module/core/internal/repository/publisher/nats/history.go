package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/nandanugg/proximity/module/core/domain"
	"github.com/nandanugg/proximity/module/core/internal/repository/publisher"
)

var _ publisher.HistoryTransport = (*HistoryPublisher)(nil)

// HistoryPublisher publishes JSON-encoded batches to a NATS subject and
// flushes so the server has received the batch before returning.
type HistoryPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewHistoryPublisher(url, subject string, opts ...nats.Option) (*HistoryPublisher, error) {
	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &HistoryPublisher{conn: nc, subject: subject}, nil
}

func (p *HistoryPublisher) PublishHistory(ctx context.Context, batch *domain.HistoryBatch) error {
	body, err := publisher.EncodeHistory(batch)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(p.subject)
	msg.Header.Set("Content-Type", publisher.ContentType)
	msg.Data = body
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}

func (p *HistoryPublisher) Close() error {
	p.conn.Close()
	return nil
}
