package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/proximity/module/core/domain"
	"github.com/nandanugg/proximity/module/core/internal/repository/publisher"
)

var _ publisher.HistoryTransport = (*HistoryPublisher)(nil)

const (
	ExchangeName = "proximity.history"
	QueueName    = "beacon_history"
)

var errNotAcknowledged = errors.New("history batch not acknowledged by broker")

type deferredConfirm interface {
	WaitContext(ctx context.Context) (bool, error)
}

// confirmChannel is the part of an AMQP channel in confirm mode the publisher uses.
type confirmChannel interface {
	Publish(ctx context.Context, msg amqp.Publishing) (deferredConfirm, error)
	Close() error
}

type amqpChannel struct {
	ch *amqp.Channel
}

func (c amqpChannel) Publish(ctx context.Context, msg amqp.Publishing) (deferredConfirm, error) {
	confirm, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, ExchangeName, "", false, false, msg)
	if err != nil {
		return nil, err
	}
	return confirm, nil
}

func (c amqpChannel) Close() error {
	return c.ch.Close()
}

type HistoryPublisher struct {
	ch confirmChannel
}

// NewHistoryPublisher opens a channel in confirm mode so a batch is only
// reported as delivered once the broker acknowledges it.
func NewHistoryPublisher(conn *amqp.Connection) (*HistoryPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("confirm mode: %w", err)
	}

	return &HistoryPublisher{ch: amqpChannel{ch: ch}}, nil
}

func (p *HistoryPublisher) PublishHistory(ctx context.Context, batch *domain.HistoryBatch) error {
	body, err := publisher.EncodeHistory(batch)
	if err != nil {
		return err
	}

	confirm, err := p.ch.Publish(ctx, amqp.Publishing{
		ContentType:  publisher.ContentType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    batch.PublishedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq confirm: %w", err)
	}
	if !acked {
		return errNotAcknowledged
	}
	return nil
}

func (p *HistoryPublisher) Close() error {
	return p.ch.Close()
}
