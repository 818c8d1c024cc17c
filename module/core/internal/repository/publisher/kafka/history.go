package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nandanugg/proximity/module/core/domain"
	"github.com/nandanugg/proximity/module/core/internal/repository/publisher"
)

var _ publisher.HistoryTransport = (*HistoryPublisher)(nil)

// HistoryPublisher writes each batch as one Kafka message. The writer is
// synchronous so WriteMessages only returns after the broker acknowledged it.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type HistoryPublisher struct {
	writer messageWriter
}

func NewHistoryPublisher(brokers []string, topic string) *HistoryPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &HistoryPublisher{writer: w}
}

func (p *HistoryPublisher) PublishHistory(ctx context.Context, batch *domain.HistoryBatch) error {
	body, err := publisher.EncodeHistory(batch)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", batch.PublishedAt.UnixMilli())),
		Value: body,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte(publisher.ContentType)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *HistoryPublisher) Close() error {
	return p.writer.Close()
}
