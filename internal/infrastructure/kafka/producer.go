package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/gramstore/internal/domain/sale"
	"github.com/example/gramstore/internal/infrastructure/store"
	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
}

// NewProducer writes to topic with messages hashed by key, so every sale of
// one product lands on the same partition. Concurrent sales may be published
// out of version order; consumers must not rely on it.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: writer}
}

// PublishSale publishes ev as a SaleRecorded envelope keyed by product.
func (p *Producer) PublishSale(ctx context.Context, ev *sale.SaleEvent) error {
	msg, err := saleMessage(ev)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish sale %s: %w", ev.ID, err)
	}
	return nil
}

func saleMessage(ev *sale.SaleEvent) (kafka.Message, error) {
	env, err := store.NewSaleRecorded(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to build envelope: %w", err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.ProductID),
		Value: data,
		Time:  ev.SoldAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
