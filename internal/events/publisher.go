package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/omega-fast-coder/panoptikon/internal/domain"
)

// Publisher emits order lifecycle events. Publishing is best-effort from
// the checkout's point of view; a lost event does not undo an order.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "storefront-orders",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	payload := map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.Number,
		"session_id":   order.SessionID,
		"items":        order.Items,
		"total_amount": order.TotalAmount,
		"currency":     order.Currency,
		"placed_at":    order.PlacedAt,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal order payload: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.ID), // order id for ordering
		Value: payloadJSON,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("order.placed")},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events. Used when no brokers are configured, which is
// the normal setup for a local demo.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(_ context.Context, order *domain.Order) error {
	log.Printf("order %s placed (no event brokers configured)", order.Number)
	return nil
}

func (NopPublisher) Close() error { return nil }
