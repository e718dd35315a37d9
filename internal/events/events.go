// Package events publishes domain events about completed orders.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	applog "blaze/internal/log"
)

const TypeOrderCreated = "order.created"

type OrderCreated struct {
	Type             string          `json:"type"`
	OrderID          string          `json:"order_id"`
	ProductID        string          `json:"product_id"`
	BuyerID          string          `json:"buyer_id"`
	SellerID         string          `json:"seller_id"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	PaymentSessionID string          `json:"payment_session_id"`
	CreatedAt        string          `json:"created_at"`
}

// Publisher sends an event keyed by key.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkaGo.LeastBytes{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}}
}

func (k *KafkaPublisher) Publish(ctx context.Context, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return k.w.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(key),
		Value: payload,
	})
}

func (k *KafkaPublisher) Close() error { return k.w.Close() }

// LogPublisher writes events to the structured log instead of a broker.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, key string, event any) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	var fields map[string]any
	_ = json.Unmarshal(b, &fields)
	applog.Info(nil, "event.publish", map[string]any{"key": key, "event": fields})
	return nil
}

func (LogPublisher) Close() error { return nil }
