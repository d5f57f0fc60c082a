// Package kafka publishes committed purchases to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"marketplace-backend/config"
	"marketplace-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// EventPurchaseCommitted is the event type of a committed purchase.
const EventPurchaseCommitted = "purchase.committed"

const eventVersion = 1

// Event is the envelope written as the message value.
type Event struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Version    int             `json:"version"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// PurchasePayload is the payload of a purchase.committed event.
type PurchasePayload struct {
	TransactionID int64     `json:"transaction_id"`
	WalletID      int64     `json:"wallet_id"`
	ItemID        int64     `json:"item_id"`
	UserID        int64     `json:"user_id"`
	Quantity      int64     `json:"quantity"`
	UnitPrice     string    `json:"unit_price"`
	TotalPrice    string    `json:"total_price"`
	CreatedAt     time.Time `json:"created_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements ports.EventPublisher.
type Publisher struct {
	w   messageWriter
	log zerolog.Logger
	now func() time.Time
}

// NewPublisher creates an async publisher for cfg.Topic.
// Delivery errors surface through the writer's completion callback and are logged.
func NewPublisher(cfg config.KafkaConfig, log zerolog.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Int("messages", len(messages)).Msg("Kafka delivery failed")
			}
		},
	}
	return newPublisher(w, log)
}

func newPublisher(w messageWriter, log zerolog.Logger) *Publisher {
	return &Publisher{w: w, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// PublishPurchase writes a purchase.committed event keyed by wallet id,
// so events of one wallet stay ordered within a partition.
func (p *Publisher) PublishPurchase(ctx context.Context, t *domain.Transaction) error {
	payload, err := json.Marshal(PurchasePayload{
		TransactionID: t.ID,
		WalletID:      t.WalletID,
		ItemID:        t.ItemID,
		UserID:        t.UserID,
		Quantity:      t.Quantity,
		UnitPrice:     t.UnitPrice.StringFixed(domain.MoneyScale),
		TotalPrice:    t.TotalPrice.StringFixed(domain.MoneyScale),
		CreatedAt:     t.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal purchase payload: %w", err)
	}

	value, err := json.Marshal(Event{
		EventID:    uuid.NewString(),
		EventType:  EventPurchaseCommitted,
		Version:    eventVersion,
		OccurredAt: p.now(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(t.WalletID, 10)),
		Value: value,
		Time:  p.now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventPurchaseCommitted)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish purchase %d: %w", t.ID, err)
	}

	p.log.Debug().
		Int64("transaction_id", t.ID).
		Int64("wallet_id", t.WalletID).
		Msg("Purchase event published")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}
