// Package event models the transactional outbox of order notifications.
package event

import (
	"context"
	"time"
)

// TopicOrderCreated is the topic of events recorded when an order is placed.
const TopicOrderCreated = "order.created"

// Record is an outbox row awaiting delivery. SentAt is nil until published.
type Record struct {
	ID        int64
	EventID   string
	Topic     string
	Key       string
	Payload   []byte
	CreatedAt time.Time
	SentAt    *time.Time
}

// Repository stores outbox records. Insert runs inside the transaction that
// produced the event; FetchPending returns unsent records oldest first.
type Repository interface {
	Insert(ctx context.Context, r Record) error
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
}
