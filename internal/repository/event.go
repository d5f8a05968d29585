package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/event"
)

const (
	insertEventSQL = `INSERT INTO order_events (event_id, topic, key, payload)
		VALUES ($1, $2, $3, $4)`

	fetchPendingEventsSQL = `SELECT id, event_id::text, topic, key, payload, created_at, sent_at
		FROM order_events WHERE sent_at IS NULL ORDER BY id LIMIT $1`

	markEventSentSQL = `UPDATE order_events SET sent_at = now() WHERE id = $1`
)

var _ event.Repository = (*EventRepository)(nil)

// EventRepository implements event.Repository on the order_events table.
type EventRepository struct {
	db querier
}

// NewEventRepository returns an EventRepository that uses the given pool.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: pool}
}

// Insert appends an outbox record.
func (r *EventRepository) Insert(ctx context.Context, rec event.Record) error {
	_, err := r.db.Exec(ctx, insertEventSQL, rec.EventID, rec.Topic, rec.Key, rec.Payload)
	if err != nil {
		return fmt.Errorf("inserting event %q: %w", rec.EventID, err)
	}
	return nil
}

// FetchPending returns up to limit unsent records, oldest first.
func (r *EventRepository) FetchPending(ctx context.Context, limit int) ([]event.Record, error) {
	rows, err := r.db.Query(ctx, fetchPendingEventsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching pending events: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (event.Record, error) {
		var rec event.Record
		err := row.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.SentAt)
		return rec, err
	})
}

// MarkSent stamps the record as delivered.
func (r *EventRepository) MarkSent(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, markEventSentSQL, id); err != nil {
		return fmt.Errorf("marking event %d sent: %w", id, err)
	}
	return nil
}
