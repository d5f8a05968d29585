// Package outbox delivers recorded order events to a message broker.
package outbox

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/event"
)

// Publisher sends one outbox record to the broker.
type Publisher interface {
	Publish(ctx context.Context, rec event.Record) error
}

// Relay polls the outbox and publishes pending records oldest first.
// Delivery is at least once: a record is marked sent only after Publish
// succeeds.
type Relay struct {
	events    event.Repository
	pub       Publisher
	interval  time.Duration
	batchSize int
}

// NewRelay creates a Relay reading up to batchSize records every interval.
func NewRelay(events event.Repository, pub Publisher, interval time.Duration, batchSize int) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{
		events:    events,
		pub:       pub,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run flushes the outbox on every tick until ctx is canceled.
func (r *Relay) Run(ctx context.Context) error {
	lg := zctx.From(ctx).Named("outbox")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.Flush(ctx)
			if err != nil && ctx.Err() == nil {
				lg.Warn("Outbox flush failed", zap.Int("sent", n), zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Debug("Outbox flushed", zap.Int("sent", n))
			}
		}
	}
}

// Flush publishes one batch of pending records and returns how many were
// delivered. It stops at the first publish failure so later records are not
// delivered ahead of an earlier one.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	pending, err := r.events.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, errors.Wrap(err, "fetch pending")
	}

	sent := 0
	for _, rec := range pending {
		if err := r.pub.Publish(ctx, rec); err != nil {
			return sent, errors.Wrapf(err, "publish event %s", rec.EventID)
		}
		if err := r.events.MarkSent(ctx, rec.ID); err != nil {
			return sent, errors.Wrapf(err, "mark event %d sent", rec.ID)
		}
		sent++
	}
	return sent, nil
}
