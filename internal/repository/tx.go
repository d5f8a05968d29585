package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/store"
)

// withTx runs fn in a transaction on pool, rolling back when fn or the commit
// fails.
func withTx[T any](ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) (T, error)) (_ T, txErr error) {
	var zero T

	tx, err := pool.Begin(ctx)
	if err != nil {
		return zero, fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if txErr != nil {
			rollbackErr := tx.Rollback(ctx)
			if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				txErr = errors.Join(txErr, fmt.Errorf("rolling back: %w", rollbackErr))
			}
		}
	}()

	result, err := fn(tx)
	if err != nil {
		return zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return zero, fmt.Errorf("committing transaction: %w", err)
	}

	return result, nil
}

var _ store.Transactor = (*Transactor)(nil)

// Transactor implements store.Transactor on a pgx pool.
type Transactor struct {
	pool *pgxpool.Pool
}

// NewTransactor returns a Transactor that uses the given pool.
func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// InTx runs fn with repositories bound to one transaction. Account and cart
// lookups made through them take row locks.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	_, err := withTx(ctx, t.pool, func(tx pgx.Tx) (struct{}, error) {
		return struct{}{}, fn(ctx, store.Stores{
			Products: &ProductRepository{db: tx},
			Accounts: &AccountRepository{db: tx, lock: true},
			Carts:    &CartRepository{db: tx, lock: true},
			Orders:   &OrderRepository{db: tx},
			Events:   &EventRepository{db: tx},
			Keys:     &APIKeyRepository{db: tx},
		})
	})
	return err
}
