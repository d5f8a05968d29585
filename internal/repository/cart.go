package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/cart"
)

const (
	findCartSQL = `SELECT email, items, payment_option, created_at, updated_at
		FROM carts WHERE email = $1`

	upsertCartSQL = `INSERT INTO carts (email, items, payment_option)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET items = EXCLUDED.items,
			payment_option = EXCLUDED.payment_option, updated_at = now()
		RETURNING created_at, updated_at`

	deleteCartSQL = `DELETE FROM carts WHERE email = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Line items,
// including their product snapshots, are stored as a JSONB array.
type CartRepository struct {
	db   querier
	lock bool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{db: pool}
}

// FindByEmail returns the cart owned by email, or cart.ErrNotFound.
func (r *CartRepository) FindByEmail(ctx context.Context, email string) (*cart.Cart, error) {
	query := findCartSQL
	if r.lock {
		query += " FOR UPDATE"
	}

	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("finding cart %q: %w", email, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("finding cart %q: %w", email, err)
	}
	return c, nil
}

// Upsert creates the cart or replaces its items.
func (r *CartRepository) Upsert(ctx context.Context, c *cart.Cart) error {
	items := c.Items
	if items == nil {
		items = []cart.Item{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling cart items: %w", err)
	}

	err = r.db.QueryRow(ctx, upsertCartSQL, c.Email, itemsJSON, c.PaymentOption).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting cart %q: %w", c.Email, err)
	}
	return nil
}

// DeleteByEmail removes the cart owned by email.
func (r *CartRepository) DeleteByEmail(ctx context.Context, email string) error {
	if _, err := r.db.Exec(ctx, deleteCartSQL, email); err != nil {
		return fmt.Errorf("deleting cart %q: %w", email, err)
	}
	return nil
}

func scanCart(row pgx.CollectableRow) (*cart.Cart, error) {
	var (
		c         cart.Cart
		itemsJSON []byte
	)
	if err := row.Scan(&c.Email, &itemsJSON, &c.PaymentOption, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling cart items: %w", err)
	}
	return &c, nil
}
