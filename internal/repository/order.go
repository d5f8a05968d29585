package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, email, items, total, payment_option)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	listOrdersByEmailSQL = `SELECT id::text, email, items, total, payment_option, created_at
		FROM orders WHERE email = $1 ORDER BY created_at, id`

	deleteOrdersByEmailSQL = `DELETE FROM orders WHERE email = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db querier
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: pool}
}

// Create persists a new order. The order items are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	err = r.db.QueryRow(ctx, createOrderSQL,
		o.ID, o.Email, itemsJSON, o.Total, o.PaymentOption,
	).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// ListByEmail returns the orders placed by email, oldest first. A user with
// no orders gets an empty slice.
func (r *OrderRepository) ListByEmail(ctx context.Context, email string) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", email, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", email, err)
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return orders, nil
}

// DeleteByEmail removes every order placed by email.
func (r *OrderRepository) DeleteByEmail(ctx context.Context, email string) error {
	if _, err := r.db.Exec(ctx, deleteOrdersByEmailSQL, email); err != nil {
		return fmt.Errorf("deleting orders for %q: %w", email, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
	)
	if err := row.Scan(&o.ID, &o.Email, &itemsJSON, &o.Total, &o.PaymentOption, &o.CreatedAt); err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	return o, nil
}
