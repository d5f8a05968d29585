package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
)

// Order is an immutable record of a completed purchase. Total is fixed at
// creation time and never recomputed.
type Order struct {
	ID            string
	Email         string
	Items         []OrderItem
	Total         decimal.Decimal
	PaymentOption string
	CreatedAt     time.Time
}

// OrderItem is a product snapshot and the purchased quantity.
type OrderItem struct {
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Repository defines persistence operations for orders. There is no update:
// orders are only created, listed, or removed with their owner's account.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	ListByEmail(ctx context.Context, email string) ([]Order, error)
	DeleteByEmail(ctx context.Context, email string) error
}
