package product

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/MACHINE-IT/qbuydot-backend/internal/apperr"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = apperr.New(apperr.NotFound, "Product not found")

// Product represents a catalog item available for purchase. Carts and orders
// embed Product by value, so a stored line item keeps the cost it was added
// with even if the catalog entry changes later.
type Product struct {
	ID       string          `json:"_id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Cost     decimal.Decimal `json:"cost"`
	Rating   int             `json:"rating"`
	Image    string          `json:"image"`
}

// Subtotal returns the cost of quantity units of p.
func (p Product) Subtotal(quantity int) decimal.Decimal {
	return p.Cost.Mul(decimal.NewFromInt(int64(quantity)))
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// Writer persists catalog entries. Only seeding tools write to the catalog.
type Writer interface {
	Upsert(ctx context.Context, p Product) error
}
