// Package cart models a user's mutable pre-purchase selection.
package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MACHINE-IT/qbuydot-backend/internal/apperr"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
)

// PaymentOptionDefault is the only payment option carts and orders carry.
const PaymentOptionDefault = "PAYMENT_OPTION_DEFAULT"

// ErrNotFound is returned when the user has no cart.
var ErrNotFound = apperr.New(apperr.NotFound, "User does not have a cart")

// Item is a cart line: a snapshot of the product at the time it was added
// and a positive quantity.
type Item struct {
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Cart is keyed by the owner's email. No two items share a product id.
type Cart struct {
	Email         string
	Items         []Item
	PaymentOption string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New returns an empty cart for email.
func New(email string) *Cart {
	now := time.Now().UTC()
	return &Cart{
		Email:         email,
		Items:         []Item{},
		PaymentOption: PaymentOptionDefault,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Find returns the index of the item holding productID.
func (c *Cart) Find(productID string) (int, bool) {
	for i, it := range c.Items {
		if it.Product.ID == productID {
			return i, true
		}
	}
	return -1, false
}

// Remove drops the item at index i.
func (c *Cart) Remove(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// Total sums snapshot cost times quantity over all items.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Product.Subtotal(it.Quantity))
	}
	return total
}

// Clone returns a deep copy of c.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]Item, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}

// Repository persists carts. FindByEmail returns ErrNotFound when absent.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Cart, error)
	Upsert(ctx context.Context, c *Cart) error
	DeleteByEmail(ctx context.Context, email string) error
}
