// Package cache provides a read-through cache for carts.
package cache

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/cart"
)

// ErrCacheMiss is returned by Get when no entry exists for the email.
var ErrCacheMiss = errors.New("cache miss")

// CartCache stores carts keyed by owner email. Entries are invalidated after
// every committed cart mutation.
type CartCache interface {
	Get(ctx context.Context, email string) (*cart.Cart, error)
	Set(ctx context.Context, c *cart.Cart) error
	Delete(ctx context.Context, email string) error
}

// Nop is a CartCache that never stores anything.
type Nop struct{}

var _ CartCache = Nop{}

func (Nop) Get(context.Context, string) (*cart.Cart, error) { return nil, ErrCacheMiss }
func (Nop) Set(context.Context, *cart.Cart) error           { return nil }
func (Nop) Delete(context.Context, string) error            { return nil }
