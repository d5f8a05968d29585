// Package store groups the repositories that take part in a single
// transaction.
package store

import (
	"context"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/auth"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/cart"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/event"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/order"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
)

// Stores are repositories bound to one transaction. Within a transaction,
// Accounts.FindByEmail and Carts.FindByEmail lock the returned row until the
// transaction ends, which serializes work on the same account. Code running
// inside a transaction must reach storage only through these repositories.
type Stores struct {
	Products product.Repository
	Accounts account.Repository
	Carts    cart.Repository
	Orders   order.Repository
	Events   event.Repository
	Keys     auth.Repository
}

// Transactor runs fn inside one durable transaction. Every write made through
// the Stores passed to fn commits together, or none does if fn or the commit
// returns an error.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
