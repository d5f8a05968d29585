// Package account models the wallet and shipping details of a user.
package account

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MACHINE-IT/qbuydot-backend/internal/apperr"
)

// DefaultAddress marks an account whose shipping address was never set.
const DefaultAddress = "ADDRESS_NOT_SET"

// Sentinel errors for account lookups.
var (
	ErrNotFound   = apperr.New(apperr.NotFound, "User not found")
	ErrEmailTaken = apperr.New(apperr.Conflict, "Email already taken")
)

// Account is keyed by email. WalletMoney never goes negative.
type Account struct {
	Email       string
	Name        string
	WalletMoney decimal.Decimal
	Address     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasAddress reports whether a shipping address is on file.
func (a *Account) HasAddress() bool {
	return a.Address != "" && a.Address != DefaultAddress
}

// CanAfford reports whether the wallet covers amount. Equality is affordable.
func (a *Account) CanAfford(amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(a.WalletMoney)
}

// Repository persists accounts. FindByEmail returns ErrNotFound when absent
// and Create returns ErrEmailTaken for a duplicate email.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	Upsert(ctx context.Context, a *Account) error
	DeleteByEmail(ctx context.Context, email string) error
}
