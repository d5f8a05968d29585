package service

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/auth"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/store"
)

// Registration is the result of creating an account. APIKey is the raw key
// and is only available at registration time.
type Registration struct {
	Account *account.Account
	APIKey  string
}

// CartInvalidator drops cached cart state of an email.
type CartInvalidator interface {
	Invalidate(ctx context.Context, email string)
}

var _ CartInvalidator = (*Cart)(nil)

// Account manages user accounts.
type Account struct {
	tx            store.Transactor
	accounts      account.Repository
	hasher        *auth.Hasher
	carts         CartInvalidator
	defaultWallet decimal.Decimal
	tel           *Telemetry
}

// NewAccount creates an Account service. New accounts start with
// defaultWallet in their wallet.
func NewAccount(
	tx store.Transactor,
	accounts account.Repository,
	hasher *auth.Hasher,
	carts CartInvalidator,
	defaultWallet decimal.Decimal,
	tel *Telemetry,
) *Account {
	return &Account{
		tx:            tx,
		accounts:      accounts,
		hasher:        hasher,
		carts:         carts,
		defaultWallet: defaultWallet,
		tel:           tel,
	}
}

// Register creates an account and issues its API key. A registered email
// fails with account.ErrEmailTaken.
func (s *Account) Register(ctx context.Context, email, name string) (_ *Registration, err error) {
	ctx, span := s.tel.start(ctx, "account.Register")
	defer func() { s.tel.end(ctx, span, "account.register", err) }()

	raw, hash, err := s.hasher.Generate()
	if err != nil {
		return nil, errors.Wrap(err, "generate api key")
	}

	acc := &account.Account{
		Email:       email,
		Name:        name,
		WalletMoney: s.defaultWallet,
		Address:     account.DefaultAddress,
	}
	err = s.tx.InTx(ctx, func(ctx context.Context, st store.Stores) error {
		if err := st.Accounts.Create(ctx, acc); err != nil {
			if errors.Is(err, account.ErrEmailTaken) {
				return account.ErrEmailTaken
			}
			return errors.Wrap(err, "create account")
		}
		if err := st.Keys.Create(ctx, auth.APIKeyInfo{
			ID:      uuid.NewString(),
			KeyHash: hash,
			Email:   email,
			Name:    "default",
		}); err != nil {
			return errors.Wrap(err, "create api key")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Registration{Account: acc, APIKey: raw}, nil
}

// Get returns the account for email.
func (s *Account) Get(ctx context.Context, email string) (_ *account.Account, err error) {
	ctx, span := s.tel.start(ctx, "account.Get")
	defer func() { s.tel.end(ctx, span, "account.get", err) }()

	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, account.ErrNotFound
		}
		return nil, errors.Wrap(err, "get account")
	}
	return acc, nil
}

// SetAddress stores the shipping address and returns it.
func (s *Account) SetAddress(ctx context.Context, email, address string) (_ string, err error) {
	ctx, span := s.tel.start(ctx, "account.SetAddress")
	defer func() { s.tel.end(ctx, span, "account.set_address", err) }()

	err = inAccountScope(ctx, s.tx, email, func(ctx context.Context, st store.Stores, acc *account.Account) error {
		acc.Address = address
		if err := st.Accounts.Upsert(ctx, acc); err != nil {
			return errors.Wrap(err, "save address")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return address, nil
}

// AccountUpdate lists profile fields to change. Nil fields keep their value.
type AccountUpdate struct {
	Name    *string
	Address *string
}

// Update changes the name and address of the account and returns it.
func (s *Account) Update(ctx context.Context, email string, upd AccountUpdate) (_ *account.Account, err error) {
	ctx, span := s.tel.start(ctx, "account.Update")
	defer func() { s.tel.end(ctx, span, "account.update", err) }()

	if upd.Name == nil && upd.Address == nil {
		return nil, ErrNothingToUpdate
	}

	var out *account.Account
	err = inAccountScope(ctx, s.tx, email, func(ctx context.Context, st store.Stores, acc *account.Account) error {
		if upd.Name != nil {
			acc.Name = *upd.Name
		}
		if upd.Address != nil {
			acc.Address = *upd.Address
		}
		if err := st.Accounts.Upsert(ctx, acc); err != nil {
			return errors.Wrap(err, "save account")
		}
		out = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the account together with its orders and cart.
func (s *Account) Delete(ctx context.Context, email string) (err error) {
	ctx, span := s.tel.start(ctx, "account.Delete")
	defer func() { s.tel.end(ctx, span, "account.delete", err) }()

	err = inAccountScope(ctx, s.tx, email, func(ctx context.Context, st store.Stores, _ *account.Account) error {
		if err := st.Orders.DeleteByEmail(ctx, email); err != nil {
			return errors.Wrap(err, "delete orders")
		}
		if err := st.Carts.DeleteByEmail(ctx, email); err != nil {
			return errors.Wrap(err, "delete cart")
		}
		if err := st.Accounts.DeleteByEmail(ctx, email); err != nil {
			return errors.Wrap(err, "delete account")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.carts.Invalidate(ctx, email)
	return nil
}
