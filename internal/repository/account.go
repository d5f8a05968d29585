package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
)

const (
	findAccountSQL = `SELECT email, name, wallet_money, address, created_at, updated_at
		FROM accounts WHERE email = $1`

	createAccountSQL = `INSERT INTO accounts (email, name, wallet_money, address)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	upsertAccountSQL = `INSERT INTO accounts (email, name, wallet_money, address)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, wallet_money = EXCLUDED.wallet_money,
			address = EXCLUDED.address, updated_at = now()
		RETURNING created_at, updated_at`

	deleteAccountSQL = `DELETE FROM accounts WHERE email = $1`
)

var _ account.Repository = (*AccountRepository)(nil)

// AccountRepository implements account.Repository backed by PostgreSQL.
// Carts, orders and API keys reference accounts with ON DELETE CASCADE.
type AccountRepository struct {
	db   querier
	lock bool
}

// NewAccountRepository returns an AccountRepository that uses the given pool.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: pool}
}

// FindByEmail returns the account for email. Inside a transaction the row
// stays locked until commit or rollback.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	query := findAccountSQL
	if r.lock {
		query += " FOR UPDATE"
	}

	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("finding account %q: %w", email, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAccount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("finding account %q: %w", email, err)
	}
	return &a, nil
}

// Create inserts a new account, failing with account.ErrEmailTaken when the
// email is already registered.
func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	err := r.db.QueryRow(ctx, createAccountSQL, a.Email, a.Name, a.WalletMoney, a.Address).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return account.ErrEmailTaken
		}
		return fmt.Errorf("creating account %q: %w", a.Email, err)
	}
	return nil
}

// Upsert writes every mutable field of a.
func (r *AccountRepository) Upsert(ctx context.Context, a *account.Account) error {
	err := r.db.QueryRow(ctx, upsertAccountSQL, a.Email, a.Name, a.WalletMoney, a.Address).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting account %q: %w", a.Email, err)
	}
	return nil
}

// DeleteByEmail removes the account and, by cascade, its cart, orders and keys.
func (r *AccountRepository) DeleteByEmail(ctx context.Context, email string) error {
	if _, err := r.db.Exec(ctx, deleteAccountSQL, email); err != nil {
		return fmt.Errorf("deleting account %q: %w", email, err)
	}
	return nil
}

func scanAccount(row pgx.CollectableRow) (account.Account, error) {
	var a account.Account
	err := row.Scan(&a.Email, &a.Name, &a.WalletMoney, &a.Address, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
