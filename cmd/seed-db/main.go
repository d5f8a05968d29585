package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/MACHINE-IT/qbuydot-backend/db"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/auth"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/store"
	"github.com/MACHINE-IT/qbuydot-backend/internal/repository"
)

type options struct {
	databaseURL  string
	productsFile string
	email        string
	name         string
	apiKey       string
	apiKeyPepper string
	wallet       int64
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "", "path to products JSON file (default: embedded catalog)")
	flag.StringVar(&opts.email, "email", "", "email of a demo account to create (optional)")
	flag.StringVar(&opts.name, "name", "Demo User", "name of the demo account")
	flag.StringVar(&opts.apiKey, "api-key", "", "API key of the demo account (or QBUY_SEED_API_KEY env)")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or QBUY_API_KEY_PEPPER env)")
	flag.Int64Var(&opts.wallet, "wallet", 5000, "wallet balance of the demo account")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if opts.apiKey == "" {
		opts.apiKey = os.Getenv("QBUY_SEED_API_KEY")
	}
	if opts.apiKeyPepper == "" {
		opts.apiKeyPepper = os.Getenv("QBUY_API_KEY_PEPPER")
	}
	if opts.email != "" && opts.apiKey == "" {
		slog.Error("API key is required with --email: set --api-key or QBUY_SEED_API_KEY")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	slog.Info("running migrations")
	if err := repository.RunMigrations(opts.databaseURL); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("connecting to database")
	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	catalog := db.SeedProducts
	if opts.productsFile != "" {
		slog.Info("reading products file", slog.String("path", opts.productsFile))
		if catalog, err = os.ReadFile(opts.productsFile); err != nil {
			return errors.Wrap(err, "read products file")
		}
	}
	n, err := product.Seed(ctx, repository.NewProductRepository(pool), catalog)
	if err != nil {
		return errors.Wrap(err, "seed products")
	}
	slog.Info("upserted products", slog.Int("count", n))

	if opts.email == "" {
		return nil
	}
	return seedAccount(ctx, repository.NewTransactor(pool), opts)
}

// seedAccount creates the demo account if missing and binds the given API
// key to it.
func seedAccount(ctx context.Context, tx *repository.Transactor, opts options) error {
	hasher := auth.NewHasher([]byte(opts.apiKeyPepper))

	return tx.InTx(ctx, func(ctx context.Context, s store.Stores) error {
		_, err := s.Accounts.FindByEmail(ctx, opts.email)
		switch {
		case err == nil:
			slog.Info("account exists", slog.String("email", opts.email))
		case errors.Is(err, account.ErrNotFound):
			if err := s.Accounts.Create(ctx, &account.Account{
				Email:       opts.email,
				Name:        opts.name,
				WalletMoney: decimal.NewFromInt(opts.wallet),
				Address:     account.DefaultAddress,
			}); err != nil {
				return errors.Wrap(err, "create account")
			}
			slog.Info("created account", slog.String("email", opts.email))
		default:
			return errors.Wrap(err, "find account")
		}

		if err := s.Keys.Create(ctx, auth.APIKeyInfo{
			ID:      "seed-" + opts.email,
			KeyHash: hasher.Hash(opts.apiKey),
			Email:   opts.email,
			Name:    "seed",
		}); err != nil {
			return errors.Wrap(err, "upsert api key")
		}
		slog.Info("upserted API key", slog.String("email", opts.email))
		return nil
	})
}
