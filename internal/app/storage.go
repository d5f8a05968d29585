package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/MACHINE-IT/qbuydot-backend/db"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/auth"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/cart"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/event"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/order"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/store"
	"github.com/MACHINE-IT/qbuydot-backend/internal/repository"
	"github.com/MACHINE-IT/qbuydot-backend/internal/repository/memory"
	"github.com/MACHINE-IT/qbuydot-backend/pkg/health"
)

// storage groups the repositories of one backend.
type storage struct {
	tx       store.Transactor
	products product.Repository
	accounts account.Repository
	carts    cart.Repository
	orders   order.Repository
	events   event.Repository
	keys     auth.Repository

	// ready is registered as a readiness check when set.
	ready health.CheckFunc
	close func()
}

func openStorage(ctx context.Context, lg *zap.Logger, cfg *Config) (*storage, error) {
	switch cfg.Storage {
	case StorageMemory:
		return openMemory(ctx, lg, cfg)
	case StoragePostgres:
		return openPostgres(ctx, lg, cfg)
	default:
		return nil, errors.Errorf("unknown storage %q", cfg.Storage)
	}
}

func openMemory(ctx context.Context, lg *zap.Logger, cfg *Config) (*storage, error) {
	s := memory.New()
	if cfg.SeedCatalog {
		n, err := product.Seed(ctx, s.Products(), db.SeedProducts)
		if err != nil {
			return nil, errors.Wrap(err, "seed catalog")
		}
		lg.Info("Catalog seeded", zap.Int("products", n))
	}
	lg.Warn("Using in-memory storage, data is lost on restart")
	return &storage{
		tx:       s,
		products: s.Products(),
		accounts: s.Accounts(),
		carts:    s.Carts(),
		orders:   s.Orders(),
		events:   s.Events(),
		keys:     s.APIKeys(),
		close:    func() {},
	}, nil
}

func openPostgres(ctx context.Context, lg *zap.Logger, cfg *Config) (*storage, error) {
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		return nil, errors.Wrap(err, "run migrations")
	}
	lg.Info("Migrations applied")

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	return &storage{
		tx:       repository.NewTransactor(pool),
		products: repository.NewProductRepository(pool),
		accounts: repository.NewAccountRepository(pool),
		carts:    repository.NewCartRepository(pool),
		orders:   repository.NewOrderRepository(pool),
		events:   repository.NewEventRepository(pool),
		keys:     repository.NewAPIKeyRepository(pool),
		ready:    health.PingCheck(pool),
		close:    pool.Close,
	}, nil
}
