//go:build integration

package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/auth"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/cart"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/event"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/order"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/store"
	"github.com/MACHINE-IT/qbuydot-backend/internal/repository"
)

type repositorySuite struct {
	suite.Suite

	container *postgres.PostgresContainer
	connStr   string
	pool      *pgxpool.Pool

	products *repository.ProductRepository
	accounts *repository.AccountRepository
	carts    *repository.CartRepository
	orders   *repository.OrderRepository
	events   *repository.EventRepository
	keys     *repository.APIKeyRepository
	tx       *repository.Transactor
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(repositorySuite))
}

func (s *repositorySuite) SetupSuite() {
	ctx := context.Background()

	container, connStr, err := startPostgres(ctx)
	s.Require().NoError(err)
	s.container = container
	s.connStr = connStr

	s.Require().NoError(repository.RunMigrations(connStr))
	// A second run is a no-op.
	s.Require().NoError(repository.RunMigrations(connStr))

	s.pool, err = repository.NewPool(ctx, connStr)
	s.Require().NoError(err)

	s.products = repository.NewProductRepository(s.pool)
	s.accounts = repository.NewAccountRepository(s.pool)
	s.carts = repository.NewCartRepository(s.pool)
	s.orders = repository.NewOrderRepository(s.pool)
	s.events = repository.NewEventRepository(s.pool)
	s.keys = repository.NewAPIKeyRepository(s.pool)
	s.tx = repository.NewTransactor(s.pool)
}

func (s *repositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		s.Require().NoError(testcontainers.TerminateContainer(s.container))
	}
}

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	container, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
		postgres.WithDatabase("qbuy"),
		postgres.WithUsername("qbuy"),
		postgres.WithPassword("qbuy"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", err
	}
	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}
	return container, connStr, nil
}

func fakeProduct() product.Product {
	return product.Product{
		ID:       uuid.NewString(),
		Name:     gofakeit.ProductName(),
		Category: gofakeit.ProductCategory(),
		Cost:     decimal.NewFromFloat(gofakeit.Price(1, 500)).Round(2),
		Rating:   gofakeit.IntRange(1, 5),
		Image:    gofakeit.URL(),
	}
}

func (s *repositorySuite) newAccount(wallet int64) *account.Account {
	a := &account.Account{
		Email:       gofakeit.Email(),
		Name:        gofakeit.Name(),
		WalletMoney: decimal.NewFromInt(wallet),
		Address:     account.DefaultAddress,
	}
	s.Require().NoError(s.accounts.Create(context.Background(), a))
	return a
}

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func (s *repositorySuite) TestProducts() {
	ctx := context.Background()
	p1, p2 := fakeProduct(), fakeProduct()
	s.Require().NoError(s.products.Upsert(ctx, p1))
	s.Require().NoError(s.products.Upsert(ctx, p2))

	got, err := s.products.GetByID(ctx, p1.ID)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(p1, *got, decimalComparer))

	_, err = s.products.GetByID(ctx, "missing")
	s.Require().ErrorIs(err, product.ErrNotFound)

	many, err := s.products.GetByIDs(ctx, []string{p1.ID, p2.ID, "missing"})
	s.Require().NoError(err)
	s.Len(many, 2)

	p1.Cost = p1.Cost.Add(decimal.NewFromInt(1))
	s.Require().NoError(s.products.Upsert(ctx, p1))
	got, err = s.products.GetByID(ctx, p1.ID)
	s.Require().NoError(err)
	s.True(p1.Cost.Equal(got.Cost))
}

func (s *repositorySuite) TestAccounts() {
	ctx := context.Background()
	a := s.newAccount(5000)

	err := s.accounts.Create(ctx, &account.Account{Email: a.Email, Name: "dup", Address: account.DefaultAddress})
	s.Require().ErrorIs(err, account.ErrEmailTaken)

	got, err := s.accounts.FindByEmail(ctx, a.Email)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(a, got, decimalComparer, cmpopts.IgnoreFields(account.Account{}, "CreatedAt", "UpdatedAt")))

	got.Address = gofakeit.Address().Address
	got.WalletMoney = decimal.RequireFromString("12.34")
	s.Require().NoError(s.accounts.Upsert(ctx, got))

	again, err := s.accounts.FindByEmail(ctx, a.Email)
	s.Require().NoError(err)
	s.Equal(got.Address, again.Address)
	s.True(decimal.RequireFromString("12.34").Equal(again.WalletMoney))

	_, err = s.accounts.FindByEmail(ctx, "nobody@example.com")
	s.Require().ErrorIs(err, account.ErrNotFound)
}

func (s *repositorySuite) TestNegativeWalletRejected() {
	ctx := context.Background()
	a := s.newAccount(10)
	a.WalletMoney = decimal.NewFromInt(-1)
	s.Require().Error(s.accounts.Upsert(ctx, a))
}

func (s *repositorySuite) TestCartRoundTrip() {
	ctx := context.Background()
	a := s.newAccount(5000)
	p := fakeProduct()

	_, err := s.carts.FindByEmail(ctx, a.Email)
	s.Require().ErrorIs(err, cart.ErrNotFound)

	c := cart.New(a.Email)
	c.Items = append(c.Items, cart.Item{Product: p, Quantity: 3})
	s.Require().NoError(s.carts.Upsert(ctx, c))

	got, err := s.carts.FindByEmail(ctx, a.Email)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(c, got, decimalComparer, cmpopts.IgnoreFields(cart.Cart{}, "CreatedAt", "UpdatedAt")))

	got.Items = got.Items[:0]
	s.Require().NoError(s.carts.Upsert(ctx, got))
	got, err = s.carts.FindByEmail(ctx, a.Email)
	s.Require().NoError(err)
	s.Empty(got.Items)
}

func (s *repositorySuite) TestOrdersAndCascade() {
	ctx := context.Background()
	a := s.newAccount(5000)

	orders, err := s.orders.ListByEmail(ctx, a.Email)
	s.Require().NoError(err)
	s.NotNil(orders)
	s.Empty(orders)

	o := &order.Order{
		ID:            uuid.NewString(),
		Email:         a.Email,
		Items:         []order.OrderItem{{Product: fakeProduct(), Quantity: 2}},
		Total:         decimal.RequireFromString("99.90"),
		PaymentOption: cart.PaymentOptionDefault,
	}
	s.Require().NoError(s.orders.Create(ctx, o))
	s.False(o.CreatedAt.IsZero())

	orders, err = s.orders.ListByEmail(ctx, a.Email)
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Empty(cmp.Diff(*o, orders[0], decimalComparer, cmpopts.IgnoreFields(order.Order{}, "CreatedAt")))

	s.Require().NoError(s.carts.Upsert(ctx, cart.New(a.Email)))
	s.Require().NoError(s.keys.Create(ctx, auth.APIKeyInfo{ID: uuid.NewString(), KeyHash: uuid.NewString(), Email: a.Email}))
	s.Require().NoError(s.accounts.DeleteByEmail(ctx, a.Email))

	orders, err = s.orders.ListByEmail(ctx, a.Email)
	s.Require().NoError(err)
	s.Empty(orders)
	_, err = s.carts.FindByEmail(ctx, a.Email)
	s.Require().ErrorIs(err, cart.ErrNotFound)
}

func (s *repositorySuite) TestAPIKeys() {
	ctx := context.Background()
	a := s.newAccount(0)
	hash := uuid.NewString()

	s.Require().NoError(s.keys.Create(ctx, auth.APIKeyInfo{ID: "k-" + hash, KeyHash: hash, Email: a.Email, Name: "test"}))

	info, err := s.keys.FindByHash(ctx, hash)
	s.Require().NoError(err)
	s.Equal(a.Email, info.Email)

	_, err = s.keys.FindByHash(ctx, "unknown")
	s.Require().Error(err)
}

func (s *repositorySuite) TestTransactorRollback() {
	ctx := context.Background()
	a := s.newAccount(100)

	err := s.tx.InTx(ctx, func(ctx context.Context, st store.Stores) error {
		locked, err := st.Accounts.FindByEmail(ctx, a.Email)
		if err != nil {
			return err
		}
		locked.WalletMoney = decimal.Zero
		if err := st.Accounts.Upsert(ctx, locked); err != nil {
			return err
		}
		if err := st.Orders.Create(ctx, &order.Order{
			ID: uuid.NewString(), Email: a.Email, Items: []order.OrderItem{}, Total: decimal.NewFromInt(100),
			PaymentOption: cart.PaymentOptionDefault,
		}); err != nil {
			return err
		}
		// Duplicate event ids violate the unique constraint.
		id := uuid.NewString()
		if err := st.Events.Insert(ctx, event.Record{EventID: id, Topic: event.TopicOrderCreated, Key: a.Email, Payload: []byte(`{}`)}); err != nil {
			return err
		}
		return st.Events.Insert(ctx, event.Record{EventID: id, Topic: event.TopicOrderCreated, Key: a.Email, Payload: []byte(`{}`)})
	})
	s.Require().Error(err)

	got, err := s.accounts.FindByEmail(ctx, a.Email)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(100).Equal(got.WalletMoney))

	orders, err := s.orders.ListByEmail(ctx, a.Email)
	s.Require().NoError(err)
	s.Empty(orders)
}

func (s *repositorySuite) TestTransactorReadsCatalogOnItsConnection() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p := fakeProduct()
	s.Require().NoError(s.products.Upsert(ctx, p))
	a := s.newAccount(100)

	// With a single connection any lookup that leaves the transaction would
	// wait for the pool until the deadline.
	pool, err := repository.NewPool(ctx, s.connStr+"&pool_max_conns=1")
	s.Require().NoError(err)
	defer pool.Close()

	err = repository.NewTransactor(pool).InTx(ctx, func(ctx context.Context, st store.Stores) error {
		if _, err := st.Accounts.FindByEmail(ctx, a.Email); err != nil {
			return err
		}
		got, err := st.Products.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		s.True(p.Cost.Equal(got.Cost))
		many, err := st.Products.GetByIDs(ctx, []string{p.ID})
		if err != nil {
			return err
		}
		s.Len(many, 1)
		return nil
	})
	s.Require().NoError(err)
}

func (s *repositorySuite) TestTransactorSerializesPerAccount() {
	ctx := context.Background()
	a := s.newAccount(100)

	// Each transaction debits 60 only if the locked balance still covers it.
	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.tx.InTx(ctx, func(ctx context.Context, st store.Stores) error {
				locked, err := st.Accounts.FindByEmail(ctx, a.Email)
				if err != nil {
					return err
				}
				if !locked.CanAfford(decimal.NewFromInt(60)) {
					return nil
				}
				locked.WalletMoney = locked.WalletMoney.Sub(decimal.NewFromInt(60))
				results[i] = true
				return st.Accounts.Upsert(ctx, locked)
			})
		}()
	}
	wg.Wait()

	s.NotEqual(results[0], results[1])
	got, err := s.accounts.FindByEmail(ctx, a.Email)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(40).Equal(got.WalletMoney))
}

func (s *repositorySuite) TestEventsOutbox() {
	ctx := context.Background()
	ids := []string{uuid.NewString(), uuid.NewString()}
	for _, id := range ids {
		s.Require().NoError(s.events.Insert(ctx, event.Record{
			EventID: id, Topic: event.TopicOrderCreated, Key: "k", Payload: []byte(`{"ok":true}`),
		}))
	}

	pending, err := s.events.FetchPending(ctx, 100)
	s.Require().NoError(err)
	var mine []event.Record
	for _, rec := range pending {
		if rec.EventID == ids[0] || rec.EventID == ids[1] {
			mine = append(mine, rec)
		}
	}
	s.Require().Len(mine, 2)
	s.Nil(mine[0].SentAt)
	s.JSONEq(`{"ok":true}`, string(mine[0].Payload))

	s.Require().NoError(s.events.MarkSent(ctx, mine[0].ID))
	pending, err = s.events.FetchPending(ctx, 100)
	s.Require().NoError(err)
	for _, rec := range pending {
		s.NotEqual(ids[0], rec.EventID)
	}
}
