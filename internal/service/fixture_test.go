package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/MACHINE-IT/qbuydot-backend/internal/cache"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/auth"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/cart"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/order"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/store"
	"github.com/MACHINE-IT/qbuydot-backend/internal/repository/memory"
)

const (
	testEmail   = "crio-user@gmail.com"
	testAddress = "128 Residency Road, Bengaluru 560025"
)

var (
	backpack = product.Product{ID: "BW0jAAeDJmlZCF8i", Name: "Atomic Backpack", Category: "Fashion", Cost: decimal.NewFromInt(100), Rating: 5}
	bottle   = product.Product{ID: "KCRwjF7lN97HnEaY", Name: "YONEX Smash Badminton Racquet", Category: "Sports", Cost: decimal.NewFromInt(50), Rating: 4}
)

type fixture struct {
	store    *memory.Store
	cache    *recordingCache
	cart     *Cart
	order    *Order
	account  *Account
	hasher   *auth.Hasher
	products *memory.Products
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithTx(t, nil)
}

// newFixtureWithTx builds services over a memory store. wrap, when set,
// decorates the transactor the services use.
func newFixtureWithTx(t *testing.T, wrap func(store.Transactor) store.Transactor) *fixture {
	t.Helper()
	ctx := context.Background()

	s := memory.New()
	for _, p := range []product.Product{backpack, bottle} {
		require.NoError(t, s.Products().Upsert(ctx, p))
	}

	var tx store.Transactor = s
	if wrap != nil {
		tx = wrap(s)
	}

	rc := newRecordingCache()
	hasher := auth.NewHasher([]byte("test-pepper"))
	tel := NopTelemetry()
	carts := NewCart(tx, s.Carts(), rc, tel)
	return &fixture{
		store:    s,
		cache:    rc,
		cart:     carts,
		order:    NewOrder(tx, s.Products(), s.Orders(), tel),
		account:  NewAccount(tx, s.Accounts(), hasher, carts, decimal.NewFromInt(5000), tel),
		hasher:   hasher,
		products: s.Products(),
	}
}

// seedAccount stores an account with the given wallet and address.
func (f *fixture) seedAccount(t *testing.T, wallet decimal.Decimal, address string) {
	t.Helper()
	require.NoError(t, f.store.Accounts().Create(context.Background(), &account.Account{
		Email:       testEmail,
		Name:        "crio-user",
		WalletMoney: wallet,
		Address:     address,
	}))
}

func (f *fixture) wallet(t *testing.T) decimal.Decimal {
	t.Helper()
	a, err := f.store.Accounts().FindByEmail(context.Background(), testEmail)
	require.NoError(t, err)
	return a.WalletMoney
}

func (f *fixture) storedCart(t *testing.T) *cart.Cart {
	t.Helper()
	c, err := f.store.Carts().FindByEmail(context.Background(), testEmail)
	require.NoError(t, err)
	return c
}

func (f *fixture) orders(t *testing.T) []order.Order {
	t.Helper()
	orders, err := f.store.Orders().ListByEmail(context.Background(), testEmail)
	require.NoError(t, err)
	return orders
}

// recordingCache is an in-process CartCache that counts calls.
type recordingCache struct {
	mu      sync.Mutex
	entries map[string]*cart.Cart
	gets    int
	deletes int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string]*cart.Cart)}
}

func (c *recordingCache) Get(_ context.Context, email string) (*cart.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.entries[email]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v.Clone(), nil
}

func (c *recordingCache) Set(_ context.Context, v *cart.Cart) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[v.Email] = v.Clone()
	return nil
}

func (c *recordingCache) Delete(_ context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	delete(c.entries, email)
	return nil
}

func (c *recordingCache) has(email string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[email]
	return ok
}

// failingOrders wraps a transactor so that order creation inside it fails.
type failingOrders struct {
	store.Transactor
	err error
}

func (f failingOrders) InTx(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	return f.Transactor.InTx(ctx, func(ctx context.Context, s store.Stores) error {
		s.Orders = failingOrderRepo{Repository: s.Orders, err: f.err}
		return fn(ctx, s)
	})
}

type failingOrderRepo struct {
	order.Repository
	err error
}

func (r failingOrderRepo) Create(context.Context, *order.Order) error {
	return r.err
}

func (c *recordingCache) get(email string) (*cart.Cart, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[email]
	return v, ok
}

// gatedCarts holds the first FindByEmail after it has read the store until
// release is called. The held read then reports its context error.
type gatedCarts struct {
	cart.Repository
	once     sync.Once
	loaded   chan struct{}
	released chan struct{}
	stop     sync.Once
}

func newGatedCarts(r cart.Repository) *gatedCarts {
	return &gatedCarts{
		Repository: r,
		loaded:     make(chan struct{}),
		released:   make(chan struct{}),
	}
}

func (g *gatedCarts) FindByEmail(ctx context.Context, email string) (*cart.Cart, error) {
	c, err := g.Repository.FindByEmail(ctx, email)
	first := false
	g.once.Do(func() { first = true })
	if !first {
		return c, err
	}
	close(g.loaded)
	<-g.released
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return c, err
}

func (g *gatedCarts) release() {
	g.stop.Do(func() { close(g.released) })
}

type cartResult struct {
	cart *cart.Cart
	err  error
}

// failingCatalog wraps a transactor so that catalog reads inside it fail.
type failingCatalog struct {
	store.Transactor
	err error
}

func (f failingCatalog) InTx(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	return f.Transactor.InTx(ctx, func(ctx context.Context, s store.Stores) error {
		s.Products = failingProductRepo{Repository: s.Products, err: f.err}
		return fn(ctx, s)
	})
}

type failingProductRepo struct {
	product.Repository
	err error
}

func (r failingProductRepo) GetByID(context.Context, string) (*product.Product, error) {
	return nil, r.err
}
