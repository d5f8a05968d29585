// Package memory implements every store on process memory. A single lock
// guards all state and transactions work on a private copy that replaces
// the shared state only on success.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/auth"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/cart"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/event"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/order"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/store"
)

type data struct {
	products  map[string]product.Product
	accounts  map[string]account.Account
	carts     map[string]*cart.Cart
	orders    map[string][]order.Order
	events    []event.Record
	nextEvent int64
	keys      map[string]auth.APIKeyInfo
}

func newData() *data {
	return &data{
		products: make(map[string]product.Product),
		accounts: make(map[string]account.Account),
		carts:    make(map[string]*cart.Cart),
		orders:   make(map[string][]order.Order),
		keys:     make(map[string]auth.APIKeyInfo),
	}
}

func (d *data) clone() *data {
	cp := &data{
		products:  maps.Clone(d.products),
		accounts:  maps.Clone(d.accounts),
		carts:     make(map[string]*cart.Cart, len(d.carts)),
		orders:    make(map[string][]order.Order, len(d.orders)),
		events:    slices.Clone(d.events),
		nextEvent: d.nextEvent,
		keys:      maps.Clone(d.keys),
	}
	for k, c := range d.carts {
		cp.carts[k] = c.Clone()
	}
	for k, o := range d.orders {
		cp.orders[k] = slices.Clone(o)
	}
	return cp
}

// Store holds all entities in memory.
type Store struct {
	mu   sync.Mutex
	data *data
}

var _ store.Transactor = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{data: newData()}
}

// InTx runs fn against a copy of the state while holding the store lock.
// The copy becomes the shared state only if fn succeeds, so every write fn
// makes is discarded on error. Holding the lock for the whole call
// serializes transactions.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, st store.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := s.data.clone()
	if err := fn(ctx, s.stores(tx)); err != nil {
		return err
	}
	s.data = tx
	return nil
}

func (s *Store) stores(tx *data) store.Stores {
	return store.Stores{
		Products: &Products{s: s, tx: tx},
		Accounts: &Accounts{s: s, tx: tx},
		Carts:    &Carts{s: s, tx: tx},
		Orders:   &Orders{s: s, tx: tx},
		Events:   &Events{s: s, tx: tx},
		Keys:     &APIKeys{s: s, tx: tx},
	}
}

// do runs fn on the transaction copy when bound to one, otherwise on the
// shared state under the lock.
func (s *Store) do(tx *data, fn func(d *data) error) error {
	if tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Products returns the catalog repository.
func (s *Store) Products() *Products { return &Products{s: s} }

// Accounts returns the account repository outside any transaction.
func (s *Store) Accounts() *Accounts { return &Accounts{s: s} }

// Carts returns the cart repository outside any transaction.
func (s *Store) Carts() *Carts { return &Carts{s: s} }

// Orders returns the order repository outside any transaction.
func (s *Store) Orders() *Orders { return &Orders{s: s} }

// Events returns the outbox repository outside any transaction.
func (s *Store) Events() *Events { return &Events{s: s} }

// APIKeys returns the API key repository.
func (s *Store) APIKeys() *APIKeys { return &APIKeys{s: s} }

// Products implements product.Repository and product.Writer.
type Products struct {
	s  *Store
	tx *data
}

var (
	_ product.Repository = (*Products)(nil)
	_ product.Writer     = (*Products)(nil)
)

func (r *Products) List(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	_ = r.s.do(r.tx, func(d *data) error {
		out = make([]product.Product, 0, len(d.products))
		for _, p := range d.products {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Products) GetByID(_ context.Context, id string) (*product.Product, error) {
	var out *product.Product
	err := r.s.do(r.tx, func(d *data) error {
		p, ok := d.products[id]
		if !ok {
			return product.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *Products) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	_ = r.s.do(r.tx, func(d *data) error {
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if p, ok := d.products[id]; ok {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, nil
}

func (r *Products) Upsert(_ context.Context, p product.Product) error {
	return r.s.do(r.tx, func(d *data) error {
		d.products[p.ID] = p
		return nil
	})
}

// Accounts implements account.Repository.
type Accounts struct {
	s  *Store
	tx *data
}

var _ account.Repository = (*Accounts)(nil)

func (r *Accounts) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	var out *account.Account
	err := r.s.do(r.tx, func(d *data) error {
		a, ok := d.accounts[email]
		if !ok {
			return account.ErrNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *Accounts) Create(_ context.Context, a *account.Account) error {
	return r.s.do(r.tx, func(d *data) error {
		if _, ok := d.accounts[a.Email]; ok {
			return account.ErrEmailTaken
		}
		now := time.Now().UTC()
		a.CreatedAt, a.UpdatedAt = now, now
		d.accounts[a.Email] = *a
		return nil
	})
}

func (r *Accounts) Upsert(_ context.Context, a *account.Account) error {
	return r.s.do(r.tx, func(d *data) error {
		now := time.Now().UTC()
		if prev, ok := d.accounts[a.Email]; ok {
			a.CreatedAt = prev.CreatedAt
		} else {
			a.CreatedAt = now
		}
		a.UpdatedAt = now
		d.accounts[a.Email] = *a
		return nil
	})
}

func (r *Accounts) DeleteByEmail(_ context.Context, email string) error {
	return r.s.do(r.tx, func(d *data) error {
		delete(d.accounts, email)
		// Mirror ON DELETE CASCADE.
		delete(d.carts, email)
		delete(d.orders, email)
		for k, info := range d.keys {
			if info.Email == email {
				delete(d.keys, k)
			}
		}
		return nil
	})
}

// Carts implements cart.Repository.
type Carts struct {
	s  *Store
	tx *data
}

var _ cart.Repository = (*Carts)(nil)

func (r *Carts) FindByEmail(_ context.Context, email string) (*cart.Cart, error) {
	var out *cart.Cart
	err := r.s.do(r.tx, func(d *data) error {
		c, ok := d.carts[email]
		if !ok {
			return cart.ErrNotFound
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

func (r *Carts) Upsert(_ context.Context, c *cart.Cart) error {
	return r.s.do(r.tx, func(d *data) error {
		c.UpdatedAt = time.Now().UTC()
		d.carts[c.Email] = c.Clone()
		return nil
	})
}

func (r *Carts) DeleteByEmail(_ context.Context, email string) error {
	return r.s.do(r.tx, func(d *data) error {
		delete(d.carts, email)
		return nil
	})
}

// Orders implements order.Repository.
type Orders struct {
	s  *Store
	tx *data
}

var _ order.Repository = (*Orders)(nil)

func (r *Orders) Create(_ context.Context, o *order.Order) error {
	return r.s.do(r.tx, func(d *data) error {
		if o.CreatedAt.IsZero() {
			o.CreatedAt = time.Now().UTC()
		}
		cp := *o
		cp.Items = slices.Clone(o.Items)
		d.orders[o.Email] = append(d.orders[o.Email], cp)
		return nil
	})
}

func (r *Orders) ListByEmail(_ context.Context, email string) ([]order.Order, error) {
	out := []order.Order{}
	_ = r.s.do(r.tx, func(d *data) error {
		out = append(out, d.orders[email]...)
		return nil
	})
	return out, nil
}

func (r *Orders) DeleteByEmail(_ context.Context, email string) error {
	return r.s.do(r.tx, func(d *data) error {
		delete(d.orders, email)
		return nil
	})
}

// Events implements event.Repository.
type Events struct {
	s  *Store
	tx *data
}

var _ event.Repository = (*Events)(nil)

func (r *Events) Insert(_ context.Context, rec event.Record) error {
	return r.s.do(r.tx, func(d *data) error {
		d.nextEvent++
		rec.ID = d.nextEvent
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		d.events = append(d.events, rec)
		return nil
	})
}

func (r *Events) FetchPending(_ context.Context, limit int) ([]event.Record, error) {
	var out []event.Record
	_ = r.s.do(r.tx, func(d *data) error {
		for _, rec := range d.events {
			if len(out) >= limit {
				break
			}
			if rec.SentAt == nil {
				out = append(out, rec)
			}
		}
		return nil
	})
	return out, nil
}

func (r *Events) MarkSent(_ context.Context, id int64) error {
	return r.s.do(r.tx, func(d *data) error {
		for i := range d.events {
			if d.events[i].ID == id {
				now := time.Now().UTC()
				d.events[i].SentAt = &now
				return nil
			}
		}
		return nil
	})
}

// APIKeys implements auth.Repository.
type APIKeys struct {
	s  *Store
	tx *data
}

var _ auth.Repository = (*APIKeys)(nil)

func (r *APIKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	var out *auth.APIKeyInfo
	err := r.s.do(r.tx, func(d *data) error {
		info, ok := d.keys[hash]
		if !ok {
			return auth.ErrUnauthorized
		}
		out = &info
		return nil
	})
	return out, err
}

func (r *APIKeys) Create(_ context.Context, info auth.APIKeyInfo) error {
	return r.s.do(r.tx, func(d *data) error {
		d.keys[info.KeyHash] = info
		return nil
	})
}
