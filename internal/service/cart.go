package service

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/MACHINE-IT/qbuydot-backend/internal/apperr"
	"github.com/MACHINE-IT/qbuydot-backend/internal/cache"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/cart"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/order"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/store"
)

// cartLoadTimeout bounds a shared cart load, which ignores the cancellation
// of the caller that started it.
const cartLoadTimeout = 5 * time.Second

// Cart manages a user's cart and converts it into an order on checkout.
type Cart struct {
	tx    store.Transactor
	carts cart.Repository
	cache cache.CartCache
	fills fillGuard
	tel   *Telemetry
	sfg   singleflight.Group
}

// NewCart creates a Cart service. carts serves reads outside transactions.
func NewCart(
	tx store.Transactor,
	carts cart.Repository,
	cartCache cache.CartCache,
	tel *Telemetry,
) *Cart {
	return &Cart{
		tx:    tx,
		carts: carts,
		cache: cartCache,
		tel:   tel,
	}
}

// GetCartByUser returns the cart owned by email, or cart.ErrNotFound.
// Concurrent reads of the same cart share one lookup.
func (s *Cart) GetCartByUser(ctx context.Context, email string) (_ *cart.Cart, err error) {
	ctx, span := s.tel.start(ctx, "cart.Get")
	defer func() { s.tel.end(ctx, span, "cart.get", err) }()

	v, err, _ := s.sfg.Do(email, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cartLoadTimeout)
		defer cancel()
		return s.loadCart(ctx, email)
	})
	if err != nil {
		return nil, err
	}
	// Callers sharing a singleflight result must not alias each other.
	return v.(*cart.Cart).Clone(), nil
}

func (s *Cart) loadCart(ctx context.Context, email string) (*cart.Cart, error) {
	c, err := s.cache.Get(ctx, email)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		zctx.From(ctx).Warn("Cart cache read failed", zap.Error(err))
	}

	gen := s.fills.generation(email)
	c, err = s.carts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrap(err, "get cart")
	}

	if err := s.fills.fill(email, gen, func() error { return s.cache.Set(ctx, c) }); err != nil {
		zctx.From(ctx).Warn("Cart cache write failed", zap.Error(err))
	}
	return c, nil
}

// AddProductToCart appends a snapshot of productID with quantity to the
// user's cart, creating the cart first if the user has none.
func (s *Cart) AddProductToCart(ctx context.Context, email, productID string, quantity int) (_ *cart.Cart, err error) {
	ctx, span := s.tel.start(ctx, "cart.AddProduct")
	defer func() { s.tel.end(ctx, span, "cart.add", err) }()

	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var out *cart.Cart
	err = inAccountScope(ctx, s.tx, email, func(ctx context.Context, st store.Stores, _ *account.Account) error {
		c, err := st.Carts.FindByEmail(ctx, email)
		switch {
		case errors.Is(err, cart.ErrNotFound):
			c = cart.New(email)
			if err := st.Carts.Upsert(ctx, c); err != nil {
				return apperr.Wrap(err, "Failed to create cart")
			}
		case err != nil:
			return errors.Wrap(err, "load cart")
		}

		p, err := lookupProduct(ctx, st.Products, productID)
		if err != nil {
			return err
		}
		if _, ok := c.Find(productID); ok {
			return ErrProductInCart
		}

		c.Items = append(c.Items, cart.Item{Product: *p, Quantity: quantity})
		if err := st.Carts.Upsert(ctx, c); err != nil {
			return errors.Wrap(err, "save cart")
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, email)
	return out, nil
}

// UpdateProductInCart sets the quantity of productID in the user's cart.
// A quantity of zero or less removes the item.
func (s *Cart) UpdateProductInCart(ctx context.Context, email, productID string, quantity int) (_ *cart.Cart, err error) {
	ctx, span := s.tel.start(ctx, "cart.UpdateProduct")
	defer func() { s.tel.end(ctx, span, "cart.update", err) }()

	var out *cart.Cart
	err = inAccountScope(ctx, s.tx, email, func(ctx context.Context, st store.Stores, _ *account.Account) error {
		c, err := st.Carts.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				return ErrNoCartToUpdate
			}
			return errors.Wrap(err, "load cart")
		}

		if _, err := lookupProduct(ctx, st.Products, productID); err != nil {
			return err
		}
		i, ok := c.Find(productID)
		if !ok {
			return ErrProductNotInCart
		}

		if quantity > 0 {
			c.Items[i].Quantity = quantity
		} else {
			c.Remove(i)
		}
		if err := st.Carts.Upsert(ctx, c); err != nil {
			return errors.Wrap(err, "save cart")
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, email)
	return out, nil
}

// DeleteProductFromCart removes productID from the user's cart.
func (s *Cart) DeleteProductFromCart(ctx context.Context, email, productID string) (err error) {
	ctx, span := s.tel.start(ctx, "cart.DeleteProduct")
	defer func() { s.tel.end(ctx, span, "cart.delete", err) }()

	err = inAccountScope(ctx, s.tx, email, func(ctx context.Context, st store.Stores, _ *account.Account) error {
		c, err := st.Carts.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				return ErrNoCartToDelete
			}
			return errors.Wrap(err, "load cart")
		}

		i, ok := c.Find(productID)
		if !ok {
			return ErrProductNotInCart
		}
		c.Remove(i)
		if err := st.Carts.Upsert(ctx, c); err != nil {
			return errors.Wrap(err, "save cart")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Invalidate(ctx, email)
	return nil
}

// Checkout turns the user's cart into an order paid from the wallet. The
// debit, the order and the emptied cart commit together or not at all.
// Balance and address are re-read under the account lock, so a stale
// caller view of the account cannot cause a double spend.
func (s *Cart) Checkout(ctx context.Context, email string) (_ *order.Order, err error) {
	ctx, span := s.tel.start(ctx, "cart.Checkout")
	defer func() { s.tel.end(ctx, span, "cart.checkout", err) }()

	var created *order.Order
	err = inAccountScope(ctx, s.tx, email, func(ctx context.Context, st store.Stores, acc *account.Account) error {
		c, err := st.Carts.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				return ErrNoCartToCheckout
			}
			return errors.Wrap(err, "load cart")
		}
		if len(c.Items) == 0 {
			return ErrCartEmpty
		}
		if !acc.HasAddress() {
			return ErrAddressNotSet
		}

		total := c.Total()
		if !acc.CanAfford(total) {
			return ErrInsufficientBalance
		}

		acc.WalletMoney = acc.WalletMoney.Sub(total)
		if err := st.Accounts.Upsert(ctx, acc); err != nil {
			return errors.Wrap(err, "debit wallet")
		}

		o := &order.Order{
			ID:            uuid.NewString(),
			Email:         email,
			Items:         orderItems(c.Items),
			Total:         total,
			PaymentOption: c.PaymentOption,
			CreatedAt:     time.Now().UTC(),
		}
		if o.PaymentOption == "" {
			o.PaymentOption = cart.PaymentOptionDefault
		}
		if err := createOrder(ctx, st, o); err != nil {
			return err
		}

		c.Items = []cart.Item{}
		if err := st.Carts.Upsert(ctx, c); err != nil {
			return errors.Wrap(err, "empty cart")
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, email)
	s.tel.checkouts.Add(ctx, 1)
	s.tel.orders.Add(ctx, 1, metric.WithAttributes(attribute.String("source", "checkout")))
	zctx.From(ctx).Info("Checkout completed",
		zap.String("order_id", created.ID),
		zap.String("total", created.Total.String()),
		zap.Int("items", len(created.Items)),
	)
	return created, nil
}

func lookupProduct(ctx context.Context, products product.Repository, productID string) (*product.Product, error) {
	p, err := products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, errors.Wrap(err, "get product")
	}
	return p, nil
}

// Invalidate drops the cached cart of email after a committed change. Loads
// that started before the call neither fill the cache nor serve later
// callers.
func (s *Cart) Invalidate(ctx context.Context, email string) {
	s.fills.invalidate(email)
	s.sfg.Forget(email)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, email); err != nil {
		zctx.From(ctx).Warn("Cart cache invalidation failed", zap.Error(err))
	}
}

func orderItems(items []cart.Item) []order.OrderItem {
	out := make([]order.OrderItem, len(items))
	for i, it := range items {
		out[i] = order.OrderItem{Product: it.Product, Quantity: it.Quantity}
	}
	return out
}
