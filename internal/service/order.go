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

	"github.com/MACHINE-IT/qbuydot-backend/internal/apperr"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/cart"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/order"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/store"
)

// OrderLine is one requested product and quantity of a direct order.
type OrderLine struct {
	ProductID string
	Quantity  int
}

// Order lists a user's orders and places orders directly, bypassing the cart.
type Order struct {
	tx       store.Transactor
	products product.Repository
	orders   order.Repository
	tel      *Telemetry
}

// NewOrder creates an Order service.
func NewOrder(tx store.Transactor, products product.Repository, orders order.Repository, tel *Telemetry) *Order {
	return &Order{
		tx:       tx,
		products: products,
		orders:   orders,
		tel:      tel,
	}
}

// GetOrdersByUser returns every order placed by email. A user without
// orders gets an empty slice, not an error.
func (s *Order) GetOrdersByUser(ctx context.Context, email string) (_ []order.Order, err error) {
	ctx, span := s.tel.start(ctx, "order.List")
	defer func() { s.tel.end(ctx, span, "order.list", err) }()

	orders, err := s.orders.ListByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return orders, nil
}

// AddUserOrder creates an order from lines using current catalog snapshots.
// Unlike Cart.Checkout it performs no balance or address check and does not
// debit the wallet. The first unknown product fails the whole request.
func (s *Order) AddUserOrder(ctx context.Context, email string, lines []OrderLine) (_ *order.Order, err error) {
	ctx, span := s.tel.start(ctx, "order.Place")
	defer func() { s.tel.end(ctx, span, "order.place", err) }()

	if len(lines) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperr.Invalidf("Quantity must be greater than 0 for product %s", l.ProductID)
		}
		ids[i] = l.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	o := &order.Order{
		ID:            uuid.NewString(),
		Email:         email,
		Items:         make([]order.OrderItem, 0, len(lines)),
		PaymentOption: cart.PaymentOptionDefault,
		CreatedAt:     time.Now().UTC(),
	}
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, &apperr.Error{
				Kind:    apperr.InvalidRequest,
				Message: ErrUnknownProduct.Message,
				Err:     errors.Wrapf(ErrUnknownProduct, "product %s", l.ProductID),
			}
		}
		o.Items = append(o.Items, order.OrderItem{Product: p, Quantity: l.Quantity})
		o.Total = o.Total.Add(p.Subtotal(l.Quantity))
	}

	err = inAccountScope(ctx, s.tx, email, func(ctx context.Context, st store.Stores, _ *account.Account) error {
		return createOrder(ctx, st, o)
	})
	if err != nil {
		return nil, err
	}

	s.tel.orders.Add(ctx, 1, metric.WithAttributes(attribute.String("source", "direct")))
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("total", o.Total.String()),
	)
	return o, nil
}
