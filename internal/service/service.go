// Package service implements the cart, order and account use cases on top
// of the domain stores.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/MACHINE-IT/qbuydot-backend/internal/apperr"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/event"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/order"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/store"
)

// Business failures reported to the boundary.
var (
	ErrProductNotFound     = apperr.New(apperr.InvalidRequest, "Product doesn't exist.")
	ErrProductInCart       = apperr.New(apperr.InvalidRequest, "Product already in cart. Use the cart sidebar to update or remove product from cart")
	ErrProductNotInCart    = apperr.New(apperr.InvalidRequest, "Product not in cart")
	ErrNoCartToUpdate      = apperr.New(apperr.InvalidRequest, "User does not have a cart. To create cart, please add a product")
	ErrNoCartToDelete      = apperr.New(apperr.InvalidRequest, "User does not have a cart")
	ErrNoCartToCheckout    = apperr.New(apperr.NotFound, "You do not have a cart to checkout.")
	ErrCartEmpty           = apperr.New(apperr.InvalidRequest, "You do not have any items in the cart to checkout.")
	ErrAddressNotSet       = apperr.New(apperr.InvalidRequest, "Address not set")
	ErrInsufficientBalance = apperr.New(apperr.InvalidRequest, "You do not have sufficient balance to checkout.")
	ErrInvalidQuantity     = apperr.New(apperr.InvalidRequest, "Quantity must be greater than 0")
	ErrEmptyItems          = apperr.New(apperr.InvalidRequest, "Order must contain at least one item")
	ErrUnknownProduct      = apperr.New(apperr.InvalidRequest, "Product doesn't exist in database")
	ErrNothingToUpdate     = apperr.New(apperr.InvalidRequest, "Nothing to update")
)

// inAccountScope runs fn in a transaction holding the lock on email's account
// row, so concurrent operations for one user run one at a time.
func inAccountScope(ctx context.Context, tx store.Transactor, email string,
	fn func(ctx context.Context, st store.Stores, acc *account.Account) error,
) error {
	return tx.InTx(ctx, func(ctx context.Context, st store.Stores) error {
		acc, err := st.Accounts.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				return account.ErrNotFound
			}
			return errors.Wrap(err, "lock account")
		}
		return fn(ctx, st, acc)
	})
}

type orderCreatedPayload struct {
	OrderID       string    `json:"order_id"`
	Email         string    `json:"email"`
	Total         string    `json:"total"`
	Items         int       `json:"items"`
	PaymentOption string    `json:"payment_option"`
	CreatedAt     time.Time `json:"created_at"`
}

// createOrder persists o and its order.created outbox record through st.
func createOrder(ctx context.Context, st store.Stores, o *order.Order) error {
	if err := st.Orders.Create(ctx, o); err != nil {
		return errors.Wrap(err, "create order")
	}

	payload, err := json.Marshal(orderCreatedPayload{
		OrderID:       o.ID,
		Email:         o.Email,
		Total:         o.Total.StringFixed(2),
		Items:         len(o.Items),
		PaymentOption: o.PaymentOption,
		CreatedAt:     o.CreatedAt,
	})
	if err != nil {
		return errors.Wrap(err, "marshal order event")
	}
	if err := st.Events.Insert(ctx, event.Record{
		EventID: uuid.NewString(),
		Topic:   event.TopicOrderCreated,
		Key:     o.Email,
		Payload: payload,
	}); err != nil {
		return errors.Wrap(err, "record order event")
	}
	return nil
}

func kindOf(err error) string {
	return apperr.KindOf(err).String()
}
