package service

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MACHINE-IT/qbuydot-backend/internal/apperr"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/cart"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/order"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/store"
)

func TestGetOrdersByUser_Empty(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, decimal.NewFromInt(5000), testAddress)

	orders, err := f.order.GetOrdersByUser(context.Background(), testEmail)
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestGetOrdersByUser_StoreFault(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewOrder(nil, nil, &erroringOrders{err: boom}, NopTelemetry())

	_, err := svc.GetOrdersByUser(context.Background(), testEmail)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
}

func TestAddUserOrder_Success(t *testing.T) {
	f := newFixture(t)
	// No address and an empty wallet: direct orders check neither.
	f.seedAccount(t, decimal.Zero, account.DefaultAddress)
	ctx := context.Background()

	o, err := f.order.AddUserOrder(ctx, testEmail, []OrderLine{
		{ProductID: backpack.ID, Quantity: 2},
		{ProductID: bottle.ID, Quantity: 1},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, testEmail, o.Email)
	assert.Equal(t, cart.PaymentOptionDefault, o.PaymentOption)
	assert.True(t, decimal.NewFromInt(250).Equal(o.Total))
	require.Len(t, o.Items, 2)
	assert.Equal(t, backpack.Name, o.Items[0].Product.Name)

	assert.True(t, decimal.Zero.Equal(f.wallet(t)))

	orders, err := f.order.GetOrdersByUser(ctx, testEmail)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, o.ID, orders[0].ID)

	pending, err := f.store.Events().FetchPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestAddUserOrder_UnknownProductIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, decimal.NewFromInt(5000), testAddress)
	ctx := context.Background()

	_, err := f.order.AddUserOrder(ctx, testEmail, []OrderLine{
		{ProductID: backpack.ID, Quantity: 1},
		{ProductID: "missing", Quantity: 1},
		{ProductID: bottle.ID, Quantity: 1},
	})
	require.ErrorIs(t, err, ErrUnknownProduct)
	assert.Equal(t, apperr.InvalidRequest, apperr.KindOf(err))
	assert.Equal(t, "Product doesn't exist in database", apperr.MessageOf(err))
	assert.Contains(t, err.Error(), "missing")

	assert.Empty(t, f.orders(t))
}

func TestAddUserOrder_Validation(t *testing.T) {
	tests := []struct {
		name  string
		lines []OrderLine
	}{
		{name: "empty", lines: nil},
		{name: "zero quantity", lines: []OrderLine{{ProductID: backpack.ID, Quantity: 0}}},
		{name: "negative quantity", lines: []OrderLine{{ProductID: backpack.ID, Quantity: -2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedAccount(t, decimal.NewFromInt(5000), testAddress)

			_, err := f.order.AddUserOrder(context.Background(), testEmail, tt.lines)
			require.Error(t, err)
			assert.Equal(t, apperr.InvalidRequest, apperr.KindOf(err))
			assert.Empty(t, f.orders(t))
		})
	}
}

func TestAddUserOrder_UnknownAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.order.AddUserOrder(context.Background(), "ghost@example.com", []OrderLine{
		{ProductID: backpack.ID, Quantity: 1},
	})
	require.ErrorIs(t, err, account.ErrNotFound)
}

func TestAddUserOrder_CatalogFault(t *testing.T) {
	boom := errors.New("catalog down")
	svc := NewOrder(nil, &erroringProducts{err: boom}, nil, NopTelemetry())

	_, err := svc.AddUserOrder(context.Background(), testEmail, []OrderLine{{ProductID: "p", Quantity: 1}})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
}

func TestAddUserOrder_RollsBackWhenOrderFails(t *testing.T) {
	boom := errors.New("orders unavailable")
	f := newFixtureWithTx(t, func(tx store.Transactor) store.Transactor {
		return failingOrders{Transactor: tx, err: boom}
	})
	f.seedAccount(t, decimal.NewFromInt(5000), testAddress)

	_, err := f.order.AddUserOrder(context.Background(), testEmail, []OrderLine{{ProductID: bottle.ID, Quantity: 1}})
	require.ErrorIs(t, err, boom)

	pending, err := f.store.Events().FetchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

type erroringOrders struct {
	order.Repository
	err error
}

func (r *erroringOrders) ListByEmail(context.Context, string) ([]order.Order, error) {
	return nil, r.err
}

type erroringProducts struct {
	product.Repository
	err error
}

func (r *erroringProducts) GetByIDs(context.Context, []string) ([]product.Product, error) {
	return nil, r.err
}
