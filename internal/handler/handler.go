// Package handler exposes the storefront services over HTTP/JSON.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/cart"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/order"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
	"github.com/MACHINE-IT/qbuydot-backend/internal/service"
)

// CartService is implemented by *service.Cart.
type CartService interface {
	GetCartByUser(ctx context.Context, email string) (*cart.Cart, error)
	AddProductToCart(ctx context.Context, email, productID string, quantity int) (*cart.Cart, error)
	UpdateProductInCart(ctx context.Context, email, productID string, quantity int) (*cart.Cart, error)
	DeleteProductFromCart(ctx context.Context, email, productID string) error
	Checkout(ctx context.Context, email string) (*order.Order, error)
}

// OrderService is implemented by *service.Order.
type OrderService interface {
	GetOrdersByUser(ctx context.Context, email string) ([]order.Order, error)
	AddUserOrder(ctx context.Context, email string, lines []service.OrderLine) (*order.Order, error)
}

// AccountService is implemented by *service.Account.
type AccountService interface {
	Register(ctx context.Context, email, name string) (*service.Registration, error)
	Get(ctx context.Context, email string) (*account.Account, error)
	SetAddress(ctx context.Context, email, address string) (string, error)
	Update(ctx context.Context, email string, upd service.AccountUpdate) (*account.Account, error)
	Delete(ctx context.Context, email string) error
}

// Authenticator resolves a raw API key to the owning email.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (string, error)
}

var (
	_ CartService    = (*service.Cart)(nil)
	_ OrderService   = (*service.Order)(nil)
	_ AccountService = (*service.Account)(nil)
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to product image paths in responses.
	ImageBaseURL string
}

// Handler serves the /v1 API.
type Handler struct {
	products     product.Repository
	carts        CartService
	orders       OrderService
	accounts     AccountService
	authn        Authenticator
	imageBaseURL string
}

// NewHandler constructs a Handler.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	carts CartService,
	orders OrderService,
	accounts AccountService,
	authn Authenticator,
) *Handler {
	return &Handler{
		products:     products,
		carts:        carts,
		orders:       orders,
		accounts:     accounts,
		authn:        authn,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Mount registers the /v1 routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{productId}", h.GetProduct)
		r.Post("/users", h.Register)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Get("/users/me", h.GetUser)
			r.Patch("/users/me", h.EditUser)
			r.Put("/users/me/address", h.SetAddress)
			r.Delete("/users/me", h.DeleteUser)

			r.Get("/cart", h.GetCart)
			r.Post("/cart", h.AddToCart)
			r.Put("/cart", h.UpdateCart)
			r.Delete("/cart/items/{productId}", h.DeleteFromCart)
			r.Put("/cart/checkout", h.Checkout)

			r.Get("/orders", h.GetOrders)
			r.Post("/orders", h.AddOrder)
		})
	})
}

// Router returns a chi router serving the API, for tests and embedding.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusNotFound, errorResponse{Code: http.StatusNotFound, Message: "Not found"})
	})
	h.Mount(r)
	return r
}
