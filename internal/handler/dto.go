package handler

import (
	"time"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/account"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/cart"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/order"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
)

type productResponse struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Cost     float64 `json:"cost"`
	Rating   int     `json:"rating"`
	Image    string  `json:"image"`
}

type lineItemResponse struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   productResponse `json:"product"`
}

type cartResponse struct {
	Email         string             `json:"email"`
	CartItems     []lineItemResponse `json:"cartItems"`
	PaymentOption string             `json:"paymentOption"`
}

type orderResponse struct {
	ID            string             `json:"_id"`
	Email         string             `json:"email"`
	Items         []lineItemResponse `json:"items"`
	Total         float64            `json:"total"`
	PaymentOption string             `json:"paymentOption"`
	CreatedAt     time.Time          `json:"createdAt"`
}

type userResponse struct {
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	WalletMoney float64 `json:"walletMoney"`
	Address     string  `json:"address"`
}

type registrationResponse struct {
	User   userResponse `json:"user"`
	APIKey string       `json:"apiKey"`
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type orderLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type registerRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type editUserRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

type addressRequest struct {
	Address string `json:"address"`
}

type addressResponse struct {
	Address string `json:"address"`
}

func (h *Handler) toProduct(p product.Product) productResponse {
	return productResponse{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Cost:     p.Cost.InexactFloat64(),
		Rating:   p.Rating,
		Image:    h.imageBaseURL + p.Image,
	}
}

func (h *Handler) toCart(c *cart.Cart) cartResponse {
	items := make([]lineItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = lineItemResponse{ProductID: it.Product.ID, Quantity: it.Quantity, Product: h.toProduct(it.Product)}
	}
	return cartResponse{Email: c.Email, CartItems: items, PaymentOption: c.PaymentOption}
}

func (h *Handler) toOrder(o order.Order) orderResponse {
	items := make([]lineItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = lineItemResponse{ProductID: it.Product.ID, Quantity: it.Quantity, Product: h.toProduct(it.Product)}
	}
	return orderResponse{
		ID:            o.ID,
		Email:         o.Email,
		Items:         items,
		Total:         o.Total.InexactFloat64(),
		PaymentOption: o.PaymentOption,
		CreatedAt:     o.CreatedAt,
	}
}

func toUser(a *account.Account) userResponse {
	return userResponse{
		Email:       a.Email,
		Name:        a.Name,
		WalletMoney: a.WalletMoney.InexactFloat64(),
		Address:     a.Address,
	}
}
