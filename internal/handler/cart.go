package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MACHINE-IT/qbuydot-backend/internal/apperr"
)

// readCartItem decodes and validates a {productId, quantity} body.
func readCartItem(w http.ResponseWriter, r *http.Request) (string, int, error) {
	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return "", 0, err
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		return "", 0, apperr.Invalidf("\"productId\" is required")
	}
	if req.Quantity == nil {
		return "", 0, apperr.Invalidf("\"quantity\" is required")
	}
	return req.ProductID, *req.Quantity, nil
}

// GetCart returns the caller's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.GetCartByUser(r.Context(), emailFrom(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, h.toCart(c))
}

// AddToCart adds a product, creating the cart if needed.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	productID, qty, err := readCartItem(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.carts.AddProductToCart(r.Context(), emailFrom(r.Context()), productID, qty)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, h.toCart(c))
}

// UpdateCart sets a product's quantity. Zero or less removes it.
func (h *Handler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	productID, qty, err := readCartItem(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.carts.UpdateProductInCart(r.Context(), emailFrom(r.Context()), productID, qty)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, h.toCart(c))
}

// DeleteFromCart removes one product from the cart.
func (h *Handler) DeleteFromCart(w http.ResponseWriter, r *http.Request) {
	err := h.carts.DeleteProductFromCart(r.Context(), emailFrom(r.Context()), chi.URLParam(r, "productId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkout turns the cart into an order and debits the wallet.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if _, err := h.carts.Checkout(r.Context(), emailFrom(r.Context())); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
