package handler

import (
	"net/http"
	"strings"

	"github.com/MACHINE-IT/qbuydot-backend/internal/apperr"
	"github.com/MACHINE-IT/qbuydot-backend/internal/service"
)

// GetOrders lists the caller's orders.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.GetOrdersByUser(r.Context(), emailFrom(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = h.toOrder(o)
	}
	respondJSON(w, r, http.StatusOK, out)
}

// AddOrder places an order from a JSON array of {productId, quantity}.
func (h *Handler) AddOrder(w http.ResponseWriter, r *http.Request) {
	var req []orderLineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	lines := make([]service.OrderLine, len(req))
	for i, l := range req {
		id := strings.TrimSpace(l.ProductID)
		if id == "" || l.Quantity == nil {
			respondError(w, r, apperr.Invalidf("\"[%d]\" must have productId and quantity", i))
			return
		}
		lines[i] = service.OrderLine{ProductID: id, Quantity: *l.Quantity}
	}

	o, err := h.orders.AddUserOrder(r.Context(), emailFrom(r.Context()), lines)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, h.toOrder(*o))
}
