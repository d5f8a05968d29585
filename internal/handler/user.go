package handler

import (
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/MACHINE-IT/qbuydot-backend/internal/apperr"
	"github.com/MACHINE-IT/qbuydot-backend/internal/service"
)

const minAddressLength = 20

// Register creates an account and returns its API key once.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if _, err := mail.ParseAddress(req.Email); err != nil || req.Email == "" {
		respondError(w, r, apperr.Invalidf("\"email\" must be a valid email"))
		return
	}
	if req.Name == "" {
		respondError(w, r, apperr.Invalidf("\"name\" is required"))
		return
	}

	reg, err := h.accounts.Register(r.Context(), req.Email, req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, registrationResponse{
		User:   toUser(reg.Account),
		APIKey: reg.APIKey,
	})
}

// GetUser returns the caller's account.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	acc, err := h.accounts.Get(r.Context(), emailFrom(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toUser(acc))
}

// SetAddress stores the caller's shipping address.
func (h *Handler) SetAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	req.Address = strings.TrimSpace(req.Address)
	if err := checkAddress(req.Address); err != nil {
		respondError(w, r, err)
		return
	}

	address, err := h.accounts.SetAddress(r.Context(), emailFrom(r.Context()), req.Address)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, addressResponse{Address: address})
}

// EditUser changes the caller's name, address or both.
func (h *Handler) EditUser(w http.ResponseWriter, r *http.Request) {
	var req editUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			respondError(w, r, apperr.Invalidf("\"name\" is not allowed to be empty"))
			return
		}
		req.Name = &name
	}
	if req.Address != nil {
		address := strings.TrimSpace(*req.Address)
		if err := checkAddress(address); err != nil {
			respondError(w, r, err)
			return
		}
		req.Address = &address
	}

	acc, err := h.accounts.Update(r.Context(), emailFrom(r.Context()), service.AccountUpdate{
		Name:    req.Name,
		Address: req.Address,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toUser(acc))
}

// DeleteUser removes the caller's account, cart and orders.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	email := emailFrom(r.Context())
	if err := h.accounts.Delete(r.Context(), email); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"email": email})
}

func checkAddress(address string) error {
	if utf8.RuneCountInString(address) < minAddressLength {
		return apperr.Invalidf("\"address\" length must be at least %d characters long", minAddressLength)
	}
	return nil
}
