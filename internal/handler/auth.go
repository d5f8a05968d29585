package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/auth"
)

// HeaderAPIKey carries the caller's raw API key.
const HeaderAPIKey = "api_key"

type emailKey struct{}

// emailFrom returns the authenticated email stored by Authenticate.
func emailFrom(ctx context.Context) string {
	email, _ := ctx.Value(emailKey{}).(string)
	return email
}

// Authenticate rejects requests without a valid api_key header and stores
// the key owner's email in the request context.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(HeaderAPIKey)
		if raw == "" {
			respondError(w, r, auth.ErrUnauthorized)
			return
		}
		email, err := h.authn.Authenticate(r.Context(), raw)
		if err != nil {
			respondError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), emailKey{}, email)
		ctx = zctx.With(ctx, zap.String("user", email))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
