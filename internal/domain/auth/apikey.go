package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"

	"github.com/MACHINE-IT/qbuydot-backend/internal/apperr"
)

// ErrUnauthorized is returned for unknown, inactive or malformed keys.
var ErrUnauthorized = apperr.New(apperr.Unauthorized, "Please authenticate")

// APIKeyInfo binds an API key hash to the account it authenticates.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Email   string
	Name    string
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
	Create(ctx context.Context, info APIKeyInfo) error
}

// Hasher derives API key hashes with a server-side pepper.
type Hasher struct {
	pepper []byte
}

// NewHasher returns a Hasher keyed by pepper.
func NewHasher(pepper []byte) *Hasher {
	return &Hasher{pepper: pepper}
}

// Hash returns the hex HMAC-SHA256 of raw.
func (h *Hasher) Hash(raw string) string {
	return hex.EncodeToString(h.sum(raw))
}

func (h *Hasher) sum(raw string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(raw))
	return mac.Sum(nil)
}

// Generate returns a fresh random key and its hash.
func (h *Hasher) Generate() (raw, hash string, err error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", errors.Wrap(err, "read random")
	}
	raw = hex.EncodeToString(buf)
	return raw, h.Hash(raw), nil
}

// Authenticator resolves raw API keys to account emails.
type Authenticator struct {
	keys   Repository
	hasher *Hasher
}

// NewAuthenticator creates an Authenticator over the given key repository.
func NewAuthenticator(keys Repository, hasher *Hasher) *Authenticator {
	return &Authenticator{keys: keys, hasher: hasher}
}

// Authenticate returns the email bound to raw. Any lookup failure is
// reported as ErrUnauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", ErrUnauthorized
	}
	sum := a.hasher.sum(raw)

	info, err := a.keys.FindByHash(ctx, hex.EncodeToString(sum))
	if err != nil {
		return "", ErrUnauthorized
	}

	// The stored hash is compared again in constant time in case the
	// repository returned a row for a different hash.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(sum, stored) != 1 {
		return "", ErrUnauthorized
	}
	return info.Email, nil
}
