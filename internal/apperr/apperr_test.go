package apperr

import (
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	sentinel := New(NotFound, "no cart")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "direct", err: sentinel, want: NotFound},
		{name: "wrapped", err: errors.Wrap(sentinel, "load cart"), want: NotFound},
		{name: "fmt wrapped", err: fmt.Errorf("outer: %w", Invalidf("bad %s", "x")), want: InvalidRequest},
		{name: "plain error", err: errors.New("boom"), want: Internal},
		{name: "internal wrap", err: Wrap(errors.New("db down"), "persist cart"), want: Internal},
		{name: "conflict", err: New(Conflict, "taken"), want: Conflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestSentinelIdentity(t *testing.T) {
	sentinel := New(InvalidRequest, "Address not set")
	err := errors.Wrap(sentinel, "checkout")

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, "Address not set", MessageOf(err))
}

func TestMessageOf_HidesInternal(t *testing.T) {
	err := Wrap(errors.New("connection refused"), "persist cart")

	assert.Equal(t, "internal server error", MessageOf(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "internal server error", MessageOf(errors.New("raw")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "invalid_request", InvalidRequest.String())
	assert.Equal(t, "conflict", Conflict.String())
	assert.Equal(t, "unauthorized", Unauthorized.String())
	assert.Equal(t, "internal", Internal.String())
}
