package account

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccount_HasAddress(t *testing.T) {
	tests := []struct {
		address string
		want    bool
	}{
		{address: DefaultAddress, want: false},
		{address: "", want: false},
		{address: "221B Baker Street, London NW1", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			a := &Account{Address: tt.address}
			assert.Equal(t, tt.want, a.HasAddress())
		})
	}
}

func TestAccount_CanAfford(t *testing.T) {
	a := &Account{WalletMoney: decimal.NewFromInt(100)}

	assert.True(t, a.CanAfford(decimal.NewFromInt(99)))
	assert.True(t, a.CanAfford(decimal.NewFromInt(100)))
	assert.False(t, a.CanAfford(decimal.NewFromInt(101)))
	assert.False(t, a.CanAfford(decimal.RequireFromString("100.01")))
}
