package product

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapWriter map[string]Product

func (m mapWriter) Upsert(_ context.Context, p Product) error {
	m[p.ID] = p
	return nil
}

type failingWriter struct{}

func (failingWriter) Upsert(context.Context, Product) error { return errors.New("disk full") }

func TestDecodeCatalog(t *testing.T) {
	products, err := DecodeCatalog([]byte(`[
		{"_id":"a","name":"Atomic Backpack","category":"Fashion","cost":100,"rating":5,"image":"/a.png"},
		{"_id":"b","name":"Coffee Mugs","category":"Home","cost":45.5,"rating":4,"image":"/b.png"}
	]`))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.True(t, decimal.RequireFromString("45.5").Equal(products[1].Cost))
	assert.Equal(t, 5, products[0].Rating)

	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "malformed", data: `{`, want: "decode catalog"},
		{name: "missing id", data: `[{"name":"x","cost":1}]`, want: "missing id"},
		{name: "missing name", data: `[{"_id":"x","cost":1}]`, want: "missing name"},
		{name: "negative cost", data: `[{"_id":"x","name":"x","cost":-1}]`, want: "negative cost"},
		{name: "duplicate", data: `[{"_id":"x","name":"x","cost":1},{"_id":"x","name":"y","cost":2}]`, want: "duplicate id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCatalog([]byte(tt.data))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSeed(t *testing.T) {
	data := []byte(`[{"_id":"a","name":"A","cost":1},{"_id":"b","name":"B","cost":2}]`)

	w := mapWriter{}
	n, err := Seed(context.Background(), w, data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, w, "b")

	_, err = Seed(context.Background(), failingWriter{}, data)
	assert.ErrorContains(t, err, "upsert product a")
}
