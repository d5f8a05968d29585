package product

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
)

// DecodeCatalog parses a JSON array of products and checks that every entry
// has an id, a name and a non-negative cost.
func DecodeCatalog(data []byte) ([]Product, error) {
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	seen := make(map[string]struct{}, len(products))
	for i, p := range products {
		switch {
		case p.ID == "":
			return nil, errors.Errorf("product %d: missing id", i)
		case p.Name == "":
			return nil, errors.Errorf("product %s: missing name", p.ID)
		case p.Cost.IsNegative():
			return nil, errors.Errorf("product %s: negative cost %s", p.ID, p.Cost)
		}
		if _, ok := seen[p.ID]; ok {
			return nil, errors.Errorf("product %s: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return products, nil
}

// Seed upserts every product of the JSON catalog into w and returns how many
// were written.
func Seed(ctx context.Context, w Writer, data []byte) (int, error) {
	products, err := DecodeCatalog(data)
	if err != nil {
		return 0, err
	}
	for _, p := range products {
		if err := w.Upsert(ctx, p); err != nil {
			return 0, errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}
	return len(products), nil
}
