package db_test

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MACHINE-IT/qbuydot-backend/db"
	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/product"
)

func TestSeedProducts(t *testing.T) {
	products, err := product.DecodeCatalog(db.SeedProducts)
	require.NoError(t, err)
	assert.NotEmpty(t, products)
}

func TestMigrationsPaired(t *testing.T) {
	ups, err := fs.Glob(db.Migrations, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(db.Migrations, "migrations/*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}
