package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/product-view/internal/domain/product"
)

// fakeRow feeds scanProduct without a live database.
type fakeRow struct {
	id, name                     string
	description, price, category sql.NullString
	created, updated             time.Time
	version                      int64
}

func (r fakeRow) Scan(dest ...any) error {
	*dest[0].(*string) = r.id
	*dest[1].(*string) = r.name
	*dest[2].(*sql.NullString) = r.description
	*dest[3].(*sql.NullString) = r.price
	*dest[4].(*sql.NullString) = r.category
	*dest[5].(*time.Time) = r.created
	*dest[6].(*time.Time) = r.updated
	*dest[7].(*int64) = r.version
	return nil
}

func TestScanProduct_FullRow(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	p, err := scanProduct(fakeRow{
		id:          "p1",
		name:        "Widget",
		description: sql.NullString{String: "a widget", Valid: true},
		price:       sql.NullString{String: "19.9900", Valid: true},
		category:    sql.NullString{String: "tools", Valid: true},
		created:     created,
		updated:     updated,
		version:     3,
	})
	require.NoError(t, err)

	assert.Equal(t, product.ID("p1"), p.ProductID)
	assert.Equal(t, product.Name("Widget"), p.Name)
	require.NotNil(t, p.Description)
	assert.Equal(t, "a widget", *p.Description)
	require.NotNil(t, p.Category)
	assert.Equal(t, "tools", *p.Category)
	require.NotNil(t, p.Price)
	assert.Equal(t, 0, p.Price.Cmp(product.MustPrice("19.99")), "NUMERIC scale must not change the value")
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, updated, p.UpdatedAt)
	assert.EqualValues(t, 3, p.Version)
}

func TestScanProduct_NullOptionalColumns(t *testing.T) {
	p, err := scanProduct(fakeRow{
		id:      "p2",
		name:    "Bare",
		created: time.Unix(100, 0).UTC(),
		updated: time.Unix(200, 0).UTC(),
		version: 1,
	})
	require.NoError(t, err)

	assert.Nil(t, p.Description)
	assert.Nil(t, p.Price)
	assert.Nil(t, p.Category)
}

func TestScanProduct_CorruptPriceColumn(t *testing.T) {
	_, err := scanProduct(fakeRow{
		id:      "p3",
		name:    "Broken",
		price:   sql.NullString{String: "not a number", Valid: true},
		created: time.Unix(100, 0).UTC(),
		updated: time.Unix(200, 0).UTC(),
		version: 1,
	})
	require.Error(t, err)
	assert.Equal(t, product.KindInvalidMessage, product.Classify(err).Kind)
}
