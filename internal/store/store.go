// Package store defines the persistence port for the product materialized
// view and its backends: in-memory, Redis, PostgreSQL and DynamoDB.
package store

import (
	"context"

	"github.com/example/product-view/internal/domain/product"
)

// Store is the outbound persistence port. FindByID returns (nil, nil) when
// the product is absent. Implementations must be safe for concurrent use by
// independent keys.
//
// None of the backends performs a conditional write on version: the version
// gate is checked by the projector before Save under the single-writer-per-key
// guarantee the transport provides.
type Store interface {
	FindByID(ctx context.Context, id product.ID) (*product.Product, error)
	FindAll(ctx context.Context) ([]product.Product, error)
	FindByCategory(ctx context.Context, category string) ([]product.Product, error)
	FindByPriceBetween(ctx context.Context, min, max product.Price) ([]product.Product, error)
	FindByCategoryAndPriceBetween(ctx context.Context, category string, min, max product.Price) ([]product.Product, error)
	Save(ctx context.Context, p product.Product) error
	DeleteByID(ctx context.Context, id product.ID) error
	ExistsByID(ctx context.Context, id product.ID) (bool, error)
}

func matchesCategory(p product.Product, category string) bool {
	return p.Category != nil && *p.Category == category
}

// matchesPrice excludes products without a price from range queries.
func matchesPrice(p product.Product, min, max product.Price) bool {
	return p.Price != nil && p.Price.Cmp(min) >= 0 && p.Price.Cmp(max) <= 0
}
