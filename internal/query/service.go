// Package query serves read-side lookups against the store port,
// independently of the write path.
package query

import (
	"context"

	"github.com/example/product-view/internal/domain/product"
	"github.com/example/product-view/internal/store"
)

type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// ByID returns (nil, nil) when the product does not exist.
func (s *Service) ByID(ctx context.Context, id product.ID) (*product.Product, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) All(ctx context.Context) ([]product.Product, error) {
	return s.store.FindAll(ctx)
}

func (s *Service) ByCategory(ctx context.Context, category string) ([]product.Product, error) {
	return s.store.FindByCategory(ctx, category)
}

func (s *Service) ByPriceRange(ctx context.Context, min, max product.Price) ([]product.Product, error) {
	if err := validatePriceRange(min, max); err != nil {
		return nil, err
	}
	return s.store.FindByPriceBetween(ctx, min, max)
}

func (s *Service) ByCategoryAndPriceRange(ctx context.Context, category string, min, max product.Price) ([]product.Product, error) {
	if err := validatePriceRange(min, max); err != nil {
		return nil, err
	}
	return s.store.FindByCategoryAndPriceBetween(ctx, category, min, max)
}

func validatePriceRange(min, max product.Price) error {
	if max.Cmp(min) < 0 {
		return product.NewError(product.KindInvalidMessage,
			"minPrice must be less than or equal to maxPrice")
	}
	return nil
}
