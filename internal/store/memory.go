package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/product-view/internal/domain/product"
)

// Memory is an in-memory Store for tests and local development.
type Memory struct {
	mu       sync.RWMutex
	products map[product.ID]product.Product
}

func NewMemory() *Memory {
	return &Memory{products: make(map[product.ID]product.Product)}
}

func (m *Memory) FindByID(_ context.Context, id product.ID) (*product.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) FindAll(_ context.Context) ([]product.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(product.Product) bool { return true }), nil
}

func (m *Memory) FindByCategory(_ context.Context, category string) ([]product.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(p product.Product) bool { return matchesCategory(p, category) }), nil
}

func (m *Memory) FindByPriceBetween(_ context.Context, min, max product.Price) ([]product.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(p product.Product) bool { return matchesPrice(p, min, max) }), nil
}

func (m *Memory) FindByCategoryAndPriceBetween(_ context.Context, category string, min, max product.Price) ([]product.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(p product.Product) bool {
		return matchesCategory(p, category) && matchesPrice(p, min, max)
	}), nil
}

func (m *Memory) Save(_ context.Context, p product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ProductID] = p
	return nil
}

func (m *Memory) DeleteByID(_ context.Context, id product.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}

func (m *Memory) ExistsByID(_ context.Context, id product.ID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.products[id]
	return ok, nil
}

// collect returns matching snapshots sorted by id. Callers hold the lock.
func (m *Memory) collect(match func(product.Product) bool) []product.Product {
	out := make([]product.Product, 0, len(m.products))
	for _, p := range m.products {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
