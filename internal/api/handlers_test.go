package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/product-view/internal/domain/product"
	"github.com/example/product-view/internal/query"
	"github.com/example/product-view/internal/store"
)

func strPtr(s string) *string { return &s }

func pricePtr(raw string) *product.Price {
	p := product.MustPrice(raw)
	return &p
}

func newTestServer(t *testing.T, products ...product.Product) *httptest.Server {
	t.Helper()
	mem := store.NewMemory()
	for _, p := range products {
		require.NoError(t, mem.Save(context.Background(), p))
	}
	handler := NewRouter(NewHandlers(query.NewService(mem), zap.NewNop()), zap.NewNop())
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func fixtureProduct(id, name, category, price string) product.Product {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return product.Product{
		ProductID: product.ID(id),
		Name:      product.Name(name),
		Category:  strPtr(category),
		Price:     pricePtr(price),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestGetProduct(t *testing.T) {
	srv := newTestServer(t, fixtureProduct("p1", "Widget", "tools", "19.99"))

	var got product.Product
	status := getJSON(t, srv, "/products/p1", &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, product.ID("p1"), got.ProductID)
	assert.Equal(t, product.Name("Widget"), got.Name)

	var envelope errorResponse
	status = getJSON(t, srv, "/products/missing", &envelope)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, http.StatusNotFound, envelope.Status)
	assert.Equal(t, "/products/missing", envelope.Path)
	assert.Contains(t, envelope.Message, "missing")
}

func TestGetProduct_SanitizedID(t *testing.T) {
	srv := newTestServer(t)

	// A zero-width space around the id must not change the lookup key.
	var envelope errorResponse
	status := getJSON(t, srv, "/products/"+url.PathEscape("​p1"), &envelope)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, envelope.Message, "p1")
}

func TestGetProducts(t *testing.T) {
	srv := newTestServer(t,
		fixtureProduct("p1", "Widget", "tools", "10.00"),
		fixtureProduct("p2", "Teapot", "kitchen", "15.00"),
	)

	var got []product.Product
	status := getJSON(t, srv, "/products", &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, got, 2)
}

func TestGetProducts_EmptyStoreReturnsArray(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/products")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, "[]", string(raw))
}

func TestGetProductsByCategory(t *testing.T) {
	srv := newTestServer(t,
		fixtureProduct("p1", "Widget", "tools", "10.00"),
		fixtureProduct("p2", "Hammer", "tools", "25.00"),
		fixtureProduct("p3", "Teapot", "kitchen", "15.00"),
	)

	var got []product.Product
	status := getJSON(t, srv, "/products/category/tools", &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, got, 2)

	got = nil
	status = getJSON(t, srv, "/products/category/garden", &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, got)
}

func TestGetProductsByPriceRange(t *testing.T) {
	srv := newTestServer(t,
		fixtureProduct("p1", "Widget", "tools", "10.00"),
		fixtureProduct("p2", "Hammer", "tools", "25.00"),
		fixtureProduct("p3", "Teapot", "kitchen", "15.00"),
	)

	var got []product.Product
	status := getJSON(t, srv, "/products/price-range?minPrice=10&maxPrice=15", &got)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, got, 2)
}

func TestGetProductsByPriceRange_Invalid(t *testing.T) {
	srv := newTestServer(t, fixtureProduct("p1", "Widget", "tools", "10.00"))

	cases := []struct {
		name    string
		path    string
		message string
	}{
		{"missing params", "/products/price-range", "invalid minPrice"},
		{"non numeric min", "/products/price-range?minPrice=abc&maxPrice=5", "invalid minPrice"},
		{"negative min", "/products/price-range?minPrice=-1&maxPrice=5", "invalid minPrice"},
		{"non numeric max", "/products/price-range?minPrice=1&maxPrice=x", "invalid maxPrice"},
		{"max below min", "/products/price-range?minPrice=10&maxPrice=5", "minPrice must be less than or equal to maxPrice"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var envelope errorResponse
			status := getJSON(t, srv, tc.path, &envelope)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tc.message, envelope.Message)
			assert.Equal(t, "Bad Request", envelope.Error)
		})
	}
}

func TestGetProductsByCategoryAndPriceRange(t *testing.T) {
	srv := newTestServer(t,
		fixtureProduct("p1", "Widget", "tools", "10.00"),
		fixtureProduct("p2", "Hammer", "tools", "25.00"),
		fixtureProduct("p3", "Teapot", "kitchen", "15.00"),
	)

	var got []product.Product
	status := getJSON(t, srv, "/products/category/tools/price-range?minPrice=20&maxPrice=30", &got)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, got, 1)
	assert.Equal(t, product.ID("p2"), got[0].ProductID)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	status := getJSON(t, srv, "/healthz", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestUnknownRouteEnvelope(t *testing.T) {
	srv := newTestServer(t)

	var envelope errorResponse
	status := getJSON(t, srv, "/nope", &envelope)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "/nope", envelope.Path)
	assert.NotEmpty(t, envelope.Timestamp)
}
