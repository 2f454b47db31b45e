package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/product-view/internal/domain/product"
	"github.com/example/product-view/internal/query"
	"github.com/example/product-view/internal/sanitize"
)

// Handlers serves the read side of the product view.
type Handlers struct {
	svc *query.Service
	log *zap.Logger
}

func NewHandlers(svc *query.Service, log *zap.Logger) *Handlers {
	return &Handlers{svc: svc, log: log}
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := sanitize.PathSegment(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.svc.ByID(r.Context(), product.ID(id))
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	if p == nil {
		respondError(w, r, http.StatusNotFound, "product "+id+" not found")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.All(r.Context())
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, productList(products))
}

func (h *Handlers) GetProductsByCategory(w http.ResponseWriter, r *http.Request) {
	category, err := sanitize.PathSegment(chi.URLParam(r, "category"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid category")
		return
	}

	products, err := h.svc.ByCategory(r.Context(), category)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, productList(products))
}

func (h *Handlers) GetProductsByPriceRange(w http.ResponseWriter, r *http.Request) {
	min, max, ok := h.priceRange(w, r)
	if !ok {
		return
	}

	products, err := h.svc.ByPriceRange(r.Context(), min, max)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, productList(products))
}

func (h *Handlers) GetProductsByCategoryAndPriceRange(w http.ResponseWriter, r *http.Request) {
	category, err := sanitize.PathSegment(chi.URLParam(r, "category"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid category")
		return
	}
	min, max, ok := h.priceRange(w, r)
	if !ok {
		return
	}

	products, err := h.svc.ByCategoryAndPriceRange(r.Context(), category, min, max)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, productList(products))
}

// priceRange parses the minPrice/maxPrice query parameters. Both are
// required and must be non-negative decimals.
func (h *Handlers) priceRange(w http.ResponseWriter, r *http.Request) (min, max product.Price, ok bool) {
	q := r.URL.Query()

	min, err := product.ParsePrice(q.Get("minPrice"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid minPrice")
		return min, max, false
	}
	max, err = product.ParsePrice(q.Get("maxPrice"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid maxPrice")
		return min, max, false
	}
	return min, max, true
}

// productList keeps the JSON body an array even when the slice is nil.
func productList(products []product.Product) []product.Product {
	if products == nil {
		return []product.Product{}
	}
	return products
}
