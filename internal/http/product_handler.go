package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/omega-fast-coder/panoptikon/internal/domain"
)

// Catalog is the read-only product/category surface the handlers need.
// Failures are absorbed below this interface: empty results, never errors.
type Catalog interface {
	ListProducts(ctx context.Context) []*domain.Product
	ListProductsByCategory(ctx context.Context, categoryID int64) []*domain.Product
	GetProductByID(ctx context.Context, id int64) *domain.Product
	ListCategories(ctx context.Context) []*domain.Category
	GetCategoryByID(ctx context.Context, id int64) *domain.Category
}

type ProductHandler struct {
	catalog Catalog
}

func NewProductHandler(catalog Catalog) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.ListProducts(r.Context())
	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "product_id")
	if !ok {
		return
	}

	product := h.catalog.GetProductByID(r.Context(), id)
	if product == nil {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.catalog.ListCategories(r.Context())
	if categories == nil {
		categories = []*domain.Category{}
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *ProductHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "category_id")
	if !ok {
		return
	}

	category := h.catalog.GetCategoryByID(r.Context(), id)
	if category == nil {
		respondError(w, http.StatusNotFound, "not_found", "category not found")
		return
	}
	respondJSON(w, http.StatusOK, category)
}

func (h *ProductHandler) ListCategoryProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "category_id")
	if !ok {
		return
	}

	if h.catalog.GetCategoryByID(r.Context(), id) == nil {
		respondError(w, http.StatusNotFound, "not_found", "category not found")
		return
	}

	products := h.catalog.ListProductsByCategory(r.Context(), id)
	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, http.StatusOK, products)
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_id", param+" must be a positive integer")
		return 0, false
	}
	return id, true
}
