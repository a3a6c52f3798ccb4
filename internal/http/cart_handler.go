package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/omega-fast-coder/panoptikon/internal/domain"
)

// CartStore is what the cart endpoints need from the cart store. Every
// mutation returns the resulting cart snapshot with its recomputed totals.
type CartStore interface {
	Get(ctx context.Context, sessionID string) *domain.Cart
	AddItem(ctx context.Context, sessionID string, product domain.Product) *domain.Cart
	UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) *domain.Cart
	RemoveItem(ctx context.Context, sessionID string, productID int64) *domain.Cart
	Clear(ctx context.Context, sessionID string) *domain.Cart
}

type CartHandler struct {
	cart    CartStore
	catalog Catalog
}

func NewCartHandler(cart CartStore, catalog Catalog) *CartHandler {
	return &CartHandler{
		cart:    cart,
		catalog: catalog,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	respondJSON(w, http.StatusOK, h.cart.Get(r.Context(), sessionID))
}

// AddItem resolves the product snapshot from the catalog and adds it. Stock
// is not checked: the cart accepts quantities beyond stock_units.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	product := h.catalog.GetProductByID(r.Context(), req.ProductID)
	if product == nil {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}

	cart := h.cart.AddItem(r.Context(), sessionID, *product)
	respondJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())

	productID, ok := parseID(w, r, "product_id")
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// Negative quantities clamp to zero, zero removes the line item
	cart := h.cart.UpdateQuantity(r.Context(), sessionID, productID, req.Quantity)
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())

	productID, ok := parseID(w, r, "product_id")
	if !ok {
		return
	}

	cart := h.cart.RemoveItem(r.Context(), sessionID, productID)
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	respondJSON(w, http.StatusOK, h.cart.Clear(r.Context(), sessionID))
}
