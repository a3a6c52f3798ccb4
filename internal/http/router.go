package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the full storefront HTTP surface.
func NewRouter(products *ProductHandler, cart *CartHandler, checkout *CheckoutHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.ListProducts)
			r.Get("/{product_id}", products.GetProduct)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", products.ListCategories)
			r.Get("/{category_id}", products.GetCategory)
			r.Get("/{category_id}/products", products.ListCategoryProducts)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cart.GetCart)
			r.Delete("/", cart.ClearCart)
			r.Post("/items", cart.AddItem)
			r.Put("/items/{product_id}", cart.UpdateQuantity)
			r.Delete("/items/{product_id}", cart.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkout.GetCheckout)
			r.Delete("/", checkout.ResetCheckout)
			r.Post("/advance", checkout.Advance)
			r.Post("/back", checkout.Back)
		})
	})

	return r
}
