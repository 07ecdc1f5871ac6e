package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes. mutating wraps the routes that
// rewrite the ledger (rate limiting).
func (h *Handler) RegisterRoutes(r chi.Router, mutating ...func(http.Handler) http.Handler) {
	r.Route("/ledger", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.HandleListTransactions)
			r.Get("/search", h.HandleSearchTransactions)
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetTransaction(w, r, chi.URLParam(r, "id"))
			})

			r.Group(func(r chi.Router) {
				r.Use(mutating...)
				r.Post("/", h.HandleAppendTransaction)
				r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
					h.HandleUpdateQuantity(w, r, chi.URLParam(r, "id"))
				})
				r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
					h.HandleDeleteTransaction(w, r, chi.URLParam(r, "id"))
				})
			})
		})
	})
}
