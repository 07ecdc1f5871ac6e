package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers market routes. mutating wraps the cache cleanup route.
func (h *Handler) RegisterRoutes(r chi.Router, mutating ...func(http.Handler) http.Handler) {
	r.Route("/market", func(r chi.Router) {
		r.Get("/{isin}/returns", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetReturns(w, r, chi.URLParam(r, "isin"))
		})

		r.With(mutating...).Post("/cache/cleanup", h.HandleCacheCleanup)
	})
}
