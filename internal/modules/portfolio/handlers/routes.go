package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.HandleGetPortfolio)           // Positions with realized and latent gains
		r.Get("/positions", h.HandleGetPositions) // Net positions only
		r.Get("/gains", h.HandleGetGains)         // Realized and latent gains only
	})
}
