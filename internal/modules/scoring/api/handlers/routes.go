package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all scoring routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/scoring", func(r chi.Router) {
		r.Post("/technical", h.HandleTechnical)
		r.Post("/fundamental", h.HandleFundamental)
		r.Post("/catalyst", h.HandleCatalyst)
		r.Post("/recommend", h.HandleRecommend)
		r.Post("/explain", h.HandleExplain) // why did it move

		r.Route("/weights", func(r chi.Router) {
			r.Get("/current", h.HandleGetCurrentWeights)
		})
	})
}
