package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all digest routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/digest", func(r chi.Router) {
		r.Get("/today", h.HandleGetToday)
		r.Get("/history", h.HandleGetHistory)
		r.Get("/performance", h.HandleGetPerformance)
		r.Post("/generate", h.HandleGenerate)
	})
}
