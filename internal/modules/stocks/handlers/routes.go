package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all stock routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/stocks/{ticker}", func(r chi.Router) {
		r.Get("/", h.HandleGetDetails)
		r.Get("/history", h.HandleGetHistory)
		r.Get("/news", h.HandleGetNews)
		r.Get("/filings", h.HandleGetFilings)
		r.Get("/score", h.HandleGetScore)
		r.Get("/why", h.HandleGetWhy) // attribution of the latest move
	})
}
