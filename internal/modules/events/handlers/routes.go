package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all events routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Get("/earnings", h.HandleGetEarnings)
		r.Get("/filings/recent", h.HandleGetRecentFilings)
		r.Get("/macro", h.HandleGetMacro)
		r.Get("/insider-trading", h.HandleGetInsiderTrading)
	})
}
