// Package handlers provides HTTP handlers for market events.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/modules/events"
)

// Service is the events service surface used by the handlers
type Service interface {
	Today() time.Time
	EarningsCalendar(ctx context.Context, from, to time.Time) ([]domain.EarningsEvent, error)
	RecentFilings(ctx context.Context, ticker, formType string, days int) ([]domain.Filing, error)
	InsiderTrading(ctx context.Context, ticker string, days int) ([]domain.Filing, error)
	Macro(ctx context.Context) []domain.MacroObservation
}

// Handlers provides HTTP handlers for the events module
type Handlers struct {
	service Service
	log     zerolog.Logger
}

// NewHandlers creates a new events handlers instance
func NewHandlers(service Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("module", "events_handlers").Logger(),
	}
}

// HandleGetEarnings handles GET /api/events/earnings?start_date=&end_date=
func (h *Handlers) HandleGetEarnings(w http.ResponseWriter, r *http.Request) {
	start := h.service.Today()
	if raw := r.URL.Query().Get("start_date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			h.writeError(w, "invalid start_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		start = parsed
	}
	end := start.AddDate(0, 0, events.DefaultCalendarDays)
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			h.writeError(w, "invalid end_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		end = parsed
	}

	calendar, err := h.service.EarningsCalendar(r.Context(), start, end)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get earnings calendar")
		return
	}
	if calendar == nil {
		calendar = []domain.EarningsEvent{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"start_date": start.Format(time.DateOnly),
		"end_date":   end.Format(time.DateOnly),
		"earnings":   calendar,
	})
}

// HandleGetRecentFilings handles GET /api/events/filings/recent?ticker=&filing_type=&days=
func (h *Handlers) HandleGetRecentFilings(w http.ResponseWriter, r *http.Request) {
	days, ok := h.intParam(w, r, "days", events.DefaultFilingsDays)
	if !ok {
		return
	}
	ticker := domain.NormalizeTicker(r.URL.Query().Get("ticker"))

	filings, err := h.service.RecentFilings(r.Context(), ticker, r.URL.Query().Get("filing_type"), days)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get recent filings")
		return
	}
	if filings == nil {
		filings = []domain.Filing{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"filings": filings,
		"count":   len(filings),
	})
}

// HandleGetMacro handles GET /api/events/macro
func (h *Handlers) HandleGetMacro(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": h.service.Macro(r.Context()),
	})
}

// HandleGetInsiderTrading handles GET /api/events/insider-trading?ticker=&days=
func (h *Handlers) HandleGetInsiderTrading(w http.ResponseWriter, r *http.Request) {
	ticker := domain.NormalizeTicker(r.URL.Query().Get("ticker"))
	if ticker == "" {
		h.writeError(w, "ticker is required", http.StatusBadRequest)
		return
	}
	days, ok := h.intParam(w, r, "days", events.DefaultInsiderDays)
	if !ok {
		return
	}

	transactions, err := h.service.InsiderTrading(r.Context(), ticker, days)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get insider trading")
		return
	}
	if transactions == nil {
		transactions = []domain.Filing{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":       ticker,
		"transactions": transactions,
	})
}

func (h *Handlers) intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		h.writeError(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// StatusFor maps events errors onto HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, events.ErrInvalidRange), errors.Is(err, clients.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, clients.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, clients.ErrNotConfigured),
		errors.Is(err, clients.ErrCircuitOpen),
		errors.Is(err, clients.ErrRateLimited):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, err error, msg string) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg(msg)
	}
	h.writeError(w, err.Error(), status)
}

// writeJSON writes a JSON response with status code
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handlers) writeError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
