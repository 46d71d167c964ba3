// Package handlers provides HTTP handlers for the daily digest.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/database"
	"github.com/aristath/marketintel/internal/modules/digest"
)

// Service is the digest service surface used by the handlers
type Service interface {
	Generate(ctx context.Context, date time.Time) (*digest.Digest, error)
	Today(ctx context.Context, date time.Time) (*digest.Digest, error)
	History(ctx context.Context, limit int) ([]digest.Digest, error)
	Performance(ctx context.Context) (*digest.Performance, error)
}

// Handlers provides HTTP handlers for the digest module
type Handlers struct {
	service Service
	now     func() time.Time
	log     zerolog.Logger
}

// NewHandlers creates a new digest handlers instance
func NewHandlers(service Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		now:     time.Now,
		log:     log.With().Str("module", "digest_handlers").Logger(),
	}
}

// HandleGetToday handles GET /api/digest/today?digest_date=YYYY-MM-DD
func (h *Handlers) HandleGetToday(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r, "digest_date")
	if !ok {
		return
	}

	d, err := h.service.Today(r.Context(), date)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get digest")
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

// HandleGetHistory handles GET /api/digest/history?limit=
func (h *Handlers) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			h.writeError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = v
	}

	digests, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get digest history")
		return
	}
	if digests == nil {
		digests = []digest.Digest{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"digests": digests,
		"count":   len(digests),
	})
}

// HandleGetPerformance handles GET /api/digest/performance
func (h *Handlers) HandleGetPerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.service.Performance(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to compute performance")
		return
	}
	h.writeJSON(w, http.StatusOK, perf)
}

// HandleGenerate handles POST /api/digest/generate?date=YYYY-MM-DD
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r, "date")
	if !ok {
		return
	}

	h.log.Info().Str("date", date.Format(digest.DateLayout)).Msg("Manual digest generation requested")

	d, err := h.service.Generate(r.Context(), date)
	if err != nil {
		h.writeServiceError(w, err, "Failed to generate digest")
		return
	}
	h.writeJSON(w, http.StatusCreated, d)
}

// dateParam parses a YYYY-MM-DD query parameter, defaulting to today
func (h *Handlers) dateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return h.now(), true
	}
	date, err := time.Parse(digest.DateLayout, raw)
	if err != nil {
		h.writeError(w, "invalid "+name+", expected YYYY-MM-DD", http.StatusBadRequest)
		return time.Time{}, false
	}
	return date, true
}

// StatusFor maps digest errors onto HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, digest.ErrNoAnalyses):
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
