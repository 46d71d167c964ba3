// Package handlers provides HTTP handlers for per-ticker stock data.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
	"github.com/aristath/marketintel/internal/modules/stocks"
)

// Service is the stocks service surface used by the handlers
type Service interface {
	Details(ctx context.Context, ticker string) (*stocks.Details, error)
	History(ctx context.Context, ticker, period, interval string) (domain.PriceSeries, error)
	News(ctx context.Context, ticker string, limit int) ([]domain.NewsItem, error)
	Filings(ctx context.Context, ticker, formType string, lookback time.Duration) ([]domain.Filing, error)
	Analyze(ctx context.Context, ticker string, weights *scorers.Weights) (*stocks.Analysis, error)
	Explain(ctx context.Context, ticker string) (*stocks.MoveExplanation, error)
	Weights() scorers.Weights
}

// Handlers provides HTTP handlers for the stocks module
type Handlers struct {
	service Service
	log     zerolog.Logger
}

// NewHandlers creates a new stocks handlers instance
func NewHandlers(service Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("module", "stocks_handlers").Logger(),
	}
}

// HandleGetDetails handles GET /api/stocks/{ticker}
func (h *Handlers) HandleGetDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.Details(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to get stock details")
		return
	}
	h.writeJSON(w, http.StatusOK, details)
}

// HandleGetHistory handles GET /api/stocks/{ticker}/history?period=&interval=
func (h *Handlers) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	ticker := domain.NormalizeTicker(chi.URLParam(r, "ticker"))
	period := r.URL.Query().Get("period")
	interval := r.URL.Query().Get("interval")

	series, err := h.service.History(r.Context(), ticker, period, interval)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get price history")
		return
	}
	if series == nil {
		series = domain.PriceSeries{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":   ticker,
		"period":   period,
		"interval": interval,
		"data":     series,
	})
}

// HandleGetNews handles GET /api/stocks/{ticker}/news?limit=
func (h *Handlers) HandleGetNews(w http.ResponseWriter, r *http.Request) {
	ticker := domain.NormalizeTicker(chi.URLParam(r, "ticker"))
	limit, ok := h.intParam(w, r, "limit", stocks.NewsLimit)
	if !ok {
		return
	}

	news, err := h.service.News(r.Context(), ticker, limit)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get news")
		return
	}
	if news == nil {
		news = []domain.NewsItem{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": ticker,
		"news":   news,
	})
}

// HandleGetFilings handles GET /api/stocks/{ticker}/filings?filing_type=&days=
func (h *Handlers) HandleGetFilings(w http.ResponseWriter, r *http.Request) {
	ticker := domain.NormalizeTicker(chi.URLParam(r, "ticker"))
	filingType := r.URL.Query().Get("filing_type")
	days, ok := h.intParam(w, r, "days", int(stocks.DefaultFilingsLookback/(24*time.Hour)))
	if !ok {
		return
	}

	filings, err := h.service.Filings(r.Context(), ticker, filingType, time.Duration(days)*24*time.Hour)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get filings")
		return
	}
	if filings == nil {
		filings = []domain.Filing{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":      ticker,
		"filing_type": filingType,
		"filings":     filings,
	})
}

// HandleGetScore handles GET /api/stocks/{ticker}/score
// Optional technical, fundamental and catalyst query parameters override the configured weights.
func (h *Handlers) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	weights, err := weightsFromQuery(r, h.service.Weights())
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	analysis, err := h.service.Analyze(r.Context(), chi.URLParam(r, "ticker"), weights)
	if err != nil {
		h.writeServiceError(w, err, "Failed to score stock")
		return
	}
	h.writeJSON(w, http.StatusOK, analysis)
}

// HandleGetWhy handles GET /api/stocks/{ticker}/why
func (h *Handlers) HandleGetWhy(w http.ResponseWriter, r *http.Request) {
	move, err := h.service.Explain(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to explain move")
		return
	}
	h.writeJSON(w, http.StatusOK, move)
}

// weightsFromQuery returns nil when no weight parameter is present
func weightsFromQuery(r *http.Request, defaults scorers.Weights) (*scorers.Weights, error) {
	q := r.URL.Query()
	if !q.Has("technical") && !q.Has("fundamental") && !q.Has("catalyst") {
		return nil, nil
	}

	w := defaults
	for name, target := range map[string]*float64{
		"technical":   &w.Technical,
		"fundamental": &w.Fundamental,
		"catalyst":    &w.Catalyst,
	} {
		if !q.Has(name) {
			continue
		}
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			return nil, errors.New("invalid " + name + " weight")
		}
		*target = v
	}
	return &w, nil
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

// StatusFor maps service errors onto HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, stocks.ErrTickerRequired),
		errors.Is(err, stocks.ErrInvalidWeights),
		errors.Is(err, clients.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, clients.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scorers.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity
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
	} else {
		h.log.Debug().Err(err).Msg(msg)
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
