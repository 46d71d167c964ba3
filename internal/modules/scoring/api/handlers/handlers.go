// Package handlers provides HTTP handlers for the scoring API.
// Every endpoint scores caller-supplied data; nothing is fetched from providers.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
)

// Handlers provides HTTP handlers for scoring module
type Handlers struct {
	engine  *scorers.Engine
	weights scorers.Weights
	log     zerolog.Logger
}

// NewHandlers creates a new scoring handlers instance. weights are the configured defaults
// applied when a recommend request carries none.
func NewHandlers(engine *scorers.Engine, weights scorers.Weights, log zerolog.Logger) *Handlers {
	return &Handlers{
		engine:  engine,
		weights: weights,
		log:     log.With().Str("module", "scoring_handlers").Logger(),
	}
}

// TechnicalRequest carries a price series, oldest bar first
type TechnicalRequest struct {
	Ticker string             `json:"ticker"`
	Prices domain.PriceSeries `json:"prices"`
}

// FundamentalRequest carries a fundamentals snapshot
type FundamentalRequest struct {
	Ticker       string              `json:"ticker"`
	Fundamentals domain.Fundamentals `json:"fundamentals"`
}

// CatalystRequest carries the recent catalysts of a ticker
type CatalystRequest struct {
	Ticker   string            `json:"ticker"`
	News     []domain.NewsItem `json:"news"`
	Filings  []domain.Filing   `json:"filings"`
	Earnings *domain.Earnings  `json:"earnings,omitempty"`
}

// RecommendRequest carries component scores and optional weights
type RecommendRequest struct {
	Weights          *scorers.Weights `json:"weights,omitempty"`
	Ticker           string           `json:"ticker"`
	TechnicalScore   float64          `json:"technical_score"`
	FundamentalScore float64          `json:"fundamental_score"`
	CatalystScore    float64          `json:"catalyst_score"`
}

// ExplainRequest carries a price move and the events around it
type ExplainRequest struct {
	Ticker             string                `json:"ticker"`
	PriceChangePercent float64               `json:"price_change_percent"`
	Events             domain.EventsSnapshot `json:"events"`
}

// ScoreResponse is a component score with its breakdown
type ScoreResponse struct {
	Indicators *scorers.TechnicalIndicators `json:"indicators,omitempty"`
	Fault      *scorers.ScoringFault        `json:"fault,omitempty"`
	Components map[string]float64           `json:"components"`
	Ticker     string                       `json:"ticker,omitempty"`
	Kind       string                       `json:"kind"`
	Score      float64                      `json:"score"`
}

// ExplainResponse is the attribution sentence for a move
type ExplainResponse struct {
	Ticker      string   `json:"ticker"`
	Explanation string   `json:"explanation"`
	Reasons     []string `json:"reasons"`
}

// HandleTechnical handles POST /api/scoring/technical
func (h *Handlers) HandleTechnical(w http.ResponseWriter, r *http.Request) {
	var req TechnicalRequest
	if !h.decode(w, r, &req) {
		return
	}

	analysis := h.engine.AnalyzeTechnicals(req.Prices)
	if analysis.Fault != nil {
		h.log.Debug().
			Str("ticker", req.Ticker).
			Str("stage", analysis.Fault.Stage).
			Msg("Technical score degraded")
	}

	h.writeJSON(w, http.StatusOK, ScoreResponse{
		Ticker:     domain.NormalizeTicker(req.Ticker),
		Kind:       "technical",
		Score:      analysis.Score,
		Components: analysis.Components,
		Indicators: &analysis.Indicators,
		Fault:      analysis.Fault,
	})
}

// HandleFundamental handles POST /api/scoring/fundamental
func (h *Handlers) HandleFundamental(w http.ResponseWriter, r *http.Request) {
	var req FundamentalRequest
	if !h.decode(w, r, &req) {
		return
	}

	analysis := h.engine.AnalyzeFundamentals(req.Fundamentals)
	h.writeJSON(w, http.StatusOK, ScoreResponse{
		Ticker:     domain.NormalizeTicker(req.Ticker),
		Kind:       "fundamental",
		Score:      analysis.Score,
		Components: analysis.Components,
	})
}

// HandleCatalyst handles POST /api/scoring/catalyst
func (h *Handlers) HandleCatalyst(w http.ResponseWriter, r *http.Request) {
	var req CatalystRequest
	if !h.decode(w, r, &req) {
		return
	}

	analysis := h.engine.AnalyzeCatalysts(req.News, req.Filings, req.Earnings)
	h.writeJSON(w, http.StatusOK, ScoreResponse{
		Ticker:     domain.NormalizeTicker(req.Ticker),
		Kind:       "catalyst",
		Score:      analysis.Score,
		Components: analysis.Components,
	})
}

// HandleRecommend handles POST /api/scoring/recommend
func (h *Handlers) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Ticker) == "" {
		h.writeError(w, "ticker is required", http.StatusBadRequest)
		return
	}

	weights := h.weights
	if req.Weights != nil {
		weights = *req.Weights
	}
	if weights.Technical < 0 || weights.Fundamental < 0 || weights.Catalyst < 0 {
		h.writeError(w, "weights must be non-negative", http.StatusBadRequest)
		return
	}

	rec := h.engine.Recommend(domain.NormalizeTicker(req.Ticker),
		req.TechnicalScore, req.FundamentalScore, req.CatalystScore, &weights)
	h.writeJSON(w, http.StatusOK, rec)
}

// HandleExplain handles POST /api/scoring/explain
func (h *Handlers) HandleExplain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Ticker) == "" {
		h.writeError(w, "ticker is required", http.StatusBadRequest)
		return
	}

	ticker := domain.NormalizeTicker(req.Ticker)
	h.writeJSON(w, http.StatusOK, ExplainResponse{
		Ticker:      ticker,
		Explanation: h.engine.ExplainMove(ticker, req.PriceChangePercent, req.Events),
		Reasons:     h.engine.MoveReasons(req.Events),
	})
}

// HandleGetCurrentWeights handles GET /api/scoring/weights/current
func (h *Handlers) HandleGetCurrentWeights(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"weights": h.weights,
		"sum":     h.weights.Sum(),
		"actions": scorers.Actions,
	})
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode scoring request")
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
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
