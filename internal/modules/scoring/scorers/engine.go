package scorers

import (
	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/metrics"
)

// Engine exposes the five scoring operations.
// It holds no mutable state; one value can be shared by any number of goroutines.
type Engine struct {
	technical   *TechnicalScorer
	fundamental *FundamentalScorer
	catalyst    *CatalystScorer
	recommender *Recommender
	attributor  *Attributor
	metrics     *metrics.Registry
}

// NewEngine creates a scoring engine. The logger only receives degraded-score diagnostics.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		technical:   NewTechnicalScorer(log),
		fundamental: NewFundamentalScorer(),
		catalyst:    NewCatalystScorer(),
		recommender: NewRecommender(),
		attributor:  NewAttributor(),
	}
}

// WithMetrics returns a copy of the engine that counts computed scores and faults
func (e *Engine) WithMetrics(m *metrics.Registry) *Engine {
	clone := *e
	clone.metrics = m
	return &clone
}

// TechnicalScore returns the 0-10 technical score of a price series
func (e *Engine) TechnicalScore(series domain.PriceSeries) float64 {
	return e.AnalyzeTechnicals(series).Score
}

// AnalyzeTechnicals returns the technical score with indicators and any fault
func (e *Engine) AnalyzeTechnicals(series domain.PriceSeries) TechnicalAnalysis {
	analysis := e.technical.Calculate(series)
	stage := ""
	if analysis.Fault != nil {
		stage = analysis.Fault.Stage
	}
	e.metrics.ObserveScore("technical", stage)
	return analysis
}

// FundamentalScore returns the 0-10 fundamental score
func (e *Engine) FundamentalScore(f domain.Fundamentals) float64 {
	return e.AnalyzeFundamentals(f).Score
}

// AnalyzeFundamentals returns the fundamental score with its breakdown
func (e *Engine) AnalyzeFundamentals(f domain.Fundamentals) FundamentalAnalysis {
	e.metrics.ObserveScore("fundamental", "")
	return e.fundamental.Calculate(f)
}

// CatalystScore returns the 0-10 catalyst score
func (e *Engine) CatalystScore(news []domain.NewsItem, filings []domain.Filing, earnings *domain.Earnings) float64 {
	return e.AnalyzeCatalysts(news, filings, earnings).Score
}

// AnalyzeCatalysts returns the catalyst score with its breakdown
func (e *Engine) AnalyzeCatalysts(news []domain.NewsItem, filings []domain.Filing, earnings *domain.Earnings) CatalystAnalysis {
	e.metrics.ObserveScore("catalyst", "")
	return e.catalyst.Calculate(news, filings, earnings)
}

// Recommend combines component scores; nil weights selects the defaults
func (e *Engine) Recommend(ticker string, technical, fundamental, catalyst float64, weights *Weights) Recommendation {
	e.metrics.ObserveScore("composite", "")
	return e.recommender.Recommend(ticker, technical, fundamental, catalyst, weights)
}

// ExplainMove attributes a price move to recent events
func (e *Engine) ExplainMove(ticker string, priceChangePercent float64, events domain.EventsSnapshot) string {
	return e.attributor.Explain(ticker, priceChangePercent, events)
}

// MoveReasons lists the catalyst fragments behind ExplainMove, empty when nothing stands out
func (e *Engine) MoveReasons(events domain.EventsSnapshot) []string {
	reasons := e.attributor.Reasons(events)
	if reasons == nil {
		return []string{}
	}
	return reasons
}
