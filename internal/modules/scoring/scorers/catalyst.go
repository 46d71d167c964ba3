package scorers

import (
	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/modules/scoring"
	"github.com/aristath/marketintel/pkg/formulas"
)

// CatalystScorer scores news sentiment, material filings and earnings surprises
type CatalystScorer struct{}

// CatalystAnalysis is the catalyst score with its breakdown
type CatalystAnalysis struct {
	Components map[string]float64 `json:"components"`
	Score      float64            `json:"score"`
}

// NewCatalystScorer creates a new catalyst scorer
func NewCatalystScorer() *CatalystScorer {
	return &CatalystScorer{}
}

// Calculate scores recent catalysts on a 0-10 scale.
// Only the first NewsWindow articles are averaged.
func (cs *CatalystScorer) Calculate(news []domain.NewsItem, filings []domain.Filing, earnings *domain.Earnings) CatalystAnalysis {
	newsPts := newsPoints(news)
	filingPts := filingPoints(filings)
	earningsPts := earningsPoints(earnings)

	return CatalystAnalysis{
		Score: clampScore(newsPts + filingPts + earningsPts),
		Components: map[string]float64{
			"news":     newsPts,
			"filings":  filingPts,
			"earnings": earningsPts,
		},
	}
}

func newsPoints(news []domain.NewsItem) float64 {
	if len(news) == 0 {
		return 0
	}
	window := news
	if len(window) > scoring.NewsWindow {
		window = window[:scoring.NewsWindow]
	}

	avg := meanSentiment(window)
	switch {
	case avg > scoring.NewsStrongSentiment:
		return scoring.NewsStrongPoints
	case avg > 0:
		return scoring.NewsPositivePoints
	default:
		return 0
	}
}

func filingPoints(filings []domain.Filing) float64 {
	for _, f := range filings {
		if f.Type == domain.FilingType8K {
			return scoring.MaterialFilingPoints
		}
	}
	return 0
}

func earningsPoints(earnings *domain.Earnings) float64 {
	if earnings == nil {
		return 0
	}
	return tieredPoints(earnings.EPSSurprisePercent,
		scoring.EPSBeatStrong, scoring.EPSBeatStrongPoints,
		0, scoring.EPSBeatPoints)
}

// meanSentiment averages sentiment; callers guarantee a non-empty slice
func meanSentiment(news []domain.NewsItem) float64 {
	values := make([]float64, len(news))
	for i, n := range news {
		values[i] = n.Sentiment
	}
	return formulas.Mean(values)
}
