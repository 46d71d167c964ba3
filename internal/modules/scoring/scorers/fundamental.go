package scorers

import (
	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/modules/scoring"
)

// FundamentalScorer scores valuation, profitability and growth
type FundamentalScorer struct{}

// FundamentalAnalysis is the fundamental score with its breakdown
type FundamentalAnalysis struct {
	Components map[string]float64 `json:"components"`
	Score      float64            `json:"score"`
}

// NewFundamentalScorer creates a new fundamental scorer
func NewFundamentalScorer() *FundamentalScorer {
	return &FundamentalScorer{}
}

// Calculate scores a fundamentals snapshot on a 0-10 scale.
// Missing metrics read as zero and land in the no-points branch of their factor.
func (fs *FundamentalScorer) Calculate(f domain.Fundamentals) FundamentalAnalysis {
	if len(f) == 0 {
		return FundamentalAnalysis{Components: map[string]float64{}}
	}

	valuation := valuationPoints(f.Get(domain.FundamentalPERatio))
	profitability := tieredPoints(f.Get(domain.FundamentalReturnOnEquity),
		scoring.ROEStrong, scoring.ROEStrongPoints,
		scoring.ROEGood, scoring.ROEGoodPoints)
	growth := tieredPoints(f.Get(domain.FundamentalRevenueGrowth),
		scoring.RevenueGrowthStrong, scoring.RevenueGrowthStrongPoints,
		scoring.RevenueGrowthGood, scoring.RevenueGrowthGoodPoints)

	return FundamentalAnalysis{
		Score: clampScore(valuation + profitability + growth),
		Components: map[string]float64{
			"valuation":     valuation,
			"profitability": profitability,
			"growth":        growth,
		},
	}
}

// valuationPoints prefers a moderate P/E: not too expensive, not suspiciously cheap
func valuationPoints(pe float64) float64 {
	switch {
	case pe >= scoring.PEFairLow && pe <= scoring.PEFairHigh:
		return scoring.PEFairPoints
	case pe >= scoring.PECheapLow && pe < scoring.PEFairLow:
		return scoring.PENearPoints
	case pe > scoring.PEFairHigh && pe <= scoring.PERichHigh:
		return scoring.PENearPoints
	default:
		return 0
	}
}

// tieredPoints awards highPoints strictly above high, lowPoints strictly above low
func tieredPoints(value, high, highPoints, low, lowPoints float64) float64 {
	if value > high {
		return highPoints
	}
	if value > low {
		return lowPoints
	}
	return 0
}
