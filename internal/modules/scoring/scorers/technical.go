package scorers

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/modules/scoring"
	"github.com/aristath/marketintel/pkg/formulas"
)

// TechnicalScorer scores momentum, trend and volume conviction from a price series
type TechnicalScorer struct {
	log zerolog.Logger
}

// TechnicalIndicators holds the latest indicator values consulted by the scorer
type TechnicalIndicators struct {
	RSI           *float64       `json:"rsi"`
	MACD          *formulas.MACD `json:"macd"`
	SMA50         *float64       `json:"sma_50"`
	SMA200        *float64       `json:"sma_200"`
	Close         float64        `json:"close"`
	RecentVolume  float64        `json:"recent_volume"`
	AverageVolume float64        `json:"average_volume"`
}

// TechnicalAnalysis is the technical score with its breakdown
type TechnicalAnalysis struct {
	Fault      *ScoringFault       `json:"fault,omitempty"`
	Components map[string]float64  `json:"components"`
	Indicators TechnicalIndicators `json:"indicators"`
	Score      float64             `json:"score"`
}

// NewTechnicalScorer creates a new technical scorer
func NewTechnicalScorer(log zerolog.Logger) *TechnicalScorer {
	return &TechnicalScorer{log: log.With().Str("scorer", "technical").Logger()}
}

type technicalStage struct {
	name  string
	score func(closes, volumes []float64, ind *TechnicalIndicators) (float64, error)
}

// stages run in order; the first failure stops accumulation
var technicalStages = []technicalStage{
	{name: "validate", score: validateSeries},
	{name: "rsi", score: rsiStage},
	{name: "trend", score: trendStage},
	{name: "volume", score: volumeStage},
}

// Calculate scores a chronological price series on a 0-10 scale.
//
// Components:
//   - RSI(14): 3.0 in [40,70], 1.5 below 30, 1.0 above 70
//   - Trend: 4.0 for close > SMA50 > SMA200, 2.0 for close > SMA50
//   - Volume: 3.0 when the last 5 bars average more than 1.2x the series average
//
// When a stage cannot be computed the score keeps what earlier stages earned
// and the fault is attached to the result.
func (ts *TechnicalScorer) Calculate(series domain.PriceSeries) TechnicalAnalysis {
	result := TechnicalAnalysis{Components: map[string]float64{}}
	if len(series) == 0 {
		return result
	}

	closes := series.Closes()
	volumes := series.Volumes()
	result.Indicators.Close = closes[len(closes)-1]

	var total float64
	for _, stage := range technicalStages {
		points, err := stage.score(closes, volumes, &result.Indicators)
		if err != nil {
			result.Fault = newFault(stage.name, err, total)
			ts.log.Warn().
				Err(err).
				Str("stage", stage.name).
				Int("bars", len(series)).
				Float64("partial_score", total).
				Msg("Technical score degraded to partial result")
			break
		}
		if stage.name != "validate" {
			result.Components[stage.name] = points
		}
		total += points
	}

	result.Score = clampScore(total)
	return result
}

// validateSeries checks closes only; missing volumes are skipped by the volume stage
func validateSeries(closes, _ []float64, ind *TechnicalIndicators) (float64, error) {
	if !formulas.AllFinite(closes) {
		return 0, ErrMalformedSeries
	}
	// MACD is informational only; short series simply leave it unset
	ind.MACD = formulas.CalculateMACD(closes, scoring.MACDFast, scoring.MACDSlow, scoring.MACDSignal)
	return 0, nil
}

func rsiStage(closes, _ []float64, ind *TechnicalIndicators) (float64, error) {
	if len(closes) < scoring.RSILength+1 {
		return 0, fmt.Errorf("RSI(%d) needs %d closes, have %d: %w",
			scoring.RSILength, scoring.RSILength+1, len(closes), ErrInsufficientHistory)
	}
	ind.RSI = formulas.CalculateRSI(closes, scoring.RSILength)
	if ind.RSI == nil {
		// flat prices: RSI is undefined and matches no band
		return 0, nil
	}
	return rsiPoints(*ind.RSI), nil
}

// rsiPoints maps RSI onto the contribution ladder.
// 30 <= RSI < 40 matches no band and earns 0.
func rsiPoints(rsi float64) float64 {
	switch {
	case rsi >= scoring.RSIHealthyLow && rsi <= scoring.RSIHealthyHigh:
		return scoring.RSIHealthyPoints
	case rsi < scoring.RSIOversold:
		return scoring.RSIOversoldPoints
	case rsi > scoring.RSIOverbought:
		return scoring.RSIOverboughtPoints
	default:
		return 0
	}
}

func trendStage(closes, _ []float64, ind *TechnicalIndicators) (float64, error) {
	ind.SMA50 = formulas.CalculateSMA(closes, scoring.SMAShort)
	ind.SMA200 = formulas.CalculateSMA(closes, scoring.SMALong)
	if ind.SMA50 == nil || ind.SMA200 == nil {
		return 0, fmt.Errorf("SMA(%d) needs %d closes, have %d: %w",
			scoring.SMALong, scoring.SMALong, len(closes), ErrInsufficientHistory)
	}
	return trendPoints(ind.Close, *ind.SMA50, *ind.SMA200), nil
}

func trendPoints(last, sma50, sma200 float64) float64 {
	if last > sma50 && sma50 > sma200 {
		return scoring.StrongUptrendPoints
	}
	if last > sma50 {
		return scoring.AboveShortMAPoints
	}
	return 0
}

func volumeStage(_, volumes []float64, ind *TechnicalIndicators) (float64, error) {
	ind.AverageVolume = formulas.Mean(formulas.Finite(volumes))
	ind.RecentVolume = formulas.Mean(formulas.Finite(formulas.Tail(volumes, scoring.RecentVolumeWindow)))
	if ind.RecentVolume > ind.AverageVolume*scoring.VolumeSurgeRatio {
		return scoring.VolumeSurgePoints, nil
	}
	return 0, nil
}
