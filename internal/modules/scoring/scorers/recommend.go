package scorers

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/marketintel/internal/modules/scoring"
)

// Action is the recommendation label derived from the composite score
type Action string

const (
	ActionStrongBuy Action = "STRONG BUY"
	ActionBuy       Action = "BUY"
	ActionHold      Action = "HOLD"
	ActionWatch     Action = "WATCH"
	ActionAvoid     Action = "AVOID"
)

// Actions lists every label from most to least bullish
var Actions = []Action{ActionStrongBuy, ActionBuy, ActionHold, ActionWatch, ActionAvoid}

// Rank orders actions, higher is more bullish
func (a Action) Rank() int {
	for i, candidate := range Actions {
		if candidate == a {
			return len(Actions) - i
		}
	}
	return 0
}

// Weights are the component multipliers of the composite score.
// They are applied as given: nothing forces them to sum to 1.
type Weights struct {
	Technical   float64 `json:"technical" yaml:"technical"`
	Fundamental float64 `json:"fundamental" yaml:"fundamental"`
	Catalyst    float64 `json:"catalyst" yaml:"catalyst"`
}

// DefaultWeights returns 40% technical, 40% fundamental, 20% catalyst
func DefaultWeights() Weights {
	return Weights{
		Technical:   scoring.DefaultTechnicalWeight,
		Fundamental: scoring.DefaultFundamentalWeight,
		Catalyst:    scoring.DefaultCatalystWeight,
	}
}

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	return w.Technical + w.Fundamental + w.Catalyst
}

// Recommendation is the composite verdict for a ticker
type Recommendation struct {
	Ticker           string  `json:"ticker"`
	Action           Action  `json:"action"`
	Weights          Weights `json:"weights"`
	TotalScore       float64 `json:"total_score"`
	TechnicalScore   float64 `json:"technical_score"`
	FundamentalScore float64 `json:"fundamental_score"`
	CatalystScore    float64 `json:"catalyst_score"`
}

// Recommender combines component scores into a recommendation
type Recommender struct{}

// NewRecommender creates a new recommender
func NewRecommender() *Recommender {
	return &Recommender{}
}

// Recommend computes the weighted composite and its action label.
// A nil weights pointer selects DefaultWeights. The total is not normalised or clamped,
// so weights summing above 1 can push it past 10.
// The label is chosen from the unrounded total; rounding only affects the reported values.
func (r *Recommender) Recommend(ticker string, technical, fundamental, catalyst float64, weights *Weights) Recommendation {
	w := DefaultWeights()
	if weights != nil {
		w = *weights
	}

	total := technical*w.Technical + fundamental*w.Fundamental + catalyst*w.Catalyst

	return Recommendation{
		Ticker:           ticker,
		Action:           ClassifyAction(total),
		Weights:          w,
		TotalScore:       round2(total),
		TechnicalScore:   round2(technical),
		FundamentalScore: round2(fundamental),
		CatalystScore:    round2(catalyst),
	}
}

// ClassifyAction maps a composite score onto the action ladder.
// Thresholds are inclusive lower bounds checked from the top.
func ClassifyAction(total float64) Action {
	switch {
	case total >= scoring.StrongBuyThreshold:
		return ActionStrongBuy
	case total >= scoring.BuyThreshold:
		return ActionBuy
	case total >= scoring.HoldThreshold:
		return ActionHold
	case total >= scoring.WatchThreshold:
		return ActionWatch
	default:
		return ActionAvoid
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
