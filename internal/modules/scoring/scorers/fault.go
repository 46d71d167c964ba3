// Package scorers provides the technical, fundamental and catalyst scorers,
// the composite recommender and the move attribution generator.
package scorers

import (
	"errors"
	"fmt"
	"math"

	"github.com/aristath/marketintel/internal/modules/scoring"
)

var (
	// ErrInsufficientHistory means a series is too short for an indicator
	ErrInsufficientHistory = errors.New("insufficient price history")
	// ErrMalformedSeries means a series contains non-finite values
	ErrMalformedSeries = errors.New("malformed price series")
)

// ScoringFault records a computation that stopped part way.
// PartialScore is what had been accumulated before Stage failed, and is the score reported.
type ScoringFault struct {
	Err          error   `json:"-"`
	Stage        string  `json:"stage"`
	Reason       string  `json:"reason"`
	PartialScore float64 `json:"partial_score"`
}

func newFault(stage string, err error, partial float64) *ScoringFault {
	return &ScoringFault{Err: err, Stage: stage, Reason: err.Error(), PartialScore: partial}
}

func (f *ScoringFault) Error() string {
	return fmt.Sprintf("%s stage failed after %.2f points: %v", f.Stage, f.PartialScore, f.Err)
}

func (f *ScoringFault) Unwrap() error {
	return f.Err
}

// clampScore bounds a raw contribution sum to [MinScore, MaxScore]
func clampScore(raw float64) float64 {
	return math.Max(scoring.MinScore, math.Min(scoring.MaxScore, raw))
}
