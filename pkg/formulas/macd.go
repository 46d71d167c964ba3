package formulas

import (
	"github.com/markcheno/go-talib"
)

// MACD holds the latest Moving Average Convergence Divergence values
type MACD struct {
	Line      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// CalculateMACD calculates MACD as EMA(fast) - EMA(slow) with an EMA(signal) signal line.
// Standard parameters are 12/26/9. Returns nil until slow+signal-1 closes are available.
func CalculateMACD(closes []float64, fast, slow, signal int) *MACD {
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return nil
	}
	if len(closes) < slow+signal-1 {
		return nil
	}

	line, sig, hist := talib.Macd(closes, fast, slow, signal)
	l, s, h := last(line), last(sig), last(hist)
	if l == nil || s == nil || h == nil {
		return nil
	}

	return &MACD{Line: *l, Signal: *s, Histogram: *h}
}
