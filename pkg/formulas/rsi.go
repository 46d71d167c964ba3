package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateRSI calculates the Relative Strength Index (Wilder smoothing).
//
// RSI Formula:
//
//	RSI = 100 - (100 / (1 + RS))
//	where RS = Average Gain / Average Loss over N periods
//
// Returns the latest RSI value (0-100), or nil if fewer than length+1 closes are
// available or the closes never move (no gains and no losses leave RS undefined).
func CalculateRSI(closes []float64, length int) *float64 {
	if length <= 0 || len(closes) < length+1 {
		return nil
	}
	// talib reports 0 for a flat series, which is not oversold
	if unchanged(closes) {
		return nil
	}

	rsi := talib.Rsi(closes, length)
	return last(rsi)
}

func unchanged(closes []float64) bool {
	for _, c := range closes[1:] {
		if c != closes[0] {
			return false
		}
	}
	return true
}
