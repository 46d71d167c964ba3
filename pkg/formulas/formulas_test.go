package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rising(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestCalculateSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6}

	sma := CalculateSMA(closes, 3)
	require.NotNil(t, sma)
	assert.InDelta(t, 5.0, *sma, 1e-9)

	assert.Nil(t, CalculateSMA(closes, 7), "insufficient data returns nil")
	assert.Nil(t, CalculateSMA(closes, 0))
}

func TestCalculateEMA_ConvergesOnConstantSeries(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 50
	}

	ema := CalculateEMA(closes, 10)
	require.NotNil(t, ema)
	assert.InDelta(t, 50.0, *ema, 1e-9)
}

func TestCalculateRSI(t *testing.T) {
	t.Run("insufficient data", func(t *testing.T) {
		assert.Nil(t, CalculateRSI(rising(14, 100, 1), 14))
	})

	t.Run("only gains approaches 100", func(t *testing.T) {
		rsi := CalculateRSI(rising(30, 100, 1), 14)
		require.NotNil(t, rsi)
		assert.InDelta(t, 100.0, *rsi, 1e-6)
	})

	t.Run("only losses approaches 0", func(t *testing.T) {
		rsi := CalculateRSI(rising(30, 100, -1), 14)
		require.NotNil(t, rsi)
		assert.InDelta(t, 0.0, *rsi, 1e-6)
	})

	t.Run("flat prices are undefined", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 100
		}
		assert.Nil(t, CalculateRSI(closes, 14))
	})

	t.Run("flat tail after a move is defined", func(t *testing.T) {
		closes := append(rising(5, 100, -1), 96, 96, 96, 96, 96, 96, 96, 96, 96, 96, 96, 96)
		rsi := CalculateRSI(closes, 14)
		require.NotNil(t, rsi)
		assert.InDelta(t, 0.0, *rsi, 1e-6)
	})

	t.Run("bounded", func(t *testing.T) {
		closes := make([]float64, 60)
		for i := range closes {
			closes[i] = 100 + 5*math.Sin(float64(i)/3)
		}
		rsi := CalculateRSI(closes, 14)
		require.NotNil(t, rsi)
		assert.GreaterOrEqual(t, *rsi, 0.0)
		assert.LessOrEqual(t, *rsi, 100.0)
	})
}

func TestCalculateMACD(t *testing.T) {
	assert.Nil(t, CalculateMACD(rising(33, 100, 1), 12, 26, 9), "needs slow+signal-1 closes")
	assert.Nil(t, CalculateMACD(rising(60, 100, 1), 26, 12, 9), "fast must be shorter than slow")

	macd := CalculateMACD(rising(80, 100, 1), 12, 26, 9)
	require.NotNil(t, macd)
	assert.Greater(t, macd.Line, 0.0, "fast EMA leads slow EMA in an uptrend")
	assert.InDelta(t, macd.Line-macd.Signal, macd.Histogram, 1e-9)
}

func TestStats(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-9)
	assert.Equal(t, 0.0, StdDev([]float64{3}))
	assert.Equal(t, []float64{3, 4}, Tail([]float64{1, 2, 3, 4}, 2))
	assert.Equal(t, []float64{1, 2}, Tail([]float64{1, 2}, 5))
	assert.True(t, AllFinite([]float64{1, 2}))
	assert.False(t, AllFinite([]float64{1, math.NaN()}))
	assert.False(t, AllFinite([]float64{math.Inf(1)}))
	assert.Equal(t, []float64{1, 3}, Finite([]float64{1, math.NaN(), 3, math.Inf(-1)}))
	assert.Empty(t, Finite([]float64{math.NaN()}))
}

func TestCalculateReturnsAndSharpe(t *testing.T) {
	returns := CalculateReturns([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0))
	assert.Greater(t, SharpeRatio([]float64{0.02, 0.01, 0.03}, 0), 0.0)

	assert.InDelta(t, 5.0, PercentChange(100, 105), 1e-9)
	assert.Equal(t, 0.0, PercentChange(0, 105))
}
