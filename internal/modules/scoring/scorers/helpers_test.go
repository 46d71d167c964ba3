package scorers

import (
	"time"

	"github.com/aristath/marketintel/internal/domain"
)

// buildSeries turns closes into daily bars with a flat volume profile
func buildSeries(closes []float64, volume float64) domain.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(domain.PriceSeries, len(closes))
	for i, c := range closes {
		series[i] = domain.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: volume,
		}
	}
	return series
}

// linearCloses moves by step every bar
func linearCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return closes
}

// sawtoothCloses alternates +1.2 / -1.0, a slow uptrend whose Wilder RSI settles between 52 and 57
func sawtoothCloses(n int) []float64 {
	closes := make([]float64, n)
	closes[0] = 100
	for i := 1; i < n; i++ {
		if i%2 == 1 {
			closes[i] = closes[i-1] + 1.2
		} else {
			closes[i] = closes[i-1] - 1.0
		}
	}
	return closes
}
