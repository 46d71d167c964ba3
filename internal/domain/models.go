// Package domain provides the market data records shared by clients, scorers and services.
package domain

import (
	"sort"
	"strings"
	"time"
)

// PriceBar is a single OHLCV observation
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is a sequence of bars ordered oldest to newest
type PriceSeries []PriceBar

// Closes returns the closing prices in series order
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, bar := range s {
		out[i] = bar.Close
	}
	return out
}

// Volumes returns the traded volumes in series order
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, bar := range s {
		out[i] = bar.Volume
	}
	return out
}

// Latest returns the newest bar
func (s PriceSeries) Latest() (PriceBar, bool) {
	if len(s) == 0 {
		return PriceBar{}, false
	}
	return s[len(s)-1], true
}

// ChangePercent is the percentage move of the newest close against the previous close.
func (s PriceSeries) ChangePercent() (float64, bool) {
	if len(s) < 2 {
		return 0, false
	}
	prev := s[len(s)-2].Close
	if prev == 0 {
		return 0, false
	}
	return (s[len(s)-1].Close - prev) / prev * 100, true
}

// Chronological returns a copy sorted oldest to newest.
// Providers do not all agree on ordering, so clients normalise before handing series out.
func (s PriceSeries) Chronological() PriceSeries {
	out := make(PriceSeries, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Fundamental metric keys
const (
	FundamentalPERatio        = "peRatio"
	FundamentalPBRatio        = "pbRatio"
	FundamentalPSRatio        = "psRatio"
	FundamentalReturnOnEquity = "returnOnEquity"
	FundamentalReturnOnAssets = "returnOnAssets"
	FundamentalProfitMargin   = "profitMargin"
	FundamentalRevenueGrowth  = "revenueGrowth"
	FundamentalEarningsGrowth = "earningsGrowth"
	FundamentalDebtToEquity   = "debtToEquity"
	FundamentalCurrentRatio   = "currentRatio"
	FundamentalMarketCap      = "marketCap"
	FundamentalDividendYield  = "dividendYield"
)

// Fundamentals maps metric names to values. Absent keys read as zero.
type Fundamentals map[string]float64

// Get returns the metric value, or zero when absent
func (f Fundamentals) Get(key string) float64 {
	if f == nil {
		return 0
	}
	return f[key]
}

// Quote is the latest trading snapshot of a ticker
type Quote struct {
	Time          time.Time `json:"time"`
	Ticker        string    `json:"ticker"`
	Name          string    `json:"name"`
	Currency      string    `json:"currency,omitempty"`
	Price         float64   `json:"current"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
}

// MacroObservation is the latest value of an economic series
type MacroObservation struct {
	Date     time.Time `json:"date"`
	SeriesID string    `json:"series_id"`
	Name     string    `json:"name"`
	Units    string    `json:"units,omitempty"`
	Value    float64   `json:"value"`
	Previous *float64  `json:"previous,omitempty"`
}

// NormalizeTicker upper-cases and trims a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
