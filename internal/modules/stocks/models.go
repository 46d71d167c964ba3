// Package stocks assembles per-ticker market data and scores it.
package stocks

import (
	"time"

	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
)

const (
	// ScoringPeriod covers the 200-bar trend average with room for holidays
	ScoringPeriod = "1y"
	// NewsLimit matches the catalyst scorer's article window
	NewsLimit = 10
	// CatalystLookback bounds filings and analyst actions fed to the catalyst score
	CatalystLookback = 30 * 24 * time.Hour
	// MoveLookback bounds the events used to explain the latest move
	MoveLookback = 7 * 24 * time.Hour
	// DefaultFilingsLookback is used by the filings listing
	DefaultFilingsLookback = 90 * 24 * time.Hour
)

// Trend labels
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"
)

// PriceView is the price block of a stock detail response
type PriceView struct {
	Current       float64 `json:"current"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// FundamentalsView is the ratio block of a stock detail response
type FundamentalsView struct {
	PERatio        *float64 `json:"pe_ratio"`
	PBRatio        *float64 `json:"pb_ratio"`
	ROE            *float64 `json:"roe"`
	RevenueGrowth  *float64 `json:"revenue_growth"`
	EarningsGrowth *float64 `json:"earnings_growth,omitempty"`
	DebtToEquity   *float64 `json:"debt_to_equity,omitempty"`
	MarketCap      *float64 `json:"market_cap,omitempty"`
}

// TechnicalsView is the indicator block of a stock detail response
type TechnicalsView struct {
	RSI   *float64 `json:"rsi"`
	MACD  *float64 `json:"macd"`
	Trend string   `json:"trend"`
}

// Details is the overview of a single ticker
type Details struct {
	Ticker       string           `json:"ticker"`
	Name         string           `json:"name"`
	Price        PriceView        `json:"price"`
	Fundamentals FundamentalsView `json:"fundamentals"`
	Technicals   TechnicalsView   `json:"technicals"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// Analysis is the full scoring breakdown of a ticker
type Analysis struct {
	GeneratedAt    time.Time                   `json:"generated_at"`
	Quote          *domain.Quote               `json:"quote,omitempty"`
	Technical      scorers.TechnicalAnalysis   `json:"technical"`
	Fundamental    scorers.FundamentalAnalysis `json:"fundamental"`
	Catalyst       scorers.CatalystAnalysis    `json:"catalyst"`
	Events         domain.EventsSnapshot       `json:"events"`
	Recommendation scorers.Recommendation      `json:"recommendation"`
	Ticker         string                      `json:"ticker"`
	Warnings       []string                    `json:"warnings,omitempty"`
}

// Price returns the latest known price, preferring the live quote over the last close
func (a *Analysis) Price() float64 {
	if a.Quote != nil && a.Quote.Price > 0 {
		return a.Quote.Price
	}
	return a.Technical.Indicators.Close
}

// MoveExplanation answers why a ticker moved over its latest bar
type MoveExplanation struct {
	Date          time.Time             `json:"date"`
	Ticker        string                `json:"ticker"`
	Explanation   string                `json:"explanation"`
	Reasons       []string              `json:"reasons"`
	Events        domain.EventsSnapshot `json:"events"`
	ChangePercent float64               `json:"change_percent"`
	Warnings      []string              `json:"warnings,omitempty"`
}

// TrendLabel classifies the moving average stack
func TrendLabel(ind scorers.TechnicalIndicators) string {
	if ind.SMA50 == nil {
		return TrendNeutral
	}
	sma50 := *ind.SMA50
	if ind.SMA200 == nil {
		switch {
		case ind.Close > sma50:
			return TrendBullish
		case ind.Close < sma50:
			return TrendBearish
		}
		return TrendNeutral
	}

	sma200 := *ind.SMA200
	switch {
	case ind.Close > sma50 && sma50 > sma200:
		return TrendBullish
	case ind.Close < sma50 && sma50 < sma200:
		return TrendBearish
	default:
		return TrendNeutral
	}
}

func fundamentalsView(f domain.Fundamentals) FundamentalsView {
	pick := func(key string) *float64 {
		if v, ok := f[key]; ok {
			return &v
		}
		return nil
	}
	return FundamentalsView{
		PERatio:        pick(domain.FundamentalPERatio),
		PBRatio:        pick(domain.FundamentalPBRatio),
		ROE:            pick(domain.FundamentalReturnOnEquity),
		RevenueGrowth:  pick(domain.FundamentalRevenueGrowth),
		EarningsGrowth: pick(domain.FundamentalEarningsGrowth),
		DebtToEquity:   pick(domain.FundamentalDebtToEquity),
		MarketCap:      pick(domain.FundamentalMarketCap),
	}
}
