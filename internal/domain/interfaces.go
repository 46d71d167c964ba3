package domain

import (
	"context"
	"time"
)

// PriceProvider supplies OHLCV history and live quotes
type PriceProvider interface {
	History(ctx context.Context, ticker, period string) (PriceSeries, error)
	Quote(ctx context.Context, ticker string) (*Quote, error)
}

// FundamentalsProvider supplies valuation, profitability and growth ratios
type FundamentalsProvider interface {
	Fundamentals(ctx context.Context, ticker string) (Fundamentals, error)
}

// EarningsProvider supplies reported and scheduled earnings
type EarningsProvider interface {
	LatestEarnings(ctx context.Context, ticker string) (*Earnings, error)
	EarningsCalendar(ctx context.Context, from, to time.Time) ([]EarningsEvent, error)
}

// AnalystProvider supplies recent analyst rating changes as display strings
type AnalystProvider interface {
	AnalystActions(ctx context.Context, ticker string, since time.Time) ([]string, error)
}

// NewsProvider supplies scored news articles
type NewsProvider interface {
	News(ctx context.Context, ticker string, limit int) ([]NewsItem, error)
}

// FilingsProvider supplies regulatory filings. An empty formType matches all forms.
type FilingsProvider interface {
	Filings(ctx context.Context, ticker, formType string, since time.Time) ([]Filing, error)
}

// MacroProvider supplies economic time series observations
type MacroProvider interface {
	Latest(ctx context.Context, seriesID string) (*MacroObservation, error)
}
