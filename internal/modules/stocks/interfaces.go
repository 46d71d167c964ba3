package stocks

import (
	"context"

	"github.com/aristath/marketintel/internal/domain"
)

// PriceHistoryProvider is a price provider that also serves weekly and monthly bars
type PriceHistoryProvider interface {
	domain.PriceProvider
	HistoryInterval(ctx context.Context, ticker, period, interval string) (domain.PriceSeries, error)
}

// Providers are the data sources behind the service. Fundamentals are tried in order.
// Any provider may be nil; its data is then treated as unavailable.
type Providers struct {
	Prices       PriceHistoryProvider
	Fundamentals []domain.FundamentalsProvider
	Earnings     domain.EarningsProvider
	Analyst      domain.AnalystProvider
	News         domain.NewsProvider
	Filings      domain.FilingsProvider
}
