// Package yahoo provides price history, quotes and fallback fundamentals from Yahoo Finance.
package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	"github.com/aristath/marketintel/internal/cache"
	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/domain"
)

const (
	ttlHistory      = 6 * time.Hour
	ttlQuote        = time.Minute
	ttlFundamentals = 24 * time.Hour
)

// Periods accepted by History
var validPeriods = map[string]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

// Intervals accepted by History
var validIntervals = map[string]bool{"1d": true, "1wk": true, "1mo": true}

// Source is the subset of Yahoo Finance the client needs.
// The default implementation wraps go-yfinance; tests substitute a fake.
type Source interface {
	History(symbol, period, interval string) ([]models.Bar, error)
	Quote(symbol string) (*models.Quote, error)
	Info(symbol string) (*models.Info, error)
}

// Client fetches Yahoo Finance data through the shared transport and cache
type Client struct {
	source    Source
	transport *clients.Transport
	cache     *cache.Loader
	log       zerolog.Logger
}

// NewClient creates a Yahoo Finance client backed by go-yfinance
func NewClient(transport *clients.Transport, loader *cache.Loader, log zerolog.Logger) *Client {
	return NewClientWithSource(yfinanceSource{}, transport, loader, log)
}

// NewClientWithSource creates a client over an arbitrary source
func NewClientWithSource(source Source, transport *clients.Transport, loader *cache.Loader, log zerolog.Logger) *Client {
	return &Client{
		source:    source,
		transport: transport,
		cache:     loader,
		log:       log.With().Str("client", "yahoo").Logger(),
	}
}

// History returns daily bars for period (1d..max), oldest first
func (c *Client) History(ctx context.Context, ticker, period string) (domain.PriceSeries, error) {
	return c.HistoryInterval(ctx, ticker, period, "1d")
}

// HistoryInterval returns bars for period at interval (1d, 1wk, 1mo), oldest first
func (c *Client) HistoryInterval(ctx context.Context, symbol, period, interval string) (domain.PriceSeries, error) {
	if !validPeriods[period] {
		return nil, fmt.Errorf("unsupported period %q: %w", period, clients.ErrInvalidRequest)
	}
	if !validIntervals[interval] {
		return nil, fmt.Errorf("unsupported interval %q: %w", interval, clients.ErrInvalidRequest)
	}
	symbol = domain.NormalizeTicker(symbol)

	key := cache.Key("yahoo", "history", symbol, period, interval)
	return cache.Fetch(ctx, c.cache, key, ttlHistory, func(ctx context.Context) (domain.PriceSeries, error) {
		var bars []models.Bar
		err := c.transport.Do(ctx, func(context.Context) error {
			var err error
			bars, err = c.source.History(symbol, period, interval)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get historical prices for %s: %w", symbol, err)
		}

		series := make(domain.PriceSeries, 0, len(bars))
		for _, bar := range bars {
			series = append(series, domain.PriceBar{
				Date:   bar.Date,
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: float64(bar.Volume),
			})
		}
		series = series.Chronological()

		c.log.Debug().Str("ticker", symbol).Str("period", period).Int("bars", len(series)).Msg("Fetched price history")
		return series, nil
	})
}

// Quote returns the latest price with its change against the previous close
func (c *Client) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = domain.NormalizeTicker(symbol)

	key := cache.Key("yahoo", "quote", symbol)
	q, err := cache.Fetch(ctx, c.cache, key, ttlQuote, func(ctx context.Context) (domain.Quote, error) {
		var info *models.Info
		var quote *models.Quote
		err := c.transport.Do(ctx, func(context.Context) error {
			var err error
			info, err = c.source.Info(symbol)
			if err != nil {
				return err
			}
			// Quote is faster and fresher but optional
			quote, _ = c.source.Quote(symbol)
			return nil
		})
		if err != nil {
			return domain.Quote{}, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}
		return buildQuote(symbol, info, quote)
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func buildQuote(symbol string, info *models.Info, quote *models.Quote) (domain.Quote, error) {
	if info == nil {
		return domain.Quote{}, fmt.Errorf("%s: %w", symbol, clients.ErrNotFound)
	}

	price := float64(info.CurrentPrice)
	if quote != nil && quote.RegularMarketPrice > 0 {
		price = float64(quote.RegularMarketPrice)
	}
	previous := float64(info.RegularMarketPreviousClose)
	if price <= 0 {
		price = previous
	}
	if price <= 0 {
		return domain.Quote{}, fmt.Errorf("%s: no valid price: %w", symbol, clients.ErrNotFound)
	}

	name := info.LongName
	if name == "" {
		name = info.ShortName
	}

	q := domain.Quote{
		Time:   time.Now().UTC(),
		Ticker: symbol,
		Name:   name,
		Price:  price,
	}
	if previous > 0 {
		q.Change = price - previous
		q.ChangePercent = q.Change / previous * 100
	}
	return q, nil
}

// Fundamentals maps Yahoo's summary statistics onto the fundamentals snapshot.
// Used when no dedicated fundamentals provider is configured.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (domain.Fundamentals, error) {
	symbol = domain.NormalizeTicker(symbol)

	key := cache.Key("yahoo", "fundamentals", symbol)
	return cache.Fetch(ctx, c.cache, key, ttlFundamentals, func(ctx context.Context) (domain.Fundamentals, error) {
		var info *models.Info
		err := c.transport.Do(ctx, func(context.Context) error {
			var err error
			info, err = c.source.Info(symbol)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get fundamentals for %s: %w", symbol, err)
		}
		if info == nil {
			return nil, fmt.Errorf("%s: %w", symbol, clients.ErrNotFound)
		}
		return mapInfo(info), nil
	})
}

func mapInfo(info *models.Info) domain.Fundamentals {
	f := domain.Fundamentals{}
	set := func(key string, v float64, keepNegative bool) {
		if v > 0 || (keepNegative && v != 0) {
			f[key] = v
		}
	}
	set(domain.FundamentalPERatio, float64(info.TrailingPE), false)
	set(domain.FundamentalPBRatio, float64(info.PriceToBook), false)
	set(domain.FundamentalReturnOnEquity, float64(info.ReturnOnEquity), true)
	set(domain.FundamentalProfitMargin, float64(info.ProfitMargins), true)
	set(domain.FundamentalRevenueGrowth, float64(info.RevenueGrowth), true)
	set(domain.FundamentalEarningsGrowth, float64(info.EarningsGrowth), true)
	// Yahoo reports debt/equity as a percentage
	set(domain.FundamentalDebtToEquity, float64(info.DebtToEquity)/100, false)
	set(domain.FundamentalCurrentRatio, float64(info.CurrentRatio), false)
	set(domain.FundamentalMarketCap, float64(info.MarketCap), false)
	set(domain.FundamentalDividendYield, float64(info.DividendYield), false)
	return f
}

// yfinanceSource opens a go-yfinance ticker per call
type yfinanceSource struct{}

func (yfinanceSource) History(symbol, period, interval string) ([]models.Bar, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	return t.History(models.HistoryParams{
		Period:     period,
		Interval:   interval,
		AutoAdjust: true,
	})
}

func (yfinanceSource) Quote(symbol string) (*models.Quote, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()
	return t.Quote()
}

func (yfinanceSource) Info(symbol string) (*models.Info, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()
	return t.Info()
}
