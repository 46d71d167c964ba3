// Package alphavantage provides company overview fundamentals from Alpha Vantage.
package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/cache"
	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/domain"
)

const (
	defaultBaseURL  = "https://www.alphavantage.co/query"
	ttlFundamentals = 24 * time.Hour
)

// Client is the Alpha Vantage API client. The free tier allows a handful of calls per minute,
// so it only backs up FMP.
type Client struct {
	baseURL   string
	apiKey    string
	transport *clients.Transport
	cache     *cache.Loader
	log       zerolog.Logger
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, transport *clients.Transport, loader *cache.Loader, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		apiKey:    apiKey,
		transport: transport,
		cache:     loader,
		log:       log.With().Str("client", "alphavantage").Logger(),
	}
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// overview fields arrive as strings, with "None" or "-" for missing values
type overview struct {
	Symbol                     string `json:"Symbol"`
	PERatio                    string `json:"PERatio"`
	PriceToBookRatio           string `json:"PriceToBookRatio"`
	PriceToSalesRatioTTM       string `json:"PriceToSalesRatioTTM"`
	ReturnOnEquityTTM          string `json:"ReturnOnEquityTTM"`
	ReturnOnAssetsTTM          string `json:"ReturnOnAssetsTTM"`
	ProfitMargin               string `json:"ProfitMargin"`
	QuarterlyRevenueGrowthYOY  string `json:"QuarterlyRevenueGrowthYOY"`
	QuarterlyEarningsGrowthYOY string `json:"QuarterlyEarningsGrowthYOY"`
	MarketCapitalization       string `json:"MarketCapitalization"`
	DividendYield              string `json:"DividendYield"`

	// Throttled responses carry one of these instead of data
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// Fundamentals returns ratios from the OVERVIEW function
func (c *Client) Fundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	if !c.Configured() {
		return nil, clients.ErrNotConfigured
	}
	ticker = domain.NormalizeTicker(ticker)

	key := cache.Key("alphavantage", "overview", ticker)
	return cache.Fetch(ctx, c.cache, key, ttlFundamentals, func(ctx context.Context) (domain.Fundamentals, error) {
		query := url.Values{
			"function": {"OVERVIEW"},
			"symbol":   {ticker},
			"apikey":   {c.apiKey},
		}
		var ov overview
		if err := c.transport.GetJSON(ctx, c.baseURL, query, &ov); err != nil {
			return nil, fmt.Errorf("failed to get overview for %s: %w", ticker, err)
		}
		if ov.Note != "" || ov.Information != "" {
			return nil, fmt.Errorf("alphavantage: %w", clients.ErrRateLimited)
		}
		if ov.Symbol == "" {
			return nil, fmt.Errorf("overview for %s: %w", ticker, clients.ErrNotFound)
		}

		f := domain.Fundamentals{}
		put(f, domain.FundamentalPERatio, ov.PERatio)
		put(f, domain.FundamentalPBRatio, ov.PriceToBookRatio)
		put(f, domain.FundamentalPSRatio, ov.PriceToSalesRatioTTM)
		put(f, domain.FundamentalReturnOnEquity, ov.ReturnOnEquityTTM)
		put(f, domain.FundamentalReturnOnAssets, ov.ReturnOnAssetsTTM)
		put(f, domain.FundamentalProfitMargin, ov.ProfitMargin)
		put(f, domain.FundamentalRevenueGrowth, ov.QuarterlyRevenueGrowthYOY)
		put(f, domain.FundamentalEarningsGrowth, ov.QuarterlyEarningsGrowthYOY)
		put(f, domain.FundamentalMarketCap, ov.MarketCapitalization)
		put(f, domain.FundamentalDividendYield, ov.DividendYield)
		return f, nil
	})
}

func put(f domain.Fundamentals, key, raw string) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return
	}
	f[key] = v
}
