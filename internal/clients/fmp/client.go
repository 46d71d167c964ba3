// Package fmp provides fundamentals, earnings and analyst data from Financial Modeling Prep.
package fmp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/cache"
	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/domain"
)

const (
	defaultBaseURL = "https://financialmodelingprep.com/api"
	dateLayout     = "2006-01-02"

	ttlFundamentals = 24 * time.Hour
	ttlEarnings     = 12 * time.Hour
	ttlCalendar     = 6 * time.Hour
	ttlAnalyst      = 6 * time.Hour
)

// Client is the Financial Modeling Prep API client
type Client struct {
	baseURL   string
	apiKey    string
	transport *clients.Transport
	cache     *cache.Loader
	log       zerolog.Logger
}

// NewClient creates a new FMP client. Without an API key every call returns clients.ErrNotConfigured.
func NewClient(apiKey string, transport *clients.Transport, loader *cache.Loader, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		apiKey:    apiKey,
		transport: transport,
		cache:     loader,
		log:       log.With().Str("client", "fmp").Logger(),
	}
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type keyMetrics struct {
	Date              string   `json:"date"`
	PERatio           *float64 `json:"peRatio"`
	PBRatio           *float64 `json:"pbRatio"`
	PriceToSalesRatio *float64 `json:"priceToSalesRatio"`
	ROE               *float64 `json:"roe"`
	DebtToEquity      *float64 `json:"debtToEquity"`
	CurrentRatio      *float64 `json:"currentRatio"`
	MarketCap         *float64 `json:"marketCap"`
	DividendYield     *float64 `json:"dividendYield"`
}

type financialGrowth struct {
	Date          string   `json:"date"`
	RevenueGrowth *float64 `json:"revenueGrowth"`
	EPSGrowth     *float64 `json:"epsgrowth"`
}

// Fundamentals merges the latest key metrics with the latest growth figures
func (c *Client) Fundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	if !c.Configured() {
		return nil, clients.ErrNotConfigured
	}
	ticker = domain.NormalizeTicker(ticker)

	key := cache.Key("fmp", "fundamentals", ticker)
	return cache.Fetch(ctx, c.cache, key, ttlFundamentals, func(ctx context.Context) (domain.Fundamentals, error) {
		var metrics []keyMetrics
		if err := c.get(ctx, "/v3/key-metrics/"+url.PathEscape(ticker), url.Values{"limit": {"1"}}, &metrics); err != nil {
			return nil, fmt.Errorf("failed to get key metrics for %s: %w", ticker, err)
		}
		if len(metrics) == 0 {
			return nil, fmt.Errorf("key metrics for %s: %w", ticker, clients.ErrNotFound)
		}

		f := domain.Fundamentals{}
		m := metrics[0]
		put(f, domain.FundamentalPERatio, m.PERatio)
		put(f, domain.FundamentalPBRatio, m.PBRatio)
		put(f, domain.FundamentalPSRatio, m.PriceToSalesRatio)
		put(f, domain.FundamentalReturnOnEquity, m.ROE)
		put(f, domain.FundamentalDebtToEquity, m.DebtToEquity)
		put(f, domain.FundamentalCurrentRatio, m.CurrentRatio)
		put(f, domain.FundamentalMarketCap, m.MarketCap)
		put(f, domain.FundamentalDividendYield, m.DividendYield)

		// Growth lives on a separate endpoint; missing growth leaves those keys absent
		var growth []financialGrowth
		if err := c.get(ctx, "/v3/financial-growth/"+url.PathEscape(ticker), url.Values{"limit": {"1"}}, &growth); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to get financial growth")
		} else if len(growth) > 0 {
			put(f, domain.FundamentalRevenueGrowth, growth[0].RevenueGrowth)
			put(f, domain.FundamentalEarningsGrowth, growth[0].EPSGrowth)
		}

		return f, nil
	})
}

func put(f domain.Fundamentals, key string, v *float64) {
	if v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
		f[key] = *v
	}
}

type calendarEntry struct {
	Date             string   `json:"date"`
	Symbol           string   `json:"symbol"`
	EPS              *float64 `json:"eps"`
	EPSEstimated     *float64 `json:"epsEstimated"`
	Time             string   `json:"time"`
	Revenue          *float64 `json:"revenue"`
	RevenueEstimated *float64 `json:"revenueEstimated"`
}

// EarningsCalendar returns scheduled announcements between from and to inclusive, ordered by date
func (c *Client) EarningsCalendar(ctx context.Context, from, to time.Time) ([]domain.EarningsEvent, error) {
	if !c.Configured() {
		return nil, clients.ErrNotConfigured
	}
	if to.Before(from) {
		return nil, fmt.Errorf("end date %s is before start date %s", to.Format(dateLayout), from.Format(dateLayout))
	}

	key := cache.Key("fmp", "calendar", from.Format(dateLayout), to.Format(dateLayout))
	return cache.Fetch(ctx, c.cache, key, ttlCalendar, func(ctx context.Context) ([]domain.EarningsEvent, error) {
		query := url.Values{
			"from": {from.Format(dateLayout)},
			"to":   {to.Format(dateLayout)},
		}
		var entries []calendarEntry
		if err := c.get(ctx, "/v3/earning_calendar", query, &entries); err != nil {
			return nil, fmt.Errorf("failed to get earnings calendar: %w", err)
		}

		events := make([]domain.EarningsEvent, 0, len(entries))
		for _, e := range entries {
			date, err := time.Parse(dateLayout, e.Date)
			if err != nil {
				continue
			}
			events = append(events, domain.EarningsEvent{
				Date:            date,
				Ticker:          e.Symbol,
				Time:            sessionName(e.Time),
				EPSEstimate:     e.EPSEstimated,
				RevenueEstimate: e.RevenueEstimated,
			})
		}
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].Date.Equal(events[j].Date) {
				return events[i].Ticker < events[j].Ticker
			}
			return events[i].Date.Before(events[j].Date)
		})
		return events, nil
	})
}

func sessionName(code string) string {
	switch strings.ToLower(code) {
	case "bmo":
		return "before_market"
	case "amc":
		return "after_market"
	default:
		return code
	}
}

type earningsSurprise struct {
	Date                string   `json:"date"`
	Symbol              string   `json:"symbol"`
	ActualEarningResult *float64 `json:"actualEarningResult"`
	EstimatedEarning    *float64 `json:"estimatedEarning"`
}

// LatestEarnings returns the most recent reported quarter with its EPS surprise.
// Returns nil, nil when the ticker has no reported quarters.
func (c *Client) LatestEarnings(ctx context.Context, ticker string) (*domain.Earnings, error) {
	if !c.Configured() {
		return nil, clients.ErrNotConfigured
	}
	ticker = domain.NormalizeTicker(ticker)

	key := cache.Key("fmp", "earnings", ticker)
	list, err := cache.Fetch(ctx, c.cache, key, ttlEarnings, func(ctx context.Context) ([]domain.Earnings, error) {
		var surprises []earningsSurprise
		err := c.get(ctx, "/v3/earnings-surprises/"+url.PathEscape(ticker), nil, &surprises)
		if errors.Is(err, clients.ErrNotFound) {
			return []domain.Earnings{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get earnings for %s: %w", ticker, err)
		}

		out := make([]domain.Earnings, 0, len(surprises))
		for _, s := range surprises {
			date, err := time.Parse(dateLayout, s.Date)
			if err != nil || s.ActualEarningResult == nil || s.EstimatedEarning == nil {
				continue
			}
			out = append(out, domain.Earnings{
				ReportDate:         date,
				Ticker:             ticker,
				EPSActual:          *s.ActualEarningResult,
				EPSEstimate:        *s.EstimatedEarning,
				EPSSurprisePercent: SurprisePercent(*s.ActualEarningResult, *s.EstimatedEarning),
			})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	var latest *domain.Earnings
	for i := range list {
		if latest == nil || list[i].ReportDate.After(latest.ReportDate) {
			latest = &list[i]
		}
	}
	return latest, nil
}

// SurprisePercent is the EPS beat (positive) or miss (negative) relative to the estimate's magnitude
func SurprisePercent(actual, estimate float64) float64 {
	if estimate == 0 {
		return 0
	}
	return (actual - estimate) / math.Abs(estimate) * 100
}

type gradeChange struct {
	Symbol         string `json:"symbol"`
	PublishedDate  string `json:"publishedDate"`
	GradingCompany string `json:"gradingCompany"`
	PreviousGrade  string `json:"previousGrade"`
	NewGrade       string `json:"newGrade"`
	Action         string `json:"action"`
}

// AnalystActions returns upgrades published since the given time, newest first,
// rendered as "Firm: Old -> New"
func (c *Client) AnalystActions(ctx context.Context, ticker string, since time.Time) ([]string, error) {
	if !c.Configured() {
		return nil, clients.ErrNotConfigured
	}
	ticker = domain.NormalizeTicker(ticker)

	key := cache.Key("fmp", "grades", ticker)
	changes, err := cache.Fetch(ctx, c.cache, key, ttlAnalyst, func(ctx context.Context) ([]gradeChange, error) {
		var changes []gradeChange
		if err := c.get(ctx, "/v4/upgrades-downgrades", url.Values{"symbol": {ticker}}, &changes); err != nil {
			return nil, fmt.Errorf("failed to get analyst actions for %s: %w", ticker, err)
		}
		return changes, nil
	})
	if err != nil {
		return nil, err
	}

	type dated struct {
		at   time.Time
		text string
	}
	var upgrades []dated
	for _, ch := range changes {
		if !strings.EqualFold(ch.Action, "upgrade") {
			continue
		}
		at, err := time.Parse(time.RFC3339, ch.PublishedDate)
		if err != nil {
			at, err = time.Parse("2006-01-02T15:04:05.000Z", ch.PublishedDate)
		}
		if err != nil || at.Before(since) {
			continue
		}
		text := ch.GradingCompany + ": " + ch.NewGrade
		if ch.PreviousGrade != "" {
			text = fmt.Sprintf("%s: %s -> %s", ch.GradingCompany, ch.PreviousGrade, ch.NewGrade)
		}
		upgrades = append(upgrades, dated{at: at, text: text})
	}
	sort.SliceStable(upgrades, func(i, j int) bool { return upgrades[i].at.After(upgrades[j].at) })

	out := make([]string, len(upgrades))
	for i, u := range upgrades {
		out[i] = u.text
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("apikey", c.apiKey)
	return c.transport.GetJSON(ctx, c.baseURL+path, query, out)
}
