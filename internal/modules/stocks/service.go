package stocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
)

// EarningsLookback keeps the latest reported quarter in the catalyst score while it is current
const EarningsLookback = 90 * 24 * time.Hour

var (
	// ErrTickerRequired means the request named no ticker
	ErrTickerRequired = errors.New("ticker is required")
	// ErrInvalidWeights means a weight was negative
	ErrInvalidWeights = errors.New("weights must be non-negative")
)

// Service fetches market data for a ticker and runs it through the scoring engine
type Service struct {
	providers Providers
	engine    *scorers.Engine
	weights   scorers.Weights
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates a stocks service. weights are used when Analyze is given none.
func NewService(providers Providers, engine *scorers.Engine, weights scorers.Weights, log zerolog.Logger) *Service {
	return &Service{
		providers: providers,
		engine:    engine,
		weights:   weights,
		now:       time.Now,
		log:       log.With().Str("service", "stocks").Logger(),
	}
}

// Weights returns the default composite weights
func (s *Service) Weights() scorers.Weights {
	return s.weights
}

// warnings collects non-fatal provider failures from concurrent fetches
type warnings struct {
	mu   sync.Mutex
	list []string
}

func (w *warnings) add(source string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.list = append(w.list, fmt.Sprintf("%s: %v", source, err))
}

func (w *warnings) sorted() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := append([]string(nil), w.list...)
	sort.Strings(out)
	return out
}

// Details returns the price, ratios and indicator summary of a ticker
func (s *Service) Details(ctx context.Context, ticker string) (*Details, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, ErrTickerRequired
	}
	if s.providers.Prices == nil {
		return nil, fmt.Errorf("prices: %w", clients.ErrNotConfigured)
	}

	quote, err := s.providers.Prices.Quote(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", ticker, err)
	}

	var (
		wg           sync.WaitGroup
		warn         warnings
		fundamentals domain.Fundamentals
		series       domain.PriceSeries
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		f, err := s.fundamentals(ctx, ticker)
		if err != nil {
			warn.add("fundamentals", err)
			return
		}
		fundamentals = f
	}()
	go func() {
		defer wg.Done()
		h, err := s.providers.Prices.History(ctx, ticker, ScoringPeriod)
		if err != nil {
			warn.add("history", err)
			return
		}
		series = h
	}()
	wg.Wait()

	technical := s.engine.AnalyzeTechnicals(series)
	technicals := TechnicalsView{
		RSI:   technical.Indicators.RSI,
		Trend: TrendLabel(technical.Indicators),
	}
	if technical.Indicators.MACD != nil {
		line := technical.Indicators.MACD.Line
		technicals.MACD = &line
	}

	name := quote.Name
	if name == "" {
		name = ticker
	}
	return &Details{
		Ticker: ticker,
		Name:   name,
		Price: PriceView{
			Current:       quote.Price,
			Change:        quote.Change,
			ChangePercent: quote.ChangePercent,
		},
		Fundamentals: fundamentalsView(fundamentals),
		Technicals:   technicals,
		Warnings:     warn.sorted(),
	}, nil
}

// History returns bars for period at interval, oldest first. Empty arguments select 1mo and 1d.
func (s *Service) History(ctx context.Context, ticker, period, interval string) (domain.PriceSeries, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, ErrTickerRequired
	}
	if s.providers.Prices == nil {
		return nil, fmt.Errorf("prices: %w", clients.ErrNotConfigured)
	}
	if period == "" {
		period = "1mo"
	}
	if interval == "" {
		interval = "1d"
	}
	return s.providers.Prices.HistoryInterval(ctx, ticker, period, interval)
}

// News returns up to limit recent articles, NewsLimit when limit is not positive
func (s *Service) News(ctx context.Context, ticker string, limit int) ([]domain.NewsItem, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, ErrTickerRequired
	}
	if s.providers.News == nil {
		return nil, fmt.Errorf("news: %w", clients.ErrNotConfigured)
	}
	if limit <= 0 {
		limit = NewsLimit
	}
	return s.providers.News.News(ctx, ticker, limit)
}

// Filings returns filings of formType (all forms when empty) within lookback
func (s *Service) Filings(ctx context.Context, ticker, formType string, lookback time.Duration) ([]domain.Filing, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, ErrTickerRequired
	}
	if s.providers.Filings == nil {
		return nil, fmt.Errorf("filings: %w", clients.ErrNotConfigured)
	}
	if lookback <= 0 {
		lookback = DefaultFilingsLookback
	}
	return s.providers.Filings.Filings(ctx, ticker, formType, s.now().Add(-lookback))
}

// Analyze computes all three component scores and the composite recommendation.
// Provider failures degrade the affected score and are reported as warnings.
// nil weights selects the service defaults.
func (s *Service) Analyze(ctx context.Context, ticker string, weights *scorers.Weights) (*Analysis, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, ErrTickerRequired
	}
	w := s.weights
	if weights != nil {
		w = *weights
	}
	if w.Technical < 0 || w.Fundamental < 0 || w.Catalyst < 0 {
		return nil, ErrInvalidWeights
	}

	now := s.now()
	var (
		wg           sync.WaitGroup
		warn         warnings
		series       domain.PriceSeries
		historyErr   error
		fundamentals domain.Fundamentals
		quote        *domain.Quote
		events       domain.EventsSnapshot
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		if s.providers.Prices == nil {
			historyErr = clients.ErrNotConfigured
			return
		}
		series, historyErr = s.providers.Prices.History(ctx, ticker, ScoringPeriod)
	}()
	go func() {
		defer wg.Done()
		if s.providers.Prices == nil {
			return
		}
		q, err := s.providers.Prices.Quote(ctx, ticker)
		if err != nil {
			warn.add("quote", err)
			return
		}
		quote = q
	}()
	go func() {
		defer wg.Done()
		f, err := s.fundamentals(ctx, ticker)
		if err != nil {
			warn.add("fundamentals", err)
			return
		}
		fundamentals = f
	}()
	go func() {
		defer wg.Done()
		events = s.events(ctx, ticker, now.Add(-CatalystLookback), now.Add(-EarningsLookback), &warn)
	}()
	wg.Wait()

	if historyErr != nil {
		if errors.Is(historyErr, clients.ErrNotFound) {
			return nil, fmt.Errorf("no price history for %s: %w", ticker, historyErr)
		}
		warn.add("history", historyErr)
	}

	technical := s.engine.AnalyzeTechnicals(series)
	fundamental := s.engine.AnalyzeFundamentals(fundamentals)
	catalyst := s.engine.AnalyzeCatalysts(events.News, events.Filings8K, events.Earnings)
	rec := s.engine.Recommend(ticker, technical.Score, fundamental.Score, catalyst.Score, &w)

	analysis := &Analysis{
		GeneratedAt:    now,
		Ticker:         ticker,
		Quote:          quote,
		Technical:      technical,
		Fundamental:    fundamental,
		Catalyst:       catalyst,
		Events:         events,
		Recommendation: rec,
		Warnings:       warn.sorted(),
	}

	s.log.Debug().
		Str("ticker", ticker).
		Str("action", string(rec.Action)).
		Float64("total", rec.TotalScore).
		Int("warnings", len(analysis.Warnings)).
		Msg("Analyzed ticker")

	return analysis, nil
}

// Explain attributes the move over the latest bar to the past week's events
func (s *Service) Explain(ctx context.Context, ticker string) (*MoveExplanation, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, ErrTickerRequired
	}
	if s.providers.Prices == nil {
		return nil, fmt.Errorf("prices: %w", clients.ErrNotConfigured)
	}

	series, err := s.providers.Prices.History(ctx, ticker, "5d")
	if err != nil {
		return nil, fmt.Errorf("failed to get recent prices for %s: %w", ticker, err)
	}
	change, ok := series.ChangePercent()
	if !ok {
		return nil, fmt.Errorf("%s has %d recent bars: %w", ticker, len(series), scorers.ErrInsufficientHistory)
	}
	latest, _ := series.Latest()

	var warn warnings
	since := s.now().Add(-MoveLookback)
	events := s.events(ctx, ticker, since, since, &warn)

	return &MoveExplanation{
		Date:          latest.Date,
		Ticker:        ticker,
		ChangePercent: change,
		Explanation:   s.engine.ExplainMove(ticker, change, events),
		Reasons:       s.engine.MoveReasons(events),
		Events:        events,
		Warnings:      warn.sorted(),
	}, nil
}

// fundamentals tries each provider in order and returns the first non-empty snapshot
func (s *Service) fundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	var errs []error
	for _, p := range s.providers.Fundamentals {
		if p == nil {
			continue
		}
		f, err := p.Fundamentals(ctx, ticker)
		if err == nil && len(f) > 0 {
			return f, nil
		}
		if err != nil && !errors.Is(err, clients.ErrNotConfigured) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, clients.ErrNotConfigured
}

// events gathers the catalysts published since the given times. Failures become warnings.
func (s *Service) events(ctx context.Context, ticker string, since, earningsSince time.Time, warn *warnings) domain.EventsSnapshot {
	var (
		wg     sync.WaitGroup
		events domain.EventsSnapshot
	)

	if p := s.providers.Earnings; p != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := p.LatestEarnings(ctx, ticker)
			if err != nil {
				warn.add("earnings", err)
				return
			}
			if e != nil && !e.ReportDate.Before(earningsSince.Truncate(24*time.Hour)) {
				events.Earnings = e
			}
		}()
	}
	if p := s.providers.Filings; p != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := p.Filings(ctx, ticker, domain.FilingType8K, since)
			if err != nil {
				warn.add("filings", err)
				return
			}
			events.Filings8K = domain.Only8K(f)
		}()
	}
	if p := s.providers.News; p != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := p.News(ctx, ticker, NewsLimit)
			if err != nil {
				warn.add("news", err)
				return
			}
			events.News = n
		}()
	}
	if p := s.providers.Analyst; p != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := p.AnalystActions(ctx, ticker, since)
			if err != nil {
				warn.add("analyst", err)
				return
			}
			events.AnalystActions = a
		}()
	}

	wg.Wait()
	return events
}
