package digest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/marketintel/internal/database"
	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/metrics"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
	"github.com/aristath/marketintel/internal/modules/stocks"
	"github.com/aristath/marketintel/pkg/formulas"
)

const (
	defaultConcurrency   = 4
	defaultWatchListSize = 5
	defaultHistoryLimit  = 30
	maxHistoryLimit      = 365
	performanceWindow    = 250
	recentPicksShown     = 10
	benchmarkPeriod      = "2y"
)

// ErrNoAnalyses means no ticker in the universe could be analyzed
var ErrNoAnalyses = errors.New("no ticker could be analyzed")

// Analyzer scores a single ticker
type Analyzer interface {
	Analyze(ctx context.Context, ticker string, weights *scorers.Weights) (*stocks.Analysis, error)
}

// Explainer renders catalyst attributions
type Explainer interface {
	ExplainMove(ticker string, priceChangePercent float64, events domain.EventsSnapshot) string
	MoveReasons(events domain.EventsSnapshot) []string
}

// Store persists digests
type Store interface {
	Save(ctx context.Context, d *Digest) error
	GetByDate(ctx context.Context, date string) (*Digest, error)
	List(ctx context.Context, limit int) ([]Digest, error)
	TopPicks(ctx context.Context, limit int) ([]Record, error)
}

// Config holds digest generation settings
type Config struct {
	Tickers       []string
	Weights       scorers.Weights
	WatchListSize int
	Concurrency   int
	MacroSeries   []string
}

// Service generates and serves daily digests
type Service struct {
	cfg       Config
	analyzer  Analyzer
	explainer Explainer
	prices    domain.PriceProvider
	calendar  domain.EarningsProvider
	macro     domain.MacroProvider
	store     Store
	archiver  Archiver
	metrics   *metrics.Registry
	now       func() time.Time
	log       zerolog.Logger

	// one generation at a time
	generateMu sync.Mutex
}

// Dependencies are the collaborators of the digest service. Calendar, Macro, Archiver and Metrics may be nil.
type Dependencies struct {
	Analyzer  Analyzer
	Explainer Explainer
	Prices    domain.PriceProvider
	Calendar  domain.EarningsProvider
	Macro     domain.MacroProvider
	Store     Store
	Archiver  Archiver
	Metrics   *metrics.Registry
}

// NewService creates a new digest service
func NewService(cfg Config, deps Dependencies, log zerolog.Logger) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.WatchListSize <= 0 {
		cfg.WatchListSize = defaultWatchListSize
	}
	return &Service{
		cfg:       cfg,
		analyzer:  deps.Analyzer,
		explainer: deps.Explainer,
		prices:    deps.Prices,
		calendar:  deps.Calendar,
		macro:     deps.Macro,
		store:     deps.Store,
		archiver:  deps.Archiver,
		metrics:   deps.Metrics,
		now:       time.Now,
		log:       log.With().Str("service", "digest").Logger(),
	}
}

// Generate analyzes the universe and stores the digest for date, replacing an existing one
func (s *Service) Generate(ctx context.Context, date time.Time) (*Digest, error) {
	s.generateMu.Lock()
	defer s.generateMu.Unlock()

	start := s.now()
	d, err := s.generate(ctx, date)
	if err != nil {
		s.metrics.ObserveDigest("failed", s.now().Sub(start))
		return nil, err
	}
	s.metrics.ObserveDigest("success", s.now().Sub(start))
	return d, nil
}

func (s *Service) generate(ctx context.Context, date time.Time) (*Digest, error) {
	generatedAt := s.now().UTC()
	d := &Digest{
		ID:          uuid.NewString(),
		Date:        date.Format(DateLayout),
		GeneratedAt: generatedAt,
	}

	s.log.Info().Str("date", d.Date).Int("tickers", len(s.cfg.Tickers)).Msg("Generating digest")

	analyses, failures := s.analyzeUniverse(ctx)
	d.Warnings = append(d.Warnings, failures...)
	if len(analyses) == 0 {
		return nil, fmt.Errorf("digest %s: %w", d.Date, ErrNoAnalyses)
	}
	rank(analyses)

	d.Rankings = make([]Record, len(analyses))
	for i, a := range analyses {
		rec := a.Recommendation
		d.Rankings[i] = Record{
			ID:               uuid.NewString(),
			DigestID:         d.ID,
			DigestDate:       d.Date,
			Ticker:           a.Ticker,
			Rank:             i + 1,
			Action:           rec.Action,
			TotalScore:       rec.TotalScore,
			TechnicalScore:   rec.TechnicalScore,
			FundamentalScore: rec.FundamentalScore,
			CatalystScore:    rec.CatalystScore,
			Price:            a.Price(),
			CreatedAt:        generatedAt,
		}
	}

	d.TopRecommendation = s.pick(analyses[0])
	d.WatchList = s.watchList(analyses[1:])
	d.MarketSummary = s.marketSummary(ctx, analyses)

	events, err := s.keyEvents(ctx, date, d)
	if err != nil {
		d.Warnings = append(d.Warnings, "calendar: "+err.Error())
	}
	d.KeyEvents = events
	d.MacroContext = s.macroContext(ctx, d)

	if err := s.store.Save(ctx, d); err != nil {
		return nil, err
	}

	if s.archiver != nil {
		if _, err := s.archiver.Archive(ctx, d); err != nil {
			s.log.Warn().Err(err).Str("date", d.Date).Msg("Failed to archive digest")
		}
	}

	s.log.Info().
		Str("date", d.Date).
		Str("top_pick", d.TopRecommendation.Ticker).
		Int("ranked", len(d.Rankings)).
		Int("warnings", len(d.Warnings)).
		Msg("Digest generated")

	return d, nil
}

// analyzeUniverse scores every ticker with bounded concurrency
func (s *Service) analyzeUniverse(ctx context.Context) ([]*stocks.Analysis, []string) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		analyses []*stocks.Analysis
		failures []string
	)
	weights := s.cfg.Weights
	sem := make(chan struct{}, s.cfg.Concurrency)

	for _, ticker := range s.cfg.Tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", ticker, ctx.Err()))
				mu.Unlock()
				return
			}
			defer func() { <-sem }()

			a, err := s.analyzer.Analyze(ctx, ticker, &weights)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to analyze ticker")
				failures = append(failures, fmt.Sprintf("%s: %v", ticker, err))
				return
			}
			analyses = append(analyses, a)
		}(ticker)
	}
	wg.Wait()

	sort.Strings(failures)
	return analyses, failures
}

// rank orders analyses by total score, highest first, ties broken by ticker
func rank(analyses []*stocks.Analysis) {
	sort.SliceStable(analyses, func(i, j int) bool {
		a, b := analyses[i].Recommendation, analyses[j].Recommendation
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return analyses[i].Ticker < analyses[j].Ticker
	})
}

func (s *Service) pick(a *stocks.Analysis) *Pick {
	rec := a.Recommendation
	name := a.Ticker
	if a.Quote != nil && a.Quote.Name != "" {
		name = a.Quote.Name
	}

	catalyst := "No recent catalyst"
	if reasons := s.explainer.MoveReasons(a.Events); len(reasons) > 0 {
		catalyst = strings.Join(reasons, ", ")
	}

	return &Pick{
		Ticker:           a.Ticker,
		Name:             name,
		Action:           rec.Action,
		Price:            a.Price(),
		TotalScore:       rec.TotalScore,
		TechnicalScore:   rec.TechnicalScore,
		FundamentalScore: rec.FundamentalScore,
		CatalystScore:    rec.CatalystScore,
		Reasoning: fmt.Sprintf("Technical %.1f, fundamental %.1f, catalyst %.1f; trend %s",
			rec.TechnicalScore, rec.FundamentalScore, rec.CatalystScore, stocks.TrendLabel(a.Technical.Indicators)),
		Catalyst: catalyst,
	}
}

// watchList takes the next best names rated WATCH or better
func (s *Service) watchList(rest []*stocks.Analysis) []WatchItem {
	items := make([]WatchItem, 0, s.cfg.WatchListSize)
	for _, a := range rest {
		if len(items) == s.cfg.WatchListSize {
			break
		}
		rec := a.Recommendation
		if rec.Action.Rank() < scorers.ActionWatch.Rank() {
			continue
		}
		items = append(items, WatchItem{
			Ticker: a.Ticker,
			Action: rec.Action,
			Score:  rec.TotalScore,
			Reason: s.watchReason(a),
		})
	}
	return items
}

func (s *Service) watchReason(a *stocks.Analysis) string {
	if reasons := s.explainer.MoveReasons(a.Events); len(reasons) > 0 {
		return reasons[0]
	}
	rec := a.Recommendation
	name, best := "technical", rec.TechnicalScore
	if rec.FundamentalScore > best {
		name, best = "fundamental", rec.FundamentalScore
	}
	if rec.CatalystScore > best {
		name, best = "catalyst", rec.CatalystScore
	}
	return fmt.Sprintf("Strongest on %s score (%.1f)", name, best)
}

// marketSummary reads the index quotes and explains the biggest mover in the universe
func (s *Service) marketSummary(ctx context.Context, analyses []*stocks.Analysis) MarketSummary {
	var (
		wg      sync.WaitGroup
		summary MarketSummary
	)
	targets := map[string]**float64{
		IndexSP500:  &summary.OvernightMoves.SP500Change,
		IndexNasdaq: &summary.OvernightMoves.NasdaqChange,
		IndexDow:    &summary.OvernightMoves.DowChange,
	}
	for symbol, target := range targets {
		wg.Add(1)
		go func(symbol string, target **float64) {
			defer wg.Done()
			q, err := s.prices.Quote(ctx, symbol)
			if err != nil {
				s.log.Warn().Err(err).Str("index", symbol).Msg("Failed to get index quote")
				return
			}
			change := q.ChangePercent
			*target = &change
		}(symbol, target)
	}
	wg.Wait()

	var mover *stocks.Analysis
	for _, a := range analyses {
		if a.Quote == nil {
			continue
		}
		if mover == nil || math.Abs(a.Quote.ChangePercent) > math.Abs(mover.Quote.ChangePercent) {
			mover = a
		}
	}
	if mover == nil {
		summary.KeyDriver = "No dominant market driver identified"
	} else {
		summary.KeyDriver = s.explainer.ExplainMove(mover.Ticker, mover.Quote.ChangePercent, mover.Events)
	}
	return summary
}

// keyEvents lists earnings announcements of universe tickers on the digest date
func (s *Service) keyEvents(ctx context.Context, date time.Time, d *Digest) ([]KeyEvent, error) {
	events := []KeyEvent{}
	if s.calendar == nil {
		return events, nil
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	calendar, err := s.calendar.EarningsCalendar(ctx, day, day)
	if err != nil {
		return events, err
	}

	tracked := make(map[string]bool, len(s.cfg.Tickers))
	for _, t := range s.cfg.Tickers {
		tracked[t] = true
	}
	highlighted := map[string]bool{}
	if d.TopRecommendation != nil {
		highlighted[d.TopRecommendation.Ticker] = true
	}
	for _, w := range d.WatchList {
		highlighted[w.Ticker] = true
	}

	for _, e := range calendar {
		if !tracked[e.Ticker] {
			continue
		}
		impact := ImpactMedium
		if highlighted[e.Ticker] {
			impact = ImpactHigh
		}
		events = append(events, KeyEvent{
			Ticker:         e.Ticker,
			Time:           sessionLabel(e.Time),
			Event:          e.Ticker + " earnings release",
			ExpectedImpact: impact,
		})
	}
	return events, nil
}

func sessionLabel(session string) string {
	switch session {
	case "before_market":
		return "Before market open"
	case "after_market":
		return "After market close"
	case "":
		return "Time not announced"
	default:
		return session
	}
}

func (s *Service) macroContext(ctx context.Context, d *Digest) []domain.MacroObservation {
	out := []domain.MacroObservation{}
	if s.macro == nil {
		return out
	}
	for _, id := range s.cfg.MacroSeries {
		obs, err := s.macro.Latest(ctx, id)
		if err != nil {
			d.Warnings = append(d.Warnings, fmt.Sprintf("macro %s: %v", id, err))
			continue
		}
		out = append(out, *obs)
	}
	return out
}

// Today returns the stored digest for date. The current day is generated on first request.
func (s *Service) Today(ctx context.Context, date time.Time) (*Digest, error) {
	key := date.Format(DateLayout)
	d, err := s.store.GetByDate(ctx, key)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, database.ErrNotFound) || key != s.now().Format(DateLayout) {
		return nil, err
	}
	return s.Generate(ctx, date)
}

// History returns past digests, newest first
func (s *Service) History(ctx context.Context, limit int) ([]Digest, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.store.List(ctx, limit)
}

// Performance measures past top picks against their current price and the S&P 500
func (s *Service) Performance(ctx context.Context) (*Performance, error) {
	picks, err := s.store.TopPicks(ctx, performanceWindow)
	if err != nil {
		return nil, err
	}

	perf := &Performance{RecentPicks: []PickPerformance{}}
	benchmark := s.benchmarkCloses(ctx)
	benchmarkNow, haveBenchmarkNow := benchmark.Latest()

	var returns, excess []float64
	wins := 0
	for _, p := range picks {
		if p.Price <= 0 {
			continue
		}
		q, err := s.prices.Quote(ctx, p.Ticker)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", p.Ticker).Msg("Failed to price past pick")
			continue
		}

		ret := formulas.PercentChange(p.Price, q.Price)
		returns = append(returns, ret)
		if ret > 0 {
			wins++
		}
		if haveBenchmarkNow {
			if entry, ok := closeOn(benchmark, p.DigestDate); ok {
				excess = append(excess, ret-formulas.PercentChange(entry, benchmarkNow.Close))
			}
		}
		if len(perf.RecentPicks) < recentPicksShown {
			perf.RecentPicks = append(perf.RecentPicks, PickPerformance{
				Date:         p.DigestDate,
				Ticker:       p.Ticker,
				Action:       p.Action,
				EntryPrice:   p.Price,
				CurrentPrice: q.Price,
				ReturnPct:    round2(ret),
			})
		}
	}

	perf.TotalRecommendations = len(returns)
	if len(returns) == 0 {
		return perf, nil
	}

	fractions := make([]float64, len(returns))
	for i, r := range returns {
		fractions[i] = r / 100
	}
	perf.WinRate = round2(float64(wins) / float64(len(returns)))
	perf.AverageReturn = round2(formulas.Mean(returns))
	perf.SharpeRatio = round2(formulas.SharpeRatio(fractions, 0))
	perf.VsSP500 = round2(formulas.Mean(excess))
	return perf, nil
}

func (s *Service) benchmarkCloses(ctx context.Context) domain.PriceSeries {
	series, err := s.prices.History(ctx, IndexSP500, benchmarkPeriod)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get benchmark history")
		return nil
	}
	return series
}

// closeOn returns the last close on or before a YYYY-MM-DD date
func closeOn(series domain.PriceSeries, date string) (float64, bool) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, false
	}
	cutoff := day.AddDate(0, 0, 1)

	var price float64
	found := false
	for _, bar := range series {
		if !bar.Date.Before(cutoff) {
			break
		}
		price, found = bar.Close, true
	}
	return price, found
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
