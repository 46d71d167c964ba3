package digest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/database"
	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/metrics"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
	"github.com/aristath/marketintel/internal/modules/stocks"
)

var testNow = time.Date(2024, 9, 10, 6, 30, 0, 0, time.UTC)

type fakeAnalyzer struct {
	mu       sync.Mutex
	analyses map[string]*stocks.Analysis
	calls    int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, ticker string, _ *scorers.Weights) (*stocks.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	a, ok := f.analyses[ticker]
	if !ok {
		return nil, errors.New("boom")
	}
	return a, nil
}

type fakePrices struct {
	quotes    map[string]*domain.Quote
	benchmark domain.PriceSeries
}

func (f *fakePrices) History(_ context.Context, ticker, _ string) (domain.PriceSeries, error) {
	if ticker != IndexSP500 || f.benchmark == nil {
		return nil, clients.ErrNotFound
	}
	return f.benchmark, nil
}

func (f *fakePrices) Quote(_ context.Context, ticker string) (*domain.Quote, error) {
	q, ok := f.quotes[ticker]
	if !ok {
		return nil, clients.ErrNotFound
	}
	return q, nil
}

type fakeCalendar struct {
	events []domain.EarningsEvent
}

func (f fakeCalendar) LatestEarnings(context.Context, string) (*domain.Earnings, error) {
	return nil, nil
}

func (f fakeCalendar) EarningsCalendar(context.Context, time.Time, time.Time) ([]domain.EarningsEvent, error) {
	return f.events, nil
}

type fakeMacro struct{}

func (fakeMacro) Latest(_ context.Context, seriesID string) (*domain.MacroObservation, error) {
	if seriesID == "UNRATE" {
		return &domain.MacroObservation{SeriesID: seriesID, Name: "Unemployment Rate", Value: 4.2}, nil
	}
	return nil, clients.ErrNotConfigured
}

type fakeArchiver struct {
	archived []string
}

func (f *fakeArchiver) Archive(_ context.Context, d *Digest) (string, error) {
	f.archived = append(f.archived, d.Date)
	return d.Date, nil
}

func analysis(ticker string, total float64, action scorers.Action, price, change float64) *stocks.Analysis {
	return &stocks.Analysis{
		Ticker: ticker,
		Quote:  &domain.Quote{Ticker: ticker, Name: ticker + " Inc", Price: price, ChangePercent: change},
		Recommendation: scorers.Recommendation{
			Ticker:           ticker,
			Action:           action,
			TotalScore:       total,
			TechnicalScore:   total,
			FundamentalScore: total - 1,
			CatalystScore:    total - 2,
		},
	}
}

type testEnv struct {
	service  *Service
	repo     *Repository
	analyzer *fakeAnalyzer
	prices   *fakePrices
	archiver *fakeArchiver
	metrics  *metrics.Registry
}

func newTestEnv(t *testing.T, watchListSize int) *testEnv {
	t.Helper()

	nvda := analysis("NVDA", 8.2, scorers.ActionStrongBuy, 120, 8.2)
	nvda.Events.Earnings = &domain.Earnings{EPSSurprisePercent: 12.3}

	env := &testEnv{
		repo: newTestRepo(t),
		analyzer: &fakeAnalyzer{analyses: map[string]*stocks.Analysis{
			"NVDA": nvda,
			"MSFT": analysis("MSFT", 7.0, scorers.ActionBuy, 410, 1.1),
			"AMD":  analysis("AMD", 4.0, scorers.ActionWatch, 150, -2.0),
			"INTC": analysis("INTC", 2.0, scorers.ActionAvoid, 30, -0.4),
		}},
		prices: &fakePrices{quotes: map[string]*domain.Quote{
			IndexSP500:  {ChangePercent: 0.5},
			IndexNasdaq: {ChangePercent: 0.8},
		}},
		archiver: &fakeArchiver{},
		metrics:  metrics.New(),
	}

	env.service = NewService(Config{
		Tickers:       []string{"NVDA", "MSFT", "AMD", "INTC", "BAD"},
		Weights:       scorers.DefaultWeights(),
		WatchListSize: watchListSize,
		Concurrency:   2,
		MacroSeries:   []string{"CPIAUCSL", "UNRATE"},
	}, Dependencies{
		Analyzer:  env.analyzer,
		Explainer: scorers.NewEngine(zerolog.Nop()),
		Prices:    env.prices,
		Calendar: fakeCalendar{events: []domain.EarningsEvent{
			{Ticker: "NVDA", Time: "after_market"},
			{Ticker: "AAPL", Time: "before_market"},
			{Ticker: "INTC"},
		}},
		Macro:    fakeMacro{},
		Store:    env.repo,
		Archiver: env.archiver,
		Metrics:  env.metrics,
	}, zerolog.Nop())
	env.service.now = func() time.Time { return testNow }
	return env
}

func TestGenerate(t *testing.T) {
	env := newTestEnv(t, 5)

	d, err := env.service.Generate(context.Background(), testNow)
	require.NoError(t, err)

	assert.Equal(t, "2024-09-10", d.Date)
	require.NotNil(t, d.TopRecommendation)
	assert.Equal(t, "NVDA", d.TopRecommendation.Ticker)
	assert.Equal(t, "NVDA Inc", d.TopRecommendation.Name)
	assert.Equal(t, "Earnings beat by 12.3%", d.TopRecommendation.Catalyst)

	require.Len(t, d.Rankings, 4)
	for i, want := range []string{"NVDA", "MSFT", "AMD", "INTC"} {
		assert.Equal(t, want, d.Rankings[i].Ticker)
		assert.Equal(t, i+1, d.Rankings[i].Rank)
	}

	require.Len(t, d.WatchList, 2, "AVOID names stay off the watch list")
	assert.Equal(t, "MSFT", d.WatchList[0].Ticker)
	assert.Equal(t, "Strongest on technical score (7.0)", d.WatchList[0].Reason)
	assert.Equal(t, "AMD", d.WatchList[1].Ticker)

	moves := d.MarketSummary.OvernightMoves
	require.NotNil(t, moves.SP500Change)
	assert.Equal(t, 0.5, *moves.SP500Change)
	assert.Equal(t, 0.8, *moves.NasdaqChange)
	assert.Nil(t, moves.DowChange)
	assert.Equal(t, "NVDA moved +8.2% due to: Earnings beat by 12.3%", d.MarketSummary.KeyDriver)

	require.Len(t, d.KeyEvents, 2)
	assert.Equal(t, KeyEvent{Ticker: "NVDA", Time: "After market close", Event: "NVDA earnings release", ExpectedImpact: ImpactHigh}, d.KeyEvents[0])
	assert.Equal(t, ImpactMedium, d.KeyEvents[1].ExpectedImpact)
	assert.Equal(t, "Time not announced", d.KeyEvents[1].Time)

	require.Len(t, d.MacroContext, 1)
	assert.Equal(t, "UNRATE", d.MacroContext[0].SeriesID)
	assert.Contains(t, d.Warnings, "BAD: boom")
	assert.Contains(t, d.Warnings, "macro CPIAUCSL: provider not configured")

	stored, err := env.repo.GetByDate(context.Background(), "2024-09-10")
	require.NoError(t, err)
	assert.Equal(t, d.ID, stored.ID)
	assert.Equal(t, []string{"2024-09-10"}, env.archiver.archived)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.DigestRuns.WithLabelValues("success")))
}

func TestGenerate_WatchListSize(t *testing.T) {
	env := newTestEnv(t, 1)

	d, err := env.service.Generate(context.Background(), testNow)
	require.NoError(t, err)
	require.Len(t, d.WatchList, 1)
	assert.Equal(t, "MSFT", d.WatchList[0].Ticker)
}

func TestGenerate_NoAnalyses(t *testing.T) {
	env := newTestEnv(t, 5)
	env.analyzer.analyses = map[string]*stocks.Analysis{}

	_, err := env.service.Generate(context.Background(), testNow)
	assert.ErrorIs(t, err, ErrNoAnalyses)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.DigestRuns.WithLabelValues("failed")))
	assert.Empty(t, env.archiver.archived)
}

func TestToday(t *testing.T) {
	env := newTestEnv(t, 5)
	ctx := context.Background()

	_, err := env.service.Today(ctx, testNow.AddDate(0, 0, -3))
	assert.ErrorIs(t, err, database.ErrNotFound, "past dates are never generated on demand")

	first, err := env.service.Today(ctx, testNow)
	require.NoError(t, err)
	calls := env.analyzer.calls

	second, err := env.service.Today(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, calls, env.analyzer.calls, "stored digest is reused")
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, 5)
	ctx := context.Background()
	for _, date := range []string{"2024-09-08", "2024-09-09"} {
		require.NoError(t, env.repo.Save(ctx, storedDigest("d"+date, date, Record{Ticker: "NVDA"})))
	}

	digests, err := env.service.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, digests, 2)
	assert.Equal(t, "2024-09-09", digests[0].Date)
}

func day(date string) time.Time {
	t, _ := time.Parse(DateLayout, date)
	return t
}

func TestPerformance(t *testing.T) {
	env := newTestEnv(t, 5)
	ctx := context.Background()

	require.NoError(t, env.repo.Save(ctx, storedDigest("a", "2024-09-01",
		Record{Ticker: "NVDA", Action: scorers.ActionBuy, Price: 100})))
	require.NoError(t, env.repo.Save(ctx, storedDigest("b", "2024-09-05",
		Record{Ticker: "MSFT", Action: scorers.ActionBuy, Price: 200})))

	env.prices.quotes["NVDA"] = &domain.Quote{Price: 110}
	env.prices.quotes["MSFT"] = &domain.Quote{Price: 190}
	env.prices.benchmark = domain.PriceSeries{
		{Date: day("2024-08-30"), Close: 5000},
		{Date: day("2024-09-03"), Close: 5100},
		{Date: day("2024-09-05"), Close: 5200},
		{Date: day("2024-09-09"), Close: 5200},
	}

	perf, err := env.service.Performance(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, perf.TotalRecommendations)
	assert.Equal(t, 0.5, perf.WinRate)
	assert.InDelta(t, 2.5, perf.AverageReturn, 1e-9)
	assert.InDelta(t, 0.24, perf.SharpeRatio, 1e-9)
	assert.InDelta(t, 0.5, perf.VsSP500, 1e-9)

	require.Len(t, perf.RecentPicks, 2)
	assert.Equal(t, "MSFT", perf.RecentPicks[0].Ticker)
	assert.InDelta(t, -5.0, perf.RecentPicks[0].ReturnPct, 1e-9)
	assert.InDelta(t, 10.0, perf.RecentPicks[1].ReturnPct, 1e-9)
}

func TestPerformance_Empty(t *testing.T) {
	env := newTestEnv(t, 5)

	perf, err := env.service.Performance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, perf.TotalRecommendations)
	assert.Empty(t, perf.RecentPicks)
}

func TestCloseOn(t *testing.T) {
	series := domain.PriceSeries{
		{Date: day("2024-09-03"), Close: 1},
		{Date: day("2024-09-05"), Close: 2},
	}

	price, ok := closeOn(series, "2024-09-04")
	require.True(t, ok)
	assert.Equal(t, 1.0, price)

	price, ok = closeOn(series, "2024-09-05")
	require.True(t, ok)
	assert.Equal(t, 2.0, price)

	_, ok = closeOn(series, "2024-09-01")
	assert.False(t, ok)
}
