package stocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
)

var testNow = time.Date(2024, 9, 10, 12, 0, 0, 0, time.UTC)

type fakePrices struct {
	histories    map[string]domain.PriceSeries // by period
	quote        *domain.Quote
	quoteErr     error
	lastPeriod   string
	lastInterval string
}

func (f *fakePrices) History(_ context.Context, _ string, period string) (domain.PriceSeries, error) {
	series, ok := f.histories[period]
	if !ok {
		return nil, clients.ErrNotFound
	}
	return series, nil
}

func (f *fakePrices) HistoryInterval(ctx context.Context, ticker, period, interval string) (domain.PriceSeries, error) {
	f.lastPeriod, f.lastInterval = period, interval
	return f.History(ctx, ticker, period)
}

func (f *fakePrices) Quote(_ context.Context, ticker string) (*domain.Quote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quote, nil
}

type fakeFundamentals struct {
	f   domain.Fundamentals
	err error
}

func (f fakeFundamentals) Fundamentals(context.Context, string) (domain.Fundamentals, error) {
	return f.f, f.err
}

type fakeEarnings struct {
	latest *domain.Earnings
	err    error
}

func (f fakeEarnings) LatestEarnings(context.Context, string) (*domain.Earnings, error) {
	return f.latest, f.err
}

func (f fakeEarnings) EarningsCalendar(context.Context, time.Time, time.Time) ([]domain.EarningsEvent, error) {
	return nil, nil
}

type fakeFilings struct {
	filings []domain.Filing
}

func (f fakeFilings) Filings(_ context.Context, _, formType string, since time.Time) ([]domain.Filing, error) {
	var out []domain.Filing
	for _, filing := range f.filings {
		if (formType == "" || filing.Type == formType) && !filing.Date.Before(since) {
			out = append(out, filing)
		}
	}
	return out, nil
}

type fakeNews struct {
	items []domain.NewsItem
}

func (f fakeNews) News(context.Context, string, int) ([]domain.NewsItem, error) {
	return f.items, nil
}

type fakeAnalyst struct {
	actions []string
}

func (f fakeAnalyst) AnalystActions(context.Context, string, time.Time) ([]string, error) {
	return f.actions, nil
}

// sawtooth alternates +1.2 / -1.0 from 100 and ends with a volume surge
func sawtooth(n int) domain.PriceSeries {
	start := testNow.AddDate(0, 0, -n)
	series := make(domain.PriceSeries, n)
	price := 100.0
	for i := range series {
		if i > 0 {
			if i%2 == 1 {
				price += 1.2
			} else {
				price -= 1.0
			}
		}
		volume := 1000.0
		if i >= n-5 {
			volume = 3000
		}
		series[i] = domain.PriceBar{Date: start.AddDate(0, 0, i), Close: price, Volume: volume}
	}
	return series
}

func newTestService(p Providers) *Service {
	svc := NewService(p, scorers.NewEngine(zerolog.Nop()), scorers.DefaultWeights(), zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func fullProviders() Providers {
	return Providers{
		Prices: &fakePrices{
			histories: map[string]domain.PriceSeries{
				ScoringPeriod: sawtooth(250),
				"5d": {
					{Date: testNow.AddDate(0, 0, -1), Close: 100},
					{Date: testNow, Close: 108.2},
				},
			},
			quote: &domain.Quote{Ticker: "NVDA", Name: "NVIDIA Corporation", Price: 108.2, Change: 8.2, ChangePercent: 8.2},
		},
		Fundamentals: []domain.FundamentalsProvider{fakeFundamentals{f: domain.Fundamentals{
			domain.FundamentalPERatio:        30,
			domain.FundamentalReturnOnEquity: 0.2,
			domain.FundamentalRevenueGrowth:  0.1,
		}}},
		Earnings: fakeEarnings{latest: &domain.Earnings{ReportDate: testNow.AddDate(0, 0, -2), EPSSurprisePercent: 2}},
		Filings:  fakeFilings{filings: []domain.Filing{{Date: testNow.AddDate(0, 0, -3), Type: domain.FilingType8K}}},
		News:     fakeNews{items: []domain.NewsItem{{Sentiment: 0.1}}},
		Analyst:  fakeAnalyst{},
	}
}

func TestAnalyze(t *testing.T) {
	svc := newTestService(fullProviders())

	analysis, err := svc.Analyze(context.Background(), "nvda", nil)
	require.NoError(t, err)

	assert.Equal(t, "NVDA", analysis.Ticker)
	assert.Equal(t, 10.0, analysis.Technical.Score)
	assert.Equal(t, 6.5, analysis.Fundamental.Score)
	assert.Equal(t, 6.5, analysis.Catalyst.Score)
	assert.InDelta(t, 7.9, analysis.Recommendation.TotalScore, 1e-9)
	assert.Equal(t, scorers.ActionBuy, analysis.Recommendation.Action)
	assert.Empty(t, analysis.Warnings)
	assert.Equal(t, 108.2, analysis.Price())
}

func TestAnalyze_CustomWeights(t *testing.T) {
	svc := newTestService(fullProviders())

	analysis, err := svc.Analyze(context.Background(), "NVDA", &scorers.Weights{Technical: 1})
	require.NoError(t, err)
	assert.Equal(t, 10.0, analysis.Recommendation.TotalScore)
	assert.Equal(t, scorers.ActionStrongBuy, analysis.Recommendation.Action)

	_, err = svc.Analyze(context.Background(), "NVDA", &scorers.Weights{Technical: -1})
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestAnalyze_DegradesOnProviderFailures(t *testing.T) {
	p := fullProviders()
	p.Fundamentals = []domain.FundamentalsProvider{
		fakeFundamentals{err: clients.ErrNotConfigured},
		fakeFundamentals{err: clients.ErrCircuitOpen},
	}
	p.Earnings = fakeEarnings{err: errors.New("boom")}
	svc := newTestService(p)

	analysis, err := svc.Analyze(context.Background(), "NVDA", nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, analysis.Fundamental.Score)
	assert.Equal(t, 4.5, analysis.Catalyst.Score, "news and filing points survive")
	require.Len(t, analysis.Warnings, 2)
	assert.Equal(t, "earnings: boom", analysis.Warnings[0])
	assert.Contains(t, analysis.Warnings[1], "fundamentals:")
}

func TestAnalyze_StaleEarningsIgnored(t *testing.T) {
	p := fullProviders()
	p.Earnings = fakeEarnings{latest: &domain.Earnings{ReportDate: testNow.AddDate(0, -6, 0), EPSSurprisePercent: 20}}
	svc := newTestService(p)

	analysis, err := svc.Analyze(context.Background(), "NVDA", nil)
	require.NoError(t, err)
	assert.Nil(t, analysis.Events.Earnings)
	assert.Equal(t, 0.0, analysis.Catalyst.Components["earnings"])
}

func TestAnalyze_UnknownTicker(t *testing.T) {
	p := fullProviders()
	p.Prices = &fakePrices{}
	svc := newTestService(p)

	_, err := svc.Analyze(context.Background(), "ZZZZ", nil)
	assert.ErrorIs(t, err, clients.ErrNotFound)

	_, err = svc.Analyze(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, ErrTickerRequired)
}

func TestFundamentals_FallsThroughProviders(t *testing.T) {
	svc := newTestService(Providers{Fundamentals: []domain.FundamentalsProvider{
		fakeFundamentals{err: clients.ErrNotConfigured},
		fakeFundamentals{f: domain.Fundamentals{}},
		fakeFundamentals{f: domain.Fundamentals{domain.FundamentalPERatio: 12}},
	}})

	f, err := svc.fundamentals(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, 12.0, f.Get(domain.FundamentalPERatio))

	svc = newTestService(Providers{})
	_, err = svc.fundamentals(context.Background(), "NVDA")
	assert.ErrorIs(t, err, clients.ErrNotConfigured)
}

func TestDetails(t *testing.T) {
	svc := newTestService(fullProviders())

	details, err := svc.Details(context.Background(), "NVDA")
	require.NoError(t, err)

	assert.Equal(t, "NVIDIA Corporation", details.Name)
	assert.Equal(t, 108.2, details.Price.Current)
	assert.Equal(t, 8.2, details.Price.ChangePercent)
	require.NotNil(t, details.Fundamentals.PERatio)
	assert.Equal(t, 30.0, *details.Fundamentals.PERatio)
	assert.Nil(t, details.Fundamentals.PBRatio)
	require.NotNil(t, details.Technicals.RSI)
	require.NotNil(t, details.Technicals.MACD)
	assert.Equal(t, TrendBullish, details.Technicals.Trend)
}

func TestDetails_QuoteFailure(t *testing.T) {
	p := fullProviders()
	p.Prices.(*fakePrices).quoteErr = clients.ErrNotFound
	svc := newTestService(p)

	_, err := svc.Details(context.Background(), "NVDA")
	assert.ErrorIs(t, err, clients.ErrNotFound)
}

func TestHistory_Defaults(t *testing.T) {
	p := fullProviders()
	prices := p.Prices.(*fakePrices)
	prices.histories["1mo"] = sawtooth(20)
	svc := newTestService(p)

	series, err := svc.History(context.Background(), "NVDA", "", "")
	require.NoError(t, err)
	assert.Len(t, series, 20)
	assert.Equal(t, "1mo", prices.lastPeriod)
	assert.Equal(t, "1d", prices.lastInterval)
}

func TestNewsAndFilings_NotConfigured(t *testing.T) {
	svc := newTestService(Providers{})

	_, err := svc.News(context.Background(), "NVDA", 5)
	assert.ErrorIs(t, err, clients.ErrNotConfigured)
	_, err = svc.Filings(context.Background(), "NVDA", "", 0)
	assert.ErrorIs(t, err, clients.ErrNotConfigured)
}

func TestExplain(t *testing.T) {
	p := fullProviders()
	p.Earnings = fakeEarnings{latest: &domain.Earnings{ReportDate: testNow.AddDate(0, 0, -1), EPSSurprisePercent: 12.3}}
	p.News = fakeNews{}
	svc := newTestService(p)

	move, err := svc.Explain(context.Background(), "nvda")
	require.NoError(t, err)

	assert.InDelta(t, 8.2, move.ChangePercent, 1e-9)
	assert.Equal(t, "NVDA moved +8.2% due to: Earnings beat by 12.3%, Filed 1 material event(s)", move.Explanation)
	assert.Equal(t, []string{"Earnings beat by 12.3%", "Filed 1 material event(s)"}, move.Reasons)
	assert.Equal(t, testNow, move.Date)
}

func TestExplain_NeedsTwoBars(t *testing.T) {
	p := fullProviders()
	p.Prices.(*fakePrices).histories["5d"] = domain.PriceSeries{{Date: testNow, Close: 100}}
	svc := newTestService(p)

	_, err := svc.Explain(context.Background(), "NVDA")
	assert.ErrorIs(t, err, scorers.ErrInsufficientHistory)
}

func TestTrendLabel(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		ind  scorers.TechnicalIndicators
		want string
	}{
		{"no averages", scorers.TechnicalIndicators{Close: 10}, TrendNeutral},
		{"stacked up", scorers.TechnicalIndicators{Close: 12, SMA50: f(11), SMA200: f(10)}, TrendBullish},
		{"stacked down", scorers.TechnicalIndicators{Close: 9, SMA50: f(10), SMA200: f(11)}, TrendBearish},
		{"mixed", scorers.TechnicalIndicators{Close: 12, SMA50: f(10), SMA200: f(11)}, TrendNeutral},
		{"short only above", scorers.TechnicalIndicators{Close: 12, SMA50: f(10)}, TrendBullish},
		{"short only below", scorers.TechnicalIndicators{Close: 9, SMA50: f(10)}, TrendBearish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrendLabel(tt.ind))
		})
	}
}
