package scorers

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/metrics"
)

func TestEngine_EndToEnd(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	series := buildSeries(sawtoothCloses(250), 1000)
	for i := len(series) - 5; i < len(series); i++ {
		series[i].Volume = 3000
	}

	technical := engine.TechnicalScore(series)
	fundamental := engine.FundamentalScore(domain.Fundamentals{
		domain.FundamentalPERatio:        30,
		domain.FundamentalReturnOnEquity: 0.2,
		domain.FundamentalRevenueGrowth:  0.1,
	})
	catalyst := engine.CatalystScore(
		[]domain.NewsItem{{Sentiment: 0.1}},
		nil,
		&domain.Earnings{EPSSurprisePercent: 2},
	)

	assert.Equal(t, 10.0, technical)
	assert.Equal(t, 6.5, fundamental)
	assert.Equal(t, 3.5, catalyst)

	rec := engine.Recommend("TEST", technical, fundamental, catalyst, nil)
	// 4.0 + 2.6 + 0.7
	assert.Equal(t, 7.3, rec.TotalScore)
	assert.Equal(t, ActionBuy, rec.Action)
}

func TestEngine_ConcurrentUse(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	series := buildSeries(sawtoothCloses(250), 1000)
	events := domain.EventsSnapshot{Filings8K: []domain.Filing{{Type: domain.FilingType8K}}}

	expectedScore := engine.TechnicalScore(series)
	expectedText := engine.ExplainMove("AMD", 3.1, events)

	var wg sync.WaitGroup
	scores := make([]float64, 16)
	texts := make([]string, 16)
	for i := range scores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scores[i] = engine.TechnicalScore(series)
			texts[i] = engine.ExplainMove("AMD", 3.1, events)
		}(i)
	}
	wg.Wait()

	for i := range scores {
		require.Equal(t, expectedScore, scores[i])
		require.Equal(t, expectedText, texts[i])
	}
}

func TestEngine_AnalyzeExposesBreakdown(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	analysis := engine.AnalyzeTechnicals(buildSeries(linearCloses(60, 100, 1), 1000))
	require.NotNil(t, analysis.Fault)
	assert.Equal(t, analysis.Score, engine.TechnicalScore(buildSeries(linearCloses(60, 100, 1), 1000)))

	fundamentals := engine.AnalyzeFundamentals(domain.Fundamentals{domain.FundamentalPERatio: 15})
	assert.Equal(t, 3.0, fundamentals.Components["valuation"])

	catalysts := engine.AnalyzeCatalysts(nil, []domain.Filing{{Type: domain.FilingType8K}}, nil)
	assert.Equal(t, 3.0, catalysts.Components["filings"])
}

func TestEngine_WithMetricsCountsFaults(t *testing.T) {
	m := metrics.New()
	engine := NewEngine(zerolog.Nop()).WithMetrics(m)

	engine.TechnicalScore(buildSeries(linearCloses(10, 100, 1), 1000))
	engine.FundamentalScore(nil)
	engine.Recommend("NVDA", 5, 5, 5, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScoresComputed.WithLabelValues("technical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScoresComputed.WithLabelValues("fundamental")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScoresComputed.WithLabelValues("composite")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScoringFaults.WithLabelValues("rsi")))
}
