package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketintel/internal/domain"
	"github.com/aristath/marketintel/internal/modules/scoring/scorers"
)

func newTestRouter() chi.Router {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	h := NewHandlers(scorers.NewEngine(logger), scorers.DefaultWeights(), logger)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestHandleTechnical_ShortSeriesReportsFault(t *testing.T) {
	prices := make(domain.PriceSeries, 10)
	for i := range prices {
		prices[i] = domain.PriceBar{Close: 100 + float64(i), Volume: 1000}
	}

	w := do(t, newTestRouter(), http.MethodPost, "/scoring/technical", TechnicalRequest{Ticker: "nvda", Prices: prices})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	resp := decode(t, w)
	assert.Equal(t, "NVDA", resp["ticker"])
	assert.Equal(t, 0.0, resp["score"])
	fault := resp["fault"].(map[string]interface{})
	assert.Equal(t, "rsi", fault["stage"])
}

func TestHandleFundamental(t *testing.T) {
	w := do(t, newTestRouter(), http.MethodPost, "/scoring/fundamental", FundamentalRequest{
		Ticker: "MSFT",
		Fundamentals: domain.Fundamentals{
			domain.FundamentalPERatio:        20,
			domain.FundamentalReturnOnEquity: 0.2,
			domain.FundamentalRevenueGrowth:  0.2,
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, 10.0, resp["score"])
	assert.Equal(t, "fundamental", resp["kind"])
}

func TestHandleCatalyst(t *testing.T) {
	w := do(t, newTestRouter(), http.MethodPost, "/scoring/catalyst", CatalystRequest{
		Ticker:  "AMD",
		Filings: []domain.Filing{{Type: domain.FilingType8K}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, decode(t, w)["score"])
}

func TestHandleRecommend(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodPost, "/scoring/recommend", RecommendRequest{
		Ticker: "nvda", TechnicalScore: 8, FundamentalScore: 8, CatalystScore: 8,
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "STRONG BUY", resp["action"])
	assert.Equal(t, 8.0, resp["total_score"])
	assert.Equal(t, "NVDA", resp["ticker"])

	w = do(t, r, http.MethodPost, "/scoring/recommend", RecommendRequest{
		Ticker: "NVDA", TechnicalScore: 10, FundamentalScore: 10, CatalystScore: 10,
		Weights: &scorers.Weights{Technical: 0.5, Fundamental: 0.5, Catalyst: 0.5},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 15.0, decode(t, w)["total_score"], "weights are not normalised")
}

func TestHandleRecommend_Rejects(t *testing.T) {
	r := newTestRouter()

	w := do(t, r, http.MethodPost, "/scoring/recommend", RecommendRequest{
		Ticker:  "NVDA",
		Weights: &scorers.Weights{Technical: -0.1, Fundamental: 0.5, Catalyst: 0.5},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "weights must be non-negative", decode(t, w)["error"])

	w = do(t, r, http.MethodPost, "/scoring/recommend", RecommendRequest{TechnicalScore: 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/scoring/recommend", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExplain(t *testing.T) {
	w := do(t, newTestRouter(), http.MethodPost, "/scoring/explain", ExplainRequest{
		Ticker:             "NVDA",
		PriceChangePercent: 8.2,
		Events: domain.EventsSnapshot{
			Earnings:  &domain.Earnings{EPSSurprisePercent: 12.3},
			Filings8K: []domain.Filing{{Type: domain.FilingType8K}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, "NVDA moved +8.2% due to: Earnings beat by 12.3%, Filed 1 material event(s)", resp["explanation"])
	assert.Len(t, resp["reasons"], 2)
}

func TestHandleExplain_NoCatalyst(t *testing.T) {
	w := do(t, newTestRouter(), http.MethodPost, "/scoring/explain", ExplainRequest{Ticker: "MSFT", PriceChangePercent: -1.04})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, "MSFT moved -1.0% (no clear catalyst identified)", resp["explanation"])
	assert.Equal(t, []interface{}{}, resp["reasons"])
}

func TestHandleGetCurrentWeights(t *testing.T) {
	w := do(t, newTestRouter(), http.MethodGet, "/scoring/weights/current", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	weights := resp["weights"].(map[string]interface{})
	assert.Equal(t, 0.4, weights["technical"])
	assert.Equal(t, 0.2, weights["catalyst"])
	assert.InDelta(t, 1.0, resp["sum"].(float64), 1e-9)
}
