package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketintel/internal/cache"
	"github.com/aristath/marketintel/internal/clients"
	"github.com/aristath/marketintel/internal/domain"
)

func newTestClient(t *testing.T, body string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "OVERVIEW", r.URL.Query().Get("function"))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	transport := clients.NewTransport(clients.TransportConfig{Name: "alphavantage", RequestsPerSecond: 1000, Burst: 100}, nil, zerolog.Nop())
	client := NewClient("test-key", transport, cache.NewLoader(cache.NewMemory(), nil, zerolog.Nop()), zerolog.Nop())
	client.baseURL = server.URL
	return client
}

func TestFundamentals(t *testing.T) {
	client := newTestClient(t, `{"Symbol":"IBM","PERatio":"22.5","PriceToBookRatio":"7.1","ReturnOnEquityTTM":"0.31",
		"ProfitMargin":"0.12","QuarterlyRevenueGrowthYOY":"0.015","DividendYield":"None","MarketCapitalization":"190000000000"}`)

	f, err := client.Fundamentals(context.Background(), "ibm")
	require.NoError(t, err)
	assert.InDelta(t, 22.5, f.Get(domain.FundamentalPERatio), 1e-9)
	assert.InDelta(t, 0.31, f.Get(domain.FundamentalReturnOnEquity), 1e-9)
	assert.InDelta(t, 0.015, f.Get(domain.FundamentalRevenueGrowth), 1e-9)
	_, hasYield := f[domain.FundamentalDividendYield]
	assert.False(t, hasYield, "None is treated as missing")
}

func TestFundamentals_Throttled(t *testing.T) {
	client := newTestClient(t, `{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`)

	_, err := client.Fundamentals(context.Background(), "IBM")
	assert.ErrorIs(t, err, clients.ErrRateLimited)
}

func TestFundamentals_UnknownSymbol(t *testing.T) {
	client := newTestClient(t, `{}`)

	_, err := client.Fundamentals(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, clients.ErrNotFound)
}

func TestNotConfigured(t *testing.T) {
	client := NewClient("", nil, nil, zerolog.Nop())
	_, err := client.Fundamentals(context.Background(), "IBM")
	assert.ErrorIs(t, err, clients.ErrNotConfigured)
}
