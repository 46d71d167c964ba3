package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketintel/internal/metrics"
)

func newTestTransport(reg *metrics.Registry) *Transport {
	return NewTransport(TransportConfig{
		Name:                "test",
		UserAgent:           "marketintel-test",
		RequestsPerSecond:   1000,
		Burst:               100,
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
	}, reg, zerolog.Nop())
}

func TestGetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "marketintel-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "NVDA", r.URL.Query().Get("symbols"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value": 42}`))
	}))
	defer server.Close()

	reg := metrics.New()
	transport := newTestTransport(reg)

	var out struct {
		Value int `json:"value"`
	}
	err := transport.GetJSON(context.Background(), server.URL, url.Values{"symbols": {"NVDA"}}, &out)

	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ProviderRequests.WithLabelValues("test", "success")))
}

func TestGetJSON_StatusMapping(t *testing.T) {
	testCases := []struct {
		status int
		target error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tc := range testCases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		var out map[string]interface{}
		err := newTestTransport(nil).GetJSON(context.Background(), server.URL, nil, &out)
		assert.ErrorIs(t, err, tc.target)
		server.Close()
	}
}

func TestTransport_BreakerOpensAfterFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	transport := newTestTransport(nil)
	ctx := context.Background()
	var out map[string]interface{}

	require.Error(t, transport.GetJSON(ctx, server.URL, nil, &out))
	require.Error(t, transport.GetJSON(ctx, server.URL, nil, &out))

	err := transport.GetJSON(ctx, server.URL, nil, &out)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "open breaker short-circuits the request")
	assert.Equal(t, "open", transport.State())
}

func TestTransport_NotFoundDoesNotTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	transport := newTestTransport(nil)
	var out map[string]interface{}
	for i := 0; i < 5; i++ {
		err := transport.GetJSON(context.Background(), server.URL, nil, &out)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, "closed", transport.State())
}

func TestTransport_DoHonoursCancelledContext(t *testing.T) {
	transport := NewTransport(TransportConfig{Name: "slow", RequestsPerSecond: 0.001, Burst: 1}, nil, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, transport.Do(ctx, func(context.Context) error { return nil }))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err := transport.Do(cancelled, func(context.Context) error { return errors.New("must not run") })
	assert.Error(t, err)
	assert.NotContains(t, err.Error(), "must not run")
}

func TestRedact(t *testing.T) {
	u, err := url.Parse("https://example.com/x?apikey=secret&symbol=NVDA")
	require.NoError(t, err)

	got := redact(u)
	assert.NotContains(t, got, "secret")
	assert.Contains(t, got, "symbol=NVDA")
}
