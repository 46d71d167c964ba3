// Package clients holds the shared transport for market data providers.
// Provider clients live in subpackages and route every call through a Transport,
// which applies rate limiting, a circuit breaker and request metrics.
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/aristath/marketintel/internal/metrics"
)

var (
	// ErrNotConfigured means the provider has no API key; callers degrade to empty data
	ErrNotConfigured = errors.New("provider not configured")
	// ErrCircuitOpen means recent failures tripped the provider's breaker
	ErrCircuitOpen = errors.New("provider circuit open")
	// ErrRateLimited means the provider answered 429
	ErrRateLimited = errors.New("provider rate limited")
	// ErrNotFound means the provider has no data for the request
	ErrNotFound = errors.New("not found at provider")
	// ErrInvalidRequest means the request was rejected before reaching the provider
	ErrInvalidRequest = errors.New("invalid provider request")
)

// TransportConfig configures one provider's transport
type TransportConfig struct {
	Name              string
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	// ConsecutiveFailures trips the breaker; 0 selects 5
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open; 0 selects 30s
	OpenTimeout time.Duration
}

// Transport executes provider calls under a rate limiter and circuit breaker
type Transport struct {
	name      string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	metrics   *metrics.Registry
	log       zerolog.Logger
}

// NewTransport creates a provider transport
func NewTransport(cfg TransportConfig, m *metrics.Registry, log zerolog.Logger) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	t := &Transport{
		name:      cfg.Name,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		metrics:   m,
		log:       log.With().Str("client", cfg.Name).Logger(),
	}

	t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// Missing data and caller cancellation say nothing about provider health
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			t.log.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Provider circuit breaker state changed")
			t.metrics.SetBreakerState(name, float64(to))
		},
	})

	return t
}

// Name returns the provider name
func (t *Transport) Name() string {
	return t.name
}

// State returns the breaker state: closed, half-open or open
func (t *Transport) State() string {
	return t.breaker.State().String()
}

// Do runs fn once the limiter admits it, guarded by the breaker
func (t *Transport) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: waiting for rate limiter: %w", t.name, err)
	}

	start := time.Now()
	_, err := t.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})

	outcome := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "circuit_open"
		err = fmt.Errorf("%s: %w", t.name, ErrCircuitOpen)
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrRateLimited):
		outcome = "rate_limited"
	case err != nil:
		outcome = "error"
	}
	t.metrics.ObserveProvider(t.name, outcome, time.Since(start))

	return err
}

// GetJSON fetches endpoint with query parameters and decodes the JSON body into out
func (t *Transport) GetJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	return t.Do(ctx, func(ctx context.Context) error {
		return t.getJSON(ctx, endpoint, query, out)
	})
}

func (t *Transport) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	t.log.Debug().Str("url", redact(req.URL)).Msg("Making provider request")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: HTTP request failed: %w", t.name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", t.name, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", t.name, ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s API error: status %d, body: %s", t.name, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", t.name, err)
	}
	return nil
}

// redact hides credentials passed as query parameters
func redact(u *url.URL) string {
	q := u.Query()
	for _, key := range []string{"apikey", "api_key", "api_token", "token"} {
		if q.Has(key) {
			q.Set(key, "REDACTED")
		}
	}
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}
