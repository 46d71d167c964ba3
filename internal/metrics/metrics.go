// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all service metrics
type Registry struct {
	registry *prometheus.Registry

	// Provider calls
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	BreakerState     *prometheus.GaugeVec

	// Response cache
	CacheLookups *prometheus.CounterVec

	// Scoring
	ScoresComputed *prometheus.CounterVec
	ScoringFaults  *prometheus.CounterVec

	// Digest
	DigestRuns     *prometheus.CounterVec
	DigestDuration prometheus.Histogram

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates a registry with every collector registered
func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketintel_provider_requests_total",
				Help: "Total number of provider requests by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),

		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketintel_provider_request_duration_seconds",
				Help:    "Provider request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider"},
		),

		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketintel_provider_breaker_state",
				Help: "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
			},
			[]string{"provider"},
		),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketintel_cache_lookups_total",
				Help: "Response cache lookups by namespace and result (fresh, stale, miss)",
			},
			[]string{"namespace", "result"},
		),

		ScoresComputed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketintel_scores_computed_total",
				Help: "Scores computed by kind",
			},
			[]string{"kind"},
		),

		ScoringFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketintel_scoring_faults_total",
				Help: "Technical scores degraded to a partial result, by failing stage",
			},
			[]string{"stage"},
		),

		DigestRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketintel_digest_runs_total",
				Help: "Digest generation runs by status",
			},
			[]string{"status"},
		),

		DigestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketintel_digest_duration_seconds",
				Help:    "Digest generation duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketintel_http_requests_total",
				Help: "HTTP requests by route pattern, method and status",
			},
			[]string{"route", "method", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketintel_http_request_duration_seconds",
				Help:    "HTTP request latency by route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	r.registry.MustRegister(
		r.ProviderRequests,
		r.ProviderLatency,
		r.BreakerState,
		r.CacheLookups,
		r.ScoresComputed,
		r.ScoringFaults,
		r.DigestRuns,
		r.DigestDuration,
		r.HTTPRequests,
		r.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveProvider records one provider call
func (r *Registry) ObserveProvider(provider, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	r.ProviderLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// SetBreakerState records a circuit breaker transition
func (r *Registry) SetBreakerState(provider string, state float64) {
	if r == nil {
		return
	}
	r.BreakerState.WithLabelValues(provider).Set(state)
}

// ObserveCache records a cache lookup result
func (r *Registry) ObserveCache(namespace, result string) {
	if r == nil {
		return
	}
	r.CacheLookups.WithLabelValues(namespace, result).Inc()
}

// ObserveScore records a computed score and, when non-empty, the stage that degraded it
func (r *Registry) ObserveScore(kind, faultStage string) {
	if r == nil {
		return
	}
	r.ScoresComputed.WithLabelValues(kind).Inc()
	if faultStage != "" {
		r.ScoringFaults.WithLabelValues(faultStage).Inc()
	}
}

// ObserveDigest records a digest run
func (r *Registry) ObserveDigest(status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.DigestRuns.WithLabelValues(status).Inc()
	r.DigestDuration.Observe(elapsed.Seconds())
}

// ObserveHTTP records a served request
func (r *Registry) ObserveHTTP(route, method, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(route, method, status).Inc()
	r.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
