// Package metrics defines the Prometheus metric collectors used by the
// resolver and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the resolver service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	ResolutionsTotal     *prometheus.CounterVec
	ResolutionLatency    *prometheus.HistogramVec
	SearchQueriesTotal   *prometheus.CounterVec
	ValidationFetches    *prometheus.CounterVec
	AgentIterations      prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CacheEvictionsTotal  prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being served.",
			},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolutions_total",
				Help: "Total resolutions by terminal source (cache, direct-domain, search, agent) or failure reason.",
			},
			[]string{"outcome"},
		),
		ResolutionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resolution_duration_seconds",
				Help:    "End-to-end resolution latency in seconds by outcome.",
				Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Web search queries issued by backend and status.",
			},
			[]string{"backend", "status"},
		),
		ValidationFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "validation_fetches_total",
				Help: "Homepage validation fetches by result (accepted, rejected, error).",
			},
			[]string{"result"},
		),
		AgentIterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agent_iterations",
				Help:    "Tool-loop iterations consumed per fallback agent run.",
				Buckets: []float64{1, 2, 3, 5, 8, 10},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Resolved-URL cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Resolved-URL cache misses.",
			},
		),
		CacheEvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_evictions_total",
				Help: "Cache entries evicted after their domain was blocklisted.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state per search backend (0=closed, 1=open, 2=half-open).",
			},
			[]string{"backend"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ResolutionsTotal,
		m.ResolutionLatency,
		m.SearchQueriesTotal,
		m.ValidationFetches,
		m.AgentIterations,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
		m.CircuitBreakerState,
	)
	return m
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
