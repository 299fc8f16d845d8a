package search

import (
	"context"
	"log/slog"

	"github.com/grantscope/orgsite/pkg/config"
	"github.com/grantscope/orgsite/pkg/metrics"
	"github.com/grantscope/orgsite/pkg/resilience"
)

// New constructs a backend by name. Unknown names return nil.
func New(name string, cfg config.SearchConfig) Backend {
	switch name {
	case "duckduckgo", "ddg":
		return NewDuckDuckGo(cfg.DuckDuckGo, cfg.Timeout)
	case "serpapi", "google":
		return NewSerpAPI(cfg.SerpAPI, cfg.Timeout)
	case "tavily":
		return NewTavily(cfg.Tavily, cfg.Timeout)
	default:
		return nil
	}
}

// Select walks the configured preference order and returns the first backend
// whose credentials validate, wrapped in a circuit breaker. DuckDuckGo is
// appended as the last resort so Select never returns nil. m may be nil.
func Select(cfg config.SearchConfig, m *metrics.Metrics) Backend {
	logger := slog.Default().With("component", "search-factory")

	order := append([]string{}, cfg.Preference...)
	order = append(order, "duckduckgo")

	for _, name := range order {
		backend := New(name, cfg)
		if backend == nil {
			logger.Warn("unknown search backend in preference list", "name", name)
			continue
		}
		if !backend.Available() {
			logger.Info("search backend not configured, trying next", "name", backend.Name())
			continue
		}
		logger.Info("search backend selected", "name", backend.Name())
		return WithBreaker(backend, m)
	}
	// Unreachable: DuckDuckGo is always available.
	return WithBreaker(NewDuckDuckGo(cfg.DuckDuckGo, cfg.Timeout), m)
}

// WithBreaker wraps a backend in a circuit breaker so a failing provider is
// skipped quickly instead of eating the pipeline's time budget. The breaker
// state is mirrored to the metrics gauge when m is non-nil.
func WithBreaker(backend Backend, m *metrics.Metrics) Backend {
	return &breakered{
		Backend: backend,
		cb: resilience.NewCircuitBreaker("search-"+backend.Name(), resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
		}),
		metrics: m,
	}
}

type breakered struct {
	Backend
	cb      *resilience.CircuitBreaker
	metrics *metrics.Metrics
}

func (b *breakered) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	var results []Result
	err := b.cb.Execute(func() error {
		var err error
		results, err = b.Backend.Search(ctx, query, maxResults)
		return err
	})
	if b.metrics != nil {
		b.metrics.CircuitBreakerState.WithLabelValues(b.Backend.Name()).Set(float64(b.cb.GetState()))
	}
	return results, err
}
