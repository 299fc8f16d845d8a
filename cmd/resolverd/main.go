package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grantscope/orgsite/internal/agent"
	"github.com/grantscope/orgsite/internal/api"
	"github.com/grantscope/orgsite/internal/events"
	"github.com/grantscope/orgsite/internal/fetch"
	"github.com/grantscope/orgsite/internal/resolver"
	"github.com/grantscope/orgsite/internal/resolver/aggregate"
	"github.com/grantscope/orgsite/internal/resolver/blocklist"
	"github.com/grantscope/orgsite/internal/resolver/cache"
	"github.com/grantscope/orgsite/internal/resolver/validate"
	"github.com/grantscope/orgsite/internal/search"
	"github.com/grantscope/orgsite/internal/store"
	"github.com/grantscope/orgsite/pkg/config"
	"github.com/grantscope/orgsite/pkg/health"
	"github.com/grantscope/orgsite/pkg/kafka"
	"github.com/grantscope/orgsite/pkg/logger"
	"github.com/grantscope/orgsite/pkg/metrics"
	"github.com/grantscope/orgsite/pkg/middleware"
	pkgpostgres "github.com/grantscope/orgsite/pkg/postgres"
	"github.com/grantscope/orgsite/pkg/ratelimit"
	pkgredis "github.com/grantscope/orgsite/pkg/redis"
	"github.com/grantscope/orgsite/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting resolver service", "port", cfg.Server.Port, "store", cfg.Store.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	durable, healthChecks, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer durable.Close()

	blocked := blocklist.New(cfg.Blocklist.Domains)
	m := metrics.New()
	resolvedCache := cache.New(durable, blocked, m)

	backend := search.Select(cfg.Search, m)
	slog.Info("search backend selected", "backend", backend.Name())

	fetcher := fetch.New(cfg.Resolver.FetchTimeout, cfg.Resolver.MaxFetchBodyBytes)
	validator := validate.New(fetcher, cfg.Resolver.OverlapThreshold, cfg.Resolver.DisqualifyMarkers, cfg.Resolver.ValidationWorkers)
	aggregator := aggregate.New(backend, cfg.Search.MaxResults, cfg.Resolver.MaxCandidates)

	var fallback *agent.Agent
	if cfg.Agent.APIKey != "" {
		fallback = agent.New(agent.NewClient(cfg.Agent), backend, validator, agent.Config{
			MaxIterations:   cfg.Agent.MaxIterations,
			Budget:          cfg.Agent.Budget,
			PromptVariation: cfg.Agent.PromptVariation,
		})
		slog.Info("fallback agent enabled", "model", cfg.Agent.Model, "max_iterations", cfg.Agent.MaxIterations)
	} else {
		slog.Warn("fallback agent disabled: no API key configured")
	}

	var collector *events.Collector
	var statsAggregator *events.Aggregator
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.EventsTopic)
		collector = events.NewCollector(producer, 10000)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("event collector started", "topic", cfg.Kafka.EventsTopic)

		statsAggregator = events.NewAggregator()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.EventsTopic, events.HandleEvent(statsAggregator))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("event consumer error", "error", err)
			}
		}()
	}

	res := resolver.New(resolvedCache, aggregator, validator, blocked, fallback, m, collector, cfg.Resolver)
	h := api.New(res, resolvedCache, statsAggregator)

	checker := health.NewChecker()
	checker.Register("store", func(ctx context.Context) health.ComponentHealth {
		err := resilience.WithTimeout(ctx, 2*time.Second, "store-health", func(ctx context.Context) error {
			_, err := durable.ReadAll(ctx)
			return err
		})
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("agent", func(ctx context.Context) health.ComponentHealth {
		if fallback == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "no API key configured"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	for name, check := range healthChecks {
		checker.Register(name, check)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/resolve", h.Resolve)
	mux.HandleFunc("POST /api/v1/resolve", h.Resolve)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("DELETE /api/v1/cache/evict", h.CacheEvict)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	limiter := ratelimit.New(cfg.Server.RateWindow)
	var chain http.Handler = mux
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RateLimit(limiter, cfg.Server.RateLimit)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("resolver service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("resolver service stopped")
}

// openStore builds the durable store named by the config, plus any
// backend-specific health checks.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, map[string]health.Check, error) {
	checks := make(map[string]health.Check)

	switch cfg.Store.Backend {
	case "file", "":
		st, err := store.NewFileStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, checks, nil

	case "redis":
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		checks["redis"] = func(ctx context.Context) health.ComponentHealth {
			if err := client.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		}
		return store.NewRedisStore(client), checks, nil

	case "postgres":
		client, err := pkgpostgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		st, err := store.NewPostgresStore(ctx, client)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return st, checks, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
