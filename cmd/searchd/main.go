// Command searchd runs the catalog search service: hybrid keyword+semantic
// search, autocomplete, and catalog rebuilds over HTTP, with Redis caching,
// Kafka-backed analytics, and Prometheus metrics.
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

	"github.com/meridian-labs/catalog-search/internal/analytics"
	"github.com/meridian-labs/catalog-search/internal/analytics/aggregator"
	"github.com/meridian-labs/catalog-search/internal/api"
	"github.com/meridian-labs/catalog-search/internal/catalog"
	"github.com/meridian-labs/catalog-search/internal/engine"
	"github.com/meridian-labs/catalog-search/internal/engine/embed"
	"github.com/meridian-labs/catalog-search/internal/recent"
	"github.com/meridian-labs/catalog-search/pkg/config"
	"github.com/meridian-labs/catalog-search/pkg/health"
	"github.com/meridian-labs/catalog-search/pkg/kafka"
	"github.com/meridian-labs/catalog-search/pkg/logger"
	"github.com/meridian-labs/catalog-search/pkg/metrics"
	"github.com/meridian-labs/catalog-search/pkg/postgres"
	pkgredis "github.com/meridian-labs/catalog-search/pkg/redis"
	"github.com/meridian-labs/catalog-search/pkg/resilience"
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
	slog.Info("starting catalog search service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	provider, err := newProvider(cfg.Embedding)
	if err != nil {
		slog.Error("failed to create embedding provider", "error", err)
		os.Exit(1)
	}
	slog.Info("embedding provider ready",
		"provider", cfg.Embedding.Provider,
		"model", cfg.Embedding.Model,
		"dimension", provider.Dimension(),
	)

	eng := engine.New(cfg.Search, provider,
		engine.WithEmbedTimeout(cfg.Embedding.Timeout),
		engine.WithPublishHook(func(gen *engine.Generation) {
			m.GenerationID.Set(float64(gen.ID))
			m.ListingsIndexed.Set(float64(len(gen.Listings)))
		}),
	)

	var queryCache *api.QueryCache
	var recentStore recent.Store
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, caching disabled and recent searches kept in memory", "error", err)
		recentStore = recent.NewMemoryStore()
	} else {
		defer redisClient.Close()
		queryCache = api.NewQueryCache(redisClient, cfg.Redis)
		recentStore = recent.NewRedisStore(redisClient)
		slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer producer.Close()
	collector := analytics.NewCollector(producer, 100, 0)
	collector.Start(ctx)
	defer collector.Close()

	var agg *analytics.Aggregator
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, func(ctx context.Context, key, value []byte) error {
		return analytics.HandleEvent(agg)(ctx, key, value)
	})
	agg = analytics.NewAggregator(consumer)
	go func() {
		if err := agg.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()

	var pgClient *postgres.Client
	if cfg.Postgres.Host != "" {
		pgClient, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer pgClient.Close()
			store := aggregator.NewStore(pgClient)
			store.StartPeriodicSave(ctx, agg, cfg.Postgres.SnapshotInterval)
		}
	}

	checker := newHealthChecker(eng, redisClient, pgClient)

	if cfg.Catalog.LoadOnStartup && cfg.Catalog.Path != "" {
		listings, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			slog.Error("failed to load catalog", "path", cfg.Catalog.Path, "error", err)
			os.Exit(1)
		}
		if _, err := eng.Rebuild(ctx, listings); err != nil {
			slog.Error("initial rebuild failed", "error", err)
			os.Exit(1)
		}
	}

	h := api.NewHandler(eng, queryCache, collector, recentStore, m, cfg.Search, cfg.Catalog)
	router := api.NewRouter(h, analytics.NewHandler(agg), checker, m, cfg.Search.QueryTimeout)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
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

	slog.Info("catalog search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("catalog search service stopped")
}

func newProvider(cfg config.EmbeddingConfig) (embed.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return embed.NewOpenAIProvider(cfg)
	case "local", "":
		return embed.NewLocalProvider(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func newHealthChecker(eng *engine.Engine, redisClient *pkgredis.Client, pgClient *postgres.Client) *health.Checker {
	checker := health.NewChecker()

	checker.Register("engine", func(ctx context.Context) health.ComponentHealth {
		gen := eng.Current()
		if gen == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no generation published"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("generation %d, %d listings", gen.ID, len(gen.Listings)),
		}
	})

	checker.Register("embedding_provider", func(ctx context.Context) health.ComponentHealth {
		if eng.BreakerState() == resilience.StateOpen {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit open, serving keyword-only"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if pgClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := pgClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	return checker
}
