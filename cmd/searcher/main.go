// Command searcher serves boolean recipe search and TF-IDF scoring over an
// in-memory inverted index.
//
// At startup it loads the corpus from the configured source (PostgreSQL, a
// CSV export, or nothing), then appends batches arriving on the ingest topic
// when Kafka is enabled.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/source"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/redis"
	"golang.org/x/sync/errgroup"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting search service", "port", cfg.Server.Port, "source", cfg.Source.Kind)

	m := metrics.New(nil)

	checker := health.NewChecker()

	var db *postgres.Client
	if cfg.Postgres.Enabled {
		var err error
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		checker.Register("postgres", health.PingCheck(db.Ping, false))
		slog.Info("connected to postgres", "host", cfg.Postgres.Host)
	}

	loader, err := source.New(cfg.Source, db)
	if err != nil {
		return err
	}
	corpus, err := source.Load(ctx, loader, cfg.Source.LoadTimeout)
	if err != nil {
		return err
	}

	engine := indexer.NewEngine(m)
	if len(corpus.Documents) > 0 {
		if _, err := engine.IndexDocuments(ctx, corpus.Documents); err != nil {
			return fmt.Errorf("indexing corpus: %w", err)
		}
	}
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		snap := engine.Snapshot()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms, generation %d", snap.NumDocs(), snap.NumTerms(), snap.Generation()),
		}
	})

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			engine.OnRebuild(func(ctx context.Context, snap *index.Snapshot) {
				if err := queryCache.Invalidate(ctx); err != nil {
					slog.Warn("cache invalidation after rebuild failed", "generation", snap.Generation(), "error", err)
				}
			})
			checker.Register("redis", health.PingCheck(redisClient.Ping, true))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	h := handler.New(executor.New(engine), engine, queryCache, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	aggregator := analytics.NewAggregator(0)
	h.SetRecorder(aggregator)
	h.SetLimits(validator.Limits{
		MaxBatchSize:    cfg.Ingestion.MaxBatchSize,
		MaxDocumentSize: cfg.Ingestion.MaxDocumentSize,
	})

	mux := http.NewServeMux()
	h.Register(mux)
	analytics.NewHandler(aggregator).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowOrigins))(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		ms := metrics.NewServer(cfg.Metrics.Port, nil)
		g.Go(func() error {
			return ms.Run(gctx)
		})
	}
	if cfg.Kafka.Enabled {
		tracker := consumer.NewBatchTracker(corpus.Batches)
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, consumer.HandleMessage(engine, tracker))
		g.Go(func() error {
			return consumer.New(kc).Start(gctx)
		})
		slog.Info("index consumer enabled", "topic", cfg.Kafka.Topics.DocumentIngest, "group", cfg.Kafka.ConsumerGroup)
	}
	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 15 * time.Second
}
