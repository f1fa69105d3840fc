// Command ingestion starts the recipe ingestion HTTP service.
//
// The service accepts recipe batches via POST /api/v1/ingest, validates them,
// stores them in PostgreSQL, and publishes one event per batch to Kafka for
// the searcher to index.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/postgres"
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
		slog.Error("ingestion service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}

// run returns only after the HTTP server has drained, so the deferred
// producer and database closes never race in-flight requests.
func run(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting ingestion service", "port", cfg.Ingestion.Port)

	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	slog.Info("connected to postgres")

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.DocumentIngest)

	m := metrics.New(nil)
	pub := publisher.New(publisher.NewPostgresStore(db), producer, m)
	h := handler.New(pub, validator.Limits{
		MaxBatchSize:    cfg.Ingestion.MaxBatchSize,
		MaxDocumentSize: cfg.Ingestion.MaxDocumentSize,
	})

	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(db.Ping, false))

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowOrigins))(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Ingestion.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("ingestion service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
