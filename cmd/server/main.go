package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eventdash/eventdash/internal/api"
	"github.com/eventdash/eventdash/internal/config"
	"github.com/eventdash/eventdash/internal/database"
	"github.com/eventdash/eventdash/internal/enrich"
	"github.com/eventdash/eventdash/internal/fetch"
	"github.com/eventdash/eventdash/internal/logging"
	"github.com/eventdash/eventdash/internal/metrics"
	"github.com/eventdash/eventdash/internal/pipeline"
	"github.com/eventdash/eventdash/internal/scrape"
	"github.com/eventdash/eventdash/internal/server"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"log/slog"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting eventdash")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("connecting to database")
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	if err := database.RunMigrations(db, "./migrations", logger); err != nil {
		logger.Warn("failed to run migrations, continuing anyway", "error", err)
	}

	// Repositories
	urlRepo := database.NewPostgresURLRepository(db, logger)
	eventRepo := database.NewPostgresEventRepository(db, logger)
	actionRepo := database.NewPostgresActionRepository(db, eventRepo)
	unifiedRepo := database.NewPostgresUnifiedRepository(db, actionRepo, logger)

	// Metrics
	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	// Field extractor: LLM-backed when an API key is configured, rule-based
	// otherwise.
	var extractor enrich.Extractor
	if cfg.Enrichment.APIKey != "" {
		openaiExtractor, err := enrich.NewOpenAIExtractor(cfg.Enrichment, logger)
		if err != nil {
			logger.Warn("failed to init OpenAI extractor, using mock", "error", err)
			extractor = enrich.NewMockExtractor()
		} else {
			logger.Info("using OpenAI extractor", "model", cfg.Enrichment.Model)
			extractor = openaiExtractor
		}
	} else {
		logger.Info("no OpenAI API key configured, using mock extractor")
		extractor = enrich.NewMockExtractor()
	}

	// Collection pipeline
	fetcher := fetch.New(logger, fetch.WithRetryHook(collector.IncFetchRetry))
	strategies := []scrape.Strategy{
		scrape.NewDevpost(5),
		scrape.NewHackerEarth(),
		scrape.NewEventbrite(),
		scrape.NewConferenceSites(),
	}
	pipe := pipeline.New(strategies, fetcher, urlRepo, eventRepo, extractor, logger, collector, pipeline.Config{
		Interval:     cfg.Pipeline.Interval,
		EnrichLimit:  cfg.Pipeline.EnrichLimit,
		RunOnStartup: cfg.Pipeline.RunOnStartup,
	})
	go func() {
		if err := pipe.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("pipeline stopped", "error", err)
		}
	}()

	// HTTP API
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	stats := api.NewStatsAggregator(urlRepo, eventRepo, actionRepo)
	handler := api.NewHandler(unifiedRepo, actionRepo, stats, logger)
	api.SetupRoutes(mux, handler, func(ctx context.Context) error {
		return database.HealthCheck(ctx, db)
	})

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx := context.Background()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("eventdash stopped", "db_pool", database.Stats(db))
}
