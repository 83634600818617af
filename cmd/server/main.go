package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/cliptrack/cliptrack/internal/api"
	"github.com/cliptrack/cliptrack/internal/config"
	"github.com/cliptrack/cliptrack/internal/database"
	"github.com/cliptrack/cliptrack/internal/ingestion"
	"github.com/cliptrack/cliptrack/internal/logging"
	"github.com/cliptrack/cliptrack/internal/metrics"
	"github.com/cliptrack/cliptrack/internal/models"
	"github.com/cliptrack/cliptrack/internal/platform"
	"github.com/cliptrack/cliptrack/internal/scrape"
	"github.com/cliptrack/cliptrack/internal/server"
	"github.com/cliptrack/cliptrack/internal/storage"
)

func main() {
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

	logger.Info("starting cliptrack")

	db, err := database.Open(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	if err := database.EnsureSchema(db, logger); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	postRepo := database.NewPostgresPostRepository(db)
	accountRepo := database.NewPostgresTrackedAccountRepository(db)
	sweepErrorRepo := database.NewPostgresSweepErrorRepository(db)

	scraper := scrape.NewScraper(logger, buildClients(cfg.Platforms)...)
	orchestrator := scrape.NewOrchestrator(scraper, logger, scrape.OrchestratorConfig{
		MaxBatch:     cfg.Ingestion.BatchMax,
		ChunkSize:    cfg.Ingestion.ChunkSize,
		RequestDelay: cfg.Ingestion.RequestDelay,
	})

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	fetcher := ingestion.NewAccountFetcher(scraper, ingestion.PageCaps{
		models.PlatformTikTok:    cfg.Ingestion.TikTokPages,
		models.PlatformInstagram: cfg.Ingestion.InstagramPages,
	}, logger)

	mirror := storage.NewThumbnailMirror(storage.NoopUploader{}, logger)

	sweeper := ingestion.NewSweeper(
		accountRepo,
		postRepo,
		sweepErrorRepo,
		fetcher,
		scraper,
		mirror,
		collector,
		logger,
		ingestion.SweeperConfig{
			PollInterval:   cfg.Ingestion.PollInterval,
			Width:          cfg.Ingestion.SweepWidth,
			AccountTimeout: cfg.Ingestion.AccountTimeout,
			Cadence:        cfg.Ingestion.Cadence,
		},
	)

	mux := http.NewServeMux()
	api.SetupRoutes(mux, scraper, orchestrator, sweeper, accountRepo, sweepErrorRepo, logger)
	mux.Handle("/metrics", collector.Handler())

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sweeper.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("sweep loop stopped", "error", err)
		}
	}()

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server failed", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}

func buildClients(cfg config.PlatformsConfig) []platform.Client {
	var tiktokOpts []platform.TikTokOption
	if cfg.TikTokBaseURL != "" {
		tiktokOpts = append(tiktokOpts, platform.WithTikTokBaseURL(cfg.TikTokBaseURL))
	}

	var instagramOpts []platform.InstagramOption
	if cfg.InstagramBaseURL != "" {
		instagramOpts = append(instagramOpts, platform.WithInstagramBaseURL(cfg.InstagramBaseURL))
	}

	var youtubeOpts []platform.YouTubeOption
	if cfg.YouTubeBaseURL != "" {
		youtubeOpts = append(youtubeOpts, platform.WithYouTubeBaseURL(cfg.YouTubeBaseURL))
	}

	return []platform.Client{
		platform.NewTikTokClient(cfg.TikTokAPIKey, tiktokOpts...),
		platform.NewInstagramClient(cfg.InstagramAPIKey, instagramOpts...),
		platform.NewYouTubeClient(cfg.YouTubeAPIKey, youtubeOpts...),
	}
}
