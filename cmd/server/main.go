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

	"github.com/iconidentify/mediagrab/internal/api"
	"github.com/iconidentify/mediagrab/internal/api/handler"
	"github.com/iconidentify/mediagrab/internal/config"
	"github.com/iconidentify/mediagrab/internal/delivery"
	"github.com/iconidentify/mediagrab/internal/engine"
	"github.com/iconidentify/mediagrab/internal/extractor"
	"github.com/iconidentify/mediagrab/internal/identity"
	"github.com/iconidentify/mediagrab/internal/repository"
	"github.com/iconidentify/mediagrab/internal/service"
	"github.com/iconidentify/mediagrab/internal/worker"
	"github.com/iconidentify/mediagrab/pkg/botapi"
	"github.com/iconidentify/mediagrab/pkg/ffmpeg"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mediagrab %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting mediagrab",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure storage directories exist
	for _, dir := range []string{cfg.Storage.VideoPath, cfg.Storage.AudioPath, cfg.Storage.TempPath, cfg.Identity.CookieDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("failed to create storage directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	// Initialize repositories
	jobRepo := repository.NewInMemoryJobRepository()
	trackRepo, err := repository.NewSQLiteTrackRepository(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open track database", "error", err)
		os.Exit(1)
	}
	defer trackRepo.Close()

	// Initialize acquisition engine
	ytdlp, err := extractor.NewYtDlp()
	if err != nil {
		logger.Error("yt-dlp binding unavailable", "error", err)
		os.Exit(1)
	}
	ex := &extractor.Multi{
		YtDlp:  ytdlp,
		Direct: extractor.NewDirect(logger),
	}
	pool := identity.NewPool(cfg.Identity.Proxies)
	vault := identity.NewVault(cfg.Identity.CookieDir, cfg.Storage.TempPath, cfg.Identity.Passphrase)
	orch := engine.NewOrchestrator(ex, pool, vault, extractor.DefaultProfiles(), cfg.Engine, logger)

	// Initialize delivery transports. The alternate endpoint serves files
	// above the size threshold; when it is not configured only the standard
	// route is available.
	standardClient := botapi.NewClient(botapi.Config{
		Token:   cfg.Transport.BotToken,
		BaseURL: cfg.Transport.StandardBaseURL,
		Timeout: cfg.Transport.UploadTimeout,
	})
	standard := delivery.NewStandardTransport(standardClient, logger)

	var alternate *delivery.AlternateTransport
	if cfg.Transport.AlternateBaseURL != "" {
		alternateClient := botapi.NewClient(botapi.Config{
			Token:   cfg.Transport.BotToken,
			BaseURL: cfg.Transport.AlternateBaseURL,
			Timeout: cfg.Transport.UploadTimeout,
		})
		alternate = delivery.NewAlternateTransport(alternateClient, logger)
	}

	var alternateProbed delivery.ProbedTransport
	if alternate != nil {
		alternateProbed = alternate
	}
	router := delivery.NewRouter(standard, alternateProbed, cfg.Transport.SizeThreshold, cfg.Transport.ProbeTimeout, logger)

	// Optional ffmpeg post-processing
	processor, err := ffmpeg.NewProcessor()
	if err != nil {
		logger.Warn("ffmpeg unavailable, audio extraction and re-encode disabled", "error", err)
		processor = nil
	}

	// Initialize services
	acquisitionSvc := service.NewAcquisitionService(
		orch,
		router,
		processor,
		jobRepo,
		trackRepo,
		cfg.Storage,
		cfg.Worker,
		logger,
	)
	trackSvc := service.NewTrackService(trackRepo, logger)

	// Initialize handlers
	acquisitionHandler := handler.NewAcquisitionHandler(acquisitionSvc, logger)
	trackHandler := handler.NewTrackHandler(trackSvc, logger)
	var alternateProber handler.Prober
	if alternate != nil {
		alternateProber = alternate
	}
	healthHandler := handler.NewHealthHandler(jobRepo, alternateProber, cfg.Storage.VideoPath)

	// Setup router
	mux := api.NewRouter(acquisitionHandler, trackHandler, healthHandler, cfg.Server.APIKey)

	// Initialize worker pool
	workers := worker.NewPool(
		worker.Config{
			Workers:      cfg.Worker.Count,
			PollInterval: cfg.Worker.PollInterval,
		},
		jobRepo,
		acquisitionSvc,
		logger,
	)

	// Start worker pool
	workers.Start()

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop workers (allow in-flight jobs to complete)
	if err := workers.Stop(25 * time.Second); err != nil {
		logger.Error("worker pool shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
