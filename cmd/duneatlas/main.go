package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LinkesAuge/duneatlas/internal/api"
	"github.com/LinkesAuge/duneatlas/internal/blob"
	"github.com/LinkesAuge/duneatlas/internal/circuitbreaker"
	"github.com/LinkesAuge/duneatlas/internal/config"
	"github.com/LinkesAuge/duneatlas/internal/metrics"
	"github.com/LinkesAuge/duneatlas/internal/settings"
	"github.com/LinkesAuge/duneatlas/internal/storage"
	"github.com/LinkesAuge/duneatlas/internal/sweeper"
)

func main() {
	cfg := config.Load()

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Run migrations
	if err := storage.RunMigrations(ctx, pool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	if err := sweeper.RunMigration(ctx, pool); err != nil {
		logger.Error("failed to run sweeper migration", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations complete")

	prometheus.MustRegister(metrics.NewPoolCollector(map[string]*pgxpool.Pool{"main": pool}))

	store := storage.NewStore(pool, cfg.QueryTimeout)

	// Blob storage behind a circuit breaker
	fsStore, err := blob.NewFSStore(cfg.StorageDir, cfg.PublicBaseURL,
		[]string{blob.BucketScreenshots, blob.BucketMaps, blob.BucketIcons})
	if err != nil {
		logger.Error("failed to open blob storage", "dir", cfg.StorageDir, "error", err)
		os.Exit(1)
	}
	blobs := blob.WithBreaker(fsStore, circuitbreaker.New(5, 30*time.Second))
	logger.Info("blob storage ready", "dir", fsStore.Root())

	settingsSvc := settings.NewService(store, logger)

	// Orphaned artifact reconciliation
	sw := sweeper.New(store, blobs,
		sweeper.NewPostgresCheckpoint(pool, "blob_sweep"),
		[]string{blob.BucketScreenshots, blob.BucketMaps, blob.BucketIcons},
		cfg.SweepInterval, cfg.SweepGrace, cfg.SweepBatchSize, logger)
	go sw.Run(ctx)
	logger.Info("sweeper started", "interval", cfg.SweepInterval, "grace", cfg.SweepGrace)

	// Start HTTP server
	handler := api.NewServer(logger,
		api.Stores{Pois: store, Grid: store, Maps: store},
		blobs, settingsSvc,
		map[string]api.Pinger{"postgres": pool},
		fsStore.Root(), cfg.MaxUploadBytes)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down...")

	// Cancel context to stop the sweeper
	cancel()

	// Graceful HTTP shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
