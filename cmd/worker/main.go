package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"safesite-worker-go/internal/api"
	"safesite-worker-go/internal/config"
	"safesite-worker-go/internal/logging"
	"safesite-worker-go/internal/services/association"
	"safesite-worker-go/internal/services/detection"
	"safesite-worker-go/internal/services/messaging"
	"safesite-worker-go/internal/services/monitor"
	"safesite-worker-go/internal/services/snapshot"
	"safesite-worker-go/internal/services/stream"
	"safesite-worker-go/internal/services/violation"
)

// @title SafeSite Worker API
// @version 1.0.0
// @description PPE compliance monitoring worker for RTSP camera streams
// @BasePath /
func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg := config.Load()

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Optional embedded Logdy web log viewer
	if cfg.LogdyEnabled {
		if w, url, lerr := logging.StartLogdy(cfg); lerr == nil {
			log.Logger = log.Output(io.MultiWriter(zerolog.ConsoleWriter{Out: os.Stderr}, w))
			log.Info().Str("url", url).Msg("Log viewer enabled")
		} else {
			log.Warn().Err(lerr).Msg("Failed to start Logdy, continuing without log viewer")
		}
	}

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("detector_url", cfg.DetectorURL).
		Msg("Starting SafeSite worker")

	// Snapshot storage
	var snapshots snapshot.Store
	switch cfg.SnapshotBackend {
	case "minio":
		snapshots, err = snapshot.NewMinioStore(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize MinIO snapshot storage")
		}
	default:
		snapshots, err = snapshot.NewLocalStore(cfg.SnapshotDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize local snapshot storage")
		}
	}

	// Violation event stream; the worker still runs when the broker is down
	var publisher monitor.Publisher
	if nats, nerr := messaging.NewService(cfg); nerr != nil {
		log.Warn().Err(nerr).Msg("NATS unavailable, violation events will not be published")
	} else {
		publisher = nats
		defer nats.Shutdown(context.Background())
	}

	// Core pipeline
	detector := detection.NewClient(cfg)
	engine := association.NewEngine()
	resolver := violation.NewSpatialResolver(cfg.IdentityMatchMinIoU, cfg.IdentityMaxDistance)
	tracker := violation.NewTracker(resolver, cfg.AbsenceGracePeriod)
	store := violation.NewMemoryStore()

	mon := monitor.NewService(cfg, detector, engine, tracker, store, snapshots, publisher)

	manager := stream.NewManager(cfg, stream.NewGoCVOpener(cfg.OutputWidth, cfg.OutputHeight, cfg.SnapshotJPEGQuality))
	manager.SetConsumer(mon)

	// API server
	server := api.NewServer(cfg, manager, mon, store)
	if err := server.Setup(); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up server")
	}

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	// Graceful shutdown: stop accepting requests, stop streams, then close
	// tracking sessions so every open violation is resolved and published.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := manager.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Stream manager shutdown incomplete")
	}
	if err := mon.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Detection pipeline shutdown incomplete")
	}

	log.Info().Msg("Worker shutdown complete")
}
