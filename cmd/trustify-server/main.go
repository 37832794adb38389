// Package main is the entry point for Trustify's HTTP server: the
// query/ingest/analysis/importer surface spec.md §6 describes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trustify/trustify/internal/httpapi"
	"github.com/trustify/trustify/pkg/analysis"
	"github.com/trustify/trustify/pkg/config"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/events"
	"github.com/trustify/trustify/pkg/importer"
	"github.com/trustify/trustify/pkg/ingest"
	"github.com/trustify/trustify/pkg/logger"
	"github.com/trustify/trustify/pkg/storage"
	"github.com/trustify/trustify/pkg/telemetry"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.LogLevel, "json")
	log = log.WithService("trustify-server")

	log.Info("starting trustify server",
		"version", version,
		"build_time", buildTime,
		"git_commit", gitCommit,
		"env", cfg.Env,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracer, err := telemetry.NewProvider(cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer tracer.Shutdown(ctx)

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	db.WithTracer(tracer)
	defer db.Close()
	log.Info("connected to database")

	backend, err := storage.NewBackend(ctx, cfg.Storage.Backend)
	if err != nil {
		return fmt.Errorf("failed to init storage backend: %w", err)
	}

	publisher, err := events.NewPublisher(cfg.Events)
	if err != nil {
		return fmt.Errorf("failed to init event publisher: %w", err)
	}
	defer publisher.Close()

	ingestSvc := ingest.NewService(db, backend, publisher, log)

	analysisSvc, err := analysis.NewService(db, log)
	if err != nil {
		return fmt.Errorf("failed to init analysis engine: %w", err)
	}

	scheduler := importer.NewScheduler(db, ingestSvc, log, cfg.Importer)
	scheduler.Start()
	defer scheduler.Stop()

	router := httpapi.New(httpapi.Config{
		DB:        db,
		Config:    cfg,
		Logger:    log,
		Ingest:    ingestSvc,
		Analysis:  analysisSvc,
		Scheduler: scheduler,
		Tracer:    tracer,
	})

	server := &http.Server{
		Addr:         cfg.API.Address(),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.API.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				return fmt.Errorf("forced shutdown error: %w", err)
			}
		}
		log.Info("server shutdown complete")
	}

	return nil
}
