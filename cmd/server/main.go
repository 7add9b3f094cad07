package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/course-engine/backend/internal/api"
	"github.com/course-engine/backend/internal/catalog"
	"github.com/course-engine/backend/internal/config"
	"github.com/course-engine/backend/internal/engine"
	"github.com/course-engine/backend/internal/logging"
	"github.com/course-engine/backend/internal/storage"
)

func main() {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup Logging
	entry := logging.New(cfg.Log, "course-api")
	entry.Info("Starting Course Recommendation API Service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	store, err := storage.New(cfg.Storage.Backend, cfg.Storage.Dir)
	if err != nil {
		entry.Fatalf("Failed to initialize storage: %v", err)
	}

	// 3. Engine
	loader := catalog.NewLoader(catalog.LoadOptions{NormalizePopularity: cfg.Catalog.NormalizePopularity}, entry)
	eng, err := engine.NewEngine(cfg, entry, store, loader)
	if err != nil {
		entry.Fatalf("Failed to initialize engine: %v", err)
	}
	defer eng.Close()

	if err := eng.Start(ctx); err != nil {
		entry.Fatalf("Failed to build model: %v", err)
	}

	// 4. API Server
	server := api.NewServer(eng, entry)

	errc := make(chan error, 1)
	go func() {
		errc <- server.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errc:
		if err != nil {
			entry.WithError(err).Error("API server stopped")
		}
	case <-ctx.Done():
		entry.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			entry.WithError(err).Error("Graceful shutdown failed")
		}
	}
}
