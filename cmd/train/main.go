package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/course-engine/backend/internal/catalog"
	"github.com/course-engine/backend/internal/config"
	"github.com/course-engine/backend/internal/engine"
	"github.com/course-engine/backend/internal/logging"
	"github.com/course-engine/backend/internal/search"
	"github.com/course-engine/backend/internal/storage"
)

// Builds a model from the catalog and stores its snapshot so the API can
// start without rebuilding.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	catalogPath := flag.String("catalog", cfg.Catalog.Path, "catalog file (.csv or .json)")
	backend := flag.String("backend", cfg.Storage.Backend, "snapshot storage backend (file or badger)")
	dir := flag.String("dir", cfg.Storage.Dir, "snapshot storage directory")
	query := flag.String("query", "", "optional query to preview against the new model")
	topK := flag.Int("k", 5, "number of preview results")
	flag.Parse()

	entry := logging.New(cfg.Log, "course-train")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := catalog.NewLoader(catalog.LoadOptions{NormalizePopularity: cfg.Catalog.NormalizePopularity}, entry)
	items, _, err := loader.LoadFile(ctx, *catalogPath)
	if err != nil {
		entry.Fatalf("Failed to load catalog: %v", err)
	}

	opts := engine.OptionsFromConfig(cfg.Ranking)

	start := time.Now()
	model, err := search.Build(items, opts)
	if err != nil {
		entry.Fatalf("Failed to build model: %v", err)
	}
	entry.WithFields(logrus.Fields{
		"courses":    model.Len(),
		"vocabulary": model.VocabularySize(),
		"duration":   time.Since(start).String(),
	}).Info("Model built")

	store, err := storage.New(*backend, *dir)
	if err != nil {
		entry.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	if err := store.Save(model.Snapshot()); err != nil {
		entry.Fatalf("Failed to save snapshot: %v", err)
	}
	entry.WithFields(logrus.Fields{"backend": *backend, "dir": *dir}).Info("Snapshot saved")

	if *query != "" {
		for i, r := range model.Search(*query, *topK, opts.ScoreFloor) {
			entry.WithFields(logrus.Fields{
				"rank":   i + 1,
				"id":     r.ItemID,
				"title":  r.Item.Title,
				"score":  r.Score,
				"cosine": r.Cosine,
			}).Info("Preview")
		}
	}
}
