package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/course-engine/backend/internal/catalog"
	"github.com/course-engine/backend/internal/config"
	"github.com/course-engine/backend/internal/search"
	"github.com/course-engine/backend/internal/storage"
)

// ErrNotReady is returned by queries before the first model is published
var ErrNotReady = errors.New("model not ready")

// CatalogLoader reads the course catalog
type CatalogLoader interface {
	LoadFile(ctx context.Context, path string) ([]search.CatalogItem, catalog.Report, error)
}

// Engine serves recommendations from the current model and swaps in new
// models without blocking readers
type Engine struct {
	Config  *config.Config
	Logger  *logrus.Entry
	Storage storage.SnapshotStorage
	Loader  CatalogLoader

	current    atomic.Pointer[published]
	buildMu    sync.Mutex
	rebuilding atomic.Bool
	results    *cache.Cache

	statsMu sync.RWMutex
	Stats   EngineStats
}

// EngineStats tracks engine lifecycle
type EngineStats struct {
	Builds    int64
	Restores  int64
	LastError string
	StartTime time.Time
}

// published is one immutable model together with its generation id
type published struct {
	model      *search.Model
	generation string
	source     string
	builtAt    time.Time
	report     catalog.Report
}

// Status describes the served model
type Status struct {
	Ready          bool           `json:"ready"`
	Generation     string         `json:"generation,omitempty"`
	Source         string         `json:"source,omitempty"`
	BuiltAt        *time.Time     `json:"built_at,omitempty"`
	Courses        int            `json:"courses"`
	VocabularySize int            `json:"vocabulary_size"`
	Rebuilding     bool           `json:"rebuilding"`
	Catalog        catalog.Report `json:"catalog"`
	Builds         int64          `json:"builds"`
	Restores       int64          `json:"restores"`
	LastError      string         `json:"last_error,omitempty"`
	Uptime         string         `json:"uptime"`
}

func NewEngine(cfg *config.Config, logger *logrus.Entry, store storage.SnapshotStorage, loader CatalogLoader) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if loader == nil {
		loader = catalog.NewLoader(catalog.LoadOptions{NormalizePopularity: cfg.Catalog.NormalizePopularity}, logger)
	}

	e := &Engine{
		Config:  cfg,
		Logger:  logger.WithField("component", "engine"),
		Storage: store,
		Loader:  loader,
	}
	if cfg.Cache.Enabled {
		e.results = cache.New(cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	}
	e.Stats.StartTime = time.Now()
	return e, nil
}

// Options returns the build options of the configured ranking
func (e *Engine) Options() search.Options {
	return OptionsFromConfig(e.Config.Ranking)
}

// OptionsFromConfig translates ranking configuration into build options.
// Non-positive weights and document frequencies keep their defaults.
func OptionsFromConfig(r config.RankingConfig) search.Options {
	opts := search.DefaultOptions()
	opts.Lambda = r.Lambda
	opts.ScoreFloor = r.ScoreFloor
	if r.MinDocFreq > 0 {
		opts.MinDocFreq = r.MinDocFreq
	}
	if r.TitleWeight > 0 {
		opts.Weights.Title = r.TitleWeight
	}
	if r.CategoryWeight > 0 {
		opts.Weights.Category = r.CategoryWeight
	}
	return opts
}

// Start loads the catalog and publishes the first model. A stored snapshot
// is reused when it still matches the catalog; otherwise the model is built
// from scratch and saved.
func (e *Engine) Start(ctx context.Context) error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	items, report, err := e.loadCatalog(ctx)
	if err != nil {
		return err
	}

	if model, ok := e.restore(items); ok {
		e.publish(model, sourceSnapshot, report)
		return nil
	}

	model, err := e.build(items)
	if err != nil {
		return err
	}
	e.save(model)
	e.publish(model, sourceBuild, report)
	return nil
}

// Rebuild reloads the catalog, builds a new model and swaps it in. Queries
// keep using the previous model until the swap. On failure the previous
// model stays in place.
func (e *Engine) Rebuild(ctx context.Context) (Status, error) {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()
	e.rebuilding.Store(true)

	err := e.rebuild(ctx)
	e.rebuilding.Store(false)
	return e.Status(), err
}

func (e *Engine) rebuild(ctx context.Context) error {
	items, report, err := e.loadCatalog(ctx)
	if err != nil {
		return err
	}
	model, err := e.build(items)
	if err != nil {
		return err
	}
	e.save(model)
	e.publish(model, sourceBuild, report)
	return nil
}

// Publish builds a model from items that are already in memory and swaps it in
func (e *Engine) Publish(items []search.CatalogItem) error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	model, err := e.build(items)
	if err != nil {
		return err
	}
	e.save(model)
	e.publish(model, sourceBuild, catalog.Report{Rows: len(items), Loaded: model.Len()})
	return nil
}

func (e *Engine) loadCatalog(ctx context.Context) ([]search.CatalogItem, catalog.Report, error) {
	items, report, err := e.Loader.LoadFile(ctx, e.Config.Catalog.Path)
	if err != nil {
		e.setLastError(err)
		return nil, report, fmt.Errorf("failed to load catalog: %w", err)
	}
	return items, report, nil
}

func (e *Engine) restore(items []search.CatalogItem) (*search.Model, bool) {
	if e.Storage == nil {
		return nil, false
	}
	start := time.Now()

	snap, err := e.Storage.Load()
	if err != nil {
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			e.Logger.Info("No stored snapshot, building model")
		} else {
			e.Logger.WithError(err).Warn("Failed to load snapshot, building model")
			buildsTotal.WithLabelValues(sourceSnapshot, outcomeError).Inc()
		}
		return nil, false
	}

	model, err := search.Restore(snap, items)
	if err == nil && !optionsMatch(model.Options(), e.Options()) {
		err = &search.StaleSnapshotError{
			SnapshotRows: snap.CorpusSize,
			CorpusRows:   len(items),
			Detail:       "ranking options changed",
		}
	}
	if err != nil {
		var stale *search.StaleSnapshotError
		if errors.As(err, &stale) {
			e.Logger.WithFields(logrus.Fields{
				"snapshot_rows": stale.SnapshotRows,
				"corpus_rows":   stale.CorpusRows,
				"detail":        stale.Detail,
			}).Warn("Stored snapshot is stale, rebuilding")
			buildsTotal.WithLabelValues(sourceSnapshot, outcomeStale).Inc()
		} else {
			e.Logger.WithError(err).Warn("Failed to restore snapshot, rebuilding")
			buildsTotal.WithLabelValues(sourceSnapshot, outcomeError).Inc()
		}
		return nil, false
	}

	buildDuration.Observe(time.Since(start).Seconds())
	buildsTotal.WithLabelValues(sourceSnapshot, outcomeSuccess).Inc()
	e.statsMu.Lock()
	e.Stats.Restores++
	e.statsMu.Unlock()
	return model, true
}

func (e *Engine) build(items []search.CatalogItem) (*search.Model, error) {
	start := time.Now()
	model, err := search.Build(items, e.Options())
	if err != nil {
		buildsTotal.WithLabelValues(sourceBuild, outcomeError).Inc()
		e.setLastError(err)
		e.Logger.WithError(err).Error("Model build failed")
		return nil, err
	}
	elapsed := time.Since(start)
	buildDuration.Observe(elapsed.Seconds())
	buildsTotal.WithLabelValues(sourceBuild, outcomeSuccess).Inc()

	e.statsMu.Lock()
	e.Stats.Builds++
	e.statsMu.Unlock()

	e.Logger.WithFields(logrus.Fields{
		"courses":    model.Len(),
		"vocabulary": model.VocabularySize(),
		"duration":   elapsed.String(),
	}).Info("Model built")
	return model, nil
}

// save persists the snapshot. A failed save is logged; the model is served anyway.
func (e *Engine) save(model *search.Model) {
	if e.Storage == nil {
		return
	}
	if err := e.Storage.Save(model.Snapshot()); err != nil {
		e.setLastError(err)
		e.Logger.WithError(err).Error("Failed to save snapshot")
	}
}

func (e *Engine) publish(model *search.Model, source string, report catalog.Report) {
	p := &published{
		model:      model,
		generation: uuid.NewString(),
		source:     source,
		builtAt:    time.Now().UTC(),
		report:     report,
	}
	e.current.Store(p)
	if e.results != nil {
		e.results.Flush()
	}

	corpusSize.Set(float64(model.Len()))
	vocabularySize.Set(float64(model.VocabularySize()))

	e.Logger.WithFields(logrus.Fields{
		"generation": p.generation,
		"source":     source,
		"courses":    model.Len(),
	}).Info("Model published")
}

func (e *Engine) setLastError(err error) {
	e.statsMu.Lock()
	e.Stats.LastError = err.Error()
	e.statsMu.Unlock()
}

// Model returns the model currently served, or nil before Start
func (e *Engine) Model() *search.Model {
	if p := e.current.Load(); p != nil {
		return p.model
	}
	return nil
}

// IsReady reports whether a model has been published
func (e *Engine) IsReady() bool {
	return e.current.Load() != nil
}

// Status reports the served model and engine counters
func (e *Engine) Status() Status {
	e.statsMu.RLock()
	s := Status{
		Rebuilding: e.rebuilding.Load(),
		Builds:     e.Stats.Builds,
		Restores:   e.Stats.Restores,
		LastError:  e.Stats.LastError,
		Uptime:     time.Since(e.Stats.StartTime).Round(time.Second).String(),
	}
	e.statsMu.RUnlock()

	if p := e.current.Load(); p != nil {
		builtAt := p.builtAt
		s.Ready = true
		s.Generation = p.generation
		s.Source = p.source
		s.BuiltAt = &builtAt
		s.Courses = p.model.Len()
		s.VocabularySize = p.model.VocabularySize()
		s.Catalog = p.report
	}
	return s
}

// Search ranks courses against a free-text query. The returned slice may be
// shared with the result cache and must not be modified.
func (e *Engine) Search(query string, opts search.SearchOptions) ([]search.Result, error) {
	p := e.current.Load()
	if p == nil {
		queriesTotal.WithLabelValues("search", outcomeNotReady).Inc()
		return nil, ErrNotReady
	}

	key := fmt.Sprintf("%s|search|%q|%d|%g|%q|%q|%q", p.generation, normalizeQuery(query), opts.TopK, opts.ScoreFloor,
		strings.ToLower(opts.Filter.Platform), strings.ToLower(opts.Filter.Category), strings.ToLower(opts.Filter.Level))
	results := e.cached(key, func() []search.Result {
		return p.model.SearchFiltered(query, opts)
	})
	recordQuery("search", len(results))
	return results, nil
}

// Similar returns the courses closest to the given one. Unknown ids give no results.
func (e *Engine) Similar(itemID string, topK int) ([]search.Result, error) {
	p := e.current.Load()
	if p == nil {
		queriesTotal.WithLabelValues("similar", outcomeNotReady).Inc()
		return nil, ErrNotReady
	}

	key := fmt.Sprintf("%s|similar|%q|%d", p.generation, itemID, topK)
	results := e.cached(key, func() []search.Result {
		return p.model.Similar(itemID, topK)
	})
	recordQuery("similar", len(results))
	return results, nil
}

// Popular returns the most popular courses, optionally within one category
func (e *Engine) Popular(n int, category string) ([]search.Result, error) {
	p := e.current.Load()
	if p == nil {
		queriesTotal.WithLabelValues("popular", outcomeNotReady).Inc()
		return nil, ErrNotReady
	}

	key := fmt.Sprintf("%s|popular|%q|%d", p.generation, strings.ToLower(category), n)
	results := e.cached(key, func() []search.Result {
		return p.model.Popular(n, category)
	})
	recordQuery("popular", len(results))
	return results, nil
}

// Browse returns one page of the catalog
func (e *Engine) Browse(opts search.BrowseOptions) (search.BrowsePage, error) {
	m := e.Model()
	if m == nil {
		queriesTotal.WithLabelValues("browse", outcomeNotReady).Inc()
		return search.BrowsePage{}, ErrNotReady
	}
	page, err := m.Browse(opts)
	if err != nil {
		queriesTotal.WithLabelValues("browse", outcomeError).Inc()
		return search.BrowsePage{}, err
	}
	recordQuery("browse", len(page.Items))
	return page, nil
}

// Item looks up one course
func (e *Engine) Item(id string) (search.CatalogItem, bool, error) {
	m := e.Model()
	if m == nil {
		return search.CatalogItem{}, false, ErrNotReady
	}
	item, ok := m.Item(id)
	return item, ok, nil
}

func (e *Engine) cached(key string, compute func() []search.Result) []search.Result {
	if e.results == nil {
		return compute()
	}
	if v, ok := e.results.Get(key); ok {
		cacheRequestsTotal.WithLabelValues("hit").Inc()
		return v.([]search.Result)
	}
	cacheRequestsTotal.WithLabelValues("miss").Inc()

	results := compute()
	e.results.Set(key, results, cache.DefaultExpiration)
	return results
}

// Close releases the snapshot storage
func (e *Engine) Close() error {
	if e.Storage == nil {
		return nil
	}
	return e.Storage.Close()
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func optionsMatch(a, b search.Options) bool {
	return a.Lambda == b.Lambda &&
		a.ScoreFloor == b.ScoreFloor &&
		a.MinDocFreq == b.MinDocFreq &&
		a.Weights == b.Weights &&
		slices.Equal(a.Stopwords, b.Stopwords)
}
