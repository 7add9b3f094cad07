package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/course-engine/backend/internal/search"
)

// ErrUnsupportedFormat is returned for catalog files that are neither CSV nor JSON
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

// LoadOptions controls how raw records become catalog items
type LoadOptions struct {
	// NormalizePopularity divides every prior by the largest one so the
	// most popular item gets 1.
	NormalizePopularity bool
}

// Report describes one load
type Report struct {
	Rows       int
	Loaded     int
	Invalid    int
	Duplicates int
}

// Loader reads catalog exports produced by the feature-preparation stage
type Loader struct {
	opts     LoadOptions
	logger   *logrus.Entry
	validate *validator.Validate
}

// NewLoader creates a loader
func NewLoader(opts LoadOptions, logger *logrus.Entry) *Loader {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Loader{
		opts:     opts,
		logger:   logger.WithField("component", "catalog_loader"),
		validate: validator.New(),
	}
}

// LoadFile reads a .csv or .json catalog
func (l *Loader) LoadFile(ctx context.Context, path string) ([]search.CatalogItem, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	var items []search.CatalogItem
	var report Report
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		items, report, err = l.ReadCSV(ctx, f)
	case ".json":
		items, report, err = l.ReadJSON(ctx, f)
	default:
		return nil, Report{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, report, err
	}

	l.logger.WithFields(logrus.Fields{
		"path":       path,
		"rows":       report.Rows,
		"loaded":     report.Loaded,
		"invalid":    report.Invalid,
		"duplicates": report.Duplicates,
	}).Info("Catalog loaded")
	return items, report, nil
}

// column aliases, first match wins
var csvColumns = map[string][]string{
	"id":          {"id", "course_id"},
	"title":       {"title", "title_clean"},
	"category":    {"category"},
	"provider":    {"partner", "instructor", "provider"},
	"level":       {"level"},
	"metadata":    {"metadata"},
	"duration":    {"duration", "duration_hours"},
	"description": {"full_description", "description"},
	"popularity":  {"popularity_score", "popularity"},
	"platform":    {"source_domain", "platform"},
	"url":         {"link", "url"},
	"rating":      {"rating"},
}

// ReadCSV parses a header-driven CSV export. Comma and semicolon separated
// files are both accepted.
func (l *Loader) ReadCSV(ctx context.Context, r io.Reader) ([]search.CatalogItem, Report, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	firstLine, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, Report{}, fmt.Errorf("failed to read catalog header: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(firstLine)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, Report{}, nil
		}
		return nil, Report{}, fmt.Errorf("failed to read catalog header: %w", err)
	}

	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, exists := positions[name]; !exists {
			positions[name] = i
		}
	}

	var raws []rawRecord
	for row := 0; ; row++ {
		if row%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, Report{}, err
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, Report{}, fmt.Errorf("failed to read catalog row %d: %w", row+1, err)
		}

		get := func(field string) string {
			for _, alias := range csvColumns[field] {
				if idx, ok := positions[alias]; ok && idx < len(record) {
					if v := strings.TrimSpace(record[idx]); v != "" {
						return v
					}
				}
			}
			return ""
		}

		raws = append(raws, rawRecord{
			ID:          get("id"),
			Title:       get("title"),
			Category:    get("category"),
			Provider:    get("provider"),
			Level:       get("level"),
			Metadata:    get("metadata"),
			Duration:    get("duration"),
			Description: get("description"),
			Popularity:  parseFloat(get("popularity")),
			Platform:    get("platform"),
			URL:         get("url"),
			Rating:      parseFloat(get("rating")),
		})
	}

	items, report := l.finish(raws)
	return items, report, nil
}

// ReadJSON parses an array of catalog records
func (l *Loader) ReadJSON(ctx context.Context, r io.Reader) ([]search.CatalogItem, Report, error) {
	var records []jsonRecord
	if err := json.NewDecoder(r).DecodeContext(ctx, &records); err != nil {
		return nil, Report{}, fmt.Errorf("failed to decode catalog: %w", err)
	}

	raws := make([]rawRecord, len(records))
	for i, rec := range records {
		raws[i] = rawRecord{
			ID:          string(rec.ID),
			Title:       rec.Title,
			Category:    rec.Category,
			Provider:    firstNonEmpty(rec.Provider, rec.Instructor, rec.Partner),
			Level:       rec.Level,
			Metadata:    rec.Metadata,
			Duration:    rec.Duration,
			Description: rec.Description,
			Popularity:  derefFloat(rec.Popularity),
			Platform:    rec.Platform,
			URL:         rec.URL,
			Rating:      derefFloat(rec.Rating),
		}
	}

	items, report := l.finish(raws)
	return items, report, nil
}

type rawRecord struct {
	ID          string
	Title       string
	Category    string
	Provider    string
	Level       string
	Metadata    string
	Duration    string
	Description string
	Popularity  float64
	Platform    string
	URL         string
	Rating      float64
}

type jsonRecord struct {
	ID          flexibleID `json:"id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Provider    string     `json:"provider"`
	Instructor  string     `json:"instructor"`
	Partner     string     `json:"partner"`
	Level       string     `json:"level"`
	Metadata    string     `json:"metadata"`
	Duration    string     `json:"duration"`
	Description string     `json:"description"`
	Popularity  *float64   `json:"popularity"`
	Platform    string     `json:"platform"`
	URL         string     `json:"url"`
	Rating      *float64   `json:"rating"`
}

// flexibleID accepts both string and numeric identifiers
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*f = flexibleID(data)
	return nil
}

// finish assigns missing ids, cleans text, derives missing levels and
// categories, validates, drops duplicates and normalizes popularity
func (l *Loader) finish(raws []rawRecord) ([]search.CatalogItem, Report) {
	report := Report{Rows: len(raws)}
	items := make([]search.CatalogItem, 0, len(raws))
	seen := make(map[string]int, len(raws))

	for row, raw := range raws {
		item := search.CatalogItem{
			ID:          raw.ID,
			Title:       cleanText(raw.Title),
			Category:    cleanText(raw.Category),
			Provider:    cleanText(raw.Provider),
			Level:       cleanText(raw.Level),
			Metadata:    cleanText(raw.Metadata),
			Duration:    cleanText(raw.Duration),
			Description: TextFromHTML(raw.Description),
			Popularity:  finiteOrZero(raw.Popularity),
			Platform:    normalizePlatform(raw.Platform),
			URL:         strings.TrimSpace(raw.URL),
			Rating:      finiteOrZero(raw.Rating),
		}
		if item.ID == "" {
			item.ID = strconv.Itoa(row)
		}
		if item.Level == "" {
			item.Level = LevelFromMetadata(item.Metadata)
		}
		if item.Category == "" && item.Title != "" {
			item.Category = CategoryFromTitle(item.Title)
		}

		if err := l.validate.Struct(item); err != nil {
			report.Invalid++
			l.logger.WithError(err).WithField("row", row).Debug("Skipping invalid catalog record")
			continue
		}
		if first, dup := seen[item.ID]; dup {
			report.Duplicates++
			l.logger.WithFields(logrus.Fields{
				"id":        item.ID,
				"row":       row,
				"first_row": first,
			}).Warn("Skipping duplicate catalog id")
			continue
		}
		seen[item.ID] = row
		items = append(items, item)
	}

	if l.opts.NormalizePopularity {
		NormalizePopularity(items)
	}
	report.Loaded = len(items)
	return items, report
}

// NormalizePopularity scales priors by the maximum prior. If no item has a
// positive prior, every prior becomes 0.
func NormalizePopularity(items []search.CatalogItem) {
	var maxPop float64
	for _, item := range items {
		if item.Popularity > maxPop {
			maxPop = item.Popularity
		}
	}
	for i := range items {
		if maxPop > 0 && items[i].Popularity > 0 {
			items[i].Popularity /= maxPop
		} else {
			items[i].Popularity = 0
		}
	}
}

func sniffDelimiter(line []byte) rune {
	if idx := bytes.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// normalizePlatform turns "coursera" or "www.udemy.com" into "Coursera" / "Udemy"
func normalizePlatform(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	p = strings.TrimPrefix(p, "www.")
	if idx := strings.IndexByte(p, '.'); idx > 0 {
		p = p[:idx]
	}
	if p == "" {
		return ""
	}
	return strings.ToUpper(p[:1]) + p[1:]
}
