package search

import (
	"math"
	"sort"
)

// Stats summarizes the corpus served by a model
type Stats struct {
	TotalItems     int            `json:"total_courses"`
	VocabularySize int            `json:"vocabulary_size"`
	Platforms      map[string]int `json:"platforms"`
	Categories     map[string]int `json:"categories"`
	Levels         map[string]int `json:"levels"`
	AvgRating      float64        `json:"avg_rating"`
}

// Stats counts items per platform, category and level
func (m *Model) Stats() Stats {
	s := Stats{
		TotalItems:     len(m.items),
		VocabularySize: m.VocabularySize(),
		Platforms:      make(map[string]int),
		Categories:     make(map[string]int),
		Levels:         make(map[string]int),
	}

	var ratingSum float64
	var rated int
	for _, item := range m.items {
		if item.Platform != "" {
			s.Platforms[item.Platform]++
		}
		if item.Category != "" {
			s.Categories[item.Category]++
		}
		if item.Level != "" {
			s.Levels[item.Level]++
		}
		if item.Rating > 0 && !math.IsNaN(item.Rating) && !math.IsInf(item.Rating, 0) {
			ratingSum += item.Rating
			rated++
		}
	}
	if rated > 0 {
		s.AvgRating = math.Round(ratingSum/float64(rated)*100) / 100
	}
	return s
}

// Categories returns the distinct non-empty categories, sorted
func (m *Model) Categories() []string {
	return m.distinct(func(it CatalogItem) string { return it.Category })
}

// Platforms returns the distinct non-empty platforms, sorted
func (m *Model) Platforms() []string {
	return m.distinct(func(it CatalogItem) string { return it.Platform })
}

// Levels returns the distinct non-empty levels, sorted
func (m *Model) Levels() []string {
	return m.distinct(func(it CatalogItem) string { return it.Level })
}

func (m *Model) distinct(field func(CatalogItem) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range m.items {
		v := field(item)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
