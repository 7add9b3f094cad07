package search

import "math"

// CatalogItem represents a course in the catalog
type CatalogItem struct {
	ID          string  `json:"id" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Category    string  `json:"category"`
	Provider    string  `json:"provider,omitempty"`
	Level       string  `json:"level,omitempty"`
	Metadata    string  `json:"metadata,omitempty"`
	Duration    string  `json:"duration,omitempty"`
	Description string  `json:"description,omitempty"`
	Popularity  float64 `json:"popularity"`

	// Listing metadata, not used for scoring
	Platform string  `json:"platform,omitempty"`
	URL      string  `json:"url,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
}

// sanitizePopularity coerces a prior into [0,1]. NaN, infinities and
// negative values become 0.
func sanitizePopularity(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
