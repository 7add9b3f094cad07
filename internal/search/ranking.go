package search

import (
	"math"
	"sort"
	"strings"
)

// Result is one ranked item
type Result struct {
	ItemID string      `json:"id"`
	Index  int         `json:"-"`
	Score  float64     `json:"score"`
	Cosine float64     `json:"cosine"`
	Item   CatalogItem `json:"item"`
}

// Filter restricts search results by exact, case-insensitive field match.
// Empty fields match everything.
type Filter struct {
	Platform string `json:"platform,omitempty"`
	Category string `json:"category,omitempty"`
	Level    string `json:"level,omitempty"`
}

func (f Filter) IsEmpty() bool {
	return f.Platform == "" && f.Category == "" && f.Level == ""
}

func (f Filter) Match(item CatalogItem) bool {
	return matchField(f.Platform, item.Platform) &&
		matchField(f.Category, item.Category) &&
		matchField(f.Level, item.Level)
}

func matchField(want, got string) bool {
	return want == "" || strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got))
}

// SearchOptions holds per-call search parameters
type SearchOptions struct {
	TopK       int
	ScoreFloor float64
	Filter     Filter
}

// Search ranks the corpus against a free-text query. The score of each hit
// is cosine * (1 + lambda * popularity); hits below scoreFloor are dropped.
// A query with no in-vocabulary tokens returns no results.
func (m *Model) Search(query string, topK int, scoreFloor float64) []Result {
	return m.SearchFiltered(query, SearchOptions{TopK: topK, ScoreFloor: scoreFloor})
}

// SearchFiltered is Search with a field filter applied before truncation
func (m *Model) SearchFiltered(query string, opts SearchOptions) []Result {
	if opts.TopK <= 0 {
		return nil
	}
	qvec := m.VectorizeQuery(query)
	if IsZero(qvec) {
		return nil
	}

	var results []Result
	for i, row := range m.table {
		item := m.items[i]
		if !opts.Filter.Match(item) {
			continue
		}
		cosine := Dot(row, qvec)
		score := cosine * (1 + m.opts.Lambda*item.Popularity)
		if math.IsNaN(score) || score < opts.ScoreFloor {
			continue
		}
		results = append(results, Result{
			ItemID: item.ID,
			Index:  i,
			Score:  score,
			Cosine: cosine,
			Item:   item,
		})
	}

	return topResults(results, opts.TopK)
}

// Similar ranks every other item by cosine similarity to the given item.
// Unknown ids return no results.
func (m *Model) Similar(itemID string, topK int) []Result {
	idx, ok := m.index[itemID]
	if !ok || topK <= 0 {
		return nil
	}

	target := m.table[idx]
	results := make([]Result, 0, len(m.table)-1)
	for i, row := range m.table {
		if i == idx {
			continue
		}
		cosine := Dot(row, target)
		results = append(results, Result{
			ItemID: m.items[i].ID,
			Index:  i,
			Score:  cosine,
			Cosine: cosine,
			Item:   m.items[i],
		})
	}

	return topResults(results, topK)
}

// Popular returns items ordered by popularity prior, optionally limited to
// one category
func (m *Model) Popular(n int, category string) []Result {
	if n <= 0 {
		return nil
	}
	var results []Result
	for i, item := range m.items {
		if !matchField(category, item.Category) {
			continue
		}
		results = append(results, Result{
			ItemID: item.ID,
			Index:  i,
			Score:  item.Popularity,
			Item:   item,
		})
	}
	return topResults(results, n)
}

// topResults sorts by score descending, ties by ascending corpus row, and
// truncates to k
func topResults(results []Result, k int) []Result {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})
	if len(results) > k {
		return results[:k]
	}
	return results
}
