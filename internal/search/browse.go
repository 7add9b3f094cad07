package search

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sort keys accepted by Browse
const (
	SortRating     = "rating"
	SortPopularity = "popularity"
	SortTitle      = "title"
)

// DefaultPerPage is the page size when none is given
const DefaultPerPage = 12

// ErrUnknownSort is returned by Browse for a sort key it does not know
var ErrUnknownSort = errors.New("unknown sort key")

// BrowseOptions selects one page of the catalog
type BrowseOptions struct {
	Page    int
	PerPage int
	SortBy  string
	Filter  Filter

	// Title keeps items whose title contains it, ignoring case
	Title string
}

// BrowsePage is one page of catalog items
type BrowsePage struct {
	Items   []CatalogItem `json:"courses"`
	Total   int           `json:"total"`
	Pages   int           `json:"pages"`
	Page    int           `json:"current_page"`
	PerPage int           `json:"per_page"`
}

// Browse lists the catalog page by page. Rating and popularity sort
// descending, title ascending; ties keep corpus order. Pages past the end
// are empty.
func (m *Model) Browse(opts BrowseOptions) (BrowsePage, error) {
	less, err := browseOrder(opts.SortBy)
	if err != nil {
		return BrowsePage{}, err
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PerPage < 1 {
		opts.PerPage = DefaultPerPage
	}

	title := strings.ToLower(strings.TrimSpace(opts.Title))
	var rows []int
	for i, item := range m.items {
		if !opts.Filter.Match(item) {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(item.Title), title) {
			continue
		}
		rows = append(rows, i)
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return less(m.items[rows[a]], m.items[rows[b]])
	})

	page := BrowsePage{
		Items:   []CatalogItem{},
		Total:   len(rows),
		Pages:   (len(rows) + opts.PerPage - 1) / opts.PerPage,
		Page:    opts.Page,
		PerPage: opts.PerPage,
	}
	if opts.Page > page.Pages {
		return page, nil
	}
	start := (opts.Page - 1) * opts.PerPage
	end := min(start+opts.PerPage, len(rows))
	for _, row := range rows[start:end] {
		page.Items = append(page.Items, m.items[row])
	}
	return page, nil
}

func browseOrder(sortBy string) (func(a, b CatalogItem) bool, error) {
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case "", SortRating:
		return func(a, b CatalogItem) bool { return a.Rating > b.Rating }, nil
	case SortPopularity:
		return func(a, b CatalogItem) bool { return a.Popularity > b.Popularity }, nil
	case SortTitle:
		return func(a, b CatalogItem) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSort, sortBy)
	}
}
