package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/course-engine/backend/internal/engine"
	"github.com/course-engine/backend/internal/search"
)

const snippetLength = 200

// Responses
type ErrorResponse struct {
	Error string `json:"error"`
}

type SearchResponse struct {
	Query   string        `json:"query"`
	Filter  search.Filter `json:"filter"`
	Count   int           `json:"count"`
	Results []ResultView  `json:"results"`
}

type SimilarResponse struct {
	CourseID string       `json:"course_id"`
	Count    int          `json:"count"`
	Results  []ResultView `json:"results"`
}

type PopularResponse struct {
	Category string       `json:"category,omitempty"`
	Count    int          `json:"count"`
	Results  []ResultView `json:"results"`
}

type ListResponse struct {
	Count  int      `json:"count"`
	Values []string `json:"values"`
}

// ResultView is a ranked course as returned to clients
type ResultView struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Category   string  `json:"category"`
	Provider   string  `json:"provider,omitempty"`
	Level      string  `json:"level,omitempty"`
	Duration   string  `json:"duration,omitempty"`
	Platform   string  `json:"platform,omitempty"`
	URL        string  `json:"url,omitempty"`
	Rating     float64 `json:"rating,omitempty"`
	Popularity float64 `json:"popularity"`
	Score      float64 `json:"score"`
	Cosine     float64 `json:"cosine"`
	Snippet    string  `json:"snippet,omitempty"`
}

func newResultViews(results []search.Result) []ResultView {
	views := make([]ResultView, len(results))
	for i, r := range results {
		views[i] = ResultView{
			ID:         r.ItemID,
			Title:      r.Item.Title,
			Category:   r.Item.Category,
			Provider:   r.Item.Provider,
			Level:      r.Item.Level,
			Duration:   r.Item.Duration,
			Platform:   r.Item.Platform,
			URL:        r.Item.URL,
			Rating:     r.Item.Rating,
			Popularity: r.Item.Popularity,
			Score:      r.Score,
			Cosine:     r.Cosine,
			Snippet:    snippet(r.Item.Description),
		}
	}
	return views
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}

// Handlers

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'q' is required"})
		return
	}

	topK, err := s.topK(r)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	floor := s.Engine.Config.Ranking.ScoreFloor
	if raw := r.URL.Query().Get("floor"); raw != "" {
		floor, err = strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(floor) || math.IsInf(floor, 0) {
			jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Parameter 'floor' must be a finite number"})
			return
		}
	}

	filter := search.Filter{
		Platform: r.URL.Query().Get("platform"),
		Category: r.URL.Query().Get("category"),
		Level:    r.URL.Query().Get("level"),
	}
	results, err := s.Engine.Search(query, search.SearchOptions{TopK: topK, ScoreFloor: floor, Filter: filter})
	if err != nil {
		s.engineError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, SearchResponse{
		Query:   query,
		Filter:  filter,
		Count:   len(results),
		Results: newResultViews(results),
	})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	topK, err := s.topK(r)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	// unknown ids return an empty list
	results, err := s.Engine.Similar(id, topK)
	if err != nil {
		s.engineError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, SimilarResponse{
		CourseID: id,
		Count:    len(results),
		Results:  newResultViews(results),
	})
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	topK, err := s.topK(r)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	category := r.URL.Query().Get("category")

	results, err := s.Engine.Popular(topK, category)
	if err != nil {
		s.engineError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, PopularResponse{
		Category: category,
		Count:    len(results),
		Results:  newResultViews(results),
	})
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Parameter 'page' must be an integer"})
		return
	}
	perPage, err := intParam(q.Get("per_page"), search.DefaultPerPage)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Parameter 'per_page' must be an integer"})
		return
	}
	if perPage < 1 {
		perPage = search.DefaultPerPage
	}
	if limit := s.Engine.Config.Ranking.MaxTopK; limit > 0 && perPage > limit {
		perPage = limit
	}

	result, err := s.Engine.Browse(search.BrowseOptions{
		Page:    page,
		PerPage: perPage,
		SortBy:  q.Get("sort_by"),
		Filter: search.Filter{
			Platform: q.Get("platform"),
			Category: q.Get("category"),
			Level:    q.Get("level"),
		},
		Title: q.Get("search"),
	})
	if errors.Is(err, search.ErrUnknownSort) {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("Parameter 'sort_by' must be one of %s, %s, %s",
			search.SortRating, search.SortPopularity, search.SortTitle)})
		return
	}
	if err != nil {
		s.engineError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, ok, err := s.Engine.Item(id)
	if err != nil {
		s.engineError(w, err)
		return
	}
	if !ok {
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("Course %q not found", id)})
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.listResponse(w, (*search.Model).Categories)
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	s.listResponse(w, (*search.Model).Platforms)
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	s.listResponse(w, (*search.Model).Levels)
}

func (s *Server) listResponse(w http.ResponseWriter, list func(*search.Model) []string) {
	model := s.Engine.Model()
	if model == nil {
		s.engineError(w, engine.ErrNotReady)
		return
	}
	values := list(model)
	if values == nil {
		values = []string{}
	}
	jsonResponse(w, http.StatusOK, ListResponse{Count: len(values), Values: values})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	model := s.Engine.Model()
	if model == nil {
		s.engineError(w, engine.ErrNotReady)
		return
	}
	jsonResponse(w, http.StatusOK, model.Stats())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.Engine.Status())
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	status, err := s.Engine.Rebuild(r.Context())
	if err != nil {
		s.Logger.WithError(err).Error("Rebuild failed")
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	jsonResponse(w, http.StatusOK, status)
}

// topK reads the k parameter. Missing or non-positive values fall back to
// the configured default and large values are capped.
func (s *Server) topK(r *http.Request) (int, error) {
	ranking := s.Engine.Config.Ranking
	k := ranking.DefaultTopK
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, errors.New("Parameter 'k' must be an integer")
		}
		if parsed > 0 {
			k = parsed
		}
	}
	if ranking.MaxTopK > 0 && k > ranking.MaxTopK {
		k = ranking.MaxTopK
	}
	return k, nil
}

// intParam parses an optional integer, empty means def
func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) engineError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrNotReady) {
		jsonResponse(w, http.StatusServiceUnavailable, ErrorResponse{Error: "Model is not ready"})
		return
	}
	s.Logger.WithError(err).Error("Query failed")
	jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}
