package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/course-engine/backend/internal/engine"
)

type Server struct {
	Engine *engine.Engine
	Logger *logrus.Entry
	Router *chi.Mux

	httpServer *http.Server
}

func NewServer(eng *engine.Engine, logger *logrus.Entry) *Server {
	s := &Server{
		Engine: eng,
		Logger: logger.WithField("component", "api"),
		Router: chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.Use(chimiddleware.RequestID)
	s.Router.Use(chimiddleware.RealIP)
	s.Router.Use(s.requestLogger)
	s.Router.Use(chimiddleware.Recoverer)

	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Route("/courses", func(r chi.Router) {
			r.Get("/", s.handleBrowse)
			r.Get("/popular", s.handlePopular)
			r.Get("/{id}", s.handleCourse)
			r.Get("/{id}/similar", s.handleSimilar)
		})
		r.Get("/categories", s.handleCategories)
		r.Get("/platforms", s.handlePlatforms)
		r.Get("/levels", s.handleLevels)
		r.Get("/stats", s.handleStats)
		r.Get("/status", s.handleStatus)
		r.Post("/rebuild", s.handleRebuild)
	})

	s.Router.Handle("/metrics", promhttp.Handler())
}

// Start serves until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Logger.Infof("Starting API Server on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown waits for in-flight requests to finish
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.Logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": chimiddleware.GetReqID(r.Context()),
		}).Debug("Request served")
	})
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		code = http.StatusInternalServerError
		response = []byte(`{"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
