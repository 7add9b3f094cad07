package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for model builds and queries
var (
	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "course_engine_build_duration_seconds",
		Help:    "Time spent building or restoring a model",
		Buckets: prometheus.DefBuckets,
	})

	// buildsTotal counts model publications by source (build, snapshot) and outcome
	buildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_engine_builds_total",
		Help: "Total number of model builds and snapshot restores",
	}, []string{"source", "outcome"})

	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_engine_queries_total",
		Help: "Total number of queries by operation and outcome",
	}, []string{"operation", "outcome"})

	cacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_engine_cache_requests_total",
		Help: "Query result cache lookups",
	}, []string{"result"})

	corpusSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "course_engine_corpus_size",
		Help: "Number of courses in the served model",
	})

	vocabularySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "course_engine_vocabulary_size",
		Help: "Number of vocabulary terms in the served model",
	})
)

const (
	sourceBuild    = "build"
	sourceSnapshot = "snapshot"

	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeStale   = "stale"

	outcomeResults  = "results"
	outcomeEmpty    = "empty"
	outcomeNotReady = "not_ready"
)

func recordQuery(operation string, n int) {
	outcome := outcomeResults
	if n == 0 {
		outcome = outcomeEmpty
	}
	queriesTotal.WithLabelValues(operation, outcome).Inc()
}
