// Package metrics exposes Prometheus instrumentation for the search and
// recommendation engine. Metrics are registered on the default registry and
// served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Embedding Metrics
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_requests_total",
			Help: "Total number of embedding requests by result",
		},
		[]string{"result"}, // "ok", "error"
	)

	EmbeddingFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_failures_total",
			Help: "Total number of embedding failures by stage",
		},
		[]string{"stage"}, // "load", "inference", "dimension"
	)

	EmbeddingModelLoads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "embedding_model_loads_total",
			Help: "Total number of successful embedding model loads",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Search Metrics
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "semantic_search_duration_seconds",
			Help:    "Duration of semantic search requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SearchCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "semantic_search_candidates",
			Help:    "Number of embedded products scanned per search",
			Buckets: []float64{0, 10, 100, 500, 1000, 2500, 5000},
		},
	)

	// Recommendation Metrics
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total number of user recommendation requests by path",
		},
		[]string{"path"}, // "cold_start", "hybrid", "category", "degraded"
	)

	GraphUpdateFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_graph_update_failures_total",
			Help: "Total number of co-occurrence graph updates that failed after order completion",
		},
	)

	ActivityWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_write_failures_total",
			Help: "Total number of best-effort activity log writes that failed",
		},
	)
)
