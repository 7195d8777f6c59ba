package metrics

import "github.com/prometheus/client_golang/prometheus"

// Classifier, store and recommendation metrics.
var (
	ClassifierRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "classifier_requests_total",
			Help:      "Persona classifier calls by outcome",
		},
		[]string{"status"},
	)

	ClassifierRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "classifier_request_duration_seconds",
			Help:      "Persona classifier latency in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	VectorBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "vector_batches_total",
			Help:      "Vector upsert batches by backend and status",
		},
		[]string{"backend", "status"},
	)

	VectorBatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "vector_batch_duration_seconds",
			Help:      "Vector upsert batch latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend"},
	)

	GraphWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "graph_writes_total",
			Help:      "Venue statement groups written to the graph by status",
		},
		[]string{"status"},
	)

	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation queries by outcome",
		},
		[]string{"status"},
	)

	RecommendationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "recommendation_duration_seconds",
			Help:      "End-to-end recommendation latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	StoreDivergenceTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "store_divergence_total",
			Help:      "Vector matches with no venue in the graph",
		},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	IngestUnitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ingest_units_total",
			Help:      "Ingest units by step and status",
		},
		[]string{"step", "status"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Call once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		ClassifierRequestsTotal,
		ClassifierRequestDuration,
		VectorBatchesTotal,
		VectorBatchDuration,
		GraphWritesTotal,
		RecommendationsTotal,
		RecommendationDuration,
		StoreDivergenceTotal,
		BreakerState,
		IngestUnitsTotal,
	)
	pipelineMetricsRegistered = true
}
