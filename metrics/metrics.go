package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments of the adaptive layer
type Metrics struct {
	Registry *prometheus.Registry

	QueriesProcessed       *prometheus.CounterVec
	OutcomesRecorded       *prometheus.CounterVec
	AdaptiveUpdateFailures *prometheus.CounterVec
	RelationshipsByEvent   *prometheus.CounterVec
	EdgesDecayed           prometheus.Counter
	OutcomesPruned         prometheus.Counter
	RetrievalDuration      *prometheus.HistogramVec
}

// New creates the metric set on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		QueriesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "metagraph_queries_processed_total",
			Help: "Queries processed by the orchestrator, by classified type.",
		}, []string{"query_type"}),
		OutcomesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "metagraph_outcomes_recorded_total",
			Help: "Retrieval outcomes appended to the outcome store.",
		}, []string{"method", "success"}),
		AdaptiveUpdateFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "metagraph_adaptive_update_failures_total",
			Help: "Background adaptive updates that failed, by stage.",
		}, []string{"stage"}),
		RelationshipsByEvent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "metagraph_relationships_total",
			Help: "Latent relationship lifecycle events.",
		}, []string{"event"}),
		EdgesDecayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "metagraph_edges_decayed_total",
			Help: "Edges touched by recency decay sweeps.",
		}),
		OutcomesPruned: factory.NewCounter(prometheus.CounterOpts{
			Name: "metagraph_outcomes_pruned_total",
			Help: "Outcomes removed by retention pruning.",
		}),
		RetrievalDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "metagraph_retrieval_duration_seconds",
			Help:    "End-to-end retrieval duration, by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}
