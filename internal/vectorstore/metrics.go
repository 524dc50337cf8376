package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// chunksStoredTotal counts chunks persisted via StoreChunks.
	chunksStoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "flexicli",
			Subsystem: "vectorstore",
			Name:      "chunks_stored_total",
			Help:      "Total number of chunks persisted to the vector store",
		},
	)

	// searchesTotal counts SearchTopK calls by outcome.
	// Labels: result (ranked, degraded, empty)
	searchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flexicli",
			Subsystem: "vectorstore",
			Name:      "searches_total",
			Help:      "Total number of SearchTopK calls by outcome",
		},
		[]string{"result"},
	)

	// searchDuration tracks SearchTopK latency.
	searchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "flexicli",
			Subsystem: "vectorstore",
			Name:      "search_duration_seconds",
			Help:      "Duration of SearchTopK calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func recordSearch(results []SearchResult, degraded bool) {
	switch {
	case degraded:
		searchesTotal.WithLabelValues("degraded").Inc()
	case len(results) == 0:
		searchesTotal.WithLabelValues("empty").Inc()
	default:
		searchesTotal.WithLabelValues("ranked").Inc()
	}
}
