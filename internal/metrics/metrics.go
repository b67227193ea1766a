package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Search and indexing Prometheus metrics.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "treesearch",
			Name:      "backend_requests_total",
			Help:      "Total number of requests sent to Elasticsearch",
		},
		[]string{"operation", "status"}, // operation: search / count, status: ok / error
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "treesearch",
			Name:      "backend_request_duration_seconds",
			Help:      "Elasticsearch request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	IndexedDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "treesearch",
			Name:      "indexed_documents_total",
			Help:      "Total number of documents handed to the bulk indexer",
		},
		[]string{"action", "status"},
	)

	IndexBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "treesearch",
			Name:      "index_build_duration_seconds",
			Help:      "Duration of a full index build in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)
)

// Register registers all treesearch metrics with reg. Registering the same
// collectors with a registry twice is not an error.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		BackendRequestsTotal,
		BackendRequestDuration,
		IndexedDocumentsTotal,
		IndexBuildDuration,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Status returns the status label for err.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
