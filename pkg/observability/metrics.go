// Package observability groups the Prometheus instruments exposed by the
// recall API server.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Ingests          *prometheus.CounterVec
	Retrievals       *prometheus.CounterVec
	Forgets          *prometheus.CounterVec
	IngestedRecords  prometheus.Counter
	RetrievalLatency prometheus.Histogram
}

// NewMetrics registers and returns the service instruments. Call once per
// process; promauto registers on the default registry.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Ingests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingests_total",
			Help:      "Ingest operations by outcome.",
		}, []string{"outcome"}),
		Retrievals: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Retrieve operations by outcome.",
		}, []string{"outcome"}),
		Forgets: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forgets_total",
			Help:      "Forget operations by outcome.",
		}, []string{"outcome"}),
		IngestedRecords: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_records_total",
			Help:      "Total records written to the vector index.",
		}),
		RetrievalLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_latency_ms",
			Help:      "Retrieve latency in milliseconds, embedding included.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
}

// ObserveRetrievalLatency records one retrieve duration.
func (m *Metrics) ObserveRetrievalLatency(d time.Duration) {
	m.RetrievalLatency.Observe(float64(d.Milliseconds()))
}

// MetricsHandler returns the Prometheus scrape handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
