// Package metrics exposes Prometheus instrumentation for the engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal   prometheus.Counter
	SearchDuration  prometheus.Histogram
	CommitsTotal    prometheus.Counter
	RebuildsTotal   prometheus.Counter
	RebuildDuration prometheus.Histogram
	MergesTotal     prometheus.Counter
	DocumentsTotal  prometheus.Gauge
	SegmentsTotal   prometheus.Gauge
}

// New creates the collectors on a private registry so tests can hold several
// instances without duplicate registration panics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		SearchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kensaku_searches_total",
			Help: "Number of search queries evaluated.",
		}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kensaku_search_duration_seconds",
			Help:    "Search latency.",
			Buckets: prometheus.DefBuckets,
		}),
		CommitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kensaku_commits_total",
			Help: "Number of committed segment batches.",
		}),
		RebuildsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kensaku_rebuilds_total",
			Help: "Number of completed corpus rebuilds.",
		}),
		RebuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kensaku_rebuild_duration_seconds",
			Help:    "Full rebuild latency.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		MergesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kensaku_merges_total",
			Help: "Number of segment merges.",
		}),
		DocumentsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kensaku_documents",
			Help: "Documents currently indexed.",
		}),
		SegmentsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kensaku_segments",
			Help: "Live segments.",
		}),
	}
}

// Handler serves the metrics endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
