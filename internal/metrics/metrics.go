// Package metrics exposes prometheus counters/histograms for the query
// surface and the import loop, grounded on the teacher's
// internal/metrics package (same registry-of-collectors shape, wired
// into the middleware stack and the importer instead of the teacher's
// ingest/geocode jobs).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector Tomato registers. A single instance is
// constructed at process startup and threaded into the HTTP middleware
// and the import orchestrator.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ImportRunsTotal      *prometheus.CounterVec
	ImportRootsTotal     *prometheus.CounterVec
	ImportProblemsTotal  prometheus.Counter
	ImportDuration       prometheus.Histogram
}

// New registers every collector against a fresh registry and returns
// both. Tests construct their own registry so repeated NewRouter calls
// in one process (table-driven handler tests) don't panic on duplicate
// registration.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tomato_http_requests_total",
			Help: "Count of client_interface requests by switcher, format, and status class.",
		}, []string{"switcher", "format", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tomato_http_request_duration_seconds",
			Help:    "Latency of client_interface requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"switcher", "format"}),
		ImportRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tomato_import_runs_total",
			Help: "Count of RunAll passes by outcome (success/partial/failed).",
		}, []string{"outcome"}),
		ImportRootsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tomato_import_roots_total",
			Help: "Count of per-root import attempts by outcome.",
		}, []string{"outcome"}),
		ImportProblemsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tomato_import_problems_total",
			Help: "Count of ImportProblem rows recorded across all roots.",
		}),
		ImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tomato_import_run_duration_seconds",
			Help:    "Wall-clock duration of a full RunAll pass.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	return m, reg
}

// Handler exposes the registry at the conventional /metrics path.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
