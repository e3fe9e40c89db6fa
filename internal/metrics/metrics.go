// Package metrics provides Prometheus metrics for icecat components.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var registerOnce sync.Once

const (
	// Namespace is the Prometheus namespace for all icecat metrics.
	Namespace = "icecat"

	// Subsystem constants for metric organization.
	SubsystemAPI     = "api"
	SubsystemCatalog = "catalog"
)

// Label constants for consistent labeling across metrics.
const (
	LabelEndpoint  = "endpoint"
	LabelMethod    = "method"
	LabelStatus    = "status"
	LabelNamespace = "namespace"
	LabelTable     = "table"
	LabelResult    = "result"
)

var (
	// API Metrics

	// APIRequestsTotal counts the total number of API requests.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemAPI,
			Name:      "requests_total",
			Help:      "Total number of API requests",
		},
		[]string{LabelEndpoint, LabelMethod, LabelStatus},
	)

	// APIRequestDuration tracks the duration of API requests.
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemAPI,
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{LabelEndpoint, LabelMethod},
	)

	// APIRequestSize tracks the size of API request bodies.
	APIRequestSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemAPI,
			Name:      "request_size_bytes",
			Help:      "Size of API request bodies in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6), // 100B to 10MB
		},
		[]string{LabelEndpoint, LabelMethod},
	)

	// Catalog Metrics

	// CatalogCommitsTotal counts table commits by outcome.
	CatalogCommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemCatalog,
			Name:      "commits_total",
			Help:      "Total number of table commits by result",
		},
		[]string{LabelResult},
	)

	// CatalogCommitDuration tracks the duration of table commits.
	CatalogCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemCatalog,
			Name:      "commit_duration_seconds",
			Help:      "Duration of table commits in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// CatalogTableLoadsTotal counts table loads by cache outcome.
	CatalogTableLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemCatalog,
			Name:      "table_loads_total",
			Help:      "Total number of table loads by result (full, cached, not_modified)",
		},
		[]string{LabelResult},
	)

	// allMetrics contains all metrics for registration.
	allMetrics = []prometheus.Collector{
		APIRequestsTotal,
		APIRequestDuration,
		APIRequestSize,
		CatalogCommitsTotal,
		CatalogCommitDuration,
		CatalogTableLoadsTotal,
	}
)

// Register registers all metrics with the default Prometheus registry.
// It is safe to call multiple times; registration happens once.
func Register() {
	registerOnce.Do(func() {
		for _, m := range allMetrics {
			prometheus.MustRegister(m)
		}
	})
}

// RegisterWith registers all icecat metrics with the given registry.
func RegisterWith(reg prometheus.Registerer) {
	for _, m := range allMetrics {
		reg.MustRegister(m)
	}
}

// NewRegistry creates a new Prometheus registry with all icecat metrics and
// standard Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()

	// Register standard collectors
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Register icecat metrics
	RegisterWith(reg)

	return reg
}
