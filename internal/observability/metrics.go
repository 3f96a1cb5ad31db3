// Package observability holds the Prometheus collectors for a pipeline run.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={resolved,unresolved,failed}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}

	// Record metrics.
	RecordsRead     *prometheus.CounterVec // labels: source
	RecordsEnriched *prometheus.CounterVec // labels: outcome
	SourceErrors    *prometheus.CounterVec // labels: source
	RowsWritten     *prometheus.CounterVec // labels: output
}

func newCollectors(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cannabis_pipeline",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cannabis_pipeline",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cannabis_pipeline",
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		RecordsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cannabis_pipeline",
			Name:      "records_read_total",
			Help:      "Raw rows read per source.",
		}, []string{"source"}),
		RecordsEnriched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cannabis_pipeline",
			Name:      "records_enriched_total",
			Help:      "Store records by final enrichment outcome.",
		}, []string{"outcome"}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cannabis_pipeline",
			Name:      "source_errors_total",
			Help:      "Sources skipped because of read or configuration errors.",
		}, []string{"source"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cannabis_pipeline",
			Name:      "rows_written_total",
			Help:      "Rows written per output artifact.",
		}, []string{"output"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.GeocodeRequests,
			m.GeocodeCache,
			m.GeocodeAPIDuration,
			m.RecordsRead,
			m.RecordsEnriched,
			m.SourceErrors,
			m.RowsWritten,
		)
	}
	return m
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return newCollectors(prometheus.DefaultRegisterer)
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newCollectors(nil)
}

// GeocodeRequest records one remote lookup and its latency.
func (m *Metrics) GeocodeRequest(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.GeocodeRequests.WithLabelValues(method, outcome).Inc()
	m.GeocodeAPIDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// GeocodeCacheLookup records a cache hit or miss.
func (m *Metrics) GeocodeCacheLookup(method string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.GeocodeCache.WithLabelValues(method, result).Inc()
}

// SourceRead records rows read for a source.
func (m *Metrics) SourceRead(source string, rows int) {
	if m == nil {
		return
	}
	m.RecordsRead.WithLabelValues(source).Add(float64(rows))
}

// SourceFailed records a skipped source.
func (m *Metrics) SourceFailed(source string) {
	if m == nil {
		return
	}
	m.SourceErrors.WithLabelValues(source).Inc()
}

// RecordOutcome records the final enrichment outcome of a store record.
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.RecordsEnriched.WithLabelValues(outcome).Inc()
}

// OutputWritten records rows written to an output artifact.
func (m *Metrics) OutputWritten(output string, rows int) {
	if m == nil {
		return
	}
	m.RowsWritten.WithLabelValues(output).Add(float64(rows))
}
