// Package metrics provides Prometheus metrics for the factor panel pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace string
	subsystem string
	registry  prometheus.Registerer

	// Ingestion and data quality
	eventsIngested     prometheus.Counter
	coercionFailures   *prometheus.CounterVec
	duplicateKeys      *prometheus.CounterVec
	insufficientSlices *prometheus.CounterVec

	// Panel construction
	factorRows    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec

	// Factor library
	libraryMerges       *prometheus.CounterVec
	libraryRecords      *prometheus.GaugeVec
	libraryWriteLatency prometheus.Histogram

	// Backtest
	backtestBets   *prometheus.CounterVec
	backtestProfit *prometheus.GaugeVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

// latencyBuckets spans a single-division stage up to a full rebuild, in
// milliseconds.
var latencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // fixed buckets

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "panelfactor",
		subsystem: "pipeline",
		registry:  prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.eventsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_ingested_total",
		Help:      "Total number of raw events read from the ingestion table",
	})

	m.coercionFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "coercion_failures_total",
			Help:      "Raw values that could not be coerced to numbers and became missing",
		},
		[]string{"field"},
	)

	m.duplicateKeys = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "duplicate_keys_total",
			Help:      "Duplicate record keys detected (data integrity violations)",
		},
		[]string{"division"},
	)

	m.insufficientSlices = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "insufficient_slices_total",
			Help:      "Slices skipped for having too few observations",
		},
		[]string{"component"},
	)

	m.factorRows = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "factor_rows_total",
			Help:      "Factor records produced by the panel builder",
		},
		[]string{"factor"},
	)

	m.stageDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "stage_duration_milliseconds",
			Help:      "Duration of pipeline stages in milliseconds",
			Buckets:   latencyBuckets,
		},
		[]string{"stage"},
	)

	m.libraryMerges = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "library_writes_total",
			Help:      "Factor library writes by mode (create, merge, replace, delete)",
		},
		[]string{"mode"},
	)

	m.libraryRecords = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "library_records",
			Help:      "Records held in a division's factor library after the last write",
		},
		[]string{"division"},
	)

	m.libraryWriteLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "library_write_latency_milliseconds",
		Help:      "Factor library read-modify-write latency in milliseconds",
		Buckets:   latencyBuckets,
	})

	m.backtestBets = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "backtest_bets_total",
			Help:      "Bets evaluated by the backtester",
		},
		[]string{"factor"},
	)

	m.backtestProfit = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "backtest_profit",
			Help:      "Total profit of the last backtest run",
		},
		[]string{"factor"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)
}

// RecordEventsIngested adds n to the ingested events counter.
func RecordEventsIngested(n int) {
	globalManager.eventsIngested.Add(float64(n))
}

// RecordCoercionFailure counts a raw value that became missing.
func RecordCoercionFailure(field string) {
	globalManager.coercionFailures.WithLabelValues(field).Inc()
}

// RecordDuplicateKey counts a data integrity violation.
func RecordDuplicateKey(division string) {
	globalManager.duplicateKeys.WithLabelValues(division).Inc()
}

// RecordInsufficientSlice counts a slice skipped for lack of observations.
func RecordInsufficientSlice(component string) {
	globalManager.insufficientSlices.WithLabelValues(component).Inc()
}

// RecordFactorRows adds n produced rows for a factor.
func RecordFactorRows(factor string, n int) {
	globalManager.factorRows.WithLabelValues(factor).Add(float64(n))
}

// RecordStageDuration records how long a pipeline stage took.
func RecordStageDuration(stage string, durationMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// RecordLibraryWrite counts a library write for the given mode.
func RecordLibraryWrite(mode string) {
	globalManager.libraryMerges.WithLabelValues(mode).Inc()
}

// UpdateLibraryRecords sets the record count of a division store.
func UpdateLibraryRecords(division string, count int) {
	globalManager.libraryRecords.WithLabelValues(division).Set(float64(count))
}

// RecordLibraryWriteLatency records a library read-modify-write latency.
func RecordLibraryWriteLatency(latencyMs float64) {
	globalManager.libraryWriteLatency.Observe(latencyMs)
}

// RecordBacktestBets adds n evaluated bets for a factor.
func RecordBacktestBets(factor string, n int) {
	globalManager.backtestBets.WithLabelValues(factor).Add(float64(n))
}

// UpdateBacktestProfit sets the total profit of the last run for a factor.
func UpdateBacktestProfit(factor string, profit float64) {
	globalManager.backtestProfit.WithLabelValues(factor).Set(profit)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// Configure rebuilds the global manager on a fresh registry, e.g. with the
// configured namespace. Metrics recorded before the call are dropped.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(registry)}, opts...)...)
	customRegistry = registry
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile dumps the registry in text exposition format, for pickup
// by a node exporter textfile collector after a batch run.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}
