package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	operations       *prometheus.HistogramVec
	operationErrors  *prometheus.CounterVec
	importedRows     *prometheus.CounterVec
	pairsComputed    *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	executionsStored prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		operations: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradelens_operation_duration_seconds",
				Help:    "Duration of journal operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradelens_operation_errors_total",
				Help: "Total number of failed journal operations",
			},
			[]string{"operation"},
		),
		importedRows: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradelens_imported_rows_total",
				Help: "Executions accepted or skipped by CSV import",
			},
			[]string{"outcome"},
		),
		pairsComputed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradelens_pairs_computed_total",
				Help: "Round trips produced by the lot matcher",
			},
			[]string{"method"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradelens_cache_lookups_total",
				Help: "Analytics cache lookups by result",
			},
			[]string{"scope", "result"},
		),
		executionsStored: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradelens_executions_stored",
				Help: "Number of executions currently stored",
			},
		),
	}
}

// RecordOperation records operation latency in seconds.
func (r *Recorder) RecordOperation(op string, seconds float64) {
	r.operations.WithLabelValues(op).Observe(seconds)
}

// RecordOperationError records a failed operation.
func (r *Recorder) RecordOperationError(op string) {
	r.operationErrors.WithLabelValues(op).Inc()
}

// RecordImport records import outcomes.
func (r *Recorder) RecordImport(inserted, duplicates int) {
	r.importedRows.WithLabelValues("inserted").Add(float64(inserted))
	r.importedRows.WithLabelValues("duplicate").Add(float64(duplicates))
}

// RecordPairsComputed records matcher output size per pairing method.
func (r *Recorder) RecordPairsComputed(method string, count int) {
	r.pairsComputed.WithLabelValues(method).Add(float64(count))
}

// RecordCacheHit records an analytics cache hit.
func (r *Recorder) RecordCacheHit(scope string) {
	r.cacheLookups.WithLabelValues(scope, "hit").Inc()
}

// RecordCacheMiss records an analytics cache miss.
func (r *Recorder) RecordCacheMiss(scope string) {
	r.cacheLookups.WithLabelValues(scope, "miss").Inc()
}

// SetExecutionsStored updates the stored executions gauge.
func (r *Recorder) SetExecutionsStored(n int) {
	r.executionsStored.Set(float64(n))
}
