package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cleanup subsystem metrics
var (
	// CleanupDuration tracks how long cleaning a model set takes
	CleanupDuration prometheus.Histogram

	// BytesFreedTotal tracks total bytes freed across all removals
	BytesFreedTotal prometheus.Counter

	// FilesDeletedTotal tracks removed entries by kind (dump, ascii, log_file, log_dir)
	FilesDeletedTotal *prometheus.CounterVec

	// ModelsCleanedTotal tracks models whose dumps and ASCII logs were cleaned
	ModelsCleanedTotal *prometheus.CounterVec

	// CleanupLastRunTimestamp records Unix timestamp of last run
	CleanupLastRunTimestamp prometheus.Gauge

	// ErrorsTotal tracks errors that aborted a run
	ErrorsTotal prometheus.Counter
)

// initCleanupMetrics initializes all cleanup subsystem metrics
func initCleanupMetrics() {
	CleanupDuration = NewDurationHistogram(
		"keplerclean_cleanup_duration_seconds",
		"Duration of cleaning one model set in seconds.",
	)

	BytesFreedTotal = NewBytesCounter(
		"keplerclean_bytes_freed_total",
		"Total bytes freed by kepler-clean.",
	)

	FilesDeletedTotal = NewCounterVec(
		"keplerclean_files_deleted_total",
		"Total number of entries removed, by kind.",
		[]string{"kind"},
	)

	ModelsCleanedTotal = NewCounterVec(
		"keplerclean_models_cleaned_total",
		"Total number of models cleaned, by model set.",
		[]string{"model_set"},
	)

	CleanupLastRunTimestamp = NewGauge(
		"keplerclean_last_run_timestamp",
		"Timestamp of the last run (Unix epoch seconds).",
	)

	ErrorsTotal = NewCounter(
		"keplerclean_errors_total",
		"Total number of errors that aborted a run.",
	)
}

// registerCleanupMetrics registers all cleanup metrics with Prometheus
func registerCleanupMetrics() {
	prometheus.MustRegister(CleanupDuration)
	prometheus.MustRegister(BytesFreedTotal)
	prometheus.MustRegister(FilesDeletedTotal)
	prometheus.MustRegister(ModelsCleanedTotal)
	prometheus.MustRegister(CleanupLastRunTimestamp)
	prometheus.MustRegister(ErrorsTotal)
}

// RecordCleanupRun updates the last run timestamp to current time
func RecordCleanupRun() {
	CleanupLastRunTimestamp.Set(float64(time.Now().Unix()))
}

// RecordDeletion records one removed entry of the given kind
func RecordDeletion(kind string, bytes int64) {
	FilesDeletedTotal.WithLabelValues(kind).Inc()
	BytesFreedTotal.Add(float64(bytes))
}

// RecordModelCleaned counts one cleaned model of a model set
func RecordModelCleaned(modelSet string) {
	ModelsCleanedTotal.WithLabelValues(modelSet).Inc()
}
