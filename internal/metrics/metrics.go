package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once
)

// Init initializes all metrics subsystems and registers them with Prometheus
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		initCleanupMetrics()
		initDiskMetrics()

		registerCleanupMetrics()
		registerDiskMetrics()

		// Zero values so every series shows up in the textfile even on a run that deleted nothing
		CleanupLastRunTimestamp.Set(0)
		for _, kind := range []string{"dump", "ascii", "log_file", "log_dir"} {
			FilesDeletedTotal.WithLabelValues(kind)
		}
	})
}

// WriteTextfile writes every registered metric to path in the text exposition format
// for the node_exporter textfile collector. The file is replaced atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
