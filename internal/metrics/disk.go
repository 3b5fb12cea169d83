package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"kepler-clean/internal/disk"
)

// Disk metrics for the models root
var (
	// RootFreeBytes tracks free space on the filesystem holding the root, sampled before and after a run
	RootFreeBytes *prometheus.GaugeVec

	// RootTotalBytes tracks total capacity of the filesystem holding the root
	RootTotalBytes *prometheus.GaugeVec

	// RootUsedPercent tracks used percentage of the filesystem holding the root
	RootUsedPercent *prometheus.GaugeVec
)

func initDiskMetrics() {
	RootFreeBytes = NewSizeGaugeVec(
		"keplerclean_root_free_bytes",
		"Free space on the filesystem holding the models root.",
		[]string{"root", "phase"},
	)

	RootTotalBytes = NewSizeGaugeVec(
		"keplerclean_root_total_bytes",
		"Total capacity of the filesystem holding the models root.",
		[]string{"root"},
	)

	RootUsedPercent = NewSizeGaugeVec(
		"keplerclean_root_used_percent",
		"Used percentage of the filesystem holding the models root.",
		[]string{"root", "phase"},
	)
}

func registerDiskMetrics() {
	prometheus.MustRegister(RootFreeBytes)
	prometheus.MustRegister(RootTotalBytes)
	prometheus.MustRegister(RootUsedPercent)
}

// UpdateDiskMetrics records a usage sample for root; phase is "before" or "after"
func UpdateDiskMetrics(root, phase string, u disk.Usage) {
	RootFreeBytes.WithLabelValues(root, phase).Set(float64(u.FreeBytes))
	RootUsedPercent.WithLabelValues(root, phase).Set(u.UsedPercent)
	RootTotalBytes.WithLabelValues(root).Set(float64(u.TotalBytes))
}
