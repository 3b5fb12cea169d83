package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"kepler-clean/internal/cleanup"
	"kepler-clean/internal/config"
	"kepler-clean/internal/database"
	"kepler-clean/internal/disk"
	"kepler-clean/internal/metrics"
	"kepler-clean/internal/safety"
	"kepler-clean/internal/scan"
)

// RunOnce cleans every model set in cfg, in order, stopping at the first error.
// The context is only checked between model sets.
func RunOnce(ctx context.Context, cfg *config.Config, logger *log.Logger, out io.Writer, db *database.DeletionDB) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errors.New("nil config")
	}
	if err := cfg.RequireModelSets(); err != nil {
		return err
	}

	metrics.Init()
	metrics.RecordCleanupRun()
	if cfg.Metrics.TextfilePath != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
				logger.Printf("ERROR: %v", err)
			}
		}()
	}

	updateDiskMetrics(cfg.Root, "before", logger)

	cleaner := cleanup.NewCleaner(scan.NewFinder(cfg.Root), logger, out, db)
	cleaner.SetValidator(safety.NewValidator([]string{cfg.Root}, cfg.ProtectedPaths))

	start := time.Now()
	for _, set := range cfg.ModelSets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		setStart := time.Now()
		logger.Printf("cleaning model set %s (batches %s_*, basename %s)", set.Name, set.BatchBasename, set.Basename)
		if err := cleaner.CleanAllModels(set); err != nil {
			metrics.ErrorsTotal.Inc()
			return fmt.Errorf("model set %s: %w", set.Name, err)
		}
		metrics.CleanupDuration.Observe(time.Since(setStart).Seconds())
	}

	updateDiskMetrics(cfg.Root, "after", logger)

	logger.Printf("run complete: model_sets=%d duration=%.3fs", len(cfg.ModelSets), time.Since(start).Seconds())
	return nil
}

// updateDiskMetrics samples free space of the filesystem holding root
func updateDiskMetrics(root, phase string, logger *log.Logger) {
	u, err := disk.GetUsage(root)
	if err != nil {
		logger.Printf("failed to get disk usage for %s: %v", root, err)
		return
	}
	metrics.UpdateDiskMetrics(root, phase, u)
	logger.Printf("disk usage %s run: %s used=%.1f%% free=%d bytes", phase, root, u.UsedPercent, u.FreeBytes)
}
