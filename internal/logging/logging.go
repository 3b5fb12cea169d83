package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kepler-clean/internal/config"
)

const logFile = "kepler-clean.log"

// NewTo creates a logger writing to console and, when cfg.Logging.Dir is set,
// to a log file in that directory rotated after cfg.Logging.RotationDays.
// A nil cfg logs to console only.
func NewTo(console io.Writer, cfg *config.Config) *log.Logger {
	flags := log.LstdFlags | log.Lmicroseconds
	consoleOnly := log.New(console, "", flags)
	if cfg == nil || cfg.Logging.Dir == "" {
		return consoleOnly
	}

	logDir := cfg.Logging.Dir
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		consoleOnly.Printf("failed to ensure log directory %s: %v", logDir, err)
		return consoleOnly
	}

	filePath := filepath.Join(logDir, logFile)

	rotateDays := 30
	if cfg.Logging.RotationDays > 0 {
		rotateDays = cfg.Logging.RotationDays
	}
	rotateLogsIfNeeded(filePath, rotateDays, time.Now())

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		consoleOnly.Printf("failed to open log file %s: %v", filePath, err)
		return consoleOnly
	}

	mw := io.MultiWriter(console, f)
	return log.New(mw, "", flags)
}

// rotateLogsIfNeeded renames the log file once it is older than rotationDays
func rotateLogsIfNeeded(logPath string, rotationDays int, now time.Time) {
	info, err := os.Stat(logPath)
	if err != nil {
		// Nothing to rotate yet
		return
	}

	cutoffTime := now.AddDate(0, 0, -rotationDays)
	if info.ModTime().Before(cutoffTime) {
		timestamp := info.ModTime().Format("20060102-150405")
		rotatedPath := logPath + "." + timestamp

		if err := os.Rename(logPath, rotatedPath); err != nil {
			log.Printf("failed to rotate log file: %v", err)
			return
		}

		cleanupOldLogs(logPath, rotationDays, now)
	}
}

// cleanupOldLogs removes rotated log files older than rotation days
func cleanupOldLogs(logPath string, rotationDays int, now time.Time) {
	logDir := filepath.Dir(logPath)
	baseName := filepath.Base(logPath)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	cutoffTime := now.AddDate(0, 0, -rotationDays)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasPrefix(name, baseName+".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			fullPath := filepath.Join(logDir, name)
			if err := os.Remove(fullPath); err != nil {
				log.Printf("failed to remove old log file %s: %v", fullPath, err)
			}
		}
	}
}
