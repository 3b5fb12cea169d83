package cleanup

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"kepler-clean/internal/config"
	"kepler-clean/internal/database"
	"kepler-clean/internal/fsops"
	"kepler-clean/internal/metrics"
	"kepler-clean/internal/safety"
	"kepler-clean/internal/scan"
)

// separator frames the log-directory phase in progress output
var separator = strings.Repeat("=", 20)

// CleanupLogger interface for structured logging in cleanup
type CleanupLogger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// cleanupStdLogger wraps standard log.Logger to implement CleanupLogger interface
type cleanupStdLogger struct {
	*log.Logger
}

func (l *cleanupStdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *cleanupStdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *cleanupStdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Metrics receives one call per removed entry and per cleaned model
type Metrics interface {
	RecordDeletion(kind string, bytes int64)
	RecordModelCleaned(modelSet string)
}

// cleanupMetrics forwards to the global Prometheus metrics
type cleanupMetrics struct{}

func (cleanupMetrics) RecordDeletion(kind string, bytes int64) {
	metrics.RecordDeletion(kind, bytes)
}

func (cleanupMetrics) RecordModelCleaned(modelSet string) {
	metrics.RecordModelCleaned(modelSet)
}

// Cleaner removes intermediate dumps, ASCII logs and log directories of model sets.
// Every error is returned to the caller at once; nothing is retried or skipped.
type Cleaner struct {
	finder    *scan.Finder
	logger    CleanupLogger
	out       io.Writer // Progress lines
	deleter   fsops.Deleter
	validator *safety.Validator
	metrics   Metrics
	db        *database.DeletionDB // Optional deletion history
}

// NewCleaner creates a Cleaner over finder's root. Progress goes to out, diagnostics to logger.
func NewCleaner(finder *scan.Finder, logger *log.Logger, out io.Writer, db *database.DeletionDB) *Cleaner {
	metrics.Init()

	cleanupLogger := &cleanupStdLogger{Logger: logger}
	if logger == nil {
		cleanupLogger.Logger = log.Default()
	}
	if out == nil {
		out = io.Discard
	}
	return &Cleaner{
		finder:    finder,
		logger:    cleanupLogger,
		out:       out,
		deleter:   fsops.OSDeleter{},
		validator: safety.NewValidator([]string{finder.Root()}, nil),
		metrics:   cleanupMetrics{},
		db:        db,
	}
}

// SetDeleter replaces the filesystem deleter
func (c *Cleaner) SetDeleter(d fsops.Deleter) {
	c.deleter = d
}

// SetValidator replaces the delete target validator
func (c *Cleaner) SetValidator(v *safety.Validator) {
	c.validator = v
}

// SetMetrics replaces the metrics sink
func (c *Cleaner) SetMetrics(m Metrics) {
	c.metrics = m
}

// CleanAllModels removes every log directory of the model set, then the
// intermediate dumps and the ASCII logs of every model
func (c *Cleaner) CleanAllModels(set config.ModelSet) error {
	models, err := c.finder.FullModelPaths(set.Name, set.Basename, set.BatchBasename)
	if err != nil {
		return err
	}
	c.logger.Info("Starting cleanup", "model_set", set.Name, "models", len(models))

	fmt.Fprintln(c.out, separator)
	if err := c.CleanAllLogs(set); err != nil {
		return err
	}
	fmt.Fprintln(c.out, separator)

	for _, modelPath := range models {
		if err := c.CleanModelDumpfiles(set, modelPath); err != nil {
			return err
		}
		if err := c.CleanModelASCII(set, modelPath); err != nil {
			return err
		}
		c.metrics.RecordModelCleaned(set.Name)
		fmt.Fprintf(c.out, "Cleaned: %s\n", modelPath)
	}

	fmt.Fprintf(c.out, "Finished cleaning %d models\n", len(models))
	c.logger.Info("Cleanup complete", "model_set", set.Name, "models", len(models))
	return nil
}

// CleanModelDumpfiles removes all dumps of a model except the first and last by index
func (c *Cleaner) CleanModelDumpfiles(set config.ModelSet, modelPath string) error {
	paths, err := c.finder.DumpPaths(modelPath, set.Basename)
	if err != nil {
		return err
	}
	dumps, err := scan.SortDumps(paths)
	if err != nil {
		return err
	}

	model := scan.ModelName(modelPath)
	indices := scan.Indices(dumps)
	c.logger.Info("Dumps found", "model", model, "indices", indices, "removing", scan.IntermediateIndices(indices))

	for _, d := range scan.Intermediate(dumps) {
		if d.Path != scan.DumpPath(modelPath, d.Index) {
			c.logger.Info("Dump name differs from model directory", "path", d.Path, "expected", scan.DumpPath(modelPath, d.Index))
		}
		index := d.Index
		target := scan.Target{
			Path:      d.Path,
			Kind:      scan.KindDump,
			ModelSet:  set.Name,
			Model:     model,
			DumpIndex: &index,
		}
		if err := c.remove(target); err != nil {
			return err
		}
	}
	return nil
}

// CleanModelASCII removes every ASCII log file of a model
func (c *Cleaner) CleanModelASCII(set config.ModelSet, modelPath string) error {
	paths, err := c.finder.ASCIIPaths(modelPath, set.Basename)
	if err != nil {
		return err
	}

	model := scan.ModelName(modelPath)
	for _, p := range paths {
		target := scan.Target{Path: p, Kind: scan.KindASCII, ModelSet: set.Name, Model: model}
		if err := c.remove(target); err != nil {
			return err
		}
	}
	return nil
}

// CleanAllLogs empties and removes every log directory of the model set
func (c *Cleaner) CleanAllLogs(set config.ModelSet) error {
	logDirs, err := c.finder.LogDirPaths(set.Name, set.BatchBasename)
	if err != nil {
		return err
	}

	for _, logDir := range logDirs {
		if err := c.CleanLogDir(set, logDir); err != nil {
			return err
		}
	}
	return nil
}

// CleanLogDir removes every direct child of logDir as a file, then logDir itself.
// A child directory fails the removal and logDir is left in place.
// A logDir that no longer exists is an error.
func (c *Cleaner) CleanLogDir(set config.ModelSet, logDir string) error {
	entries, err := c.finder.LogDirEntries(logDir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := c.remove(scan.Target{Path: e, Kind: scan.KindLogFile, ModelSet: set.Name}); err != nil {
			return err
		}
	}

	if err := c.remove(scan.Target{Path: logDir, Kind: scan.KindLogDir, ModelSet: set.Name}); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Removed: %s\n", logDir)
	return nil
}

// remove validates and deletes one target, recording the outcome
func (c *Cleaner) remove(t scan.Target) error {
	if err := c.validator.ValidateDeleteTarget(t.Path); err != nil {
		c.logger.Error("Refusing to delete", "path", t.Path, "error", err)
		return err
	}

	if info, err := os.Lstat(t.Path); err == nil && !info.IsDir() {
		t.Size = info.Size()
	}

	var err error
	if t.IsDir() {
		err = c.deleter.RemoveDir(t.Path)
	} else {
		err = c.deleter.RemoveFile(t.Path)
	}
	if err != nil {
		c.logger.Error("Failed to delete", "path", t.Path, "error", err)
		c.record(database.ActionError, t, err.Error())
		return err
	}

	c.logStructured(database.ActionDelete, t)
	c.record(database.ActionDelete, t, "")
	c.metrics.RecordDeletion(string(t.Kind), t.Size)
	return nil
}

// record writes to the deletion history; failures are logged, never returned
func (c *Cleaner) record(action string, t scan.Target, errMsg string) {
	if c.db == nil {
		return
	}
	if err := c.db.RecordDeletion(action, t, errMsg); err != nil {
		c.logger.Error("Failed to record to database", "path", t.Path, "error", err)
	}
}

// logStructured logs with structured format: timestamp, action, path, object type, size, model
func (c *Cleaner) logStructured(action string, t scan.Target) {
	logEntry := fmt.Sprintf("[%s] %s path=%s object=%s size=%d model_set=%s",
		time.Now().UTC().Format(time.RFC3339),
		action,
		t.Path,
		t.Kind,
		t.Size,
		t.ModelSet,
	)
	if t.Model != "" {
		logEntry += " model=" + t.Model
	}
	if t.DumpIndex != nil {
		logEntry += fmt.Sprintf(" dump=%d", *t.DumpIndex)
	}

	c.logger.Info(logEntry)
}
