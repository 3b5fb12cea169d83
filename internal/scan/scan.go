package scan

import (
	"fmt"
	"path/filepath"
)

// DefaultBasename is the model and dump file prefix written by the simulator
const DefaultBasename = "xrb"

// logDirName is the per-batch directory holding job logs
const logDirName = "logs"

// Finder resolves the on-disk naming convention under a root directory:
//
//	<root>/<model_set>/<batch_basename>_<n>/<basename><id>/<basename><id>#<dump>
//	<root>/<model_set>/<batch_basename>_<n>/<basename><id>/<basename><id>*_*0
//	<root>/<model_set>/<batch_basename>_<n>/logs/
//
// Patterns that match nothing yield empty lists, not errors.
type Finder struct {
	root string
}

// NewFinder creates a Finder rooted at root
func NewFinder(root string) *Finder {
	return &Finder{root: filepath.Clean(root)}
}

// Root returns the directory all model sets live under
func (f *Finder) Root() string {
	return f.root
}

// BatchPattern returns the glob for the batches of a model set.
// An empty batchBasename defaults to the model set name.
func (f *Finder) BatchPattern(modelSet, batchBasename string) string {
	if batchBasename == "" {
		batchBasename = modelSet
	}
	return filepath.Join(f.root, modelSet, batchBasename+"_*")
}

// BatchPaths lists batch directories of a model set
func (f *Finder) BatchPaths(modelSet, batchBasename string) ([]string, error) {
	return glob(f.BatchPattern(modelSet, batchBasename))
}

// ModelPaths lists model directories in a batch
func (f *Finder) ModelPaths(batchPath, basename string) ([]string, error) {
	return glob(filepath.Join(batchPath, withDefault(basename)+"*"))
}

// FullModelPaths lists every model of every batch, in batch discovery order
func (f *Finder) FullModelPaths(modelSet, basename, batchBasename string) ([]string, error) {
	batches, err := f.BatchPaths(modelSet, batchBasename)
	if err != nil {
		return nil, err
	}

	models := make([]string, 0)
	for _, batch := range batches {
		found, err := f.ModelPaths(batch, basename)
		if err != nil {
			return nil, err
		}
		models = append(models, found...)
	}
	return models, nil
}

// DumpPaths lists dump files in a model directory
func (f *Finder) DumpPaths(modelPath, basename string) ([]string, error) {
	return glob(filepath.Join(modelPath, withDefault(basename)+"*#*"))
}

// ASCIIPaths lists ASCII log files in a model directory
func (f *Finder) ASCIIPaths(modelPath, basename string) ([]string, error) {
	return glob(filepath.Join(modelPath, withDefault(basename)+"*_*0"))
}

// LogDirPaths lists the existing logs directories of every batch in a model set
func (f *Finder) LogDirPaths(modelSet, batchBasename string) ([]string, error) {
	batches, err := f.BatchPaths(modelSet, batchBasename)
	if err != nil {
		return nil, err
	}

	logDirs := make([]string, 0)
	for _, batch := range batches {
		found, err := glob(filepath.Join(batch, logDirName))
		if err != nil {
			return nil, err
		}
		logDirs = append(logDirs, found...)
	}
	return logDirs, nil
}

// LogDirEntries lists every direct child of a log directory
func (f *Finder) LogDirEntries(logDir string) ([]string, error) {
	return glob(filepath.Join(logDir, "*"))
}

func glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	if matches == nil {
		return []string{}, nil
	}
	return matches, nil
}

func withDefault(basename string) string {
	if basename == "" {
		return DefaultBasename
	}
	return basename
}
