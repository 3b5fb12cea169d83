package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"kepler-clean/internal/safety"
	"kepler-clean/internal/scan"
)

// RootEnvVar names the environment variable holding the root of all model sets
const RootEnvVar = "KEPLER_MODELS"

// DefaultBasename is the model and dump file prefix written by the simulator
const DefaultBasename = scan.DefaultBasename

type ModelSet struct {
	Name          string `yaml:"name" json:"name"`
	BatchBasename string `yaml:"batch_basename" json:"batch_basename"` // Defaults to Name
	Basename      string `yaml:"basename" json:"basename"`             // Defaults to "xrb"
}

type LoggingCfg struct {
	Dir          string `yaml:"dir" json:"dir"`                     // Empty logs to stderr only
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type MetricsCfg struct {
	TextfilePath string `yaml:"textfile_path" json:"textfile_path"` // node_exporter textfile collector target
}

type Config struct {
	Root           string     `yaml:"-" json:"root"` // Always taken from KEPLER_MODELS
	ModelSets      []ModelSet `yaml:"model_sets" json:"model_sets"`
	Logging        LoggingCfg `yaml:"logging" json:"logging"`
	DatabasePath   string     `yaml:"database_path" json:"database_path"` // Path to SQLite database for deletion history
	Metrics        MetricsCfg `yaml:"metrics" json:"metrics"`
	ProtectedPaths []string   `yaml:"protected_paths" json:"protected_paths"`
}

var (
	ErrRootNotSet       = errors.New(RootEnvVar + " is not set")
	ErrRootNotAbsolute  = errors.New(RootEnvVar + " must be an absolute path")
	ErrNoModelSets      = errors.New("no model sets to clean")
	ErrRootProtected    = errors.New(RootEnvVar + " lies under a protected path")
	errEmptyModelSet    = errors.New("model set name cannot be empty")
	errNegativeRotation = errors.New("rotation_days cannot be negative")
)

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// Load reads the config file at path (optional, "" skips it) and the root from the environment
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup
func LoadWithEnv(path string, lookup LookupFunc) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		cfg, err = decode(f)
		if err != nil {
			return nil, err
		}
	}

	root, err := RootFromEnv(lookup)
	if err != nil {
		return nil, err
	}
	cfg.Root = root

	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RootFromEnv returns the cleaned, absolute root of all model sets
func RootFromEnv(lookup LookupFunc) (string, error) {
	v, ok := lookup(RootEnvVar)
	if !ok || strings.TrimSpace(v) == "" {
		return "", ErrRootNotSet
	}
	cp := filepath.Clean(v)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", ErrRootNotAbsolute, v)
	}
	return cp, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if safety.IsProtectedPath(c.Root, safety.DefaultProtected(c.ProtectedPaths)) {
		return fmt.Errorf("%w: %s", ErrRootProtected, c.Root)
	}
	if c.Logging.RotationDays < 0 {
		return errNegativeRotation
	}
	if c.Logging.RotationDays == 0 {
		c.Logging.RotationDays = 30
	}
	if c.Logging.Dir != "" {
		c.Logging.Dir = filepath.Clean(c.Logging.Dir)
	}

	for i := range c.ModelSets {
		if err := c.ModelSets[i].validateAndDefault(); err != nil {
			return fmt.Errorf("model_sets[%d]: %w", i, err)
		}
	}
	return nil
}

func (m *ModelSet) validateAndDefault() error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return errEmptyModelSet
	}
	if m.BatchBasename == "" {
		m.BatchBasename = m.Name
	}
	if m.Basename == "" {
		m.Basename = DefaultBasename
	}
	return nil
}

// NewModelSet returns a model set with defaults applied; empty overrides take the defaults
func NewModelSet(name, batchBasename, basename string) (ModelSet, error) {
	m := ModelSet{Name: name, BatchBasename: batchBasename, Basename: basename}
	if err := m.validateAndDefault(); err != nil {
		return ModelSet{}, err
	}
	return m, nil
}

// RequireModelSets fails with ErrNoModelSets when there is nothing to clean
func (c *Config) RequireModelSets() error {
	if len(c.ModelSets) == 0 {
		return ErrNoModelSets
	}
	return nil
}
