package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"kepler-clean/internal/config"
	"kepler-clean/internal/database"
	"kepler-clean/internal/exitcodes"
	"kepler-clean/internal/logging"
	"kepler-clean/internal/runner"
	"kepler-clean/internal/safety"
	"kepler-clean/internal/scan"
)

type options struct {
	configPath      string
	modelSets       []string
	batchBasename   string
	basename        string
	dbPath          string
	metricsTextfile string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("kepler-clean", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	fs.StringArrayVarP(&opts.modelSets, "model-set", "m", nil, "Model set to clean (repeatable, replaces the config list)")
	fs.StringVarP(&opts.batchBasename, "batch-basename", "b", "", "Batch directory prefix (default: model set name)")
	fs.StringVar(&opts.basename, "basename", "", "Model and dump file prefix (default: "+config.DefaultBasename+")")
	fs.StringVar(&opts.dbPath, "db", "", "Path to deletion history database")
	fs.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file after the run")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: kepler-clean [flags]\n\nCleans model sets under $%s.\n\n", config.RootEnvVar)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// applyOverrides folds command-line flags into cfg
func applyOverrides(cfg *config.Config, opts *options) error {
	if len(opts.modelSets) > 0 {
		sets := make([]config.ModelSet, 0, len(opts.modelSets))
		for _, name := range opts.modelSets {
			set, err := config.NewModelSet(name, opts.batchBasename, opts.basename)
			if err != nil {
				return err
			}
			sets = append(sets, set)
		}
		cfg.ModelSets = sets
	} else {
		for i := range cfg.ModelSets {
			if opts.batchBasename != "" {
				cfg.ModelSets[i].BatchBasename = opts.batchBasename
			}
			if opts.basename != "" {
				cfg.ModelSets[i].Basename = opts.basename
			}
		}
	}
	if opts.dbPath != "" {
		cfg.DatabasePath = opts.dbPath
	}
	if opts.metricsTextfile != "" {
		cfg.Metrics.TextfilePath = opts.metricsTextfile
	}
	return cfg.RequireModelSets()
}

// exitCode maps a run error onto the process exit code contract
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case safety.IsViolation(err):
		return exitcodes.SafetyViolation
	case errors.Is(err, scan.ErrMalformedDump):
		return exitcodes.ParseError
	default:
		return exitcodes.RuntimeError
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, lookup config.LookupFunc) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitcodes.Success
		}
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitcodes.InvalidConfig
	}

	cfg, err := config.LoadWithEnv(opts.configPath, lookup)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: Failed to load config: %v\n", err)
		return exitcodes.InvalidConfig
	}
	if err := applyOverrides(cfg, opts); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitcodes.InvalidConfig
	}

	logger := logging.NewTo(stderr, cfg)
	logger.Printf("kepler-clean starting: root=%s model_sets=%d", cfg.Root, len(cfg.ModelSets))

	var db *database.DeletionDB
	if cfg.DatabasePath != "" {
		logger.Printf("Opening deletion database: %s", cfg.DatabasePath)
		db, err = database.NewDeletionDB(cfg.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: Failed to open database: %v", err)
			return exitcodes.RuntimeError
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close database: %v", err)
			}
		}()
	}

	if err := runner.RunOnce(ctx, cfg, logger, stdout, db); err != nil {
		logger.Printf("ERROR: Cleanup failed: %v", err)
		return exitCode(err)
	}
	logger.Println("Cleanup completed successfully")
	return exitcodes.Success
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, stopping after the current model set...", sig)
		cancel()
	}()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv)
	cancel()
	os.Exit(code)
}
