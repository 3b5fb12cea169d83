package main

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"

	"kepler-clean/internal/config"
	"kepler-clean/internal/exitcodes"
	"kepler-clean/internal/safety"
	"kepler-clean/internal/scan"
)

func envWithRoot(root string) config.LookupFunc {
	return func(key string) (string, bool) {
		if key == config.RootEnvVar && root != "" {
			return root, true
		}
		return "", false
	}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name string
		cfg  []config.ModelSet
		opts options
		want []config.ModelSet
	}{
		{
			name: "flags replace config list",
			cfg:  []config.ModelSet{{Name: "old", BatchBasename: "old", Basename: "xrb"}},
			opts: options{modelSets: []string{"grid1", "grid2"}, basename: "kep"},
			want: []config.ModelSet{
				{Name: "grid1", BatchBasename: "grid1", Basename: "kep"},
				{Name: "grid2", BatchBasename: "grid2", Basename: "kep"},
			},
		},
		{
			name: "basenames patch config list",
			cfg:  []config.ModelSet{{Name: "grid1", BatchBasename: "grid1", Basename: "xrb"}},
			opts: options{batchBasename: "run"},
			want: []config.ModelSet{{Name: "grid1", BatchBasename: "run", Basename: "xrb"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{ModelSets: tt.cfg}
			if err := applyOverrides(cfg, &tt.opts); err != nil {
				t.Fatalf("applyOverrides failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, cfg.ModelSets); diff != "" {
				t.Errorf("model sets mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitcodes.Success},
		{"symlink escape", fmt.Errorf("model set grid1: %w", safety.ErrSymlinkEscape), exitcodes.SafetyViolation},
		{"protected", fmt.Errorf("model set grid1: %w", safety.ErrProtectedPath), exitcodes.SafetyViolation},
		{"malformed dump", &scan.ParseError{Path: "/m/xrb1#x", Suffix: "x", Err: strconv.ErrSyntax}, exitcodes.ParseError},
		{"filesystem", &fs.PathError{Op: "remove", Path: "/m/logs", Err: syscall.ENOTEMPTY}, exitcodes.RuntimeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRunExitCodes(t *testing.T) {
	ctx := context.Background()

	t.Run("root not set", func(t *testing.T) {
		var stderr bytes.Buffer
		if got := run(ctx, []string{"-m", "grid1"}, &bytes.Buffer{}, &stderr, envWithRoot("")); got != exitcodes.InvalidConfig {
			t.Errorf("exit = %d, want %d", got, exitcodes.InvalidConfig)
		}
		if !strings.Contains(stderr.String(), config.RootEnvVar) {
			t.Errorf("stderr should name %s: %s", config.RootEnvVar, stderr.String())
		}
	})

	t.Run("relative root", func(t *testing.T) {
		if got := run(ctx, []string{"-m", "grid1"}, &bytes.Buffer{}, &bytes.Buffer{}, envWithRoot("models")); got != exitcodes.InvalidConfig {
			t.Errorf("exit = %d, want %d", got, exitcodes.InvalidConfig)
		}
	})

	t.Run("root under protected path", func(t *testing.T) {
		var stderr bytes.Buffer
		if got := run(ctx, []string{"-m", "grid1"}, &bytes.Buffer{}, &stderr, envWithRoot("/usr/local/kepler")); got != exitcodes.InvalidConfig {
			t.Errorf("exit = %d, want %d", got, exitcodes.InvalidConfig)
		}
		if !strings.Contains(stderr.String(), "protected") {
			t.Errorf("stderr should name the protected root: %s", stderr.String())
		}
	})

	t.Run("no model sets", func(t *testing.T) {
		if got := run(ctx, nil, &bytes.Buffer{}, &bytes.Buffer{}, envWithRoot(t.TempDir())); got != exitcodes.InvalidConfig {
			t.Errorf("exit = %d, want %d", got, exitcodes.InvalidConfig)
		}
	})

	t.Run("unknown flag", func(t *testing.T) {
		if got := run(ctx, []string{"--dry-run"}, &bytes.Buffer{}, &bytes.Buffer{}, envWithRoot(t.TempDir())); got != exitcodes.InvalidConfig {
			t.Errorf("exit = %d, want %d", got, exitcodes.InvalidConfig)
		}
	})

	t.Run("malformed dump", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "grid1/grid1_1/xrb1/xrb1#1"))
		writeFile(t, filepath.Join(root, "grid1/grid1_1/xrb1/xrb1#final"))
		if got := run(ctx, []string{"-m", "grid1"}, &bytes.Buffer{}, &bytes.Buffer{}, envWithRoot(root)); got != exitcodes.ParseError {
			t.Errorf("exit = %d, want %d", got, exitcodes.ParseError)
		}
	})

	t.Run("success", func(t *testing.T) {
		root := t.TempDir()
		for _, f := range []string{"xrb1#1", "xrb1#2", "xrb1#3"} {
			writeFile(t, filepath.Join(root, "grid1/grid1_1/xrb1", f))
		}
		var stdout bytes.Buffer
		if got := run(ctx, []string{"--model-set", "grid1"}, &stdout, &bytes.Buffer{}, envWithRoot(root)); got != exitcodes.Success {
			t.Fatalf("exit = %d, want %d", got, exitcodes.Success)
		}
		if _, err := os.Stat(filepath.Join(root, "grid1/grid1_1/xrb1/xrb1#2")); !os.IsNotExist(err) {
			t.Error("intermediate dump should be deleted")
		}
		if !strings.Contains(stdout.String(), "Finished cleaning 1 models") {
			t.Errorf("unexpected progress output:\n%s", stdout.String())
		}
	})
}
