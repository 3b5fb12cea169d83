package safety

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestProtectedPathBlocking verifies protected paths are blocked
func TestProtectedPathBlocking(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"root slash", "/", true},
		{"etc", "/etc", true},
		{"etc subdir", "/etc/ssh", true},
		{"bin file", "/bin/bash", true},
		{"usr local", "/usr/local", true},
		{"boot", "/boot", true},
		{"lib64", "/lib64", true},
		{"kepler-clean config", "/etc/kepler-clean/config.yaml", true},
		{"kepler-clean db", "/var/lib/kepler-clean/deletions.db", true},
		{"tmp allowed", "/tmp", false},
		{"models dump", "/data/kepler/grid1/grid1_1/xrb1/xrb1#5", false},
		{"libx is not lib", "/libx/file", false},
	}

	protected := DefaultProtected(nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsProtectedPath(tt.path, protected)
			if result != tt.expected {
				t.Errorf("IsProtectedPath(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

// TestAllowedRootEnforcement verifies paths are restricted to allowed roots
func TestAllowedRootEnforcement(t *testing.T) {
	allowed := []string{"/data/kepler"}

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"dump inside", "/data/kepler/grid1/grid1_1/xrb1/xrb1#5", true},
		{"log dir inside", "/data/kepler/grid1/grid1_1/logs", true},
		{"root exact", "/data/kepler", true},
		{"sibling with shared prefix", "/data/kepler2/grid1", false},
		{"parent", "/data", false},
		{"root", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsWithinAllowedRoots(tt.path, allowed)
			if result != tt.expected {
				t.Errorf("IsWithinAllowedRoots(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

// TestTraversalDetection verifies ".." segments are detected
func TestTraversalDetection(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"normal path", "/data/kepler/grid1", false},
		{"dotdot parent", "/data/kepler/../etc/passwd", true},
		{"dotdot at end", "/data/..", true},
		{"single dot ok", "/data/./kepler", false},
		{"dots inside name ok", "/data/kepler/xrb1..bak", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectTraversal(tt.path)
			if result != tt.expected {
				t.Errorf("DetectTraversal(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

// TestValidateDeleteTarget covers the full safety contract
func TestValidateDeleteTarget(t *testing.T) {
	root := filepath.Join(t.TempDir(), "models")
	keep := filepath.Join(root, "grid9")
	validator := NewValidator([]string{root}, []string{keep})

	tests := []struct {
		name        string
		path        string
		expectError error
	}{
		{"dump inside root", filepath.Join(root, "grid1/grid1_1/xrb1/xrb1#5"), nil},
		{"log dir inside root", filepath.Join(root, "grid1/grid1_1/logs"), nil},
		{"outside root", filepath.Join(filepath.Dir(root), "other/file"), ErrOutsideAllowed},
		{"root itself", root, ErrRootTarget},
		{"extra protected", filepath.Join(keep, "grid9_1/xrb1/xrb1#3"), ErrProtectedPath},
		{"protected /etc", "/etc/passwd", ErrProtectedPath},
		{"protected root", "/", ErrProtectedPath},
		{"traversal attempt", root + "/grid1/../grid1/grid1_1/logs", ErrTraversal},
		{"empty path", "", ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateDeleteTarget(tt.path)
			if tt.expectError == nil {
				if err != nil {
					t.Errorf("ValidateDeleteTarget(%s) unexpected error: %v", tt.path, err)
				}
				return
			}
			if !errors.Is(err, tt.expectError) {
				t.Errorf("ValidateDeleteTarget(%s) = %v, expected %v", tt.path, err, tt.expectError)
			}
			if !IsViolation(err) {
				t.Errorf("IsViolation(%v) = false", err)
			}
		})
	}
}

// TestHasPathPrefix verifies the path prefix checking logic
func TestHasPathPrefix(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		prefix   string
		expected bool
	}{
		{"exact match", "/data/kepler", "/data/kepler", true},
		{"subdirectory", "/data/kepler/grid1", "/data/kepler", true},
		{"not a prefix", "/data/other", "/data/kepler", false},
		{"partial match", "/data/keplerish", "/data/kepler", false},
		{"slash prefix only matches slash", "/tmp", "/", false},
		{"slash matches slash", "/", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := hasPathPrefix(tt.path, tt.prefix)
			if result != tt.expected {
				t.Errorf("hasPathPrefix(%s, %s) = %v, expected %v", tt.path, tt.prefix, result, tt.expected)
			}
		})
	}
}

// TestSymlinkEscape verifies targets reached through a linked parent directory stay inside the root
func TestSymlinkEscape(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "models")
	outside := filepath.Join(base, "outside", "xrb9")
	for _, dir := range []string{filepath.Join(root, "grid1/grid1_1/xrb1"), outside} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Symlink(outside, filepath.Join(root, "grid1/grid1_1/xrb9")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "grid1/grid1_1/xrb1/xrb1#2")); err != nil {
		t.Fatal(err)
	}

	validator := NewValidator([]string{root}, nil)

	tests := []struct {
		name        string
		path        string
		expectError error
	}{
		{"file under linked model dir", filepath.Join(root, "grid1/grid1_1/xrb9/xrb9#2"), ErrSymlinkEscape},
		{"linked model dir itself", filepath.Join(root, "grid1/grid1_1/xrb9"), nil},
		{"link as final element", filepath.Join(root, "grid1/grid1_1/xrb1/xrb1#2"), nil},
		{"missing parent", filepath.Join(root, "grid2/grid2_1/xrb1/xrb1#2"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateDeleteTarget(tt.path)
			if tt.expectError == nil {
				if err != nil {
					t.Errorf("ValidateDeleteTarget(%s) unexpected error: %v", tt.path, err)
				}
				return
			}
			if !errors.Is(err, tt.expectError) {
				t.Errorf("ValidateDeleteTarget(%s) = %v, expected %v", tt.path, err, tt.expectError)
			}
			if !IsViolation(err) {
				t.Errorf("IsViolation(%v) = false", err)
			}
		})
	}
}

// TestSymlinkedRoot verifies a root reached through a link is compared in resolved form
func TestSymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	real := filepath.Join(base, "real")
	if err := os.MkdirAll(filepath.Join(real, "grid1/grid1_1/xrb1"), 0o755); err != nil {
		t.Fatal(err)
	}
	root := filepath.Join(base, "models")
	if err := os.Symlink(real, root); err != nil {
		t.Fatal(err)
	}

	validator := NewValidator([]string{root}, nil)
	if err := validator.ValidateDeleteTarget(filepath.Join(root, "grid1/grid1_1/xrb1/xrb1#2")); err != nil {
		t.Errorf("ValidateDeleteTarget under linked root: %v", err)
	}
}
