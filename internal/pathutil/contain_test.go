package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/home/user/runs/trajectory.csv", ".../runs/trajectory.csv"},
		{"summary.json", "summary.json"},
		{"/summary.json", "summary.json"},
	}
	for _, tt := range tests {
		if got := Redact(tt.in); got != tt.want {
			t.Errorf("Redact(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWithin(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "escape")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{"root itself", root, false},
		{"direct child", filepath.Join(root, "a.csv"), false},
		{"missing nested dirs", filepath.Join(root, "x", "y", "a.csv"), false},
		{"traversal", filepath.Join(root, "..", "a.csv"), true},
		{"sibling prefix", root + "-other/a.csv", true},
		{"symlink escape", filepath.Join(root, "escape", "a.csv"), true},
		{"null byte", filepath.Join(root, "a\x00.csv"), true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Within(root, tt.target)
			if (err != nil) != tt.wantErr {
				t.Errorf("Within(%q) error = %v, wantErr %v", tt.target, err, tt.wantErr)
			}
		})
	}
}
