package pathutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	allowedDir := t.TempDir()
	otherDir := t.TempDir()

	tests := []struct {
		name        string
		path        string
		allowedDirs []string
		errContains string
	}{
		{"inside allowed dir", filepath.Join(allowedDir, "links.jsonl"), []string{allowedDir}, ""},
		{"not yet created subdirectory", filepath.Join(allowedDir, "a", "b", "links.jsonl"), []string{allowedDir}, ""},
		{"the allowed dir itself", allowedDir, []string{allowedDir}, ""},
		{"second allowed dir", filepath.Join(otherDir, "x"), []string{allowedDir, otherDir}, ""},
		{"dot-dot traversal", filepath.Join(allowedDir, "..", "etc", "passwd"), []string{allowedDir}, "outside allowed directories"},
		{"sibling with common prefix", allowedDir + "-evil", []string{allowedDir}, "outside allowed directories"},
		{"other dir", filepath.Join(otherDir, "x"), []string{allowedDir}, "outside allowed directories"},
		{"null byte", filepath.Join(allowedDir, "li\x00nks"), []string{allowedDir}, "null byte"},
		{"empty path", "", []string{allowedDir}, "empty"},
		{"no allowed dirs", filepath.Join(allowedDir, "x"), nil, "no allowed directories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path, tt.allowedDirs)
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("ValidatePath() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ValidatePath() error = %v, want error containing %q", err, tt.errContains)
			}
		})
	}
}

func TestValidatePath_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not supported on Windows")
	}

	allowedDir := t.TempDir()
	outsideDir := t.TempDir()
	realDir := filepath.Join(allowedDir, "real")
	if err := os.MkdirAll(realDir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outsideDir, filepath.Join(allowedDir, "escape")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(realDir, filepath.Join(allowedDir, "link")); err != nil {
		t.Fatal(err)
	}

	if err := ValidatePath(filepath.Join(allowedDir, "escape", "x"), []string{allowedDir}); err == nil {
		t.Error("symlink pointing outside should be rejected")
	}
	if err := ValidatePath(filepath.Join(allowedDir, "link", "x"), []string{allowedDir}); err != nil {
		t.Errorf("symlink staying inside should be accepted, got %v", err)
	}
}

func TestExportPath(t *testing.T) {
	root := t.TempDir()
	exports := filepath.Join(root, ".tracelink", ExportsDir)

	tests := []struct {
		name    string
		export  string
		want    string
		wantErr bool
	}{
		{"plain name", "run-1", filepath.Join(exports, "run-1"), false},
		{"nested name", "2026/run-1", filepath.Join(exports, "2026", "run-1"), false},
		{"traversal", "../../etc", "", true},
		{"absolute", filepath.Join(root, "x"), "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExportPath(root, tt.export)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExportPath(%q) error = %v, wantErr %v", tt.export, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExportPath(%q) = %q, want %q", tt.export, got, tt.want)
			}
		})
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/home/user/.tracelink/config.yaml", ".../.tracelink/config.yaml"},
		{"/a/b/c/d/e.txt", ".../d/e.txt"},
		{"/file.txt", "file.txt"},
		{"dir/file.txt", ".../dir/file.txt"},
		{"file.txt", "file.txt"},
		{"/home/user/.tracelink/", ".../user/.tracelink"},
	}
	for _, tt := range tests {
		if got := RedactPath(tt.input); got != tt.want {
			t.Errorf("RedactPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
