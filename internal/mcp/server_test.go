package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/tracelink/internal/config"
	"github.com/nvandessel/tracelink/internal/ratelimit"
	"github.com/nvandessel/tracelink/internal/store"
)

// isolateHome sets HOME to a temp directory to avoid touching real ~/.tracelink/
func isolateHome(t *testing.T, tmpDir string) {
	t.Helper()
	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0755); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	cfg := config.Default()
	cfg.Similarity.Measures = []string{"equality", "levenshtein"}

	server, err := NewServer(context.Background(), &Config{
		Name:      "test-server",
		Version:   "v1.0.0",
		Root:      tmpDir,
		Tracelink: cfg,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { server.Close() })
	return server, tmpDir
}

func TestNewServer(t *testing.T) {
	server, root := newTestServer(t)

	if server.server == nil {
		t.Error("Server.server is nil")
	}
	if got := server.agg.Measures(); strings.Join(got, ",") != "equality,levenshtein" {
		t.Errorf("measures = %v", got)
	}
	if _, err := os.Stat(store.DefaultDBPath(root)); err != nil {
		t.Errorf("run history not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.LocalPath(root), AuditFile)); err != nil {
		t.Errorf("audit log not created: %v", err)
	}
}

func TestServer_CloseIsSafeTwice(t *testing.T) {
	server, _ := newTestServer(t)
	if err := server.auditLogger.Close(); err != nil {
		t.Fatal(err)
	}
	if err := server.auditLogger.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestSanitizeToolParams(t *testing.T) {
	got := sanitizeToolParams(map[string]any{
		"mentions":  3,
		"a":         "secret word",
		"overrides": map[string]string{},
		"unknown":   "x",
	})
	if got["mentions"] != "3" {
		t.Errorf("mentions = %q, want 3", got["mentions"])
	}
	if got["a"] != "(set)" {
		t.Errorf("a = %q, want (set)", got["a"])
	}
	if _, ok := got["unknown"]; ok {
		t.Error("unknown params must not be logged")
	}
	if _, ok := got["overrides"]; ok {
		t.Error("empty overrides should be omitted")
	}
	if got["_param_count"] != "3" {
		t.Errorf("_param_count = %q, want 3", got["_param_count"])
	}
}

func TestToolLimitersCoverTools(t *testing.T) {
	limiters := ratelimit.NewToolLimiters()
	for _, tool := range []string{"tracelink_resolve", "tracelink_similar", "tracelink_runs"} {
		if _, ok := limiters[tool]; !ok {
			t.Errorf("no limiter for %s", tool)
		}
	}
}
