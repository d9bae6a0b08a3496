package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"warning alias", "WARNING", slog.LevelWarn},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"mixed case Trace", "Trace", LevelTrace},
		{"padded", " debug ", slog.LevelDebug},
		{"unknown defaults to info", "verbose", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtTrace bool
		logAtDebug bool
	}{
		{"info filters debug", "info", false, false},
		{"debug filters trace", "debug", false, true},
		{"trace passes all", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Log(context.Background(), LevelTrace, "trace message")
			if got := strings.Contains(buf.String(), "trace message"); got != tt.logAtTrace {
				t.Errorf("trace message visible = %v, want %v (buf: %q)", got, tt.logAtTrace, buf.String())
			}

			buf.Reset()
			logger.Debug("debug message")
			if got := strings.Contains(buf.String(), "debug message"); got != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v (buf: %q)", got, tt.logAtDebug, buf.String())
			}
		})
	}
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)
	logger.Log(context.Background(), LevelTrace, "verdict")

	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("trace level not labelled: %q", buf.String())
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	l := Discard()
	if OrDiscard(l) != l {
		t.Error("OrDiscard replaced a non-nil logger")
	}
}

func TestNewDecisionLogger_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "info")

	if dl != nil {
		t.Error("expected nil DecisionLogger at info level")
	}

	// Nil logger should still be safe to use
	dl.Log(map[string]any{"event": "merge"})
	dl.With(map[string]any{"run": "x"}).Log(map[string]any{"event": "merge"})
	dl.Close()

	if _, err := os.Stat(filepath.Join(dir, DecisionsFile)); err == nil {
		t.Errorf("%s should not exist at info level", DecisionsFile)
	}
}

func TestNewDecisionLogger_DebugLevel(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	dl := NewDecisionLogger(dir, "debug")
	if dl == nil {
		t.Fatal("expected non-nil DecisionLogger at debug level")
	}
	defer dl.Close()

	dl.Log(map[string]any{"event": "recommendation_merge", "outcome": "extended"})
	dl.Log(map[string]any{"event": "link_added", "confidence": 0.96})

	path := filepath.Join(dir, DecisionsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", DecisionsFile, err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("failed to parse JSONL entry: %v", err)
	}
	if second["confidence"] != 0.96 {
		t.Errorf("confidence = %v, want 0.96", second["confidence"])
	}
	if _, ok := second["time"]; !ok {
		t.Error("expected 'time' field in decision log entry")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestDecisionLogger_With(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDecisionWriter(&buf)
	run := dl.With(map[string]any{"run": "r1"})

	event := map[string]any{"event": "merge"}
	run.Log(event)

	if _, hasTime := event["time"]; hasTime {
		t.Error("Log() should not mutate caller's map")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse entry: %v", err)
	}
	if entry["run"] != "r1" || entry["event"] != "merge" {
		t.Errorf("entry = %v, want run=r1 event=merge", entry)
	}
}

func TestDecisionLogger_LogAfterClose(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDecisionWriter(&buf)
	child := dl.With(nil)

	dl.Close()
	dl.Log(map[string]any{"event": "after_close"})
	child.Log(map[string]any{"event": "after_close"})

	if buf.Len() != 0 {
		t.Errorf("expected no output after close, got %q", buf.String())
	}
}
