package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/tracelink/internal/input"
	"github.com/nvandessel/tracelink/internal/store"
)

func resolveInput() ResolveInput {
	return ResolveInput{
		Mentions: []MentionInput{
			{ID: "n1", Reference: "Logic", Kind: "name", Words: []WordInput{{Text: "Logic", POS: "NNP", Sentence: 0, Position: 1}}},
			{ID: "t1", Reference: "component", Kind: "type", Words: []WordInput{{Text: "component", POS: "NN", Sentence: 0, Position: 2}}},
			{ID: "n2", Reference: "Gateway", Kind: "Name", Words: []WordInput{{Text: "Gateway", POS: "NNP", Sentence: 1, Position: 4}}},
		},
		Instances: []InstanceInput{
			{ID: "c1", Name: "Logic", Type: "Component"},
		},
	}
}

func TestHandleResolve(t *testing.T) {
	server, _ := newTestServer(t)

	_, out, err := server.handleResolve(context.Background(), nil, resolveInput())
	if err != nil {
		t.Fatalf("handleResolve() error = %v", err)
	}
	if out.RunID == "" {
		t.Error("missing run id")
	}
	var recs []string
	for _, r := range out.Recommendations {
		recs = append(recs, r.Name+"/"+r.Type)
	}
	if want := "Gateway/,Logic/Component"; strings.Join(recs, ",") != want {
		t.Errorf("recommendations = %v, want %s", recs, want)
	}
	if len(out.Links) != 1 || out.Links[0].InstanceID != "c1" || out.Links[0].Confidence != 1 {
		t.Errorf("links = %+v, want one certain link to c1", out.Links)
	}
	if out.Saved {
		t.Error("run saved without save=true")
	}
}

func TestHandleResolve_Overrides(t *testing.T) {
	server, _ := newTestServer(t)

	args := resolveInput()
	args.Overrides = map[string]string{"InstanceConnectionAgent::enabled": "false"}
	_, out, err := server.handleResolve(context.Background(), nil, args)
	if err != nil {
		t.Fatalf("handleResolve() error = %v", err)
	}
	if len(out.Links) != 0 {
		t.Errorf("links = %d with the connection agent disabled, want 0", len(out.Links))
	}
	if !server.cfg.Agents.InstanceConnection.Enabled {
		t.Error("overrides leaked into the server configuration")
	}

	args.Overrides = map[string]string{"NoSuchAgent::probability": "1"}
	if _, _, err := server.handleResolve(context.Background(), nil, args); err == nil {
		t.Error("unknown override key should fail")
	}
}

func TestHandleResolve_InvalidDocument(t *testing.T) {
	server, _ := newTestServer(t)

	args := resolveInput()
	args.Mentions[0].Kind = "adjective"
	_, _, err := server.handleResolve(context.Background(), nil, args)
	if !errors.Is(err, input.ErrInvalidDocument) {
		t.Errorf("handleResolve() error = %v, want ErrInvalidDocument", err)
	}
}

func TestHandleResolve_SaveAndRuns(t *testing.T) {
	server, _ := newTestServer(t)
	ctx := context.Background()

	args := resolveInput()
	args.Save = true
	_, out, err := server.handleResolve(ctx, nil, args)
	if err != nil {
		t.Fatalf("handleResolve() error = %v", err)
	}
	if !out.Saved {
		t.Fatal("run not saved")
	}

	_, runs, err := server.handleRuns(ctx, nil, RunsInput{})
	if err != nil {
		t.Fatalf("handleRuns() error = %v", err)
	}
	if len(runs.Runs) != 1 || runs.Runs[0].ID != out.RunID || runs.Runs[0].Links != 1 {
		t.Errorf("runs = %+v", runs.Runs)
	}

	_, detail, err := server.handleRuns(ctx, nil, RunsInput{RunID: out.RunID})
	if err != nil {
		t.Fatalf("handleRuns(run_id) error = %v", err)
	}
	if detail.Run == nil || len(detail.Run.RecommendedInstances) != 2 || len(detail.Run.LinkRecords) != 1 {
		t.Errorf("run detail = %+v", detail.Run)
	}

	if _, _, err := server.handleRuns(ctx, nil, RunsInput{RunID: "missing"}); !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("handleRuns(missing) error = %v, want ErrRunNotFound", err)
	}
}

func TestHandleResolve_Export(t *testing.T) {
	server, root := newTestServer(t)
	ctx := context.Background()

	args := resolveInput()
	args.Export = "run-1"
	_, out, err := server.handleResolve(ctx, nil, args)
	if err != nil {
		t.Fatalf("handleResolve() error = %v", err)
	}
	want := filepath.Join(root, ".tracelink", "exports", "run-1")
	if out.ExportDir != want {
		t.Errorf("ExportDir = %q, want %q", out.ExportDir, want)
	}
	snap, err := store.ImportJSONL(ctx, want)
	if err != nil {
		t.Fatalf("ImportJSONL() error = %v", err)
	}
	if len(snap.Recommendations) != 2 || len(snap.Links) != 1 {
		t.Errorf("exported %d recommendations and %d links, want 2 and 1", len(snap.Recommendations), len(snap.Links))
	}

	args.Export = "../../outside"
	if _, _, err := server.handleResolve(ctx, nil, args); err == nil {
		t.Error("export outside .tracelink/exports should fail")
	}
	if _, err := os.Stat(filepath.Join(root, "outside")); !os.IsNotExist(err) {
		t.Errorf("traversal export wrote files: %v", err)
	}
}

func TestHandleSimilar(t *testing.T) {
	server, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"case-insensitive equality", "Server", "SERVER", true},
		{"small edit", "Servers", "Server", true},
		{"different words", "cache", "buffer", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := server.handleSimilar(ctx, nil, SimilarInput{A: tt.a, B: tt.b})
			if err != nil {
				t.Fatalf("handleSimilar() error = %v", err)
			}
			if out.Similar != tt.want {
				t.Errorf("Similar = %v, want %v", out.Similar, tt.want)
			}
			if len(out.Measures) != 2 {
				t.Errorf("got %d measure verdicts, want 2", len(out.Measures))
			}
		})
	}

	if _, _, err := server.handleSimilar(ctx, nil, SimilarInput{A: "\x00", B: "x"}); err == nil {
		t.Error("blank word should fail")
	}
}

func TestHandleSimilar_RateLimited(t *testing.T) {
	server, root := newTestServer(t)
	ctx := context.Background()

	var err error
	for i := 0; i < 100 && err == nil; i++ {
		_, _, err = server.handleSimilar(ctx, nil, SimilarInput{A: "a", B: "b"})
	}
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Fatalf("expected rate limit error, got %v", err)
	}

	data, readErr := os.ReadFile(filepath.Join(store.LocalPath(root), AuditFile))
	if readErr != nil {
		t.Fatal(readErr)
	}
	if !strings.Contains(string(data), `"status":"error"`) || strings.Contains(string(data), `"a":"a"`) {
		t.Errorf("audit log should record the failure without the words: %s", data)
	}
}
