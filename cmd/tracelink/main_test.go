package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/tracelink/internal/store"
	"github.com/nvandessel/tracelink/internal/wordsim"
	"github.com/spf13/cobra"
)

const testDocument = `
mentions:
  - id: n1
    reference: Logic
    kind: name
    words: [{text: Logic, pos: NNP, sentence: 0, position: 1}]
  - id: t1
    reference: component
    kind: type
    words: [{text: component, pos: NN, sentence: 0, position: 2}]
  - id: n2
    reference: Servers
    kind: name
    words: [{text: Servers, pos: NNS, sentence: 1, position: 3}]
  - id: n3
    reference: Gateway
    kind: name
    words: [{text: Gateway, pos: NNP, sentence: 2, position: 0}]
instances:
  - {id: c1, name: Logic, type: Component}
  - {id: c2, name: Server, type: Component}
`

const testConfig = `
similarity:
  measures: [equality, levenshtein]
`

// newTestRootCmd creates a root command with every subcommand for testing.
func newTestRootCmd() *cobra.Command {
	rootCmd := newRootCmd()
	rootCmd.AddCommand(
		newVersionCmd(),
		newResolveCmd(),
		newSimilarCmd(),
		newWordSimCmd(),
		newConfigCmd(),
		newRunsCmd(),
		newMCPServerCmd(),
		newSetupCmd(),
		newGraphCmd(),
	)
	return rootCmd
}

// isolateHome sets HOME to a temp directory to avoid touching real ~/.tracelink/
// MUST be called for any test that loads config or writes a database
func isolateHome(t *testing.T, tmpDir string) {
	t.Helper()
	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
	t.Setenv("USERPROFILE", tmpHome)
}

// fixture writes the test document and config and returns their paths.
func fixture(t *testing.T, tmpDir string) (docPath, cfgPath string) {
	t.Helper()
	docPath = filepath.Join(tmpDir, "doc.yaml")
	cfgPath = filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(docPath, []byte(testDocument), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfgPath, []byte(testConfig), 0600); err != nil {
		t.Fatal(err)
	}
	return docPath, cfgPath
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := newTestRootCmd()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

type resolveOutput struct {
	RunID           string `json:"run_id"`
	Document        string `json:"document"`
	Recommendations []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"recommendations"`
	Links []struct {
		Name       string  `json:"name"`
		InstanceID string  `json:"instance_id"`
		Confidence float64 `json:"confidence"`
	} `json:"links"`
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}

	out, err = execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "tracelink version ") {
		t.Errorf("output = %q", out)
	}
}

func TestResolveCmd_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	docPath, cfgPath := fixture(t, tmpDir)

	out, err := execute(t, "resolve", docPath, "--json", "--root", tmpDir, "--config", cfgPath)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	var got resolveOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.RunID == "" {
		t.Error("run_id is empty")
	}
	if got.Document != "doc.yaml" {
		t.Errorf("document = %q, want doc.yaml", got.Document)
	}
	if len(got.Recommendations) != 3 {
		t.Errorf("recommendations = %+v, want 3", got.Recommendations)
	}
	links := make(map[string]string)
	for _, l := range got.Links {
		links[l.Name] = l.InstanceID
	}
	if len(links) != 2 || links["Logic"] != "c1" || links["Servers"] != "c2" {
		t.Errorf("links = %v, want Logic->c1 and Servers->c2", links)
	}
}

func TestResolveCmd_Text(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	docPath, cfgPath := fixture(t, tmpDir)

	out, err := execute(t, "resolve", docPath, "--root", tmpDir, "--config", cfgPath)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	for _, want := range []string{"Recommended instances (3):", "Links (2):", "Logic -> Logic (c1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestResolveCmd_Overrides(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	docPath, cfgPath := fixture(t, tmpDir)

	overridesPath := filepath.Join(tmpDir, "agents.properties")
	content := "# connection stage off\nInstanceConnectionAgent::enabled=false\n"
	if err := os.WriteFile(overridesPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "resolve", docPath, "--json", "--root", tmpDir, "--config", cfgPath,
		"--overrides", overridesPath)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	var got resolveOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(got.Links) != 0 {
		t.Errorf("links = %+v, want none with the connection agent disabled", got.Links)
	}

	tests := []struct {
		name string
		set  string
	}{
		{"missing equals", "InstanceConnectionAgent::probability"},
		{"unknown key", "NoSuchAgent::probability=1"},
		{"out of range", "InstanceConnectionAgent::probability=1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, "resolve", docPath, "--root", tmpDir, "--config", cfgPath, "--set", tt.set); err == nil {
				t.Errorf("--set %q should fail", tt.set)
			}
		})
	}
}

func TestResolveCmd_Export(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	docPath, cfgPath := fixture(t, tmpDir)
	exportDir := filepath.Join(tmpDir, "out")

	if _, err := execute(t, "resolve", docPath, "--root", tmpDir, "--config", cfgPath, "--export", exportDir); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	snap, err := store.ImportJSONL(context.Background(), exportDir)
	if err != nil {
		t.Fatalf("ImportJSONL() error = %v", err)
	}
	if len(snap.Recommendations) != 3 || len(snap.Links) != 2 {
		t.Errorf("exported %d recommendations and %d links, want 3 and 2",
			len(snap.Recommendations), len(snap.Links))
	}
}

func TestResolveCmd_SaveAndRuns(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	docPath, cfgPath := fixture(t, tmpDir)

	out, err := execute(t, "resolve", docPath, "--json", "--save", "--root", tmpDir, "--config", cfgPath)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	var resolved resolveOutput
	if err := json.Unmarshal([]byte(out), &resolved); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}

	out, err = execute(t, "runs", "--json", "--root", tmpDir)
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	var listed struct {
		Runs  []store.RunInfo `json:"runs"`
		Count int             `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if listed.Count != 1 || listed.Runs[0].ID != resolved.RunID {
		t.Fatalf("runs = %+v, want the saved run %s", listed.Runs, resolved.RunID)
	}
	if listed.Runs[0].Links != 2 {
		t.Errorf("links = %d, want 2", listed.Runs[0].Links)
	}

	out, err = execute(t, "runs", resolved.RunID, "--root", tmpDir)
	if err != nil {
		t.Fatalf("runs <id> failed: %v", err)
	}
	if !strings.Contains(out, "Run: "+resolved.RunID) {
		t.Errorf("output missing run id:\n%s", out)
	}

	if _, err := execute(t, "runs", "no-such-run", "--root", tmpDir); err == nil {
		t.Error("runs with an unknown id should fail")
	}
}

func TestRunsCmd_Empty(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "runs", "--root", tmpDir)
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	if !strings.Contains(out, "No runs recorded.") {
		t.Errorf("output = %q", out)
	}
}

func TestResolveCmd_MissingDocument(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	_, cfgPath := fixture(t, tmpDir)

	if _, err := execute(t, "resolve", filepath.Join(tmpDir, "missing.yaml"), "--config", cfgPath); err == nil {
		t.Error("resolve of a missing document should fail")
	}
	if _, err := execute(t, "resolve"); err == nil {
		t.Error("resolve without a document should fail")
	}
}

func TestSimilarCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	_, cfgPath := fixture(t, tmpDir)

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"case", "server", "Server", true},
		{"plural", "Servers", "Server", true},
		{"different", "Logic", "Gateway", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "similar", tt.a, tt.b, "--json", "--config", cfgPath)
			if err != nil {
				t.Fatalf("similar failed: %v", err)
			}
			var got struct {
				Similar  bool `json:"similar"`
				Measures []struct {
					Measure string `json:"measure"`
				} `json:"measures"`
			}
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("invalid JSON %q: %v", out, err)
			}
			if got.Similar != tt.want {
				t.Errorf("similar(%q, %q) = %v, want %v", tt.a, tt.b, got.Similar, tt.want)
			}
			if len(got.Measures) != 2 {
				t.Errorf("measures = %+v, want equality and levenshtein", got.Measures)
			}
		})
	}

	out, err := execute(t, "similar", "Servers", "Server", "--config", cfgPath)
	if err != nil {
		t.Fatalf("similar failed: %v", err)
	}
	if !strings.Contains(out, "similar=true") || !strings.Contains(out, "levenshtein") {
		t.Errorf("output = %q", out)
	}
}

func TestWordSimImportCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	src := filepath.Join(tmpDir, "sewordsim.db")
	pairs := []wordsim.Pair{
		{First: "server", Second: "host", Similarity: 0.7},
		{First: "databas", Second: "storag", Similarity: 0.6},
	}
	if err := wordsim.WriteSQLite(context.Background(), src, pairs); err != nil {
		t.Fatalf("WriteSQLite() error = %v", err)
	}
	dst := filepath.Join(tmpDir, "badger")

	out, err := execute(t, "wordsim", "import", src, dst)
	if err != nil {
		t.Fatalf("wordsim import failed: %v", err)
	}
	if !strings.Contains(out, "Imported 2 pairs") {
		t.Errorf("output = %q", out)
	}

	table, err := wordsim.OpenBadger(wordsim.BadgerOptions{Dir: dst})
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	defer table.Close()
	got, ok, err := table.Similarity(context.Background(), "server", "host")
	if err != nil || !ok || got != 0.7 {
		t.Errorf("Similarity(server, host) = %v, %v, %v, want 0.7", got, ok, err)
	}
}

func TestConfigCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	_, cfgPath := fixture(t, tmpDir)

	out, err := execute(t, "config", "--config", cfgPath)
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if !strings.Contains(out, "measures:") || !strings.Contains(out, "- levenshtein") {
		t.Errorf("output = %q", out)
	}

	out, err = execute(t, "config", "--json", "--log-level", "debug", "--config", cfgPath)
	if err != nil {
		t.Fatalf("config --json failed: %v", err)
	}
	var cfg struct {
		Logging struct {
			Level string `json:"level"`
		} `json:"logging"`
	}
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}

	out, err = execute(t, "config", "keys")
	if err != nil {
		t.Fatalf("config keys failed: %v", err)
	}
	if !strings.Contains(out, "InstanceConnectionAgent::probability\n") {
		t.Errorf("keys missing InstanceConnectionAgent::probability:\n%s", out)
	}
}

func TestResolveCmd_DecisionTrace(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	docPath, cfgPath := fixture(t, tmpDir)

	if _, err := execute(t, "resolve", docPath, "--root", tmpDir, "--config", cfgPath, "--log-level", "debug"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(tmpDir, ".tracelink", "decisions.jsonl"))
	if err != nil {
		t.Fatalf("decision trace not written: %v", err)
	}
	if !strings.Contains(string(data), `"run_id"`) {
		t.Errorf("decision trace has no run_id:\n%s", data)
	}
}

func TestNewCommands(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		want string
	}{
		{newVersionCmd(), "version"},
		{newResolveCmd(), "resolve <document>"},
		{newSimilarCmd(), "similar <a> <b>"},
		{newWordSimCmd(), "wordsim"},
		{newConfigCmd(), "config"},
		{newRunsCmd(), "runs [run-id]"},
		{newMCPServerCmd(), "mcp-server"},
		{newSetupCmd(), "setup"},
		{newGraphCmd(), "graph [run-id]"},
	}
	for _, tt := range tests {
		if tt.cmd.Use != tt.want {
			t.Errorf("Use = %q, want %q", tt.cmd.Use, tt.want)
		}
	}
}

func TestSetupCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	dir := filepath.Join(tmpDir, "embeddings")

	out, err := execute(t, "setup", "--dir", dir)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if !strings.Contains(out, "(not installed)") || !strings.Contains(out, "tracelink setup --install") {
		t.Errorf("output = %q", out)
	}

	out, err = execute(t, "setup", "--json", "--dir", dir)
	if err != nil {
		t.Fatalf("setup --json failed: %v", err)
	}
	var got struct {
		BaseDir   string `json:"base_dir"`
		Available bool   `json:"available"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.BaseDir != dir || got.Available {
		t.Errorf("setup = %+v, want %s and not available", got, dir)
	}
}

func TestGraphCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	docPath, cfgPath := fixture(t, tmpDir)

	if _, err := execute(t, "graph", "--root", tmpDir); err == nil {
		t.Error("graph with no runs should fail")
	}

	exportDir := filepath.Join(tmpDir, "out")
	if _, err := execute(t, "resolve", docPath, "--save", "--export", exportDir,
		"--root", tmpDir, "--config", cfgPath); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	out, err := execute(t, "graph", "--root", tmpDir)
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	if !strings.HasPrefix(out, "digraph tracelink {") || !strings.Contains(out, `-> "mi:c2"`) {
		t.Errorf("DOT output = %q", out)
	}

	out, err = execute(t, "graph", "--from", exportDir, "--format", "json")
	if err != nil {
		t.Fatalf("graph --from failed: %v", err)
	}
	var g struct {
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
		Edges []struct {
			Target string `json:"target"`
		} `json:"edges"`
	}
	if err := json.Unmarshal([]byte(out), &g); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	// Three recommended instances plus the two linked model instances.
	if len(g.Nodes) != 5 || len(g.Edges) != 2 {
		t.Errorf("graph has %d nodes and %d edges, want 5 and 2", len(g.Nodes), len(g.Edges))
	}

	if _, err := execute(t, "graph", "--format", "svg", "--root", tmpDir); err == nil {
		t.Error("unknown format should fail")
	}
}
