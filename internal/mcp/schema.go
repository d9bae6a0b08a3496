package mcp

import (
	"github.com/nvandessel/tracelink/internal/models"
	"github.com/nvandessel/tracelink/internal/similarity"
	"github.com/nvandessel/tracelink/internal/store"
)

// WordInput is one token of the analyzed text.
type WordInput struct {
	Text     string `json:"text" jsonschema:"Surface form of the word"`
	POS      string `json:"pos,omitempty" jsonschema:"Part-of-speech tag, Penn Treebank (NN, VBZ, JJ) or noun/verb/adjective"`
	Sentence int    `json:"sentence" jsonschema:"Zero-based sentence number"`
	Position int    `json:"position" jsonschema:"Zero-based word position in the text"`
}

// MentionInput is a candidate mention produced by the text pipeline.
type MentionInput struct {
	ID        string      `json:"id" jsonschema:"Stable mention identifier"`
	Reference string      `json:"reference" jsonschema:"Phrase the mention stands for, e.g. 'Logic'"`
	Kind      string      `json:"kind" jsonschema:"Either 'name' or 'type'"`
	Words     []WordInput `json:"words,omitempty" jsonschema:"Source words; needed to pair names with adjacent types"`
}

// InstanceInput is a model instance.
type InstanceInput struct {
	ID   string `json:"id" jsonschema:"Stable model element identifier"`
	Name string `json:"name" jsonschema:"Element name"`
	Type string `json:"type,omitempty" jsonschema:"Element type, e.g. 'BasicComponent'"`
}

// ResolveInput defines the input for the tracelink_resolve tool.
type ResolveInput struct {
	Mentions  []MentionInput    `json:"mentions" jsonschema:"Candidate mentions of the text"`
	Instances []InstanceInput   `json:"instances" jsonschema:"Instances of the model"`
	Overrides map[string]string `json:"overrides,omitempty" jsonschema:"Configuration overrides as key/value pairs, e.g. InstanceConnectionAgent::probability=0.9"`
	Save      bool              `json:"save,omitempty" jsonschema:"Store the run in the run history (default: false)"`
	Export    string            `json:"export,omitempty" jsonschema:"Write recommended.jsonl and links.jsonl to .tracelink/exports/<export>"`
}

// ResolveOutput defines the output for the tracelink_resolve tool.
type ResolveOutput struct {
	RunID           string                              `json:"run_id" jsonschema:"Identifier of this run"`
	Recommendations []models.RecommendedInstanceSummary `json:"recommendations" jsonschema:"Recommended instances in stable order"`
	Links           []store.LinkRecord                  `json:"links" jsonschema:"Links with accumulated confidence"`
	Skipped         map[string]string                   `json:"skipped,omitempty" jsonschema:"Similarity measures left out, with the reason"`
	Saved           bool                                `json:"saved" jsonschema:"Whether the run was stored"`
	ExportDir       string                              `json:"export_dir,omitempty" jsonschema:"Directory the JSONL files were written to"`
	DurationMs      int64                               `json:"duration_ms" jsonschema:"Run time in milliseconds"`
}

// SimilarInput defines the input for the tracelink_similar tool.
type SimilarInput struct {
	A    string `json:"a" jsonschema:"First word"`
	B    string `json:"b" jsonschema:"Second word"`
	POSA string `json:"pos_a,omitempty" jsonschema:"Part-of-speech tag of the first word"`
	POSB string `json:"pos_b,omitempty" jsonschema:"Part-of-speech tag of the second word"`
}

// SimilarOutput defines the output for the tracelink_similar tool.
type SimilarOutput struct {
	Similar  bool                        `json:"similar" jsonschema:"Whether any measure judged the words similar"`
	Score    float64                     `json:"score" jsonschema:"Highest known score"`
	Known    bool                        `json:"known" jsonschema:"Whether any measure knew the pair"`
	Measures []similarity.MeasureVerdict `json:"measures" jsonschema:"Per-measure verdicts in priority order"`
}

// RunsInput defines the input for the tracelink_runs tool.
type RunsInput struct {
	RunID string `json:"run_id,omitempty" jsonschema:"Return this run in full instead of the run list"`
}

// RunSummary describes one stored run.
type RunSummary struct {
	ID              string `json:"id"`
	CreatedAt       string `json:"created_at" jsonschema:"RFC 3339 timestamp"`
	Document        string `json:"document,omitempty"`
	Recommendations int    `json:"recommendations"`
	Links           int    `json:"links"`
}

// RunDetail is a stored run in full.
type RunDetail struct {
	Summary              RunSummary                          `json:"summary"`
	RecommendedInstances []models.RecommendedInstanceSummary `json:"recommended_instances"`
	LinkRecords          []store.LinkRecord                  `json:"link_records"`
}

// RunsOutput defines the output for the tracelink_runs tool.
type RunsOutput struct {
	Runs []RunSummary `json:"runs,omitempty" jsonschema:"Stored runs, newest first"`
	Run  *RunDetail   `json:"run,omitempty" jsonschema:"The requested run"`
}
