package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/tracelink/internal/input"
	"github.com/nvandessel/tracelink/internal/models"
	"github.com/nvandessel/tracelink/internal/pathutil"
	"github.com/nvandessel/tracelink/internal/pipeline"
	"github.com/nvandessel/tracelink/internal/ratelimit"
	"github.com/nvandessel/tracelink/internal/sanitize"
	"github.com/nvandessel/tracelink/internal/similarity"
	"github.com/nvandessel/tracelink/internal/store"
)

// Limits on a single resolve call.
const (
	maxMentions  = 5000
	maxInstances = 5000
)

// registerTools registers all tracelink MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "tracelink_resolve",
		Description: "Resolve text mentions against model instances: returns recommended instances and confidence-weighted links",
	}, s.handleResolve)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "tracelink_similar",
		Description: "Decide whether two words name the same thing, with the verdict of every similarity measure",
	}, s.handleSimilar)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "tracelink_runs",
		Description: "List stored resolution runs, or fetch one run by id",
	}, s.handleRuns)
}

// handleResolve implements the tracelink_resolve tool.
func (s *Server) handleResolve(ctx context.Context, req *sdk.CallToolRequest, args ResolveInput) (_ *sdk.CallToolResult, _ ResolveOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("tracelink_resolve", start, retErr, sanitizeToolParams(map[string]any{
			"mentions": len(args.Mentions), "instances": len(args.Instances),
			"overrides": args.Overrides, "save": args.Save, "export": args.Export,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "tracelink_resolve"); err != nil {
		return nil, ResolveOutput{}, err
	}
	if len(args.Mentions) > maxMentions || len(args.Instances) > maxInstances {
		return nil, ResolveOutput{}, fmt.Errorf("too many mentions or instances (max %d and %d)", maxMentions, maxInstances)
	}

	var exportDir string
	if args.Export != "" {
		dir, err := pathutil.ExportPath(s.root, args.Export)
		if err != nil {
			return nil, ResolveOutput{}, err
		}
		exportDir = dir
	}

	doc := buildDocument(args)
	if err := doc.Validate(); err != nil {
		return nil, ResolveOutput{}, err
	}

	cfg := *s.cfg
	cfg.Similarity.Measures = append([]string(nil), s.cfg.Similarity.Measures...)
	if err := cfg.ApplyOverrides(args.Overrides); err != nil {
		return nil, ResolveOutput{}, fmt.Errorf("invalid overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, ResolveOutput{}, fmt.Errorf("invalid overrides: %w", err)
	}

	opts := pipeline.Options{Config: &cfg, Logger: s.logger}
	if !touchesSimilarity(args.Overrides) {
		opts.Aggregator = s.agg
	}
	if len(args.Overrides) > 0 {
		s.logger.Debug("resolve overrides", "keys", overrideKeys(args.Overrides))
	}

	res, err := pipeline.Run(ctx, doc, opts)
	if err != nil {
		return nil, ResolveOutput{}, err
	}

	snap := res.Snapshot()
	out := ResolveOutput{
		RunID:           res.RunID,
		Recommendations: snap.Recommendations,
		Links:           snap.Links,
		Skipped:         res.Skipped,
		DurationMs:      res.Duration.Milliseconds(),
	}
	snap.Document = "mcp"
	if exportDir != "" {
		if err := store.ExportJSONL(ctx, exportDir, snap); err != nil {
			return nil, ResolveOutput{}, fmt.Errorf("failed to export run: %w", err)
		}
		out.ExportDir = exportDir
	}
	if args.Save {
		if err := s.db.Save(ctx, snap); err != nil {
			return nil, ResolveOutput{}, fmt.Errorf("failed to save run: %w", err)
		}
		out.Saved = true
	}
	return nil, out, nil
}

// handleSimilar implements the tracelink_similar tool.
func (s *Server) handleSimilar(ctx context.Context, req *sdk.CallToolRequest, args SimilarInput) (_ *sdk.CallToolResult, _ SimilarOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("tracelink_similar", start, retErr, sanitizeToolParams(map[string]any{
			"a": args.A, "b": args.B, "pos_a": args.POSA, "pos_b": args.POSB,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "tracelink_similar"); err != nil {
		return nil, SimilarOutput{}, err
	}

	a, b := sanitize.Text(args.A), sanitize.Text(args.B)
	if a == "" || b == "" {
		return nil, SimilarOutput{}, errors.New("both words are required")
	}

	ex := s.agg.Explain(ctx,
		similarity.Term{Text: a, POS: models.ParsePOS(args.POSA)},
		similarity.Term{Text: b, POS: models.ParsePOS(args.POSB)})
	return nil, SimilarOutput{
		Similar:  ex.Similar,
		Score:    ex.Score,
		Known:    ex.Known,
		Measures: ex.Measures,
	}, nil
}

// handleRuns implements the tracelink_runs tool.
func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsInput) (_ *sdk.CallToolResult, _ RunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("tracelink_runs", start, retErr, sanitizeToolParams(map[string]any{"run_id": args.RunID}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "tracelink_runs"); err != nil {
		return nil, RunsOutput{}, err
	}

	if id := sanitize.ID(args.RunID); id != "" {
		snap, err := s.db.Snapshot(ctx, id)
		if err != nil {
			return nil, RunsOutput{}, err
		}
		return nil, RunsOutput{Run: &RunDetail{
			Summary: RunSummary{
				ID:              snap.RunID,
				CreatedAt:       snap.CreatedAt.Format(time.RFC3339),
				Document:        snap.Document,
				Recommendations: len(snap.Recommendations),
				Links:           len(snap.Links),
			},
			RecommendedInstances: snap.Recommendations,
			LinkRecords:          snap.Links,
		}}, nil
	}

	runs, err := s.db.Runs(ctx)
	if err != nil {
		return nil, RunsOutput{}, err
	}
	out := RunsOutput{Runs: make([]RunSummary, 0, len(runs))}
	for _, r := range runs {
		out.Runs = append(out.Runs, summarizeRun(r))
	}
	return nil, out, nil
}

func summarizeRun(r store.RunInfo) RunSummary {
	return RunSummary{
		ID:              r.ID,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		Document:        r.Document,
		Recommendations: r.Recommendations,
		Links:           r.Links,
	}
}

// buildDocument converts tool input into a document, sanitizing every string.
func buildDocument(args ResolveInput) *input.Document {
	doc := &input.Document{
		Mentions:  make([]input.MentionSpec, 0, len(args.Mentions)),
		Instances: make([]models.ModelInstance, 0, len(args.Instances)),
	}
	for _, m := range args.Mentions {
		spec := input.MentionSpec{
			ID:        sanitize.ID(m.ID),
			Reference: sanitize.Text(m.Reference),
			Kind:      strings.ToLower(strings.TrimSpace(m.Kind)),
		}
		for _, w := range m.Words {
			spec.Words = append(spec.Words, models.Word{
				Text:     sanitize.Text(w.Text),
				POS:      models.POS(w.POS),
				Sentence: w.Sentence,
				Position: w.Position,
			})
		}
		doc.Mentions = append(doc.Mentions, spec)
	}
	for _, mi := range args.Instances {
		doc.Instances = append(doc.Instances, models.ModelInstance{
			ID:   sanitize.ID(mi.ID),
			Name: sanitize.Text(mi.Name),
			Type: sanitize.Text(mi.Type),
		})
	}
	return doc
}

func touchesSimilarity(overrides map[string]string) bool {
	for k := range overrides {
		if strings.HasPrefix(k, "similarity.") {
			return true
		}
	}
	return false
}
