package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvandessel/tracelink/internal/config"
	"github.com/nvandessel/tracelink/internal/input"
	"github.com/nvandessel/tracelink/internal/pipeline"
	"github.com/nvandessel/tracelink/internal/store"
	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <document>",
		Short: "Recover trace links for a document",
		Long: `Run the contribution agents over a document of mentions and model instances
and print the recommended instances and the links they produce.

The document is YAML or JSON with "mentions" and "instances" lists.

Examples:
  tracelink resolve doc.yaml
  tracelink resolve doc.yaml --set InstanceConnectionAgent::probability=0.9
  tracelink resolve doc.yaml --overrides agents.properties --export out/
  tracelink resolve doc.yaml --save --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			overridesFile, _ := cmd.Flags().GetString("overrides")
			sets, _ := cmd.Flags().GetStringArray("set")
			exportDir, _ := cmd.Flags().GetString("export")
			parallel, _ := cmd.Flags().GetBool("parallel")
			save, _ := cmd.Flags().GetBool("save")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyResolveOverrides(cfg, overridesFile, sets); err != nil {
				return err
			}
			if parallel {
				cfg.Runner.Parallel = true
			}

			doc, err := input.Load(args[0])
			if err != nil {
				return err
			}

			decisions := newDecisionLogger(cmd, cfg)
			defer decisions.Close()

			res, err := pipeline.Run(cmd.Context(), doc, pipeline.Options{
				Config:    cfg,
				Logger:    newLogger(cmd, cfg),
				Decisions: decisions,
			})
			if err != nil {
				return err
			}

			snap := res.Snapshot()
			snap.Document = filepath.Base(args[0])

			if exportDir != "" {
				if err := store.ExportJSONL(cmd.Context(), exportDir, snap); err != nil {
					return err
				}
			}
			if save {
				db, err := store.OpenResultDB(cmd.Context(), dbPath(cmd))
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.Save(cmd.Context(), snap); err != nil {
					return err
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"run_id":          snap.RunID,
					"document":        snap.Document,
					"recommendations": snap.Recommendations,
					"links":           snap.Links,
					"skipped":         res.Skipped,
					"duration_ms":     res.Duration.Milliseconds(),
				})
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			names := make([]string, 0, len(res.Skipped))
			for name := range res.Skipped {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.ErrOrStderr(), "measure %s skipped: %s\n", name, res.Skipped[name])
			}
			return nil
		},
	}

	cmd.Flags().String("overrides", "", "KEY=VALUE file of configuration overrides")
	cmd.Flags().StringArray("set", nil, "Configuration override as KEY=VALUE (repeatable)")
	cmd.Flags().String("export", "", "Directory to write recommended.jsonl and links.jsonl to")
	cmd.Flags().Bool("parallel", false, "Run the agents of a stage concurrently")
	cmd.Flags().Bool("save", false, "Record the run in the run history database")
	cmd.Flags().String("db", "", "Run history database (default <root>/.tracelink/tracelink.db)")

	return cmd
}

// applyResolveOverrides applies the overrides file first, then --set values.
func applyResolveOverrides(cfg *config.Config, file string, sets []string) error {
	overrides := make(map[string]string)
	if file != "" {
		kv, err := config.LoadKeyValueFile(file)
		if err != nil {
			return err
		}
		for k, v := range kv {
			overrides[k] = v
		}
	}
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return fmt.Errorf("invalid --set %q: expected KEY=VALUE", s)
		}
		overrides[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if len(overrides) == 0 {
		return nil
	}
	if err := cfg.ApplyOverrides(overrides); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config after overrides: %w", err)
	}
	return nil
}

// printSnapshot writes a human-readable listing of a run.
func printSnapshot(w io.Writer, snap *store.Snapshot) {
	fmt.Fprintf(w, "Recommended instances (%d):\n", len(snap.Recommendations))
	for _, ri := range snap.Recommendations {
		typ := ri.Type
		if typ == "" {
			typ = "-"
		}
		fmt.Fprintf(w, "  %-24s %-20s p=%.2f  %s\n", ri.Name, typ, ri.Probability, ri.Claimant)
	}

	fmt.Fprintf(w, "\nLinks (%d):\n", len(snap.Links))
	for _, l := range snap.Links {
		fmt.Fprintf(w, "  %s -> %s (%s)  confidence=%.2f evidence=%d\n",
			l.Name, l.InstanceName, l.InstanceID, l.Confidence, len(l.Evidence))
	}
	if snap.RunID != "" {
		fmt.Fprintf(w, "\nRun: %s\n", snap.RunID)
	}
}
