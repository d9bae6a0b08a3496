package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/tracelink/internal/store"
	"github.com/nvandessel/tracelink/internal/visualization"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [run-id]",
		Short: "Render the trace link graph of a run",
		Long: `Render recommended instances, linked model instances and their links as a
Graphviz DOT or JSON graph.

The run is read from the run history (the latest run when no id is given),
or from a directory written by "resolve --export".

Examples:
  tracelink graph | dot -Tsvg > links.svg
  tracelink graph 3f2a... --format json
  tracelink graph --from out/`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			formatStr, _ := cmd.Flags().GetString("format")
			from, _ := cmd.Flags().GetString("from")

			format, err := visualization.ParseFormat(formatStr)
			if err != nil {
				return err
			}
			if jsonOut {
				format = visualization.FormatJSON
			}

			snap, err := loadGraphSnapshot(cmd, from, args)
			if err != nil {
				return err
			}

			g := visualization.Build(snap)
			if format == visualization.FormatJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(g)
			}
			fmt.Fprint(cmd.OutOrStdout(), visualization.RenderDOT(g))
			return nil
		},
	}

	cmd.Flags().String("format", "dot", "Output format: dot, json")
	cmd.Flags().String("from", "", "Read the run from an export directory instead of the run history")
	cmd.Flags().String("db", "", "Run history database (default <root>/.tracelink/tracelink.db)")
	return cmd
}

// loadGraphSnapshot reads the run to render: an export directory, a run id, or the latest run.
func loadGraphSnapshot(cmd *cobra.Command, from string, args []string) (*store.Snapshot, error) {
	ctx := cmd.Context()
	if from != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("--from and a run id are mutually exclusive")
		}
		return store.ImportJSONL(ctx, from)
	}

	db, err := store.OpenResultDB(ctx, dbPath(cmd))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	runID := ""
	if len(args) == 1 {
		runID = args[0]
	} else {
		runs, err := db.Runs(ctx)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no runs recorded; use 'tracelink resolve --save' or --from")
		}
		runID = runs[0].ID
	}
	return db.Snapshot(ctx, runID)
}
