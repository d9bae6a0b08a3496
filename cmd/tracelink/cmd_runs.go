package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nvandessel/tracelink/internal/store"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List saved runs, or show one",
		Long: `List the runs recorded with "resolve --save", newest first.
With a run id, print that run's recommended instances and links.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			ctx := cmd.Context()

			db, err := store.OpenResultDB(ctx, dbPath(cmd))
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 1 {
				snap, err := db.Snapshot(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(snap)
				}
				printSnapshot(cmd.OutOrStdout(), snap)
				return nil
			}

			runs, err := db.Runs(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-20s recommended=%d links=%d\n",
					r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Document, r.Recommendations, r.Links)
			}
			return nil
		},
	}

	cmd.Flags().String("db", "", "Run history database (default <root>/.tracelink/tracelink.db)")
	return cmd
}
