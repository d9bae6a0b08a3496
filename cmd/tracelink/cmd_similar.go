package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/tracelink/internal/models"
	"github.com/nvandessel/tracelink/internal/similarity"
	"github.com/spf13/cobra"
)

func newSimilarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <a> <b>",
		Short: "Compare two words with the configured similarity measures",
		Long: `Run every configured similarity measure on two words and show each verdict.
The words are similar when any applicable measure says so.

Examples:
  tracelink similar Server Servers
  tracelink similar database storage --pos-a noun --pos-b noun`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			posA, _ := cmd.Flags().GetString("pos-a")
			posB, _ := cmd.Flags().GetString("pos-b")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			agg := similarity.Build(cmd.Context(), cfg.Similarity, newLogger(cmd, cfg))
			defer agg.Close()

			ex := agg.Explain(cmd.Context(),
				similarity.Term{Text: args[0], POS: models.ParsePOS(posA)},
				similarity.Term{Text: args[1], POS: models.ParsePOS(posB)})

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"a":        args[0],
					"b":        args[1],
					"similar":  ex.Similar,
					"score":    ex.Score,
					"known":    ex.Known,
					"measures": ex.Measures,
					"skipped":  agg.Skipped(),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%q vs %q: similar=%v", args[0], args[1], ex.Similar)
			if ex.Known {
				fmt.Fprintf(out, " score=%.3f", ex.Score)
			}
			fmt.Fprintln(out)
			for _, mv := range ex.Measures {
				switch {
				case !mv.Applicable:
					fmt.Fprintf(out, "  %-12s not applicable\n", mv.Measure)
				case mv.Error != "":
					fmt.Fprintf(out, "  %-12s error: %s\n", mv.Measure, mv.Error)
				case !mv.Verdict.Known:
					fmt.Fprintf(out, "  %-12s unknown\n", mv.Measure)
				default:
					fmt.Fprintf(out, "  %-12s similar=%v score=%.3f\n", mv.Measure, mv.Verdict.Similar, mv.Verdict.Score)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("pos-a", "", "Part of speech of the first word (noun, verb, adjective)")
	cmd.Flags().String("pos-b", "", "Part of speech of the second word")

	return cmd
}
