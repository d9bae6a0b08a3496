package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/tracelink/internal/wordsim"
	"github.com/spf13/cobra"
)

func newWordSimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wordsim",
		Short: "Manage word similarity tables",
	}
	cmd.AddCommand(newWordSimImportCmd())
	return cmd
}

func newWordSimImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <sqlite-file> <badger-dir>",
		Short: "Copy a SQLite word similarity table into a Badger directory",
		Long: `Copy every pair of a SEWordSim-style SQLite table (wsim(term_1, term_2, similarity))
into a Badger directory. Point similarity.wordsim.path at the directory and set
similarity.wordsim.backend to "badger" to use it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			ctx := cmd.Context()

			src, err := wordsim.OpenSQLite(ctx, args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			dst, err := wordsim.OpenBadger(wordsim.BadgerOptions{Dir: args[1]})
			if err != nil {
				return err
			}
			defer dst.Close()

			n, err := wordsim.Import(ctx, src, dst)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"source":      args[0],
					"destination": args[1],
					"pairs":       n,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d pairs into %s\n", n, args[1])
			return nil
		},
	}
}
