package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/tracelink/internal/setup"
	"github.com/spf13/cobra"
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Check or install the local embedding model",
		Long: `Check whether the llama.cpp libraries and a GGUF embedding model are installed
for the embedding similarity measure. With --install, download what is missing.

An installation under the default directory is picked up automatically when
similarity.embedding.model_path is not set. The measure needs a binary built
with -tags llamacpp.

Examples:
  tracelink setup
  tracelink setup --install
  tracelink setup --dir /opt/tracelink --install`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			dir, _ := cmd.Flags().GetString("dir")
			installDeps, _ := cmd.Flags().GetBool("install")

			if dir == "" {
				dir = setup.DefaultDir()
			}
			if dir == "" {
				return fmt.Errorf("no install directory: home directory unknown, pass --dir")
			}

			found := setup.Detect(dir)
			if installDeps && !found.Available {
				var err error
				found, err = setup.Install(cmd.Context(), dir)
				if err != nil {
					return fmt.Errorf("failed to install embedding dependencies: %w", err)
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(found)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Embedding dependencies (%s):\n", found.BaseDir)
			fmt.Fprintf(out, "  library: %s\n", valueOrDefault(found.LibPath, "(not installed)"))
			fmt.Fprintf(out, "  model:   %s\n", valueOrDefault(found.ModelPath, "(not installed)"))
			if !found.Available && !installDeps {
				fmt.Fprintln(out, "\nRun 'tracelink setup --install' to download them.")
			}
			return nil
		},
	}

	cmd.Flags().String("dir", "", "Install directory (default ~/.tracelink/embeddings)")
	cmd.Flags().Bool("install", false, "Download missing libraries and model")
	return cmd
}

func valueOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
