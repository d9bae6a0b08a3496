package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/nvandessel/tracelink/internal/config"
	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/logging"
	"github.com/nvandessel/tracelink/internal/setup"
	"github.com/nvandessel/tracelink/internal/store"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
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

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tracelink",
		Short: "Trace link recovery between documentation and architecture models",
		Long: `tracelink connects entity mentions found in documentation text to the
instances of an architecture model.

Contribution agents turn name and type mentions into recommended instances,
then link them to model instances by name and type similarity. Every link
keeps the evidence that produced it.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.tracelink/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, warn, debug, trace")
	return rootCmd
}

// loadConfig resolves the effective configuration for a command: the --config file or
// the default locations, then --log-level. An embedding model installed by
// "tracelink setup" is used when none is configured.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if slices.Contains(cfg.Similarity.Measures, constants.MeasureEmbedding) {
		setup.Apply(&cfg.Similarity.Embedding, setup.Detect(setup.DefaultDir()))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger writes operational logs to the command's stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// newDecisionLogger opens the decision trace. A relative decision_dir is taken
// from --root. Nil at info level.
func newDecisionLogger(cmd *cobra.Command, cfg *config.Config) *logging.DecisionLogger {
	root, _ := cmd.Flags().GetString("root")
	dir := cfg.Logging.DecisionDir
	switch {
	case dir == "":
		dir = store.LocalPath(root)
	case !filepath.IsAbs(dir):
		dir = filepath.Join(root, dir)
	}
	return logging.NewDecisionLogger(dir, cfg.Logging.Level)
}

// dbPath returns the run history database for a command: --db when given,
// otherwise .tracelink/tracelink.db under --root.
func dbPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p
	}
	root, _ := cmd.Flags().GetString("root")
	return store.DefaultDBPath(root)
}
