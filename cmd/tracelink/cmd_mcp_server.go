package main

import (
	"fmt"
	"path/filepath"

	"github.com/nvandessel/tracelink/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run tracelink as an MCP server over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing the
tracelink_resolve, tracelink_similar and tracelink_runs tools.

Logs go to stderr; stdout carries the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			absRoot, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("failed to resolve root: %w", err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(cmd.Context(), &mcp.Config{
				Name:      "tracelink",
				Version:   version,
				Root:      absRoot,
				Tracelink: cfg,
				DBPath:    dbPath(cmd),
				Logger:    newLogger(cmd, cfg),
			})
			if err != nil {
				return fmt.Errorf("failed to start mcp server: %w", err)
			}
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().String("db", "", "Run history database (default <root>/.tracelink/tracelink.db)")
	return cmd
}
