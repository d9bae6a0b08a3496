// Package mcp provides an MCP (Model Context Protocol) server for tracelink.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/tracelink/internal/config"
	"github.com/nvandessel/tracelink/internal/logging"
	"github.com/nvandessel/tracelink/internal/ratelimit"
	"github.com/nvandessel/tracelink/internal/similarity"
	"github.com/nvandessel/tracelink/internal/store"
)

// Server wraps the MCP SDK server and exposes resolution and similarity tools.
type Server struct {
	server       *sdk.Server
	cfg          *config.Config
	agg          *similarity.Aggregator
	db           *store.ResultDB
	logger       *slog.Logger
	auditLogger  *AuditLogger
	toolLimiters ratelimit.ToolLimiters
	root         string
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "tracelink")
	Version string // Server version
	Root    string // Project root directory; .tracelink/ lives here

	// Tracelink is the resolution configuration. Defaults apply when nil.
	Tracelink *config.Config

	// DBPath is the run history database. Empty uses .tracelink/tracelink.db under Root.
	DBPath string

	Logger *slog.Logger
}

// NewServer creates a new MCP server with tracelink tools. The similarity
// resources are opened once and shared by every tool call.
func NewServer(ctx context.Context, cfg *Config) (*Server, error) {
	tlCfg := cfg.Tracelink
	if tlCfg == nil {
		tlCfg = config.Default()
	}
	logger := logging.OrDiscard(cfg.Logger)

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = store.DefaultDBPath(cfg.Root)
	}
	db, err := store.OpenResultDB(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server:       mcpServer,
		cfg:          tlCfg,
		agg:          similarity.Build(ctx, tlCfg.Similarity, logger),
		db:           db,
		logger:       logger,
		auditLogger:  NewAuditLogger(cfg.Root),
		toolLimiters: ratelimit.NewToolLimiters(),
		root:         cfg.Root,
	}
	s.registerTools()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server started", "measures", s.agg.Measures())
	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close releases the similarity resources, the run history and the audit log.
func (s *Server) Close() error {
	var firstErr error
	for _, c := range []func() error{s.agg.Close, s.db.Close, s.auditLogger.Close} {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
