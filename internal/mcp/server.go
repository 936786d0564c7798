// Package mcp provides an MCP (Model Context Protocol) server that runs
// tumor simulations on request.
package mcp

import (
	"context"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/tumor-lattice/internal/logging"
	"github.com/nvandessel/tumor-lattice/internal/ratelimit"
)

// Default request limits.
const (
	DefaultMaxTrials = 100
	DefaultMaxSteps  = 10000
)

// Server wraps the MCP SDK server.
type Server struct {
	server   *sdk.Server
	logger   *slog.Logger
	audit    *AuditLogger
	limits   Limits
	limiters ratelimit.ToolLimiters
}

// Limits bounds the work a single tool call may request.
type Limits struct {
	MaxTrials int
	MaxSteps  int
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "tumorsim")
	Version string // Server version
	// AuditDir receives audit.jsonl; empty disables auditing.
	AuditDir string
	Logger   *slog.Logger
	Limits   Limits
	// Limiters throttles tool calls; nil uses ratelimit.NewToolLimiters.
	Limiters ratelimit.ToolLimiters
}

// NewServer creates an MCP server with the simulation tools registered.
func NewServer(cfg *Config) (*Server, error) {
	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{})

	s := &Server{
		server:   mcpServer,
		logger:   cfg.Logger,
		limits:   cfg.Limits,
		limiters: cfg.Limiters,
	}
	if s.limiters == nil {
		s.limiters = ratelimit.NewToolLimiters()
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.limits.MaxTrials <= 0 {
		s.limits.MaxTrials = DefaultMaxTrials
	}
	if s.limits.MaxSteps <= 0 {
		s.limits.MaxSteps = DefaultMaxSteps
	}
	if cfg.AuditDir != "" {
		audit, err := NewAuditLogger(cfg.AuditDir)
		if err != nil {
			return nil, err
		}
		s.audit = audit
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

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.audit.Close()
	return err
}

// Close releases resources.
func (s *Server) Close() error {
	return s.audit.Close()
}
