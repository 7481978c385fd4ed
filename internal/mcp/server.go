package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notaclin/internal/extraction"
)

// Server exposes the note analyzer as MCP tools.
type Server struct {
	mcp          *mcp.Server
	analyzer     extraction.NoteAnalyzer
	toolRegistry *ToolRegistry
	metrics      *Metrics
	logger       *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "notaclin")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// Logger for structured logging. It must not write to stdout, which
	// carries the stdio transport.
	Logger *zap.Logger

	// Metrics records tool invocations. Defaults to the global meter.
	Metrics *Metrics
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "notaclin",
		Version: "dev",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates an MCP server backed by analyzer.
func NewServer(cfg *Config, analyzer extraction.NoteAnalyzer) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(logger)
	}
	name, version := cfg.Name, cfg.Version
	if name == "" {
		name = "notaclin"
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    name,
				Version: version,
			},
			nil,
		),
		analyzer:     analyzer,
		toolRegistry: NewToolRegistry(),
		metrics:      metrics,
		logger:       logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Tools returns metadata for the registered tools.
func (s *Server) Tools() []*ToolMetadata {
	return s.toolRegistry.List()
}

// Run serves MCP on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport",
		zap.Int("tools", s.toolRegistry.Count()))
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Close releases server resources.
func (s *Server) Close() error {
	s.logger.Info("closing MCP server")
	return nil
}
