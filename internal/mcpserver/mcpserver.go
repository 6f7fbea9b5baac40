package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/config"
)

// Server wraps the MCP server and registers the refscope tools.
type Server struct {
	server *mcp.Server
	config *config.Config
	logger *slog.Logger
}

// NewServer creates a new MCP server with all tools and prompts registered.
// A nil config uses the defaults.
func NewServer(version string, cfg *config.Config, logger *slog.Logger) *Server {
	if version == "" {
		version = "dev"
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "refscope",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, config: cfg, logger: logger}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_dead_code",
		Description: describeFindDeadCode(),
	}, s.handleFindDeadCode)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "can_safely_delete",
		Description: describeCanSafelyDelete(),
	}, s.handleCanSafelyDelete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_usage",
		Description: describeAnalyzeUsage(),
	}, s.handleAnalyzeUsage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "resolve_reference",
		Description: describeResolveReference(),
	}, s.handleResolveReference)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "file_dependencies",
		Description: describeFileDependencies(),
	}, s.handleFileDependencies)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dependency_graph",
		Description: describeDependencyGraph(),
	}, s.handleDependencyGraph)
}
