// Package bootstrap provides server initialization and setup logic
package bootstrap

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/oncp/resolution-mcp/pkg/domain/errors"
	"github.com/oncp/resolution-mcp/pkg/infra/telemetry"
	"github.com/oncp/resolution-mcp/pkg/service/tools"
)

const (
	ServerName         = "Application Resolution MCP Server"
	ServerInstructions = "Trigger, monitor, and inspect automated resolution jobs for application issues."
)

// Bootstrapper handles server initialization and component registration
type Bootstrapper struct {
	logger  zerolog.Logger
	version string
	client  tools.ResolutionClient
	metrics *telemetry.Metrics
	tracing *telemetry.TracingManager
}

// NewBootstrapper creates a new bootstrapper instance
func NewBootstrapper(
	logger zerolog.Logger,
	version string,
	client tools.ResolutionClient,
	metrics *telemetry.Metrics,
	tracing *telemetry.TracingManager,
) *Bootstrapper {
	return &Bootstrapper{
		logger:  logger,
		version: version,
		client:  client,
		metrics: metrics,
		tracing: tracing,
	}
}

// CreateMCPServer creates a new mcp-go server with capabilities
func (b *Bootstrapper) CreateMCPServer() *server.MCPServer {
	return server.NewMCPServer(
		ServerName,
		b.version,
		server.WithInstructions(ServerInstructions),
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithRecovery(),
	)
}

// RegisterComponents registers all tools with the MCP server
func (b *Bootstrapper) RegisterComponents(mcpServer *server.MCPServer) error {
	if mcpServer == nil {
		return errors.New(errors.CodeInternalError, "bootstrapper", "mcp server not initialized", nil)
	}

	deps := tools.ToolDependencies{
		Client:  b.client,
		Logger:  b.logger.With().Str("component", "tools").Logger(),
		Metrics: b.metrics,
		Tracing: b.tracing,
	}
	if err := tools.RegisterTools(mcpServer, deps); err != nil {
		return errors.New(errors.CodeToolExecutionFailed, "bootstrapper", "failed to register components", err)
	}

	b.logger.Info().Str("component", "bootstrapper").Int("tools", len(tools.GetToolConfigs())).Msg("MCP components registered")
	return nil
}

// Build creates the server and registers every component on it.
func (b *Bootstrapper) Build() (*server.MCPServer, error) {
	mcpServer := b.CreateMCPServer()
	if err := b.RegisterComponents(mcpServer); err != nil {
		return nil, err
	}
	return mcpServer, nil
}
