// Package lifecycle provides server lifecycle management functionality
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	derrors "github.com/oncp/resolution-mcp/pkg/domain/errors"
	"github.com/oncp/resolution-mcp/pkg/infra/telemetry"
	"github.com/oncp/resolution-mcp/pkg/service/bootstrap"
	"github.com/oncp/resolution-mcp/pkg/service/config"
	"github.com/oncp/resolution-mcp/pkg/service/transport"
)

// DefaultShutdownTimeout bounds a graceful shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// IdleCloser releases pooled connections.
type IdleCloser interface {
	Close()
}

// LifecycleManager handles server startup and shutdown logic
type LifecycleManager struct {
	logger       zerolog.Logger
	config       config.Config
	bootstrapper *bootstrap.Bootstrapper
	client       IdleCloser
	metrics      *telemetry.Metrics
	tracing      *telemetry.TracingManager

	mcpServer        *server.MCPServer
	transport        *transport.SSETransport
	isMcpInitialized bool

	shutdownMutex  sync.Mutex
	isShuttingDown bool
	startTime      time.Time
}

// NewLifecycleManager creates a new lifecycle manager
func NewLifecycleManager(
	logger zerolog.Logger,
	cfg config.Config,
	bootstrapper *bootstrap.Bootstrapper,
	client IdleCloser,
	metrics *telemetry.Metrics,
	tracing *telemetry.TracingManager,
) *LifecycleManager {
	return &LifecycleManager{
		logger:       logger.With().Str("component", "lifecycle").Logger(),
		config:       cfg,
		bootstrapper: bootstrapper,
		client:       client,
		metrics:      metrics,
		tracing:      tracing,
		startTime:    time.Now(),
	}
}

// Start initializes the MCP server and serves it over SSE until ctx is done.
func (m *LifecycleManager) Start(ctx context.Context) error {
	m.logger.Info().
		Str("resolution_service_url", m.config.ResolutionServiceURL).
		Dur("api_timeout", m.config.APITimeout).
		Float64("rate_limit", m.config.RateLimit).
		Str("listen_addr", m.config.ListenAddr()).
		Bool("metrics", m.metrics != nil).
		Bool("tracing", m.tracing.Enabled()).
		Msg("Starting Application Resolution MCP Server")

	if err := m.Initialize(); err != nil {
		return err
	}

	return m.transport.Serve(ctx, DefaultShutdownTimeout)
}

// Initialize builds the MCP server and its transport. It is safe to call more than once.
func (m *LifecycleManager) Initialize() error {
	if m.isMcpInitialized {
		return nil
	}

	m.logger.Debug().Msg("Initializing mcp-go server")

	mcpServer, err := m.bootstrapper.Build()
	if err != nil {
		return derrors.New(derrors.CodeToolExecutionFailed, "lifecycle", "failed to initialize mcp-go server", err)
	}

	m.mcpServer = mcpServer
	m.transport = transport.NewSSETransport(mcpServer, transport.SSEConfig{
		Host:        m.config.SSEHost,
		Port:        m.config.SSEPort,
		CORSOrigins: m.config.CORSOrigins,
		Version:     m.config.ServiceVersion,
		Logger:      m.logger,
		Metrics:     m.metrics,
	})

	m.isMcpInitialized = true
	return nil
}

// Shutdown gracefully shuts down the server with proper context handling
func (m *LifecycleManager) Shutdown(ctx context.Context) error {
	m.shutdownMutex.Lock()
	defer m.shutdownMutex.Unlock()

	if m.isShuttingDown {
		return nil
	}
	m.isShuttingDown = true

	m.logger.Info().Msg("Gracefully shutting down MCP Server")

	done := make(chan error, 1)
	go func() {
		var errs []error
		if m.transport != nil {
			if err := m.transport.Shutdown(ctx); err != nil {
				m.logger.Error().Err(err).Msg("Failed to stop SSE transport")
				errs = append(errs, err)
			}
		}
		if m.client != nil {
			m.client.Close()
		}
		if err := m.tracing.Shutdown(ctx); err != nil {
			m.logger.Error().Err(err).Msg("Failed to flush traces")
			errs = append(errs, err)
		}
		done <- errors.Join(errs...)
	}()

	select {
	case <-ctx.Done():
		m.logger.Warn().Err(ctx.Err()).Msg("Shutdown cancelled by context")
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return err
		}
	}

	m.logger.Info().Dur("uptime", m.GetUptime()).Msg("MCP Server shutdown complete")
	return nil
}

// GetUptime returns the server uptime
func (m *LifecycleManager) GetUptime() time.Duration {
	return time.Since(m.startTime)
}

// IsInitialized returns whether the MCP server is initialized
func (m *LifecycleManager) IsInitialized() bool {
	return m.isMcpInitialized
}

// IsShuttingDown returns whether the server is in shutdown process
func (m *LifecycleManager) IsShuttingDown() bool {
	m.shutdownMutex.Lock()
	defer m.shutdownMutex.Unlock()
	return m.isShuttingDown
}

// Transport returns the SSE transport once initialized.
func (m *LifecycleManager) Transport() *transport.SSETransport {
	return m.transport
}
