// Package service wires configuration, the resolution client and telemetry
// into a runnable MCP server.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/oncp/resolution-mcp/pkg/infra/telemetry"
	"github.com/oncp/resolution-mcp/pkg/resolution"
	"github.com/oncp/resolution-mcp/pkg/service/bootstrap"
	"github.com/oncp/resolution-mcp/pkg/service/config"
	"github.com/oncp/resolution-mcp/pkg/service/lifecycle"
)

// Server is a runnable MCP server.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Dependencies struct {
	Logger  zerolog.Logger
	Config  config.Config
	Client  *resolution.Client
	Metrics *telemetry.Metrics // nil when metrics are disabled
	Tracing *telemetry.TracingManager
}

func (d *Dependencies) Validate() error {
	var errs []error

	if d.Client == nil {
		errs = append(errs, errors.New("resolution client is required"))
	}
	if d.Tracing == nil {
		errs = append(errs, errors.New("tracing manager is required"))
	}
	if err := d.Config.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("dependency validation failed: %w", errors.Join(errs...))
	}
	return nil
}

type server struct {
	dependencies     *Dependencies
	lifecycleManager *lifecycle.LifecycleManager
}

func (s *server) Start(ctx context.Context) error {
	return s.lifecycleManager.Start(ctx)
}

func (s *server) Stop(ctx context.Context) error {
	return s.lifecycleManager.Shutdown(ctx)
}

func NewMCPServerFromDeps(deps *Dependencies) (Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	bootstrapper := bootstrap.NewBootstrapper(
		deps.Logger,
		deps.Config.ServiceVersion,
		deps.Client,
		deps.Metrics,
		deps.Tracing,
	)

	lifecycleManager := lifecycle.NewLifecycleManager(
		deps.Logger,
		deps.Config,
		bootstrapper,
		deps.Client,
		deps.Metrics,
		deps.Tracing,
	)

	return &server{
		dependencies:     deps,
		lifecycleManager: lifecycleManager,
	}, nil
}

type ServerFactory struct {
	logger zerolog.Logger
	config config.Config
}

func NewServerFactory(logger zerolog.Logger, cfg config.Config) *ServerFactory {
	return &ServerFactory{
		logger: logger,
		config: cfg,
	}
}

func (f *ServerFactory) CreateServer(ctx context.Context) (Server, error) {
	deps, err := f.buildDependencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependencies: %w", err)
	}

	srv, err := NewMCPServerFromDeps(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	f.logger.Debug().Msg("MCP server created successfully")
	return srv, nil
}

func (f *ServerFactory) buildDependencies(ctx context.Context) (*Dependencies, error) {
	tracing := telemetry.NewTracingManager(telemetry.TracingConfig{
		ServiceName:    f.config.ServiceName,
		ServiceVersion: f.config.ServiceVersion,
		Endpoint:       f.config.OTLPEndpoint,
		SampleRatio:    f.config.TraceSampleRatio,
	})
	if err := tracing.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	var metrics *telemetry.Metrics
	if f.config.MetricsEnabled {
		metrics = telemetry.NewMetrics()
	}

	client := resolution.NewClient(
		f.config.ResolutionServiceURL,
		f.config.APITimeout,
		resolution.WithLogger(f.logger),
		resolution.WithMetrics(metrics),
		resolution.WithTracing(tracing),
		resolution.WithRateLimit(f.config.RateLimit),
	)

	return &Dependencies{
		Logger:  f.logger,
		Config:  f.config,
		Client:  client,
		Metrics: metrics,
		Tracing: tracing,
	}, nil
}
