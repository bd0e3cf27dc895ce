package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncp/resolution-mcp/pkg/service/config"
)

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.ResolutionServiceURL = "http://127.0.0.1:9"
	cfg.SSEHost = "127.0.0.1"
	return cfg
}

func TestDependenciesValidate(t *testing.T) {
	deps := &Dependencies{Logger: zerolog.Nop(), Config: config.DefaultConfig()}

	err := deps.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolution client is required")
	assert.Contains(t, err.Error(), "tracing manager is required")
	assert.Contains(t, err.Error(), config.EnvResolutionServiceURL)
}

func TestCreateServer(t *testing.T) {
	factory := NewServerFactory(zerolog.Nop(), testConfig())

	srv, err := factory.CreateServer(context.Background())
	require.NoError(t, err)
	require.NotNil(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, srv.Stop(ctx))
}

func TestBuildDependenciesHonoursMetricsFlag(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = false

	deps, err := NewServerFactory(zerolog.Nop(), cfg).buildDependencies(context.Background())
	require.NoError(t, err)
	assert.Nil(t, deps.Metrics)
	assert.False(t, deps.Tracing.Enabled())
	assert.Equal(t, "http://127.0.0.1:9", deps.Client.BaseURL())

	cfg.MetricsEnabled = true
	deps, err = NewServerFactory(zerolog.Nop(), cfg).buildDependencies(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, deps.Metrics)
}
