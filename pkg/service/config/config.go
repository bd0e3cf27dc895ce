// Package config loads the gateway's runtime configuration from the environment.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/oncp/resolution-mcp/pkg/domain/errors"
)

const (
	EnvResolutionServiceURL = "RESOLUTION_SERVICE_URL"
	EnvAPITimeout           = "API_TIMEOUT"
	EnvRateLimit            = "RESOLUTION_RATE_LIMIT"
	EnvSSEPort              = "MCP_SSE_PORT"
	EnvSSEHost              = "MCP_SSE_HOST"
	EnvCORSOrigins          = "MCP_CORS_ORIGINS"
	EnvLogLevel             = "LOG_LEVEL"
	EnvLogFormat            = "LOG_FORMAT"
	EnvMetricsEnabled       = "MCP_METRICS_ENABLED"
	EnvServiceName          = "MCP_SERVICE_NAME"
	EnvOTLPEndpoint         = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvTraceSampleRatio     = "OTEL_TRACE_SAMPLE_RATIO"
)

const domain = "config"

// Config is built once at startup and passed by value afterwards.
type Config struct {
	// Downstream resolution API
	ResolutionServiceURL string        `env:"RESOLUTION_SERVICE_URL"`
	APITimeout           time.Duration `env:"API_TIMEOUT"`
	// RateLimit is outbound requests per second; 0 disables limiting.
	RateLimit float64 `env:"RESOLUTION_RATE_LIMIT"`

	// SSE transport
	SSEHost string `env:"MCP_SSE_HOST"`
	SSEPort int    `env:"MCP_SSE_PORT"`
	// CORSOrigins lists browser origins allowed to open a session. "*" allows any.
	CORSOrigins []string `env:"MCP_CORS_ORIGINS"`

	// Logging settings
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"` // console or json

	// Service identification
	ServiceName    string `env:"MCP_SERVICE_NAME"`
	ServiceVersion string

	// Observability
	MetricsEnabled   bool    `env:"MCP_METRICS_ENABLED"`
	OTLPEndpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TraceSampleRatio float64 `env:"OTEL_TRACE_SAMPLE_RATIO"`
}

// Load reads an optional env file, applies environment variables over the
// defaults and validates the result. An empty envFile loads ./.env when present.
// Variables already set in the process environment win over the file.
func Load(envFile string) (Config, error) {
	cfg := DefaultConfig()

	if err := loadEnvFile(envFile); err != nil {
		return cfg, err
	}

	if err := loadFromEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func DefaultConfig() Config {
	return Config{
		APITimeout:       30 * time.Second,
		SSEHost:          "0.0.0.0",
		SSEPort:          8000,
		CORSOrigins:      []string{"*"},
		LogLevel:         "info",
		LogFormat:        "console",
		ServiceName:      "resolution-mcp",
		ServiceVersion:   "dev",
		MetricsEnabled:   true,
		TraceSampleRatio: 1.0,
	}
}

func loadEnvFile(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return errors.New(errors.CodeConfigurationInvalid, domain, fmt.Sprintf("failed to load env file %s", envFile), err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
	return nil
}

func loadFromEnv(cfg *Config) error {
	if v := lookup(EnvResolutionServiceURL); v != "" {
		cfg.ResolutionServiceURL = strings.TrimRight(v, "/")
	}
	if v := lookup(EnvAPITimeout); v != "" {
		seconds, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.New(errors.CodeConfigurationInvalid, domain, EnvAPITimeout+" must be a numeric value", err)
		}
		if seconds <= 0 {
			return errors.New(errors.CodeConfigurationInvalid, domain, EnvAPITimeout+" must be greater than zero", nil)
		}
		cfg.APITimeout = time.Duration(seconds * float64(time.Second))
	}
	if v := lookup(EnvRateLimit); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.New(errors.CodeConfigurationInvalid, domain, EnvRateLimit+" must be a numeric value", err)
		}
		cfg.RateLimit = rps
	}
	if v := lookup(EnvSSEPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New(errors.CodeConfigurationInvalid, domain, EnvSSEPort+" must be an integer", err)
		}
		cfg.SSEPort = port
	}
	if v := lookup(EnvSSEHost); v != "" {
		cfg.SSEHost = v
	}
	if v := lookup(EnvCORSOrigins); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := lookup(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := lookup(EnvLogFormat); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := lookup(EnvMetricsEnabled); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New(errors.CodeConfigurationInvalid, domain, EnvMetricsEnabled+" must be a boolean", err)
		}
		cfg.MetricsEnabled = enabled
	}
	if v := lookup(EnvServiceName); v != "" {
		cfg.ServiceName = v
	}
	if v := lookup(EnvOTLPEndpoint); v != "" {
		cfg.OTLPEndpoint = v
	}
	if v := lookup(EnvTraceSampleRatio); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.New(errors.CodeConfigurationInvalid, domain, EnvTraceSampleRatio+" must be a numeric value", err)
		}
		cfg.TraceSampleRatio = ratio
	}
	return nil
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks every field; the first failure is returned.
func (c Config) Validate() error {
	if c.ResolutionServiceURL == "" {
		return errors.New(errors.CodeConfigurationInvalid, domain, EnvResolutionServiceURL+" is required but was not provided", nil)
	}
	u, err := url.Parse(c.ResolutionServiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New(errors.CodeConfigurationInvalid, domain, EnvResolutionServiceURL+" must be an absolute http(s) URL", err)
	}
	if c.APITimeout <= 0 {
		return errors.New(errors.CodeConfigurationInvalid, domain, EnvAPITimeout+" must be greater than zero", nil)
	}
	if c.SSEPort <= 0 || c.SSEPort > 65535 {
		return errors.New(errors.CodeConfigurationInvalid, domain, EnvSSEPort+" must be between 1 and 65535", nil)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(errors.CodeConfigurationInvalid, domain, EnvLogLevel+" must be one of: debug, info, warn, error", nil)
	}
	if c.RateLimit < 0 {
		return errors.New(errors.CodeConfigurationInvalid, domain, EnvRateLimit+" must not be negative", nil)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return errors.New(errors.CodeConfigurationInvalid, domain, EnvLogFormat+" must be console or json", nil)
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return errors.New(errors.CodeConfigurationInvalid, domain, EnvTraceSampleRatio+" must be between 0 and 1", nil)
	}
	return nil
}

// ListenAddr is the host:port the SSE transport binds to.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.SSEHost, strconv.Itoa(c.SSEPort))
}
