// Package transport serves the MCP server over SSE, next to health and metrics endpoints.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	derrors "github.com/oncp/resolution-mcp/pkg/domain/errors"
	"github.com/oncp/resolution-mcp/pkg/infra/telemetry"
)

const (
	SSEPath     = "/sse"
	MessagePath = "/message"
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"

	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
	keepAliveInterval = 30 * time.Second
	corsMaxAge        = 300
)

// SSEConfig configures the listener and the auxiliary endpoints.
type SSEConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
	Version     string

	Logger zerolog.Logger
	// Metrics enables /metrics when non-nil.
	Metrics *telemetry.Metrics
}

// SSETransport exposes an MCP server as an SSE stream plus a message endpoint.
type SSETransport struct {
	config     SSEConfig
	logger     zerolog.Logger
	router     chi.Router
	sse        *server.SSEServer
	httpServer *http.Server
	startTime  time.Time

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewSSETransport builds the router; nothing listens until Serve is called.
func NewSSETransport(mcpServer *server.MCPServer, config SSEConfig) *SSETransport {
	t := &SSETransport{
		config:    config,
		logger:    config.Logger.With().Str("component", "sse_transport").Logger(),
		startTime: time.Now(),
		ready:     make(chan struct{}),
	}

	t.httpServer = &http.Server{
		Addr:              net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	t.sse = server.NewSSEServer(mcpServer,
		server.WithSSEEndpoint(SSEPath),
		server.WithMessageEndpoint(MessagePath),
		server.WithKeepAliveInterval(keepAliveInterval),
		server.WithHTTPServer(t.httpServer),
	)

	t.setupRouter()
	t.httpServer.Handler = t.router
	return t
}

func (t *SSETransport) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(t.setupCORS())
	r.Use(t.loggingMiddleware)

	r.Handle(SSEPath, t.sse.SSEHandler())
	r.Handle(MessagePath, t.sse.MessageHandler())
	r.Get(HealthPath, t.handleHealth)
	if t.config.Metrics != nil {
		r.Method(http.MethodGet, MetricsPath, t.config.Metrics.Handler())
	}

	t.router = r
}

func (t *SSETransport) setupCORS() func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedOrigins:   t.config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Mcp-Session-Id"},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	}

	if len(t.config.CORSOrigins) == 0 || (len(t.config.CORSOrigins) == 1 && t.config.CORSOrigins[0] == "*") {
		options.AllowedOrigins = []string{"*"}
		options.AllowCredentials = false
	}

	return cors.Handler(options)
}

// loggingMiddleware logs each request once it completes. SSE streams are
// logged when the client disconnects.
func (t *SSETransport) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		t.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request completed")
	})
}

// Handler returns the routed handler, mainly for tests.
func (t *SSETransport) Handler() http.Handler {
	return t.router
}

// Serve listens and serves until ctx is cancelled or the listener fails.
// Cancellation triggers Shutdown bounded by shutdownTimeout.
func (t *SSETransport) Serve(ctx context.Context, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", t.httpServer.Addr)
	if err != nil {
		return derrors.New(derrors.CodeNetworkError, "transport",
			fmt.Sprintf("failed to listen on %s", t.httpServer.Addr), err)
	}

	t.mu.Lock()
	t.listener = ln
	t.mu.Unlock()
	close(t.ready)

	t.logger.Info().
		Str("address", ln.Addr().String()).
		Msgf("MCP SSE server ready at %s", t.SSEURL())

	errCh := make(chan error, 1)
	go func() {
		errCh <- t.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return t.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error().Err(err).Msg("SSE transport stopped with error")
			return derrors.New(derrors.CodeNetworkError, "transport", "SSE transport stopped", err)
		}
		t.logger.Info().Msg("SSE transport stopped gracefully")
		return nil
	}
}

// Ready is closed once the listener is bound.
func (t *SSETransport) Ready() <-chan struct{} {
	return t.ready
}

// Addr returns the bound address, or the configured one before Serve.
func (t *SSETransport) Addr() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.httpServer.Addr
}

// SSEURL is the address clients connect to. Wildcard hosts are shown as localhost.
func (t *SSETransport) SSEURL() string {
	host, port, err := net.SplitHostPort(t.Addr())
	if err != nil {
		return "http://" + t.Addr() + SSEPath
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + SSEPath
}

// Shutdown closes open SSE sessions and stops the HTTP listener. Only the
// first call does any work; later calls return its result.
func (t *SSETransport) Shutdown(ctx context.Context) error {
	t.shutdownOnce.Do(func() {
		t.logger.Info().Msg("Stopping SSE transport")
		if err := t.sse.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.shutdownErr = err
		}
	})
	return t.shutdownErr
}

type healthResponse struct {
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

func (t *SSETransport) handleHealth(w http.ResponseWriter, _ *http.Request) {
	response := healthResponse{
		Status:        "healthy",
		Version:       t.config.Version,
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: int64(time.Since(t.startTime).Seconds()),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		t.logger.Error().Err(err).Msg("Failed to encode health response")
	}
}
