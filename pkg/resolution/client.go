// Package resolution is the HTTP client for the downstream resolution API.
package resolution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	derrors "github.com/oncp/resolution-mcp/pkg/domain/errors"
	"github.com/oncp/resolution-mcp/pkg/infra/telemetry"
)

const (
	domain = "resolution"

	pathResolve  = "/resolve"
	maxBodyBytes = 1 << 20
	// maxLoggedBody caps the body snippet written to warn logs.
	maxLoggedBody = 512
)

// Operation names used in logs, spans and metrics.
const (
	OpLaunchResolution = "launch_resolution"
	OpGetJobStatus     = "get_job_status"
	OpGetJobAnalysis   = "get_job_analysis"
)

// Client talks to the resolution API. It holds no per-call state and is safe
// for concurrent use.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
	metrics    *telemetry.Metrics
	tracing    *telemetry.TracingManager
	limiter    *rate.Limiter // nil means unlimited
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "resolution_client").Logger()
	}
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithTracing(tm *telemetry.TracingManager) Option {
	return func(c *Client) {
		c.tracing = tm
	}
}

// WithRateLimit caps outbound calls at rps requests per second. Values <= 0
// leave the client unlimited.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
	}
}

// NewClient creates a client for baseURL. timeout bounds every call.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport.(*http.Transport).Clone()),
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle keep-alive connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// LaunchResolution submits a new resolution job.
func (c *Client) LaunchResolution(ctx context.Context, req ResolutionRequest) (*JobHandle, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("hostname", req.Hostname).
		Str("error_code", req.ErrorCode).
		Msg("Launching resolution job")

	body := launchRequest{
		Error:    req.ErrorCode,
		Hostname: req.Hostname,
		Message:  req.IssueDescription,
	}

	var handle JobHandle
	if err := c.do(ctx, OpLaunchResolution, http.MethodPost, pathResolve, body, &handle); err != nil {
		return nil, err
	}
	if handle.JobID == "" {
		return nil, &DownstreamError{
			Method:     http.MethodPost,
			Path:       pathResolve,
			StatusCode: http.StatusOK,
			Reason:     "response did not include a job_id",
		}
	}

	c.logger.Info().
		Str("operation", OpLaunchResolution).
		Str("job_id", handle.JobID).
		Str("status", handle.Status).
		Msg("Resolution job launched")
	return &handle, nil
}

// GetJobStatus returns the job's current status as reported downstream.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	jobID = strings.TrimSpace(jobID)
	if err := RequireNonEmpty("job_id", jobID); err != nil {
		return nil, err
	}

	c.logger.Debug().Str("job_id", jobID).Msg("Fetching job status")

	var status JobStatus
	if err := c.do(ctx, OpGetJobStatus, http.MethodGet, jobPath(jobID, "status"), nil, &status); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("operation", OpGetJobStatus).
		Str("job_id", jobID).
		Str("status", status.Status).
		Msg("Job status fetched")
	return &status, nil
}

// GetJobAnalysis returns the agent reasoning captured for a job.
func (c *Client) GetJobAnalysis(ctx context.Context, jobID string) (*JobAnalysis, error) {
	jobID = strings.TrimSpace(jobID)
	if err := RequireNonEmpty("job_id", jobID); err != nil {
		return nil, err
	}

	c.logger.Debug().Str("job_id", jobID).Msg("Fetching job analysis")

	var analysis JobAnalysis
	if err := c.do(ctx, OpGetJobAnalysis, http.MethodGet, jobPath(jobID, "analysis"), nil, &analysis); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("operation", OpGetJobAnalysis).
		Str("job_id", jobID).
		Int("thoughts_len", len(analysis.Thoughts)).
		Msg("Job analysis fetched")
	return &analysis, nil
}

func jobPath(jobID, leaf string) string {
	return "/jobs/" + url.PathEscape(jobID) + "/" + leaf
}

// do wraps a single round trip with the per-call deadline, a span and metrics.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	ctx, span := c.tracing.StartSpan(ctx, "resolution."+operation,
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.wait(ctx, method, path)
	if err == nil {
		err = c.roundTrip(ctx, method, path, body, out)
	}
	c.metrics.ObserveDownstream(operation, Outcome(err), time.Since(start))
	telemetry.RecordError(span, err)
	return err
}

// wait blocks until the rate limiter admits the call. A wait that cannot
// finish before the call deadline counts as a timeout.
func (c *Client) wait(ctx context.Context, method, path string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return c.transportError(method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return derrors.New(derrors.CodeInternalError, domain, "failed to encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return c.transportError(method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.transportError(method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Int("status_code", resp.StatusCode).
			Str("content", snippet(string(raw))).
			Msg("Resolution API responded with error")
		return &DownstreamError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Error().
			Err(err).
			Str("method", method).
			Str("path", path).
			Msg("Resolution API returned invalid JSON")
		return &DownstreamError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Reason:     "returned invalid JSON",
			Err:        err,
		}
	}
	return nil
}

func (c *Client) transportError(method, path string, err error) *TransportError {
	te := &TransportError{
		Service: c.baseURL,
		Method:  method,
		Path:    path,
		After:   c.timeout,
		Err:     err,
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		te.Timeout = true
	case errors.As(err, &netErr) && netErr.Timeout():
		te.Timeout = true
	case errors.Is(err, context.Canceled):
		te.Cancelled = true
	}

	c.logger.Error().
		Err(err).
		Str("method", method).
		Str("path", path).
		Bool("timeout", te.Timeout).
		Msg(te.Error())
	return te
}

// Outcome maps an error returned by the client to a metrics outcome label.
func Outcome(err error) string {
	var te *TransportError
	var de *DownstreamError
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.As(err, &te):
		return telemetry.OutcomeTransportError
	case errors.As(err, &de):
		return telemetry.OutcomeDownstreamError
	default:
		return telemetry.OutcomeValidationError
	}
}
