package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncp/resolution-mcp/pkg/infra/telemetry"
	"github.com/oncp/resolution-mcp/pkg/resolution"
	"github.com/oncp/resolution-mcp/pkg/service/tools"
)

func newTransport(t *testing.T, downstreamURL string, metrics *telemetry.Metrics) *SSETransport {
	t.Helper()

	mcpServer := server.NewMCPServer("test", "0.0.0", server.WithToolCapabilities(true))
	require.NoError(t, tools.RegisterTools(mcpServer, tools.ToolDependencies{
		Client:  resolution.NewClient(downstreamURL, 2*time.Second),
		Logger:  zerolog.Nop(),
		Metrics: metrics,
	}))

	return NewSSETransport(mcpServer, SSEConfig{
		Host:    "127.0.0.1",
		Port:    0,
		Version: "test",
		Logger:  zerolog.Nop(),
		Metrics: metrics,
	})
}

// startTransport serves tr in the background and stops it when the test ends.
func startTransport(t *testing.T, tr *SSETransport) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tr.Serve(ctx, 5*time.Second)
	}()

	select {
	case <-tr.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("transport failed to start: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("transport did not become ready")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("transport did not shut down")
		}
	})
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("unexpected content type %T", c)
		return ""
	}
}

func TestSSEEndToEnd(t *testing.T) {
	var calls int32
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/resolve":
			_, _ = w.Write([]byte(`{"job_id":"abc-123","status":"QUEUED"}`))
		case "/jobs/abc-123/status":
			_, _ = w.Write([]byte(`{"job_id":"abc-123","status":"RUNNING"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"db down"}`))
		}
	}))
	defer downstream.Close()

	tr := newTransport(t, downstream.URL, nil)
	startTransport(t, tr)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	c, err := client.NewSSEMCPClient("http://" + tr.Addr() + SSEPath)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "sse-test", Version: "0.0.0"}
	_, err = c.Initialize(ctx, initReq)
	require.NoError(t, err)

	listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	assert.Len(t, listed.Tools, 3)

	call := func(name string, args map[string]interface{}) *mcp.CallToolResult {
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args
		result, err := c.CallTool(ctx, req)
		require.NoError(t, err)
		return result
	}

	started := call(tools.ToolStartResolution, map[string]interface{}{
		"hostname": "host1", "error_code": "E500", "issue_description": "disk full",
	})
	assert.False(t, started.IsError)
	assert.Contains(t, textOf(t, started), "abc-123")

	status := call(tools.ToolCheckResolutionStatus, map[string]interface{}{"job_id": "abc-123"})
	assert.False(t, status.IsError)
	assert.Contains(t, textOf(t, status), `"status":"RUNNING"`)

	failed := call(tools.ToolGetResolutionReasoning, map[string]interface{}{"job_id": "abc-123"})
	assert.True(t, failed.IsError)
	assert.Contains(t, textOf(t, failed), "500")
	assert.Contains(t, textOf(t, failed), "db down")

	invalid := call(tools.ToolCheckResolutionStatus, map[string]interface{}{"job_id": "  "})
	assert.True(t, invalid.IsError)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHealthEndpoint(t *testing.T) {
	tr := newTransport(t, "http://127.0.0.1:1", nil)

	rec := httptest.NewRecorder()
	tr.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HealthPath, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "test", body.Version)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		tr := newTransport(t, "http://127.0.0.1:1", telemetry.NewMetrics())

		rec := httptest.NewRecorder()
		tr.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body, err := io.ReadAll(rec.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "go_goroutines")
	})

	t.Run("disabled", func(t *testing.T) {
		tr := newTransport(t, "http://127.0.0.1:1", nil)

		rec := httptest.NewRecorder()
		tr.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCORSPreflight(t *testing.T) {
	tr := newTransport(t, "http://127.0.0.1:1", nil)

	req := httptest.NewRequest(http.MethodOptions, MessagePath, nil)
	req.Header.Set("Origin", "http://inspector.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	tr.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSSEURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"0.0.0.0", "http://localhost:8000/sse"},
		{"", "http://localhost:8000/sse"},
		{"127.0.0.1", "http://127.0.0.1:8000/sse"},
		{"::1", "http://[::1]:8000/sse"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			tr := NewSSETransport(server.NewMCPServer("test", "0.0.0"), SSEConfig{
				Host:   tt.host,
				Port:   8000,
				Logger: zerolog.Nop(),
			})
			assert.Equal(t, tt.want, tr.SSEURL())
		})
	}
}
