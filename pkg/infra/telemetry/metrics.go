// Package telemetry provides metrics and tracing for the gateway.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by tool and downstream metrics.
const (
	OutcomeSuccess         = "success"
	OutcomeValidationError = "validation_error"
	OutcomeTransportError  = "transport_error"
	OutcomeDownstreamError = "downstream_error"
)

// Metrics holds the gateway's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	downstreamRequests *prometheus.CounterVec
	downstreamDuration *prometheus.HistogramVec
	toolCalls          *prometheus.CounterVec
	toolDuration       *prometheus.HistogramVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		downstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resolution_downstream_requests_total",
			Help: "Total number of requests sent to the resolution API",
		}, []string{"operation", "outcome"}),
		downstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "resolution_downstream_request_duration_seconds",
			Help:    "Duration of resolution API requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		}, []string{"operation"}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resolution_tool_calls_total",
			Help: "Total number of MCP tool invocations",
		}, []string{"tool", "outcome"}),
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "resolution_tool_call_duration_seconds",
			Help:    "Duration of MCP tool invocations in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		}, []string{"tool"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveDownstream(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.downstreamRequests.WithLabelValues(operation, outcome).Inc()
	m.downstreamDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) ObserveToolCall(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ToolCalls returns the counter vector for tool invocations.
func (m *Metrics) ToolCalls() *prometheus.CounterVec { return m.toolCalls }

// DownstreamRequests returns the counter vector for outbound requests.
func (m *Metrics) DownstreamRequests() *prometheus.CounterVec { return m.downstreamRequests }
