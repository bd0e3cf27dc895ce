package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracingConfig selects where spans go. An empty Endpoint keeps the no-op
// global provider.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	SampleRatio    float64
}

// TracingManager manages OpenTelemetry tracing
type TracingManager struct {
	config   TracingConfig
	provider *trace.TracerProvider
	tracer   oteltrace.Tracer
}

// NewTracingManager creates a new tracing manager
func NewTracingManager(config TracingConfig) *TracingManager {
	return &TracingManager{
		config: config,
		tracer: otel.Tracer(config.ServiceName),
	}
}

// Enabled reports whether spans are exported.
func (tm *TracingManager) Enabled() bool {
	return tm != nil && tm.provider != nil
}

// Initialize installs an OTLP/HTTP exporting provider when an endpoint is configured.
func (tm *TracingManager) Initialize(ctx context.Context) error {
	if tm.config.Endpoint == "" {
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(tm.config.ServiceName),
			semconv.ServiceVersion(tm.config.ServiceVersion),
		),
		resource.WithProcess(),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(tm.config.Endpoint))
	if err != nil {
		return fmt.Errorf("failed to create exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(tm.config.SampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tm.provider = tp
	tm.tracer = tp.Tracer(tm.config.ServiceName)

	return nil
}

// Shutdown flushes pending spans.
func (tm *TracingManager) Shutdown(ctx context.Context) error {
	if tm != nil && tm.provider != nil {
		return tm.provider.Shutdown(ctx)
	}
	return nil
}

// StartSpan starts a new tracing span
func (tm *TracingManager) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	if tm == nil || tm.tracer == nil {
		return ctx, noop.Span{}
	}
	return tm.tracer.Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

// RecordError records an error in the span
func RecordError(span oteltrace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// InstrumentToolExecution wraps tool execution with tracing
func (tm *TracingManager) InstrumentToolExecution(ctx context.Context, toolName string, fn func(context.Context) error) error {
	ctx, span := tm.StartSpan(ctx, "tool."+toolName,
		attribute.String("tool.name", toolName),
		attribute.String("operation.type", "tool_execution"),
	)
	defer span.End()

	err := fn(ctx)
	RecordError(span, err)
	return err
}
