// Package observability provides OpenTelemetry tracing for test runs.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/specvital/pester/pkg/domain"
)

const (
	// TracerName is the instrumentation name of the runner's tracer.
	TracerName = "github.com/specvital/pester"
	// ServiceName is reported as service.name on exported spans.
	ServiceName = "pester"
)

// TracingOption configures NewTracing.
type TracingOption func(*tracingOptions)

type tracingOptions struct {
	endpoint    string
	version     string
	sampleRatio float64
	exporter    sdktrace.SpanExporter
}

// WithOTLPEndpoint exports spans to an OTLP gRPC collector such as "localhost:4317".
func WithOTLPEndpoint(endpoint string) TracingOption {
	return func(o *tracingOptions) {
		o.endpoint = endpoint
	}
}

// WithServiceVersion sets service.version on exported spans.
func WithServiceVersion(version string) TracingOption {
	return func(o *tracingOptions) {
		o.version = version
	}
}

// WithSampleRatio sets the fraction of runs that are traced. Values at or
// above 1 trace every run, values at or below 0 none.
func WithSampleRatio(ratio float64) TracingOption {
	return func(o *tracingOptions) {
		o.sampleRatio = ratio
	}
}

// WithExporter sends spans to exporter synchronously, as each one ends. It
// takes precedence over an OTLP endpoint.
func WithExporter(exporter sdktrace.SpanExporter) TracingOption {
	return func(o *tracingOptions) {
		o.exporter = exporter
	}
}

// Tracing owns the tracer provider of one pester invocation.
type Tracing struct {
	provider trace.TracerProvider
	sdk      *sdktrace.TracerProvider
}

// NewTracing builds the tracer provider for a run. Without an endpoint or an
// exporter every span is a no-op.
func NewTracing(ctx context.Context, opts ...TracingOption) (*Tracing, error) {
	o := tracingOptions{version: "dev", sampleRatio: 1}
	for _, opt := range opts {
		opt(&o)
	}

	var export sdktrace.TracerProviderOption
	switch {
	case o.exporter != nil:
		export = sdktrace.WithSyncer(o.exporter)
	case o.endpoint != "":
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(o.endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP exporter for %s: %w", o.endpoint, err)
		}
		export = sdktrace.WithBatcher(exporter)
	default:
		return &Tracing{provider: noop.NewTracerProvider()}, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(o.version),
	))
	if err != nil {
		return nil, fmt.Errorf("building trace resource: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(
		export,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.sampleRatio))),
	)
	return &Tracing{provider: sdk, sdk: sdk}, nil
}

// Provider returns the provider to hand to the runner.
func (t *Tracing) Provider() trace.TracerProvider {
	return t.provider
}

// Shutdown flushes pending spans. It is a no-op for disabled tracing.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.sdk == nil {
		return nil
	}
	return t.sdk.Shutdown(ctx)
}

// Span kinds for test-run operations.
const (
	SpanKindRun       = "run"
	SpanKindContainer = "container"
	SpanKindBlock     = "block"
	SpanKindTest      = "test"
)

// StartRunSpan starts the root span of a run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, containerCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "pester.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pester.span.kind", SpanKindRun),
			attribute.Int("pester.run.container_count", containerCount),
		),
	)
}

// StartContainerSpan starts a span for one container.
func StartContainerSpan(ctx context.Context, tracer trace.Tracer, c *domain.Container) (context.Context, trace.Span) {
	return tracer.Start(ctx, "container "+c.Name(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pester.span.kind", SpanKindContainer),
			attribute.String("pester.container.type", string(c.Type)),
			attribute.String("pester.container.item", c.Name()),
		),
	)
}

// StartBlockSpan starts a span for one block.
func StartBlockSpan(ctx context.Context, tracer trace.Tracer, b *domain.Block) (context.Context, trace.Span) {
	return tracer.Start(ctx, "block "+b.ExpandedName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pester.span.kind", SpanKindBlock),
			attribute.String("pester.block.full_name", b.FullName()),
			attribute.StringSlice("pester.tags", b.Tag),
		),
	)
}

// StartTestSpan starts a span for one test.
func StartTestSpan(ctx context.Context, tracer trace.Tracer, t *domain.Test) (context.Context, trace.Span) {
	return tracer.Start(ctx, "test "+t.ExpandedName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pester.span.kind", SpanKindTest),
			attribute.String("pester.test.full_name", t.FullName()),
			attribute.String("pester.test.location", t.Location.String()),
			attribute.StringSlice("pester.tags", t.Tag),
		),
	)
}

// RecordCounts records aggregated counts on a span.
func RecordCounts(span trace.Span, c domain.Counts) {
	span.SetAttributes(
		attribute.Int("pester.count.total", c.TotalCount),
		attribute.Int("pester.count.passed", c.PassedCount),
		attribute.Int("pester.count.failed", c.FailedCount),
		attribute.Int("pester.count.skipped", c.SkippedCount),
		attribute.Int("pester.count.not_run", c.NotRunCount),
		attribute.Int("pester.count.inconclusive", c.InconclusiveCount),
	)
}

// RecordResult records a result on a span, marking failures as errors.
func RecordResult(span trace.Span, result domain.Result) {
	span.SetAttributes(attribute.String("pester.result", string(result)))
	if result == domain.ResultFailed {
		span.SetStatus(codes.Error, "failed")
	}
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
