package runner

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Options configures runner behavior.
type Options struct {
	// Workers is the number of containers executed concurrently.
	// Zero or one runs containers sequentially in declaration order.
	Workers int

	// Clock returns the current time; durations are measured with it.
	Clock func() time.Time

	// TracerProvider supplies the tracer for run, container, block and test spans.
	// If nil, the global provider is used.
	TracerProvider trace.TracerProvider

	// Version is recorded on the run summary.
	Version string
}

// Option is a functional option for configuring Runner.
type Option func(*Options)

// WithWorkers sets the number of containers executed concurrently.
// Negative values are ignored.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.Workers = n
		}
	}
}

// WithClock replaces the time source, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

// WithTracerProvider sets the provider used to create spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

// WithVersion sets the version recorded on the run summary.
func WithVersion(v string) Option {
	return func(o *Options) {
		o.Version = v
	}
}

func applyDefaults(opts *Options) {
	if opts.Workers > MaxWorkers {
		opts.Workers = MaxWorkers
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
}
