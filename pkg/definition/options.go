package definition

import "github.com/google/uuid"

// Options configures the definition parser.
type Options struct {
	// FailOnNullOrEmptyForEach makes an empty forEach a parse error unless the
	// item sets allowNullOrEmptyForEach. Default: true.
	FailOnNullOrEmptyForEach bool

	// NewID generates test IDs and block group IDs.
	// If nil, random UUIDs are used.
	NewID func() string
}

// Option is a functional option for configuring Parser.
type Option func(*Options)

// WithFailOnNullOrEmptyForEach sets whether an empty forEach fails the container.
func WithFailOnNullOrEmptyForEach(fail bool) Option {
	return func(o *Options) {
		o.FailOnNullOrEmptyForEach = fail
	}
}

// WithIDGenerator replaces the UUID generator, mostly for deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(o *Options) {
		o.NewID = fn
	}
}

func applyDefaults(opts *Options) {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
}
