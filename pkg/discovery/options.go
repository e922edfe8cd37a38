package discovery

import "runtime"

// Options configures discovery behavior.
type Options struct {
	// SkipDirs specifies directory names never descended into.
	// These are combined with DefaultSkipPatterns.
	SkipDirs []string

	// MaxFileSize is the maximum test file size in bytes.
	// Larger files become containers with a discovery error.
	MaxFileSize int64

	// Workers specifies the number of containers parsed concurrently.
	// Zero or negative values use runtime.GOMAXPROCS(0).
	Workers int

	// Cache holds file contents shared between containers of the same file.
	// If nil, a new cache is created per Discoverer.
	Cache *Cache
}

// Option is a functional option for configuring Discoverer.
type Option func(*Options)

// WithSkipDirs adds directory names to skip while walking.
func WithSkipDirs(names []string) Option {
	return func(o *Options) {
		o.SkipDirs = names
	}
}

// WithMaxFileSize sets the maximum file size to read.
func WithMaxFileSize(size int64) Option {
	return func(o *Options) {
		o.MaxFileSize = size
	}
}

// WithWorkers sets the number of concurrent parsers.
// Negative values are ignored.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.Workers = n
		}
	}
}

// WithCache shares a content cache between discoverers.
func WithCache(c *Cache) Option {
	return func(o *Options) {
		o.Cache = c
	}
}

func applyDefaults(opts *Options) {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Workers > MaxWorkers {
		opts.Workers = MaxWorkers
	}
	if opts.Cache == nil {
		opts.Cache = NewCache()
	}
}
