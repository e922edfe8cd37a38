package shell

import "time"

// DefaultShell is the interpreter used when none is configured.
const DefaultShell = "sh"

// Options configures the shell executor.
type Options struct {
	// Shell is the interpreter binary. Default: "sh".
	Shell string

	// Args precede the script body on the interpreter's command line.
	// Default: ["-c"].
	Args []string

	// Env is appended to the inherited environment of every invocation.
	Env []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Timeout bounds a single invocation. Zero means no limit.
	Timeout time.Duration
}

// Option is a functional option for configuring Executor.
type Option func(*Options)

// WithShell sets the interpreter and the arguments placed before the body.
func WithShell(shell string, args ...string) Option {
	return func(o *Options) {
		o.Shell = shell
		o.Args = args
	}
}

// WithEnv adds KEY=VALUE entries to every invocation.
func WithEnv(env ...string) Option {
	return func(o *Options) {
		o.Env = append(o.Env, env...)
	}
}

// WithDir sets the working directory.
func WithDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}

// WithTimeout bounds each invocation. Negative values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.Timeout = d
		}
	}
}

func applyDefaults(opts *Options) {
	if opts.Shell == "" {
		opts.Shell = DefaultShell
		if opts.Args == nil {
			opts.Args = []string{"-c"}
		}
	}
}
