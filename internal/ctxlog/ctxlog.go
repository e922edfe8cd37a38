// Package ctxlog provides a context key for safely passing a slog.Logger
// instance through context.Context, plus helpers for source-tagged debug output.
package ctxlog

import (
	"context"
	"log/slog"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

// loggerKey is the key for the slog.Logger in a context.Context.
var loggerKey = key{}

// SourceKey is the attribute naming the subsystem that wrote a debug message.
const SourceKey = "source"

// Debug message sources.
const (
	SourceDiscovery    = "Discovery"
	SourceFilter       = "Filter"
	SourceSkip         = "Skip"
	SourceRuntime      = "Runtime"
	SourceCodeCoverage = "CodeCoverage"
)

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context. If no logger is
// found, it returns the default global logger.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// Debug writes a debug message tagged with source.
func Debug(ctx context.Context, source, msg string, args ...any) {
	logger := FromContext(ctx)
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	logger.DebugContext(ctx, msg, append([]any{slog.String(SourceKey, source)}, args...)...)
}
