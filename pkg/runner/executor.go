package runner

import (
	"context"

	"github.com/specvital/pester/pkg/domain"
)

// Executor invokes test bodies and hooks. The runner calls it once per test
// in declaration order, and once per hook. When the runner uses more than one
// worker, Invoke is called from several goroutines, one container each.
type Executor interface {
	Invoke(ctx context.Context, script *domain.Script, data map[string]any) domain.InvocationResult
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, script *domain.Script, data map[string]any) domain.InvocationResult

// Invoke calls f.
func (f ExecutorFunc) Invoke(ctx context.Context, script *domain.Script, data map[string]any) domain.InvocationResult {
	return f(ctx, script, data)
}

// CoverageReporter is implemented by executors that can report code coverage.
// The runner asks for the report once, after the last container, when
// CodeCoverage.Enabled is set. The reporter fills the command lists; the
// runner derives the counters and percentage.
type CoverageReporter interface {
	Coverage(ctx context.Context) (*domain.CodeCoverage, error)
}
