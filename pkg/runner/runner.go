// Package runner executes a discovered and filtered test tree depth-first,
// invoking hooks and test bodies through an Executor and aggregating the
// results into a run summary.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/specvital/pester/internal/ctxlog"
	"github.com/specvital/pester/internal/observability"
	"github.com/specvital/pester/pkg/aggregate"
	"github.com/specvital/pester/pkg/config"
	"github.com/specvital/pester/pkg/domain"
	"github.com/specvital/pester/pkg/filter"
)

const (
	// MaxWorkers is the maximum number of concurrently executed containers.
	MaxWorkers = 1024
)

var (
	// ErrRunCancelled is returned when the context is cancelled during a run.
	// The partial run summary is returned alongside it.
	ErrRunCancelled = errors.New("runner: run cancelled")
	// ErrNoExecutor is returned when tests must run but no executor was given.
	ErrNoExecutor = errors.New("runner: no executor")
)

// Runner drives test execution.
type Runner struct {
	exec    Executor
	options *Options
	tracer  trace.Tracer
}

// New creates a runner invoking test code through exec. exec may be nil when
// every run uses Run.SkipRun.
func New(exec Executor, opts ...Option) *Runner {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	applyDefaults(options)

	return &Runner{
		exec:    exec,
		options: options,
		tracer:  options.TracerProvider.Tracer(observability.TracerName),
	}
}

// Run filters, executes and aggregates containers according to cfg and
// returns the finished summary. Test failures never surface as errors; only an
// invalid configuration, a missing executor or cancellation do.
func (r *Runner) Run(ctx context.Context, cfg *config.Configuration, containers []*domain.Container) (*domain.Run, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("runner: invalid configuration: %w", err)
	}
	skipRun := cfg.Run.SkipRun.Value()
	if r.exec == nil && !skipRun {
		return nil, ErrNoExecutor
	}

	logger := ctxlog.FromContext(ctx)
	ctx, span := observability.StartRunSpan(ctx, r.tracer, len(containers))
	defer span.End()

	start := r.options.Clock()
	run := domain.NewRun(containers)
	run.Version = r.options.Version
	run.Configuration = cfg
	run.ExecutedAt = start

	for _, c := range containers {
		reset(c)
	}

	filterStart := r.options.Clock()
	sum := filter.New(cfg.Filter).Apply(ctx, containers)
	filterDuration := r.options.Clock().Sub(filterStart)
	ctxlog.Debug(ctx, ctxlog.SourceFilter, "filter applied",
		"tests", sum.Tests, "selected", sum.Selected, "excluded", sum.Excluded)

	if skipRun {
		ctxlog.Debug(ctx, ctxlog.SourceRuntime, "skipping run, discovery only")
		for _, c := range containers {
			aggregate.Tree(c)
		}
	} else {
		run.Executed = true
		r.execute(ctx, cfg, containers)
	}

	aggregate.Finalize(run)
	run.FrameworkDuration += filterDuration

	if !skipRun && cfg.CodeCoverage.Enabled.Value() {
		r.attachCoverage(ctx, cfg, run)
	}

	observability.RecordCounts(span, run.Counts)
	observability.RecordResult(span, run.Result)
	logger.InfoContext(ctx, "run finished",
		"result", run.Result,
		"total", run.TotalCount,
		"passed", run.PassedCount,
		"failed", run.FailedCount,
		"skipped", run.SkippedCount,
		"notRun", run.NotRunCount,
		"duration", run.Duration(),
	)

	if err := ctx.Err(); err != nil {
		observability.RecordError(span, err)
		return run, ErrRunCancelled
	}
	return run, nil
}

// execute runs containers sequentially, or concurrently when more than one
// worker is configured. Each container's tree is only touched by the
// goroutine executing it.
func (r *Runner) execute(ctx context.Context, cfg *config.Configuration, containers []*domain.Container) {
	stop := &atomic.Bool{}

	if r.options.Workers <= 1 || len(containers) <= 1 {
		for _, c := range containers {
			r.runContainer(ctx, cfg, c, stop)
		}
		return
	}

	sem := semaphore.NewWeighted(int64(r.options.Workers))
	g, gCtx := errgroup.WithContext(ctx)

	for _, c := range containers {
		g.Go(func() error {
			if err := sem.Acquire(gCtx, 1); err != nil {
				aggregate.Tree(c)
				return nil
			}
			defer sem.Release(1)

			r.runContainer(gCtx, cfg, c, stop)
			return nil
		})
	}

	_ = g.Wait()
}

func (r *Runner) attachCoverage(ctx context.Context, cfg *config.Configuration, run *domain.Run) {
	reporter, ok := r.exec.(CoverageReporter)
	if !ok {
		ctxlog.Debug(ctx, ctxlog.SourceCodeCoverage, "executor does not report coverage")
		return
	}
	cov, err := reporter.Coverage(ctx)
	if err != nil {
		ctxlog.FromContext(ctx).WarnContext(ctx, "collecting code coverage failed", "error", err)
		return
	}
	if cov == nil {
		return
	}
	cov.CoveragePercentTarget = cfg.CodeCoverage.CoveragePercentTarget.Value()
	cov.ComputePercent()
	run.CodeCoverage = cov
	ctxlog.Debug(ctx, ctxlog.SourceCodeCoverage, "code coverage collected",
		"percent", cov.CoveragePercent, "target", cov.CoveragePercentTarget)
}

// reset clears execution state from a previous run. Discovery errors on the
// container are kept.
func reset(c *domain.Container) {
	c.Executed = false
	c.UserDuration = 0
	c.FrameworkDuration = 0
	c.Walk(func(b *domain.Block) {
		b.ErrorRecord = []domain.ErrorRecord{}
		b.Executed = false
		b.StandardOutput = nil
		b.OwnDuration = 0
		for _, t := range b.Tests {
			t.Result = domain.ResultNotRun
			t.ErrorRecord = []domain.ErrorRecord{}
			t.StandardOutput = nil
			t.Executed = false
			t.UserDuration = 0
			t.FrameworkDuration = 0
		}
	})
}
