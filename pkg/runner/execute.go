package runner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/specvital/pester/internal/ctxlog"
	"github.com/specvital/pester/internal/observability"
	"github.com/specvital/pester/pkg/aggregate"
	"github.com/specvital/pester/pkg/config"
	"github.com/specvital/pester/pkg/domain"
)

// containerRun holds the state of executing a single container.
type containerRun struct {
	r     *Runner
	scope config.SkipScope

	// stopped is set when the rest of the container must not run.
	stopped bool
	// runStop is shared by all containers of a run.
	runStop *atomic.Bool
}

// frame is the execution state of one block; frames chain to the parent block.
type frame struct {
	parent  *frame
	stopped bool
}

func (f *frame) isStopped() bool {
	for cur := f; cur != nil; cur = cur.parent {
		if cur.stopped {
			return true
		}
	}
	return false
}

func (r *Runner) runContainer(ctx context.Context, cfg *config.Configuration, c *domain.Container, stop *atomic.Bool) {
	ctx, span := observability.StartContainerSpan(ctx, r.tracer, c)
	defer span.End()
	defer func() {
		aggregate.Tree(c)
		observability.RecordCounts(span, c.Counts)
		observability.RecordResult(span, c.Result)
	}()

	if len(c.ErrorRecord) > 0 {
		ctxlog.Debug(ctx, ctxlog.SourceRuntime, "container failed discovery, not running", "container", c.Name())
		return
	}
	if !c.ShouldRun {
		ctxlog.Debug(ctx, ctxlog.SourceFilter, "container has no tests to run", "container", c.Name())
		return
	}

	c.Executed = true
	c.ExecutedAt = r.options.Clock()

	cr := &containerRun{
		r:       r,
		scope:   cfg.Run.SkipScope(),
		runStop: stop,
	}
	for _, b := range c.Blocks {
		cr.block(ctx, b, nil)
	}
}

// isStopped reports whether skip-remaining or cancellation stops work at fr.
func (cr *containerRun) isStopped(ctx context.Context, fr *frame) bool {
	return ctx.Err() != nil || cr.runStop.Load() || cr.stopped || fr.isStopped()
}

// onTestFailed applies SkipRemainingOnFailure after a failed test in the block of fr.
func (cr *containerRun) onTestFailed(ctx context.Context, fr *frame, t *domain.Test) {
	switch cr.scope {
	case config.SkipRun:
		cr.runStop.Store(true)
	case config.SkipContainer:
		cr.stopped = true
	case config.SkipBlock:
		fr.stopped = true
	default:
		return
	}
	ctxlog.Debug(ctx, ctxlog.SourceSkip, "skipping remaining tests after failure",
		"scope", cr.scope, "test", t.FullName())
}

func (cr *containerRun) block(ctx context.Context, b *domain.Block, parent *frame) {
	fr := &frame{parent: parent}
	runnable := b.ShouldRun && !cr.isStopped(ctx, fr) && hasRunnableTest(b)
	if !runnable {
		cr.settle(ctx, b, fr)
		return
	}

	ctx, span := observability.StartBlockSpan(ctx, cr.r.tracer, b)
	defer span.End()
	ctxlog.Debug(ctx, ctxlog.SourceRuntime, "running block", "block", b.FullName())

	b.Executed = true
	b.ExecutedAt = cr.r.options.Clock()

	var own time.Duration
	hook := func(s *domain.Script) bool {
		d, ok := cr.invokeHook(ctx, s, b.Data, &b.ErrorRecord)
		own += d
		return ok
	}

	var parentHooks domain.Hooks
	if b.Parent != nil {
		parentHooks = b.Parent.Hooks
	}

	if hook(parentHooks.EachBlockSetup) {
		if hook(b.Hooks.OneTimeBlockSetup) {
			cr.children(ctx, b, fr, hook)
		} else {
			cr.settleChildren(ctx, b, fr)
		}
		hook(b.Hooks.OneTimeBlockTeardown)
	} else {
		cr.settleChildren(ctx, b, fr)
	}
	hook(parentHooks.EachBlockTeardown)

	b.OwnDuration = own
	aggregate.Block(b)
	observability.RecordCounts(span, b.Counts)
	observability.RecordResult(span, b.Result)
}

// children runs the direct tests and blocks of b in declaration order. The
// one-time test setup runs before the first child that will run and its
// teardown after the last one. If the setup fails, no child is executed and
// the error is recorded on b only.
func (cr *containerRun) children(ctx context.Context, b *domain.Block, fr *frame, hook func(*domain.Script) bool) {
	setupRan, setupFailed := false, false

	for _, n := range b.Order {
		sel := n.Selected()
		if sel.First && !setupRan {
			setupRan = true
			setupFailed = !hook(b.Hooks.OneTimeTestSetup)
			if setupFailed {
				ctxlog.Debug(ctx, ctxlog.SourceRuntime, "one-time setup failed, not running block", "block", b.FullName())
			}
		}

		switch n := n.(type) {
		case *domain.Block:
			if setupFailed {
				cr.settle(ctx, n, &frame{parent: fr})
			} else {
				cr.block(ctx, n, fr)
			}
		case *domain.Test:
			if !setupFailed {
				cr.test(ctx, n, fr)
			}
		}

		if sel.Last && setupRan {
			hook(b.Hooks.OneTimeTestTeardown)
		}
	}
}

// settle resolves the results of a block that will not execute anything:
// tests become Skipped or stay NotRun, and the subtree is aggregated.
func (cr *containerRun) settle(ctx context.Context, b *domain.Block, fr *frame) {
	cr.settleChildren(ctx, b, fr)
	aggregate.Block(b)
}

func (cr *containerRun) settleChildren(ctx context.Context, b *domain.Block, fr *frame) {
	for _, n := range b.Order {
		switch n := n.(type) {
		case *domain.Block:
			cr.settle(ctx, n, &frame{parent: fr})
		case *domain.Test:
			cr.resolveNotRunnable(ctx, n, fr)
		}
	}
}

// resolveNotRunnable decides the result of a test that will not be invoked.
// It returns false when the test should be invoked after all.
func (cr *containerRun) resolveNotRunnable(ctx context.Context, t *domain.Test, fr *frame) bool {
	switch {
	case !t.ShouldRun:
		t.Result = domain.ResultNotRun
	case cr.isStopped(ctx, fr):
		t.Result = domain.ResultNotRun
		ctxlog.Debug(ctx, ctxlog.SourceSkip, "test not run, remaining tests are skipped", "test", t.FullName())
	case t.IsSkipped():
		t.Result = domain.ResultSkipped
		ctxlog.Debug(ctx, ctxlog.SourceSkip, "test skipped", "test", t.FullName())
	case t.Script == nil:
		t.Result = domain.ResultSkipped
		ctxlog.Debug(ctx, ctxlog.SourceSkip, "test has no body, skipped as pending", "test", t.FullName())
	default:
		return false
	}
	return true
}

func (cr *containerRun) test(ctx context.Context, t *domain.Test, fr *frame) {
	if cr.resolveNotRunnable(ctx, t, fr) {
		return
	}

	ctx, span := observability.StartTestSpan(ctx, cr.r.tracer, t)
	defer span.End()
	ctxlog.Debug(ctx, ctxlog.SourceRuntime, "running test", "test", t.FullName())

	t.Executed = true
	t.ExecutedAt = cr.r.options.Clock()

	var framework time.Duration
	hook := func(s *domain.Script) bool {
		d, ok := cr.invokeHook(ctx, s, t.Data, &t.ErrorRecord)
		framework += d
		return ok
	}

	var ancestors []*domain.Block
	if t.Block != nil {
		ancestors = t.Block.Ancestors()
	}

	setupOK := true
	setups := 0
	for _, a := range ancestors {
		setups++
		if !hook(a.Hooks.EachTestSetup) {
			setupOK = false
			break
		}
	}

	result := domain.ResultFailed
	if setupOK {
		result = cr.invokeBody(ctx, t)
	}

	for i := setups - 1; i >= 0; i-- {
		if !hook(ancestors[i].Hooks.EachTestTeardown) {
			result = domain.ResultFailed
		}
	}

	t.Result = result
	t.FrameworkDuration = framework
	observability.RecordResult(span, t.Result)

	if t.Result == domain.ResultFailed {
		cr.onTestFailed(ctx, fr, t)
	}
}

func (cr *containerRun) invokeBody(ctx context.Context, t *domain.Test) domain.Result {
	if t.Script == nil {
		return domain.ResultSkipped
	}

	start := cr.r.options.Clock()
	res := cr.r.exec.Invoke(ctx, t.Script, t.Data)
	t.UserDuration = cr.r.options.Clock().Sub(start)
	t.StandardOutput = res.StandardOutput

	switch {
	case !res.Success:
		errs := res.ErrorRecord
		if len(errs) == 0 {
			errs = []domain.ErrorRecord{domain.NewAssertionError("test failed", t.Location.File, t.StartLine(), "", true)}
		}
		t.ErrorRecord = append(t.ErrorRecord, errs...)
		return domain.ResultFailed
	case res.Skipped:
		return domain.ResultSkipped
	case res.Inconclusive:
		return domain.ResultInconclusive
	default:
		return domain.ResultPassed
	}
}

// invokeHook runs s when set. Failures are appended to errs, with a
// synthesized record when the executor gave none.
func (cr *containerRun) invokeHook(ctx context.Context, s *domain.Script, data map[string]any, errs *[]domain.ErrorRecord) (time.Duration, bool) {
	if s == nil {
		return 0, true
	}

	start := cr.r.options.Clock()
	res := cr.r.exec.Invoke(ctx, s, data)
	d := cr.r.options.Clock().Sub(start)
	if res.Success {
		return d, true
	}

	records := res.ErrorRecord
	if len(records) == 0 {
		records = []domain.ErrorRecord{{
			ErrorID:     domain.ErrorIDHookFailed,
			Message:     "hook failed",
			File:        s.Location.File,
			Line:        s.Location.StartLine,
			Terminating: true,
		}}
	}
	*errs = append(*errs, records...)
	return d, false
}

// hasRunnableTest reports whether any test under b would be invoked, ignoring
// skip-remaining state. Tests without a body are pending and never invoked.
func hasRunnableTest(b *domain.Block) bool {
	for _, t := range b.AllTests() {
		if t.ShouldRun && !t.IsSkipped() && t.Script != nil {
			return true
		}
	}
	return false
}
