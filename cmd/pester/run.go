package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specvital/pester/internal/ctxlog"
	"github.com/specvital/pester/internal/observability"
	"github.com/specvital/pester/pkg/config"
	"github.com/specvital/pester/pkg/domain"
	"github.com/specvital/pester/pkg/runner"
	"github.com/specvital/pester/pkg/shell"
)

var errRunFailed = errors.New("pester run failed")

func newRunCmd() *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Discover and run tests",
		Long: `Discover test definitions under the given paths (default: the current
directory), run every selected test body with the shell and report the results.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, f, args)
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func runTests(cmd *cobra.Command, f *runFlags, args []string) error {
	s, err := newSession(f.configPath, func(cfg *config.Configuration) {
		f.apply(cmd.Flags(), cfg, args)
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := ctxlog.WithLogger(cmd.Context(), s.logger)

	tracing, err := observability.NewTracing(ctx,
		observability.WithOTLPEndpoint(f.otlpEndpoint),
		observability.WithServiceVersion(version),
	)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		if err := tracing.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("flushing traces failed", "error", err)
		}
	}()

	containers, err := s.discover(ctx, f.workers)
	if err != nil {
		return err
	}

	exec := shell.New(shell.WithShell(f.shell, "-c"), shell.WithTimeout(f.timeout))
	if s.cfg.CodeCoverage.Enabled.Value() {
		exec.Analyze(containers)
	}

	r := runner.New(exec,
		runner.WithWorkers(f.workers),
		runner.WithVersion(version),
		runner.WithTracerProvider(tracing.Provider()),
	)
	run, runErr := r.Run(ctx, s.cfg, containers)
	if run == nil {
		return runErr
	}

	passThru := s.cfg.Run.PassThru.Value()
	reportOut := cmd.OutOrStdout()
	if passThru {
		reportOut = cmd.ErrOrStderr()
	}
	newReporter(reportOut, s.cfg.Output.EffectiveVerbosity()).run(run)

	if passThru {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return fmt.Errorf("writing run summary: %w", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	return outcome(s.cfg, run)
}

// outcome turns failures into an error (Run.Throw) or the exit code
// (Run.Exit). Throw is preferred when both are set.
func outcome(cfg *config.Configuration, run *domain.Run) error {
	failures := failureCount(run)
	if failures == 0 {
		return nil
	}
	if cfg.Run.Throw.Value() {
		return fmt.Errorf("%w: %d tests failed, %d blocks failed, %d containers failed",
			errRunFailed, run.FailedCount, run.FailedBlocksCount, run.FailedContainersCount)
	}
	if cfg.Run.Exit.Value() {
		return &exitError{code: min(failures, maxExitCode)}
	}
	return nil
}

// failureCount adds to the failed tests the blocks and containers that failed
// on their own, through a hook or discovery error. Scopes failed only by one
// of their tests are already counted by that test.
func failureCount(run *domain.Run) int {
	n := run.FailedCount
	for _, b := range run.FailedBlocks {
		if len(b.ErrorRecord) > 0 {
			n++
		}
	}
	for _, c := range run.FailedContainers {
		if len(c.ErrorRecord) > 0 {
			n++
		}
	}
	return n
}
