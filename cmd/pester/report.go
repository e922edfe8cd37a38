package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/specvital/pester/pkg/config"
	"github.com/specvital/pester/pkg/domain"
)

// reporter prints a run for humans. Normal verbosity lists failures only,
// Detailed and Diagnostic print the whole tree, None prints nothing.
type reporter struct {
	w        io.Writer
	detailed bool
	silent   bool
}

func newReporter(w io.Writer, verbosity string) *reporter {
	return &reporter{
		w:        w,
		detailed: verbosity == config.VerbosityDetailed || verbosity == config.VerbosityDiagnostic,
		silent:   verbosity == config.VerbosityNone,
	}
}

func (r *reporter) run(run *domain.Run) {
	if r.silent {
		return
	}

	for _, c := range run.Containers {
		if r.detailed {
			fmt.Fprintf(r.w, "%s\n", c)
		}
		for _, rec := range c.ErrorRecord {
			fmt.Fprintf(r.w, "[-] %s failed: %s\n", c.Name(), rec.Error())
		}
		for _, b := range c.Blocks {
			r.block(b, 1)
		}
	}

	fmt.Fprintf(r.w, "Tests completed in %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(r.w, "Tests Passed: %d, Failed: %d, Skipped: %d, Inconclusive: %d, NotRun: %d\n",
		run.PassedCount, run.FailedCount, run.SkippedCount, run.InconclusiveCount, run.NotRunCount)
	if run.FailedBlocksCount > 0 || run.FailedContainersCount > 0 {
		fmt.Fprintf(r.w, "Blocks failed: %d, Containers failed: %d\n", run.FailedBlocksCount, run.FailedContainersCount)
	}
	if cov := run.CodeCoverage; cov != nil {
		fmt.Fprintf(r.w, "Covered %.2f%% / %.0f%%. %d analyzed commands in %d files.\n",
			cov.CoveragePercent, cov.CoveragePercentTarget, cov.CommandsAnalyzedCount, cov.FilesAnalyzedCount)
	}
}

func (r *reporter) block(b *domain.Block, depth int) {
	indent := strings.Repeat("  ", depth)
	if r.detailed {
		fmt.Fprintf(r.w, "%s%s\n", indent, b)
	}
	for _, rec := range b.ErrorRecord {
		fmt.Fprintf(r.w, "%s[-] %s: %s\n", indent, b.FullName(), rec.Error())
	}

	for _, n := range b.Order {
		switch node := n.(type) {
		case *domain.Block:
			r.block(node, depth+1)
		case *domain.Test:
			r.test(node, depth+1)
		}
	}
}

func (r *reporter) test(t *domain.Test, depth int) {
	indent := strings.Repeat("  ", depth)
	switch {
	case r.detailed:
		fmt.Fprintf(r.w, "%s%s %s\n", indent, t, t.Duration().Round(time.Millisecond))
	case t.Result == domain.ResultFailed:
		fmt.Fprintf(r.w, "[-] %s\n", t.FullName())
		indent = "  "
	default:
		return
	}
	for _, rec := range t.ErrorRecord {
		fmt.Fprintf(r.w, "%s  %s\n", indent, rec.Error())
	}
}

// printTree lists every container, block and test, marking tests selected by
// the filter with ">". It returns the number of selected tests.
func printTree(w io.Writer, run *domain.Run) int {
	selected := 0
	var block func(b *domain.Block, depth int)
	block = func(b *domain.Block, depth int) {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), b.ExpandedName)
		for _, n := range b.Order {
			switch node := n.(type) {
			case *domain.Block:
				block(node, depth+1)
			case *domain.Test:
				mark := " "
				if node.ShouldRun {
					mark = ">"
					selected++
				}
				fmt.Fprintf(w, "%s%s %s (%s)\n", strings.Repeat("  ", depth+1), mark, node.Name, node.Location)
			}
		}
	}

	for _, c := range run.Containers {
		fmt.Fprintln(w, c.Name())
		for _, rec := range c.ErrorRecord {
			fmt.Fprintf(w, "  error: %s\n", rec.Error())
		}
		for _, b := range c.Blocks {
			block(b, 1)
		}
	}
	return selected
}
