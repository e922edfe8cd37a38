// Package aggregate rolls test results up through blocks and containers and
// assembles the final run summary.
//
// Counters are recomputed from scratch on every call, so aggregating a scope
// twice is harmless. Block and Container expect their child blocks to be
// aggregated already; Tree does the whole post-order walk.
package aggregate

import (
	"time"

	"github.com/specvital/pester/pkg/domain"
)

// Block recomputes the counters, durations, Passed flags and Result of b from
// its direct tests and the already aggregated child blocks.
func Block(b *domain.Block) {
	var own, total domain.Counts
	var user time.Duration
	framework := b.OwnDuration

	for _, t := range b.Tests {
		own.Record(t.Result)
		user += t.UserDuration
		framework += t.FrameworkDuration
	}
	total.Add(own)

	passed := own.FailedCount == 0 && len(b.ErrorRecord) == 0
	for _, child := range b.Blocks {
		total.Add(child.Counts)
		user += child.UserDuration
		framework += child.FrameworkDuration
		if !child.Passed {
			passed = false
		}
	}

	b.Own = own
	b.Counts = total
	b.OwnPassed = own.FailedCount == 0
	b.Passed = passed
	b.UserDuration = user
	b.FrameworkDuration = framework
	b.Result = result(total, b.Passed, b.ShouldRun && b.IsSkipped())
}

// Container recomputes c from its top-level blocks. The discovery duration
// recorded during discovery is kept.
func Container(c *domain.Container) {
	var total domain.Counts
	var user, framework time.Duration
	passed := len(c.ErrorRecord) == 0

	for _, b := range c.Blocks {
		total.Add(b.Counts)
		user += b.UserDuration
		framework += b.FrameworkDuration
		if !b.Passed {
			passed = false
		}
	}

	c.Counts = total
	c.OwnPassed = len(c.ErrorRecord) == 0
	c.Passed = passed
	c.UserDuration = user
	c.FrameworkDuration = framework
	c.Result = result(total, c.Passed, c.ShouldRun && c.Skip)
}

// Tree aggregates every block of c bottom-up and then c itself.
func Tree(c *domain.Container) {
	for _, b := range c.Blocks {
		tree(b)
	}
	Container(c)
}

func tree(b *domain.Block) {
	for _, child := range b.Blocks {
		tree(child)
	}
	Block(b)
}

// result applies the status precedence shared by blocks, containers and the
// run: Failed, then Skipped, then Passed, then NotRun. A scope is Skipped only
// when nothing in it executed and it was skipped itself or holds skipped tests.
func result(c domain.Counts, passed, skipped bool) domain.Result {
	switch {
	case c.FailedCount > 0 || !passed:
		return domain.ResultFailed
	case c.Executed() == 0 && (c.SkippedCount > 0 || skipped):
		return domain.ResultSkipped
	case c.PassedCount+c.InconclusiveCount > 0:
		return domain.ResultPassed
	default:
		return domain.ResultNotRun
	}
}
