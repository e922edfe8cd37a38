// Package filter decides which blocks and tests of a discovered tree should run.
//
// Each node is matched on its own (exclude tag, exclude line, line, full name,
// tag, focus) and then combined with the decision inherited from its parent:
// exclusion and explicit selection flow down, inclusion flows both down to
// descendants and up to the blocks hosting an included node.
package filter

import (
	"context"
	"path/filepath"

	"github.com/specvital/pester/internal/ctxlog"
	"github.com/specvital/pester/internal/wildcard"
	"github.com/specvital/pester/pkg/config"
	"github.com/specvital/pester/pkg/domain"
)

// Evaluator applies one set of filter criteria.
type Evaluator struct {
	tags         []string
	excludeTags  []string
	lines        []string
	excludeLines []string
	fullNames    []string

	focus bool
}

// New creates an evaluator from the Filter section.
func New(cfg config.FilterConfiguration) *Evaluator {
	return &Evaluator{
		tags:         cfg.Tag.Value(),
		excludeTags:  cfg.ExcludeTag.Value(),
		lines:        normalizeLines(cfg.Line.Value()),
		excludeLines: normalizeLines(cfg.ExcludeLine.Value()),
		fullNames:    cfg.FullName.Value(),
	}
}

// Summary counts the outcome of one Apply pass.
type Summary struct {
	Tests    int
	Selected int
	Excluded int
	Focused  bool
}

// inherited is the decision a node passes down to its children.
type inherited struct {
	include  bool
	exclude  bool
	explicit bool
}

type match struct {
	include  bool
	exclude  bool
	explicit bool
	reason   string
}

// Apply marks Include, Exclude, Explicit, ShouldRun, First and Last on every
// block and test of containers, and ShouldRun on the containers themselves.
// Applying the same evaluator twice yields the same flags.
func (e *Evaluator) Apply(ctx context.Context, containers []*domain.Container) Summary {
	e.focus = anyFocused(containers)
	if e.focus {
		ctxlog.Debug(ctx, ctxlog.SourceFilter, "focused tests or blocks found, running only focused")
	}

	var sum Summary
	sum.Focused = e.focus
	for _, c := range containers {
		c.ShouldRun = false
		nodes := make([]domain.Node, 0, len(c.Blocks))
		for _, b := range c.Blocks {
			if e.block(ctx, b, inherited{}, &sum) {
				c.ShouldRun = true
			}
			nodes = append(nodes, b)
		}
		markFirstLast(nodes)
	}
	return sum
}

// HasPositive reports whether any include criterion is set.
func (e *Evaluator) HasPositive() bool {
	return len(e.lines) > 0 || len(e.fullNames) > 0 || len(e.tags) > 0 || e.focus
}

func (e *Evaluator) block(ctx context.Context, b *domain.Block, parent inherited, sum *Summary) bool {
	m := e.match(b.Tag, b.Location, b.FullName(), b.Focus)
	e.trace(ctx, "block", b.FullName(), m)

	b.Exclude = parent.exclude || m.exclude
	b.Explicit = parent.explicit || m.explicit
	own := parent.include || m.include
	down := inherited{include: own, exclude: b.Exclude, explicit: b.Explicit}

	anyChild := false
	for _, n := range b.Order {
		switch n := n.(type) {
		case *domain.Block:
			if e.block(ctx, n, down, sum) {
				anyChild = true
			}
		case *domain.Test:
			if e.test(ctx, n, down, sum) {
				anyChild = true
			}
		}
	}
	markFirstLast(b.Order)

	b.Include = own || anyChild
	b.ShouldRun = b.Include && !b.Exclude
	return b.ShouldRun
}

func (e *Evaluator) test(ctx context.Context, t *domain.Test, parent inherited, sum *Summary) bool {
	m := e.match(t.Tag, t.Location, t.FullName(), t.Focus)
	e.trace(ctx, "test", t.FullName(), m)

	t.Exclude = parent.exclude || m.exclude
	t.Explicit = parent.explicit || m.explicit
	t.Include = parent.include || m.include
	t.ShouldRun = t.Include && !t.Exclude

	sum.Tests++
	switch {
	case t.ShouldRun:
		sum.Selected++
	case t.Exclude:
		sum.Excluded++
	}
	return t.ShouldRun
}

// match evaluates the criteria against a single node, ignoring its ancestors.
func (e *Evaluator) match(tags []string, loc domain.Location, fullName string, focus bool) match {
	var m match

	if len(e.excludeTags) > 0 && wildcard.Intersects(e.excludeTags, tags) {
		m.exclude = true
		m.reason = "excluded by tag"
	}
	if len(e.excludeLines) > 0 && matchesLine(e.excludeLines, loc) {
		m.exclude = true
		m.reason = "excluded by line"
	}

	switch {
	case len(e.lines) > 0 && matchesLine(e.lines, loc):
		m.include = true
		m.explicit = true
		if !m.exclude {
			m.reason = "included by line"
		}
	case len(e.fullNames) > 0 && wildcard.MatchAny(e.fullNames, fullName):
		m.include = true
		if !m.exclude {
			m.reason = "included by full name"
		}
	case len(e.tags) > 0 && wildcard.Intersects(e.tags, tags):
		m.include = true
		if !m.exclude {
			m.reason = "included by tag"
		}
	case e.focus && focus:
		m.include = true
		if !m.exclude {
			m.reason = "included by focus"
		}
	case !e.HasPositive():
		m.include = true
	}
	return m
}

func (e *Evaluator) trace(ctx context.Context, kind, name string, m match) {
	if m.reason == "" {
		return
	}
	ctxlog.Debug(ctx, ctxlog.SourceFilter, m.reason, "kind", kind, "name", name)
}

// markFirstLast flags the first and last node that will run within one
// sibling sequence; one-time hooks are timed on these markers.
func markFirstLast(nodes []domain.Node) {
	first, last := -1, -1
	for i, n := range nodes {
		sel := n.Selected()
		sel.First, sel.Last = false, false
		if !sel.ShouldRun {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first >= 0 {
		nodes[first].Selected().First = true
		nodes[last].Selected().Last = true
	}
}

func anyFocused(containers []*domain.Container) bool {
	for _, c := range containers {
		found := false
		c.Walk(func(b *domain.Block) {
			if b.Focus {
				found = true
			}
			for _, t := range b.Tests {
				if t.Focus {
					found = true
				}
			}
		})
		if found {
			return true
		}
	}
	return false
}

func matchesLine(filters []string, loc domain.Location) bool {
	if loc.File == "" || loc.StartLine == 0 {
		return false
	}
	target := filepath.ToSlash(loc.String())
	for _, f := range filters {
		if f == target {
			return true
		}
	}
	return false
}

func normalizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, filepath.ToSlash(l))
	}
	return out
}
