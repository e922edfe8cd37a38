package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specvital/pester/pkg/config"
	"github.com/specvital/pester/pkg/domain"
)

// fixture builds:
//
//	file.tests:1  Describe Login [smoke]
//	file.tests:2    It A
//	file.tests:3    It B [smoke]
//	file.tests:5    Context Admin [slow]
//	file.tests:6      It C
func fixture() (*domain.Container, map[string]*domain.Test, map[string]*domain.Block) {
	c := domain.NewFileContainer("file.tests")

	login := domain.NewBlock("Login")
	login.Tag = []string{"smoke"}
	login.Location = domain.Location{File: "file.tests", StartLine: 1}

	a := domain.NewTest("A")
	a.Location = domain.Location{File: "file.tests", StartLine: 2}
	b := domain.NewTest("B")
	b.Tag = []string{"smoke"}
	b.Location = domain.Location{File: "file.tests", StartLine: 3}

	admin := domain.NewBlock("Admin")
	admin.Tag = []string{"slow"}
	admin.Location = domain.Location{File: "file.tests", StartLine: 5}
	cTest := domain.NewTest("C")
	cTest.Location = domain.Location{File: "file.tests", StartLine: 6}

	login.AddTest(a)
	login.AddTest(b)
	admin.AddTest(cTest)
	login.AddBlock(admin)
	c.AddBlock(login)

	return c,
		map[string]*domain.Test{"A": a, "B": b, "C": cTest},
		map[string]*domain.Block{"Login": login, "Admin": admin}
}

func filterConfig(mutate func(*config.FilterConfiguration)) config.FilterConfiguration {
	cfg := config.DefaultFilterConfiguration()
	if mutate != nil {
		mutate(&cfg)
	}
	return cfg
}

func shouldRun(tests map[string]*domain.Test) map[string]bool {
	out := make(map[string]bool, len(tests))
	for name, t := range tests {
		out[name] = t.ShouldRun
	}
	return out
}

func TestEvaluator_Apply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.FilterConfiguration)
		want   map[string]bool
	}{
		{
			name: "should include everything without filters",
			want: map[string]bool{"A": true, "B": true, "C": true},
		},
		{
			name:   "should include untagged tests under a tagged block",
			mutate: func(f *config.FilterConfiguration) { f.Tag.Set([]string{"smoke"}) },
			want:   map[string]bool{"A": true, "B": true, "C": true},
		},
		{
			name:   "should include only the tagged context",
			mutate: func(f *config.FilterConfiguration) { f.Tag.Set([]string{"SLOW"}) },
			want:   map[string]bool{"A": false, "B": false, "C": true},
		},
		{
			name:   "should exclude by tag over inclusion",
			mutate: func(f *config.FilterConfiguration) { f.ExcludeTag.Set([]string{"slow"}) },
			want:   map[string]bool{"A": true, "B": true, "C": false},
		},
		{
			name: "should let exclude line win over line",
			mutate: func(f *config.FilterConfiguration) {
				f.Line.Set([]string{"file.tests:2"})
				f.ExcludeLine.Set([]string{"file.tests:2"})
			},
			want: map[string]bool{"A": false, "B": false, "C": false},
		},
		{
			name:   "should match full name wildcards ignoring case",
			mutate: func(f *config.FilterConfiguration) { f.FullName.Set([]string{"login.admin.*"}) },
			want:   map[string]bool{"A": false, "B": false, "C": true},
		},
		{
			name:   "should include nothing for unmatched tag",
			mutate: func(f *config.FilterConfiguration) { f.Tag.Set([]string{"nope"}) },
			want:   map[string]bool{"A": false, "B": false, "C": false},
		},
		{
			name:   "should treat empty exclude list as no filter",
			mutate: func(f *config.FilterConfiguration) { f.ExcludeTag.Set([]string{}) },
			want:   map[string]bool{"A": true, "B": true, "C": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, tests, _ := fixture()

			New(filterConfig(tt.mutate)).Apply(context.Background(), []*domain.Container{c})

			assert.Equal(t, tt.want, shouldRun(tests))
		})
	}
}

func TestEvaluator_TagScenario(t *testing.T) {
	t.Parallel()

	// Given
	c, tests, blocks := fixture()
	cfg := filterConfig(func(f *config.FilterConfiguration) { f.Tag.Set([]string{"smoke"}) })

	// When
	New(cfg).Apply(context.Background(), []*domain.Container{c})

	// Then
	assert.True(t, blocks["Login"].Include)
	assert.True(t, blocks["Login"].ShouldRun)
	assert.True(t, tests["A"].ShouldRun, "A inherits the block's inclusion")
	assert.True(t, tests["B"].ShouldRun)
	assert.True(t, c.ShouldRun)
}

func TestEvaluator_LineIsExplicitUnderSkippedBlock(t *testing.T) {
	t.Parallel()

	// Given
	c, tests, blocks := fixture()
	blocks["Login"].Skip = true
	cfg := filterConfig(func(f *config.FilterConfiguration) { f.Line.Set([]string{"file.tests:2"}) })

	// When
	New(cfg).Apply(context.Background(), []*domain.Container{c})

	// Then
	a := tests["A"]
	assert.True(t, a.Explicit)
	assert.True(t, a.ShouldRun)
	assert.False(t, a.IsSkipped(), "explicit test bypasses the inherited skip")
	assert.False(t, tests["B"].ShouldRun)
	assert.True(t, blocks["Login"].ShouldRun, "block hosting an included test runs")
	assert.False(t, blocks["Login"].Explicit)
	assert.True(t, tests["B"].IsSkipped())
}

func TestEvaluator_Focus(t *testing.T) {
	t.Parallel()

	c, tests, _ := fixture()
	tests["B"].Focus = true

	sum := New(config.DefaultFilterConfiguration()).Apply(context.Background(), []*domain.Container{c})

	assert.True(t, sum.Focused)
	assert.Equal(t, map[string]bool{"A": false, "B": true, "C": false}, shouldRun(tests))
	assert.Equal(t, 1, sum.Selected)
	assert.Equal(t, 3, sum.Tests)
}

func TestEvaluator_FirstLast(t *testing.T) {
	t.Parallel()

	c, tests, blocks := fixture()
	cfg := filterConfig(func(f *config.FilterConfiguration) { f.ExcludeTag.Set([]string{"slow"}) })

	New(cfg).Apply(context.Background(), []*domain.Container{c})

	assert.True(t, tests["A"].First)
	assert.False(t, tests["A"].Last)
	assert.True(t, tests["B"].Last, "B is last because Admin does not run")
	assert.False(t, blocks["Admin"].First)
	assert.True(t, blocks["Login"].First)
	assert.True(t, blocks["Login"].Last)
}

func TestEvaluator_Idempotent(t *testing.T) {
	t.Parallel()

	c, tests, blocks := fixture()
	blocks["Admin"].Skip = true
	cfg := filterConfig(func(f *config.FilterConfiguration) {
		f.Tag.Set([]string{"smoke"})
		f.Line.Set([]string{"file.tests:6"})
	})
	e := New(cfg)

	e.Apply(context.Background(), []*domain.Container{c})
	first := snapshot(c)
	e.Apply(context.Background(), []*domain.Container{c})

	assert.Equal(t, first, snapshot(c))
	require.True(t, tests["C"].Explicit)
}

func snapshot(c *domain.Container) []domain.Selection {
	var out []domain.Selection
	c.Walk(func(b *domain.Block) {
		out = append(out, b.Selection)
		for _, t := range b.Tests {
			out = append(out, t.Selection)
		}
	})
	return out
}
