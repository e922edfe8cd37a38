package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specvital/pester/pkg/domain"
)

func newTest(name string, r domain.Result, user time.Duration) *domain.Test {
	t := domain.NewTest(name)
	t.Result = r
	t.UserDuration = user
	t.FrameworkDuration = time.Millisecond
	t.ShouldRun = true
	return t
}

func newBlock(name string) *domain.Block {
	b := domain.NewBlock(name)
	b.ShouldRun = true
	return b
}

// tree builds Describe{passed, failed, Context{skipped, notRun, inconclusive}}.
func sampleTree() (*domain.Container, *domain.Block, *domain.Block) {
	c := domain.NewFileContainer("a.tests.yaml")
	c.ShouldRun = true
	outer := newBlock("Describe")
	inner := newBlock("Context")
	outer.AddTest(newTest("passed", domain.ResultPassed, 10*time.Millisecond))
	outer.AddTest(newTest("failed", domain.ResultFailed, 20*time.Millisecond))
	inner.AddTest(newTest("skipped", domain.ResultSkipped, 0))
	inner.AddTest(newTest("notRun", domain.ResultNotRun, 0))
	inner.AddTest(newTest("inconclusive", domain.ResultInconclusive, 5*time.Millisecond))
	outer.AddBlock(inner)
	c.AddBlock(outer)
	return c, outer, inner
}

func TestTree_Counts(t *testing.T) {
	t.Parallel()

	c, outer, inner := sampleTree()

	Tree(c)

	for _, counts := range []domain.Counts{outer.Counts, outer.Own, inner.Counts, c.Counts} {
		assert.True(t, counts.Consistent())
	}
	assert.Equal(t, domain.Counts{PassedCount: 1, FailedCount: 1, TotalCount: 2}, outer.Own)
	assert.Equal(t, domain.Counts{SkippedCount: 1, NotRunCount: 1, InconclusiveCount: 1, TotalCount: 3}, inner.Counts)
	assert.Equal(t, outer.Own.PassedCount+inner.PassedCount, outer.PassedCount)
	assert.Equal(t, outer.Own.SkippedCount+inner.SkippedCount, outer.SkippedCount)
	assert.Equal(t, 5, c.TotalCount)
}

func TestTree_Results(t *testing.T) {
	t.Parallel()

	c, outer, inner := sampleTree()

	Tree(c)

	assert.Equal(t, domain.ResultPassed, inner.Result, "inconclusive counts toward passed")
	assert.True(t, inner.Passed)
	assert.Equal(t, domain.ResultFailed, outer.Result)
	assert.False(t, outer.OwnPassed)
	assert.False(t, outer.Passed)
	assert.Equal(t, domain.ResultFailed, c.Result)
}

func TestTree_Durations(t *testing.T) {
	t.Parallel()

	c, outer, inner := sampleTree()
	outer.OwnDuration = 2 * time.Millisecond
	c.DiscoveryDuration = 7 * time.Millisecond

	Tree(c)

	assert.Equal(t, 5*time.Millisecond, inner.UserDuration)
	assert.Equal(t, 35*time.Millisecond, outer.UserDuration)
	assert.Equal(t, 7*time.Millisecond, outer.FrameworkDuration, "own hooks plus tests plus child block")
	assert.Equal(t, 7*time.Millisecond, c.DiscoveryDuration)
	assert.Equal(t, 49*time.Millisecond, c.Duration())
}

func TestBlock_ResultPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		results []domain.Result
		errors  int
		skip    bool
		want    domain.Result
	}{
		{name: "should fail with a failed test", results: []domain.Result{domain.ResultPassed, domain.ResultFailed}, want: domain.ResultFailed},
		{name: "should fail with a block error and no tests run", results: []domain.Result{domain.ResultNotRun}, errors: 1, want: domain.ResultFailed},
		{name: "should be skipped when only skipped tests", results: []domain.Result{domain.ResultSkipped, domain.ResultSkipped}, want: domain.ResultSkipped},
		{name: "should be skipped when block skipped and empty", skip: true, want: domain.ResultSkipped},
		{name: "should pass with passed and skipped tests", results: []domain.Result{domain.ResultPassed, domain.ResultSkipped}, want: domain.ResultPassed},
		{name: "should be not run when nothing ran", results: []domain.Result{domain.ResultNotRun}, want: domain.ResultNotRun},
		{name: "should be not run when empty", want: domain.ResultNotRun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := newBlock("b")
			b.Skip = tt.skip
			for i, r := range tt.results {
				b.AddTest(newTest(string(rune('a'+i)), r, 0))
			}
			for i := 0; i < tt.errors; i++ {
				b.ErrorRecord = append(b.ErrorRecord, domain.ErrorRecord{Message: "setup failed"})
			}

			Block(b)

			assert.Equal(t, tt.want, b.Result)
			assert.True(t, b.Counts.Consistent())
		})
	}
}

func TestBlock_Idempotent(t *testing.T) {
	t.Parallel()

	c, outer, _ := sampleTree()
	Tree(c)
	first := outer.Counts

	Tree(c)

	assert.Equal(t, first, outer.Counts)
}

func TestContainer_ErrorRecordFails(t *testing.T) {
	t.Parallel()

	c := domain.NewFileContainer("broken.tests.yaml")
	c.ShouldRun = true
	c.ErrorRecord = append(c.ErrorRecord, domain.ErrorRecord{ErrorID: domain.ErrorIDDiscoveryFailed, Message: "parse error"})

	Tree(c)

	assert.Equal(t, domain.ResultFailed, c.Result)
	assert.False(t, c.Passed)
	assert.False(t, c.OwnPassed)
	assert.Zero(t, c.TotalCount)
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	// Given
	failing, _, _ := sampleTree()
	passing := domain.NewFileContainer("b.tests.yaml")
	passing.ShouldRun = true
	ok := newBlock("ok")
	ok.AddTest(newTest("works", domain.ResultPassed, time.Millisecond))
	passing.AddBlock(ok)
	Tree(failing)
	Tree(passing)
	run := domain.NewRun([]*domain.Container{failing, passing})

	// When
	Finalize(run)

	// Then
	require.Len(t, run.Tests, 6)
	assert.Len(t, run.Passed, 2)
	assert.Len(t, run.Failed, 1)
	assert.Len(t, run.Skipped, 1)
	assert.Len(t, run.NotRun, 1)
	assert.Len(t, run.Inconclusive, 1)
	assert.Equal(t, len(run.Tests), len(run.Passed)+len(run.Failed)+len(run.Skipped)+len(run.NotRun)+len(run.Inconclusive))
	assert.Equal(t, 1, run.FailedBlocksCount)
	assert.Equal(t, "Describe", run.FailedBlocks[0].Name)
	assert.Equal(t, []*domain.Container{failing}, run.FailedContainers)
	assert.Equal(t, 6, run.TotalCount)
	assert.True(t, run.Counts.Consistent())
	assert.Equal(t, domain.ResultFailed, run.Result)
}

func TestFinalize_Empty(t *testing.T) {
	t.Parallel()

	run := domain.NewRun(nil)

	Finalize(run)

	assert.Equal(t, domain.ResultNotRun, run.Result)
	assert.Empty(t, run.Tests)
	assert.NotNil(t, run.FailedBlocks)
}
