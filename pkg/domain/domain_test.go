package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContainerType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    ContainerType
		wantErr bool
	}{
		{name: "should accept File", input: "File", want: ContainerTypeFile},
		{name: "should accept lower case file", input: "file", want: ContainerTypeFile},
		{name: "should accept ScriptBlock in any case", input: "SCRIPTBLOCK", want: ContainerTypeScriptBlock},
		{name: "should reject json", input: "json", wantErr: true},
		{name: "should reject empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseContainerType(tt.input)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidContainerType))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewContainer(t *testing.T) {
	t.Run("should fail fast for unsupported type", func(t *testing.T) {
		c, err := NewContainer("json", "a.json", nil)

		assert.Nil(t, c)
		assert.ErrorIs(t, err, ErrInvalidContainerType)
	})

	t.Run("should start as NotRun", func(t *testing.T) {
		c, err := NewContainer("File", "a.Tests.ps1", map[string]any{"x": 1})

		require.NoError(t, err)
		assert.Equal(t, ResultNotRun, c.Result)
		assert.Equal(t, "a.Tests.ps1", c.Name())
		assert.Equal(t, 1, c.Data["x"])
	})

	t.Run("should name script block containers generically", func(t *testing.T) {
		c := NewScriptBlockContainer("- describe: x")

		assert.Equal(t, "<ScriptBlock>", c.Name())
	})
}

func TestBlock_Tree(t *testing.T) {
	// Given
	c := NewFileContainer("calc.Tests.ps1")
	root := NewBlock("Calculator")
	inner := NewBlock("Add")
	first := NewTest("adds")
	second := NewTest("subtracts")

	inner.AddTest(first)
	root.AddBlock(inner)
	root.AddTest(second)

	// When
	c.AddBlock(root)

	// Then
	assert.Same(t, c, inner.Container)
	assert.Same(t, root, inner.Parent)
	assert.Same(t, inner, first.Block)
	assert.Same(t, c, first.Container())
	assert.Equal(t, []string{"Calculator", "Add", "adds"}, first.Path)
	assert.Equal(t, "Calculator.subtracts", second.FullName())
	assert.Equal(t, []*Test{first, second}, c.AllTests())
	assert.Equal(t, 2, c.CountTests())
	assert.Equal(t, []*Block{root, inner}, inner.Ancestors())
	assert.True(t, root.IsRoot())
	assert.False(t, inner.IsRoot())
}

func TestExpand(t *testing.T) {
	t.Parallel()

	// Given
	c := NewScriptBlockContainer("")
	root := NewBlock("<os> suite")
	test := NewTest("runs on <os>")
	root.AddTest(test)
	c.AddBlock(root)

	// When
	root.Expand("linux suite")
	test.Expand("runs on linux")

	// Then
	assert.Equal(t, "<os> suite", root.Name)
	assert.Equal(t, "runs on <os>", test.Name)
	assert.Equal(t, []string{"<os> suite", "runs on <os>"}, test.Path)
	assert.Equal(t, []string{"linux suite", "runs on linux"}, test.ExpandedPath)
	assert.Equal(t, "linux suite.runs on linux", test.FullName())
	assert.Equal(t, "linux suite", root.FullName())
	assert.Equal(t, "[ ] runs on linux", test.String())
}

func TestBlock_CountTests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func() *Block
		want  int
	}{
		{
			name:  "should return zero for empty block",
			build: func() *Block { return NewBlock("empty") },
			want:  0,
		},
		{
			name: "should count deeply nested tests",
			build: func() *Block {
				b := NewBlock("outer")
				b.AddTest(NewTest("t1"))
				mid := NewBlock("mid")
				mid.AddTest(NewTest("m1"))
				deep := NewBlock("deep")
				deep.AddTest(NewTest("d1"))
				deep.AddTest(NewTest("d2"))
				mid.AddBlock(deep)
				b.AddBlock(mid)
				return b
			},
			want: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// When
			got := tt.build().CountTests()

			// Then
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSkipped(t *testing.T) {
	t.Parallel()

	newTree := func() (*Block, *Block, *Test) {
		outer := NewBlock("outer")
		inner := NewBlock("inner")
		test := NewTest("t")
		inner.AddTest(test)
		outer.AddBlock(inner)
		return outer, inner, test
	}

	t.Run("should inherit skip from ancestor", func(t *testing.T) {
		t.Parallel()
		outer, _, test := newTree()
		outer.Skip = true

		assert.True(t, test.IsSkipped())
	})

	t.Run("should not skip explicit test under skipped block", func(t *testing.T) {
		t.Parallel()
		outer, _, test := newTree()
		outer.Skip = true
		test.Explicit = true

		assert.False(t, test.IsSkipped())
	})

	t.Run("should not skip explicit block under skipped block", func(t *testing.T) {
		t.Parallel()
		outer, inner, _ := newTree()
		outer.Skip = true
		inner.Explicit = true

		assert.False(t, inner.IsSkipped())
	})

	t.Run("should not skip by default", func(t *testing.T) {
		t.Parallel()
		_, _, test := newTree()

		assert.False(t, test.IsSkipped())
	})
}

func TestCounts(t *testing.T) {
	var c Counts
	for _, r := range []Result{ResultPassed, ResultPassed, ResultFailed, ResultSkipped, ResultInconclusive, ResultNotRun, ""} {
		c.Record(r)
	}

	assert.Equal(t, Counts{
		PassedCount:       2,
		FailedCount:       1,
		SkippedCount:      1,
		InconclusiveCount: 1,
		NotRunCount:       2,
		TotalCount:        7,
	}, c)
	assert.True(t, c.Consistent())
	assert.Equal(t, 4, c.Executed())

	var sum Counts
	sum.Add(c)
	sum.Add(c)
	assert.Equal(t, 14, sum.TotalCount)
	assert.True(t, sum.Consistent())
}

func TestResult(t *testing.T) {
	r, err := ParseResult("passed")
	require.NoError(t, err)
	assert.Equal(t, ResultPassed, r)

	_, err = ParseResult("green")
	assert.ErrorIs(t, err, ErrInvalidResult)

	assert.True(t, ResultInconclusive.Valid())
	assert.False(t, Result("Green").Valid())
	assert.Equal(t, "[ERR]", Result("Green").Marker())
}

func TestString(t *testing.T) {
	test := NewTest("adds")
	test.Result = ResultPassed
	block := NewBlock("Calc")
	block.Result = ResultFailed
	container := NewFileContainer("/tmp/calc.Tests.ps1")
	container.Result = ResultSkipped
	run := NewRun(nil)
	run.Result = ResultInconclusive

	assert.Equal(t, "[+] adds", test.String())
	assert.Equal(t, "[-] Calc", block.String())
	assert.Equal(t, "[!] /tmp/calc.Tests.ps1", container.String())
	assert.Equal(t, "[?] Pester", run.String())
}

func TestNewErrorRecord(t *testing.T) {
	loc := Location{File: "a.Tests.ps1", StartLine: 4}

	rec := NewErrorRecord(ErrorIDHookFailed, errors.New("boom"), loc)
	assert.Equal(t, "boom", rec.Message)
	assert.Equal(t, 4, rec.Line)
	assert.Equal(t, "a.Tests.ps1:4: boom", rec.Error())

	assertion := NewAssertionError("expected 1", "b.Tests.ps1", 9, "1 | Should -Be 2", true)
	wrapped := NewErrorRecord(ErrorIDHookFailed, assertion, loc)
	assert.Equal(t, ErrorIDAssertionFailed, wrapped.ErrorID)
	assert.Equal(t, 9, wrapped.Line)
}

func TestCodeCoverage_ComputePercent(t *testing.T) {
	cov := &CodeCoverage{
		CoveragePercentTarget: 75,
		CommandsExecuted:      []CommandCoverage{{Line: 1}, {Line: 2}, {Line: 3}},
		CommandsMissed:        []CommandCoverage{{Line: 4}},
		FilesAnalyzed:         []string{"a.ps1"},
	}

	cov.ComputePercent()

	assert.Equal(t, int64(4), cov.CommandsAnalyzedCount)
	assert.InDelta(t, 75.0, cov.CoveragePercent, 0.001)
	assert.True(t, cov.MeetsTarget())
}
