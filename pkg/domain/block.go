package domain

import (
	"strings"
	"time"
)

// Hooks holds the setup and teardown scripts of a block.
type Hooks struct {
	EachTestSetup        *Script `json:"-"`
	EachTestTeardown     *Script `json:"-"`
	OneTimeTestSetup     *Script `json:"-"`
	OneTimeTestTeardown  *Script `json:"-"`
	EachBlockSetup       *Script `json:"-"`
	EachBlockTeardown    *Script `json:"-"`
	OneTimeBlockSetup    *Script `json:"-"`
	OneTimeBlockTeardown *Script `json:"-"`
}

// Block is a named, nestable group of tests (Describe / Context).
type Block struct {
	Selection

	// Name is the declared name, possibly holding <key> placeholders.
	Name string `json:"name"`
	// ExpandedName is Name with placeholders replaced by Data values.
	ExpandedName string `json:"expandedName"`
	// GroupID is shared by the blocks generated from one data-driven declaration.
	GroupID string `json:"groupId,omitempty"`
	// Path holds the declared names from the root block down to this one.
	Path []string `json:"path"`
	// ExpandedPath is Path built from expanded names.
	ExpandedPath []string `json:"expandedPath"`
	// Data is the merged data row the block was generated from.
	Data     map[string]any `json:"data,omitempty"`
	Location Location       `json:"location"`
	Hooks    Hooks          `json:"-"`

	// Blocks and Tests are the direct children.
	Blocks []*Block `json:"blocks"`
	Tests  []*Test  `json:"tests"`
	// Order lists Blocks and Tests interleaved in declaration order.
	Order []Node `json:"-"`

	// Result aggregates the block's own hooks and everything below it.
	Result Result `json:"result"`
	// Passed is true when nothing in the subtree failed.
	Passed bool `json:"passed"`
	// OwnPassed is true when none of the direct tests failed.
	OwnPassed bool `json:"ownPassed"`
	// Counts covers every test in the subtree; Own only direct tests.
	Counts
	Own Counts `json:"own"`

	// ErrorRecord holds failures of the block's own hooks.
	ErrorRecord    []ErrorRecord `json:"errorRecord"`
	StandardOutput any           `json:"standardOutput,omitempty"`
	Executed       bool          `json:"executed"`
	ExecutedAt     time.Time     `json:"executedAt"`
	Durations
	// OwnDuration is framework time spent in this block's own hooks.
	OwnDuration time.Duration `json:"ownDuration"`

	// Parent is nil for root blocks.
	Parent    *Block     `json:"-"`
	Container *Container `json:"-"`
}

// NewBlock creates an empty block that has not run yet.
func NewBlock(name string) *Block {
	return &Block{
		Name:         name,
		ExpandedName: name,
		Path:         []string{name},
		ExpandedPath: []string{name},
		Result:       ResultNotRun,
		Blocks:       []*Block{},
		Tests:        []*Test{},
		ErrorRecord:  []ErrorRecord{},
	}
}

// AddBlock appends child to b, updating its parent links and path.
func (b *Block) AddBlock(child *Block) {
	child.Parent = b
	b.Blocks = append(b.Blocks, child)
	b.Order = append(b.Order, child)
	child.attach(b.Container, b)
}

// AddTest appends t to b, updating its owner and path.
func (b *Block) AddTest(t *Test) {
	t.Block = b
	t.Path = childPath(b.Path, t.Name)
	t.ExpandedPath = childPath(b.ExpandedPath, t.ExpandedName)
	b.Tests = append(b.Tests, t)
	b.Order = append(b.Order, t)
}

// Expand sets the expanded name of b and the expanded paths of its subtree.
func (b *Block) Expand(name string) {
	b.ExpandedName = name
	var parent []string
	if len(b.ExpandedPath) > 0 {
		parent = b.ExpandedPath[:len(b.ExpandedPath)-1]
	}
	b.ExpandedPath = childPath(parent, name)
	for _, t := range b.Tests {
		t.ExpandedPath = childPath(b.ExpandedPath, t.ExpandedName)
	}
	for _, child := range b.Blocks {
		child.attach(b.Container, b)
	}
}

// attach fixes container and path links for the whole subtree. A nil parent
// makes b a root block.
func (b *Block) attach(c *Container, parent *Block) {
	b.Container = c
	var path, expanded []string
	if parent != nil {
		path, expanded = parent.Path, parent.ExpandedPath
	}
	b.Path = childPath(path, b.Name)
	b.ExpandedPath = childPath(expanded, b.ExpandedName)
	for _, t := range b.Tests {
		t.Path = childPath(b.Path, t.Name)
		t.ExpandedPath = childPath(b.ExpandedPath, t.ExpandedName)
	}
	for _, child := range b.Blocks {
		child.attach(c, b)
	}
}

func childPath(parent []string, name string) []string {
	path := make([]string, 0, len(parent)+1)
	path = append(path, parent...)
	return append(path, name)
}

// FullName returns the expanded path joined by dots.
func (b *Block) FullName() string {
	return strings.Join(b.ExpandedPath, ".")
}

// IsSkipped reports whether the block is skipped by its own Skip flag or one
// inherited from an ancestor. Explicit blocks are never skipped.
func (b *Block) IsSkipped() bool {
	for cur := b; cur != nil; cur = cur.Parent {
		if cur.Explicit {
			return false
		}
		if cur.Skip {
			return true
		}
	}
	return false
}

// IsRoot reports whether b is a top-level block of its container.
func (b *Block) IsRoot() bool {
	return b.Parent == nil
}

// Ancestors returns the chain of blocks from the outermost one down to b.
func (b *Block) Ancestors() []*Block {
	var chain []*Block
	for cur := b; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Walk calls fn for b and every descendant block, parents first.
func (b *Block) Walk(fn func(*Block)) {
	fn(b)
	for _, child := range b.Blocks {
		child.Walk(fn)
	}
}

// AllTests returns every test in b and its descendants in declaration order.
func (b *Block) AllTests() []*Test {
	var tests []*Test
	for _, n := range b.Order {
		switch n := n.(type) {
		case *Test:
			tests = append(tests, n)
		case *Block:
			tests = append(tests, n.AllTests()...)
		}
	}
	return tests
}

// CountTests returns the total number of tests in this block and its descendants.
func (b *Block) CountTests() int {
	count := len(b.Tests)
	for _, child := range b.Blocks {
		count += child.CountTests()
	}
	return count
}
