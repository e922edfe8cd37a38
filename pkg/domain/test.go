package domain

import (
	"strings"
	"time"
)

// Selection holds the filter decisions shared by blocks and tests.
type Selection struct {
	// Tag holds the tags declared on the node.
	Tag []string `json:"tag,omitempty"`
	// Focus marks a node declared as focused; when any node is focused only focused nodes run.
	Focus bool `json:"focus"`
	// Skip marks a node declared as skipped.
	Skip bool `json:"skip"`
	// Explicit is set when a line filter selected the node directly; it overrides Skip.
	Explicit bool `json:"explicit"`
	// Include is set when a filter matched the node.
	Include bool `json:"include"`
	// Exclude is set when an exclude filter matched the node.
	Exclude bool `json:"exclude"`
	// ShouldRun is the final filter decision.
	ShouldRun bool `json:"shouldRun"`
	// First and Last mark the first and last selected node among its siblings.
	First bool `json:"first"`
	Last  bool `json:"last"`
}

// Selected returns s itself; it lets Block and Test satisfy Node.
func (s *Selection) Selected() *Selection {
	return s
}

// Node is an entry of a block's declaration order: a *Block or a *Test.
type Node interface {
	Selected() *Selection
	FullName() string
	IsSkipped() bool
}

// Test is a single test case, the leaf of the tree.
type Test struct {
	Selection

	// ID is unique per test instance, including each data-driven instance.
	ID string `json:"id,omitempty"`
	// Name is the declared name, possibly holding <key> placeholders.
	Name string `json:"name"`
	// ExpandedName is Name with placeholders replaced by Data values.
	ExpandedName string `json:"expandedName"`
	// Path holds the declared names from the root block down to the test.
	Path []string `json:"path"`
	// ExpandedPath is Path built from expanded names.
	ExpandedPath []string `json:"expandedPath"`
	// Data is the merged data row the test was generated from.
	Data map[string]any `json:"data,omitempty"`
	// Location is where the test was declared.
	Location Location `json:"location"`
	// Script is the test body; nil marks a pending test.
	Script *Script `json:"-"`

	// Result is the outcome, NotRun until the test is settled.
	Result Result `json:"result"`
	// ErrorRecord holds the failures of the body and of per-test hooks.
	ErrorRecord []ErrorRecord `json:"errorRecord"`
	// StandardOutput is what the body wrote, as reported by the executor.
	StandardOutput any `json:"standardOutput,omitempty"`
	// Executed is set once the test was invoked.
	Executed   bool      `json:"executed"`
	ExecutedAt time.Time `json:"executedAt"`
	Durations

	// Block is the owning block, for lookup only.
	Block *Block `json:"-"`
}

// NewTest creates a test that has not run yet.
func NewTest(name string) *Test {
	return &Test{
		Name:         name,
		ExpandedName: name,
		Path:         []string{name},
		ExpandedPath: []string{name},
		Result:       ResultNotRun,
		ErrorRecord:  []ErrorRecord{},
	}
}

// FullName returns the expanded path joined by dots, the form matched by name filters.
func (t *Test) FullName() string {
	return strings.Join(t.ExpandedPath, ".")
}

// Expand sets the expanded name, keeping the declared Name.
func (t *Test) Expand(name string) {
	t.ExpandedName = name
	var parent []string
	if len(t.ExpandedPath) > 0 {
		parent = t.ExpandedPath[:len(t.ExpandedPath)-1]
	}
	t.ExpandedPath = childPath(parent, name)
}

// StartLine returns the line the test was declared on.
func (t *Test) StartLine() int {
	return t.Location.StartLine
}

// Passed reports whether the test passed.
func (t *Test) Passed() bool {
	return t.Result == ResultPassed
}

// Duration returns the user plus framework time spent on the test.
func (t *Test) Duration() time.Duration {
	return t.UserDuration + t.FrameworkDuration
}

// IsSkipped reports whether the test is skipped by its own Skip flag or one
// inherited from an ancestor block. Explicit tests are never skipped.
func (t *Test) IsSkipped() bool {
	if t.Explicit {
		return false
	}
	if t.Skip {
		return true
	}
	return t.Block != nil && t.Block.IsSkipped()
}

// Container returns the container owning the test, or nil if detached.
func (t *Test) Container() *Container {
	if t.Block == nil {
		return nil
	}
	return t.Block.Container
}
