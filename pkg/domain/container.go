package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ContainerType identifies where a container's tests come from.
type ContainerType string

// Supported container types.
const (
	ContainerTypeFile        ContainerType = "File"
	ContainerTypeScriptBlock ContainerType = "ScriptBlock"
)

// ErrInvalidContainerType is returned for container types other than File and ScriptBlock.
var ErrInvalidContainerType = errors.New("domain: container type out of range")

// ParseContainerType converts s to a ContainerType, ignoring case.
func ParseContainerType(s string) (ContainerType, error) {
	switch strings.ToLower(s) {
	case "file":
		return ContainerTypeFile, nil
	case "scriptblock":
		return ContainerTypeScriptBlock, nil
	default:
		return "", fmt.Errorf("%w: %q: type must be '%s' or '%s'", ErrInvalidContainerType, s, ContainerTypeFile, ContainerTypeScriptBlock)
	}
}

// Container is one test file or one in-memory test definition.
type Container struct {
	// Type tells whether Item is a path or definition text.
	Type ContainerType `json:"type"`
	// Item is the file path for File containers and the definition text for ScriptBlock containers.
	Item string `json:"item"`
	// Data is the row this container was generated from; blocks and tests inherit it.
	Data map[string]any `json:"data,omitempty"`

	// Blocks are the root blocks in declaration order.
	Blocks []*Block `json:"blocks"`

	Result    Result `json:"result"`
	Passed    bool   `json:"passed"`
	OwnPassed bool   `json:"ownPassed"`
	Counts

	// ErrorRecord holds discovery failures.
	ErrorRecord    []ErrorRecord `json:"errorRecord"`
	StandardOutput any           `json:"standardOutput,omitempty"`
	Skip           bool          `json:"skip"`
	// ShouldRun is true when any root block was selected.
	ShouldRun  bool      `json:"shouldRun"`
	Executed   bool      `json:"executed"`
	ExecutedAt time.Time `json:"executedAt"`
	Durations
}

// NewContainer creates a container, failing fast when typ is not a known type.
func NewContainer(typ, item string, data map[string]any) (*Container, error) {
	ct, err := ParseContainerType(typ)
	if err != nil {
		return nil, err
	}
	return newContainer(ct, item, data), nil
}

// NewFileContainer creates a container for a test file.
func NewFileContainer(path string) *Container {
	return newContainer(ContainerTypeFile, path, nil)
}

// NewScriptBlockContainer creates a container for an in-memory definition.
func NewScriptBlockContainer(text string) *Container {
	return newContainer(ContainerTypeScriptBlock, text, nil)
}

func newContainer(ct ContainerType, item string, data map[string]any) *Container {
	return &Container{
		Type:        ct,
		Item:        item,
		Data:        data,
		Blocks:      []*Block{},
		Result:      ResultNotRun,
		ErrorRecord: []ErrorRecord{},
	}
}

// Name returns the display name: the path for files, "<ScriptBlock>" otherwise.
func (c *Container) Name() string {
	switch c.Type {
	case ContainerTypeFile:
		return c.Item
	case ContainerTypeScriptBlock:
		return "<ScriptBlock>"
	default:
		return "<" + string(c.Type) + ">"
	}
}

// AddBlock appends a top-level block to c.
func (c *Container) AddBlock(b *Block) {
	b.Parent = nil
	c.Blocks = append(c.Blocks, b)
	b.attach(c, nil)
}

// Walk calls fn for every block in the container, parents first.
func (c *Container) Walk(fn func(*Block)) {
	for _, b := range c.Blocks {
		b.Walk(fn)
	}
}

// AllTests returns every test in the container in declaration order.
func (c *Container) AllTests() []*Test {
	var tests []*Test
	for _, b := range c.Blocks {
		tests = append(tests, b.AllTests()...)
	}
	return tests
}

// CountTests returns the total number of tests in this container.
func (c *Container) CountTests() int {
	count := 0
	for _, b := range c.Blocks {
		count += b.CountTests()
	}
	return count
}
