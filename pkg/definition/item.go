package definition

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

type kind string

const (
	kindDescribe kind = "describe"
	kindContext  kind = "context"
	kindIt       kind = "it"
)

var knownKeys = []string{
	"describe", "context", "it",
	"tags", "skip", "focus",
	"run", "items",
	"beforeAll", "afterAll", "beforeEach", "afterEach",
	"forEach", "allowNullOrEmptyForEach",
}

// item is one describe, context or it entry of a definition document.
type item struct {
	Describe string `yaml:"describe"`
	Context  string `yaml:"context"`
	It       string `yaml:"it"`

	Tags  []string `yaml:"tags"`
	Skip  bool     `yaml:"skip"`
	Focus bool     `yaml:"focus"`

	Run   string `yaml:"run"`
	Items []item `yaml:"items"`

	BeforeAll  string `yaml:"beforeAll"`
	AfterAll   string `yaml:"afterAll"`
	BeforeEach string `yaml:"beforeEach"`
	AfterEach  string `yaml:"afterEach"`

	ForEach                 []any `yaml:"forEach"`
	AllowNullOrEmptyForEach bool  `yaml:"allowNullOrEmptyForEach"`

	kind       kind
	line       int
	column     int
	hasForEach bool
	// lines holds the line of each key's value, for hook locations.
	lines map[string]int
}

// UnmarshalYAML decodes the item and records where each key was declared.
func (it *item) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return &Error{Line: node.Line, Column: node.Column, Err: ErrNotMapping}
	}

	type plain item
	if err := node.Decode((*plain)(it)); err != nil {
		return err
	}

	it.lines = make(map[string]int, len(node.Content)/2)
	var kinds []kind
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if !slices.Contains(knownKeys, key.Value) {
			return &Error{Line: key.Line, Column: key.Column, Err: fmt.Errorf("%w: %q", ErrUnknownKey, key.Value)}
		}
		it.lines[key.Value] = value.Line

		switch key.Value {
		case "describe", "context", "it":
			kinds = append(kinds, kind(key.Value))
			it.line, it.column = key.Line, key.Column
		case "forEach":
			it.hasForEach = true
		}
	}

	switch len(kinds) {
	case 0:
		return &Error{Line: node.Line, Column: node.Column, Err: ErrMissingName}
	case 1:
		it.kind = kinds[0]
	default:
		return &Error{Line: node.Line, Column: node.Column, Err: fmt.Errorf("%w: %v", ErrAmbiguousKind, kinds)}
	}

	if it.kind == kindIt && len(it.Items) > 0 {
		return &Error{Line: it.line, Column: it.column, Err: ErrTestWithItems}
	}
	if it.kind != kindIt && it.Run != "" {
		return &Error{Line: it.lines["run"], Err: ErrBlockWithRun}
	}
	if strings.TrimSpace(it.name()) == "" {
		return &Error{Line: it.line, Column: it.column, Err: ErrMissingName}
	}
	return nil
}

func (it *item) name() string {
	switch it.kind {
	case kindDescribe:
		return it.Describe
	case kindContext:
		return it.Context
	default:
		return it.It
	}
}
