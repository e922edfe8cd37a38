// Package definition parses YAML test definitions into container trees.
//
// A definition is a sequence of describe/context blocks. Blocks nest through
// items and hold it entries whose run field is the test body:
//
//	- describe: Calculator
//	  tags: [math]
//	  beforeEach: export X=1
//	  items:
//	    - it: adds <a> and <b>
//	      forEach:
//	        - {a: 1, b: 2}
//	        - {a: 2, b: 3}
//	      run: test $((a + b)) -gt 0
//
// forEach repeats an entry once per data row. Row keys are substituted into
// <key> placeholders of the name and are passed to the test body as data,
// merged over the data of the container and of enclosing blocks. Scalar rows
// are available as <_>.
package definition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/specvital/pester/pkg/domain"
)

var (
	ErrNotMapping    = errors.New("definition: entry must be a mapping")
	ErrUnknownKey    = errors.New("definition: unknown key")
	ErrMissingName   = errors.New("definition: entry needs one of describe, context or it with a name")
	ErrAmbiguousKind = errors.New("definition: entry has more than one of describe, context and it")
	ErrTestWithItems = errors.New("definition: it cannot contain items")
	ErrBlockWithRun  = errors.New("definition: run is only allowed on it")
	ErrTopLevelTest  = errors.New("definition: it must be inside describe or context")
	ErrEmptyForEach  = errors.New("definition: forEach is null or empty")
)

// Error locates a definition problem in the source.
type Error struct {
	Line   int
	Column int
	Err    error
}

func (e *Error) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("line %d, column %d: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Parser builds the block tree of a container from a YAML definition.
// It is safe for concurrent use.
type Parser struct {
	options *Options
}

// NewParser creates a parser.
func NewParser(opts ...Option) *Parser {
	options := &Options{FailOnNullOrEmptyForEach: true}
	for _, opt := range opts {
		opt(options)
	}
	applyDefaults(options)

	return &Parser{options: options}
}

// Parse decodes src and adds its blocks to c. An empty document yields a
// container without blocks. On error c is left without blocks.
func (p *Parser) Parse(ctx context.Context, c *domain.Container, src []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var doc []item
	dec := yaml.NewDecoder(bytes.NewReader(src))
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	b := builder{options: p.options, file: fileOf(c)}
	var blocks []*domain.Block
	for i := range doc {
		it := &doc[i]
		if it.kind == kindIt {
			return &Error{Line: it.line, Column: it.column, Err: ErrTopLevelTest}
		}
		built, err := b.blocks(it, c.Data)
		if err != nil {
			return err
		}
		blocks = append(blocks, built...)
	}

	for _, block := range blocks {
		c.AddBlock(block)
	}
	return nil
}

type builder struct {
	options *Options
	file    string
}

func (b *builder) blocks(it *item, inherited map[string]any) ([]*domain.Block, error) {
	rows, err := b.rows(it)
	if err != nil {
		return nil, err
	}

	groupID := ""
	if it.hasForEach {
		groupID = b.options.NewID()
	}

	out := make([]*domain.Block, 0, len(rows))
	for _, row := range rows {
		data := mergeData(inherited, row)

		block := domain.NewBlock(it.name())
		block.Expand(expandName(it.name(), data))
		block.GroupID = groupID
		block.Data = data
		block.Tag = it.Tags
		block.Skip = it.Skip
		block.Focus = it.Focus
		block.Location = b.location(it.line, it.column)
		block.Hooks = domain.Hooks{
			OneTimeTestSetup:    b.script(it, "beforeAll", it.BeforeAll),
			OneTimeTestTeardown: b.script(it, "afterAll", it.AfterAll),
			EachTestSetup:       b.script(it, "beforeEach", it.BeforeEach),
			EachTestTeardown:    b.script(it, "afterEach", it.AfterEach),
		}

		for i := range it.Items {
			child := &it.Items[i]
			if child.kind == kindIt {
				tests, err := b.tests(child, data)
				if err != nil {
					return nil, err
				}
				for _, t := range tests {
					block.AddTest(t)
				}
				continue
			}

			children, err := b.blocks(child, data)
			if err != nil {
				return nil, err
			}
			for _, cb := range children {
				block.AddBlock(cb)
			}
		}

		out = append(out, block)
	}
	return out, nil
}

func (b *builder) tests(it *item, inherited map[string]any) ([]*domain.Test, error) {
	rows, err := b.rows(it)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Test, 0, len(rows))
	for _, row := range rows {
		data := mergeData(inherited, row)

		t := domain.NewTest(it.name())
		t.Expand(expandName(it.name(), data))
		t.ID = b.options.NewID()
		t.Data = data
		t.Tag = it.Tags
		t.Skip = it.Skip
		t.Focus = it.Focus
		t.Location = b.location(it.line, it.column)
		t.Script = b.script(it, "run", it.Run)

		out = append(out, t)
	}
	return out, nil
}

// rows returns the data rows of it: one nil row without forEach, none for an
// allowed empty forEach.
func (b *builder) rows(it *item) ([]map[string]any, error) {
	if !it.hasForEach {
		return []map[string]any{nil}, nil
	}
	if len(it.ForEach) == 0 {
		if b.options.FailOnNullOrEmptyForEach && !it.AllowNullOrEmptyForEach {
			return nil, &Error{Line: it.lines["forEach"], Err: fmt.Errorf("%w in %q", ErrEmptyForEach, it.name())}
		}
		return nil, nil
	}

	rows := make([]map[string]any, 0, len(it.ForEach))
	for _, raw := range it.ForEach {
		if m, ok := raw.(map[string]any); ok {
			rows = append(rows, m)
			continue
		}
		rows = append(rows, map[string]any{"_": raw})
	}
	return rows, nil
}

func (b *builder) script(it *item, key, body string) *domain.Script {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	return &domain.Script{
		Body:     body,
		Location: b.location(it.lines[key], 0),
	}
}

func (b *builder) location(line, column int) domain.Location {
	return domain.Location{File: b.file, StartLine: line, StartCol: column}
}

func fileOf(c *domain.Container) string {
	if c.Type == domain.ContainerTypeFile {
		return c.Item
	}
	return ""
}

// mergeData layers row over inherited without modifying either.
func mergeData(inherited, row map[string]any) map[string]any {
	if len(inherited) == 0 && len(row) == 0 {
		return nil
	}
	out := make(map[string]any, len(inherited)+len(row))
	maps.Copy(out, inherited)
	maps.Copy(out, row)
	return out
}

// expandName replaces <key> placeholders with data values. Unknown keys are kept.
func expandName(name string, data map[string]any) string {
	if len(data) == 0 || !strings.Contains(name, "<") {
		return name
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "<"+k+">", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(name)
}
