// Package shell runs test bodies and hooks as shell commands.
//
// A body succeeds when the command exits with status 0. Exit status
// SkipExitCode marks the test skipped and InconclusiveExitCode marks it
// inconclusive; any other status fails it with the command's stderr as the
// error message. Data bound to the test is exported as environment variables.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/specvital/pester/internal/ctxlog"
	"github.com/specvital/pester/pkg/domain"
)

const (
	// SkipExitCode marks an invocation as skipped.
	SkipExitCode = 77
	// InconclusiveExitCode marks an invocation as inconclusive.
	InconclusiveExitCode = 78
)

// waitDelay bounds how long a cancelled command may keep its output pipes open.
const waitDelay = time.Second

// ItemEnv receives the value of scalar forEach rows, which have no key of their own.
const ItemEnv = "PESTER_ITEM"

var envName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Executor runs scripts through a shell. It is safe for concurrent use.
type Executor struct {
	options *Options

	mu       sync.Mutex
	analyzed map[domain.Location]string
	hits     map[domain.Location]int
}

// New creates a shell executor.
func New(opts ...Option) *Executor {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	applyDefaults(options)

	return &Executor{
		options:  options,
		analyzed: make(map[domain.Location]string),
		hits:     make(map[domain.Location]int),
	}
}

// Invoke runs script with data exported to its environment.
// A nil or blank script succeeds without starting a process.
func (e *Executor) Invoke(ctx context.Context, script *domain.Script, data map[string]any) domain.InvocationResult {
	if script == nil || strings.TrimSpace(script.Body) == "" {
		return domain.NewInvocationResult(true, nil, nil)
	}
	e.hit(script)

	if e.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.options.Timeout)
		defer cancel()
	}

	args := append(slices.Clone(e.options.Args), script.Body)
	cmd := exec.CommandContext(ctx, e.options.Shell, args...)
	cmd.Dir = e.options.Dir
	cmd.WaitDelay = waitDelay
	cmd.Env = append(append(cmd.Environ(), e.options.Env...), dataEnv(data)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	ctxlog.Debug(ctx, ctxlog.SourceRuntime, "invoking script", "location", script.Location.String())
	err := cmd.Run()
	output := standardOutput(stdout.String())

	if err == nil {
		return domain.NewInvocationResult(true, nil, output)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		switch exitErr.ExitCode() {
		case SkipExitCode:
			res := domain.NewInvocationResult(true, nil, output)
			res.Skipped = true
			return res
		case InconclusiveExitCode:
			res := domain.NewInvocationResult(true, nil, output)
			res.Inconclusive = true
			return res
		}
	}

	return domain.NewInvocationResult(false, []domain.ErrorRecord{failure(script, err, ctx.Err(), stderr.String())}, output)
}

// Analyze registers every script of the containers as a coverage target.
func (e *Executor) Analyze(containers []*domain.Container) {
	e.mu.Lock()
	defer e.mu.Unlock()

	add := func(s *domain.Script) {
		if s == nil || strings.TrimSpace(s.Body) == "" {
			return
		}
		e.analyzed[s.Location] = firstLine(s.Body)
	}
	for _, c := range containers {
		c.Walk(func(b *domain.Block) {
			h := b.Hooks
			for _, s := range []*domain.Script{
				h.EachTestSetup, h.EachTestTeardown, h.OneTimeTestSetup, h.OneTimeTestTeardown,
				h.EachBlockSetup, h.EachBlockTeardown, h.OneTimeBlockSetup, h.OneTimeBlockTeardown,
			} {
				add(s)
			}
			for _, t := range b.Tests {
				add(t.Script)
			}
		})
	}
}

// Coverage reports which analyzed scripts ran at least once.
func (e *Executor) Coverage(context.Context) (*domain.CodeCoverage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cov := &domain.CodeCoverage{
		CommandsExecuted: []domain.CommandCoverage{},
		CommandsMissed:   []domain.CommandCoverage{},
		FilesAnalyzed:    []string{},
	}
	files := make(map[string]bool)
	for loc, command := range e.analyzed {
		cc := domain.CommandCoverage{
			File:     loc.File,
			Line:     loc.StartLine,
			Command:  command,
			HitCount: e.hits[loc],
		}
		if cc.HitCount > 0 {
			cov.CommandsExecuted = append(cov.CommandsExecuted, cc)
		} else {
			cov.CommandsMissed = append(cov.CommandsMissed, cc)
		}
		if loc.File != "" && !files[loc.File] {
			files[loc.File] = true
			cov.FilesAnalyzed = append(cov.FilesAnalyzed, loc.File)
		}
	}

	sortCommands(cov.CommandsExecuted)
	sortCommands(cov.CommandsMissed)
	slices.Sort(cov.FilesAnalyzed)
	return cov, nil
}

func (e *Executor) hit(script *domain.Script) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hits[script.Location]++
}

func failure(script *domain.Script, err, ctxErr error, stderr string) domain.ErrorRecord {
	message := strings.TrimSpace(stderr)
	switch {
	case ctxErr != nil:
		message = fmt.Sprintf("command interrupted: %v", ctxErr)
	case message == "":
		message = fmt.Sprintf("command failed: %v", err)
	}
	return domain.ErrorRecord{
		ErrorID:     domain.ErrorIDCommandFailed,
		Message:     message,
		File:        script.Location.File,
		Line:        script.Location.StartLine,
		LineText:    firstLine(script.Body),
		Terminating: true,
	}
}

// dataEnv converts data to KEY=VALUE entries sorted by key. Keys that are not
// valid variable names are dropped.
func dataEnv(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		name := k
		if k == "_" {
			name = ItemEnv
		}
		if !envName.MatchString(name) {
			continue
		}
		env = append(env, name+"="+fmt.Sprint(data[k]))
	}
	return env
}

func standardOutput(s string) any {
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return nil
	}
	return s
}

func firstLine(body string) string {
	body = strings.TrimSpace(body)
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		return strings.TrimSpace(body[:i])
	}
	return body
}

func sortCommands(cmds []domain.CommandCoverage) {
	slices.SortFunc(cmds, func(a, b domain.CommandCoverage) int {
		if c := strings.Compare(a.File, b.File); c != 0 {
			return c
		}
		return a.Line - b.Line
	})
}
