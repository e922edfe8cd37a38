// Package discovery finds test files and builds one container per file,
// definition text or container description, parsing each into its tree.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/specvital/pester/internal/ctxlog"
	"github.com/specvital/pester/pkg/config"
	"github.com/specvital/pester/pkg/domain"
)

const (
	// MaxWorkers is the maximum number of concurrent parsers allowed.
	MaxWorkers = 1024
	// DefaultMaxFileSize is the default maximum test file size (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024
)

// DefaultSkipPatterns contains directory names that are skipped by default
// while walking: version control metadata and vendored dependency trees,
// whose test definitions belong to other projects.
var DefaultSkipPatterns = []string{
	".git",
	".hg",
	".svn",
	"node_modules",
	"vendor",
}

var (
	// ErrNoContainers is returned when discovery found nothing to run.
	ErrNoContainers = errors.New("discovery: no test containers found")
	// ErrDiscoveryCancelled is returned when discovery is cancelled via context.
	ErrDiscoveryCancelled = errors.New("discovery: cancelled")
	// ErrFileTooLarge is recorded on containers whose file exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("discovery: file too large")
)

// DiscoveryError is a problem found while walking paths or building a container.
type DiscoveryError struct {
	// Err is the underlying error.
	Err error

	// Path is the file or path argument the error relates to (may be empty).
	Path string

	// Phase indicates which phase the error occurred in.
	// Values: "walk", "read", "parse"
	Phase string
}

// Error implements the error interface.
func (e DiscoveryError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Phase, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e DiscoveryError) Unwrap() error {
	return e.Err
}

// Parser builds the block tree of a container from its definition text.
type Parser interface {
	Parse(ctx context.Context, c *domain.Container, src []byte) error
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, c *domain.Container, src []byte) error

// Parse calls f.
func (f ParserFunc) Parse(ctx context.Context, c *domain.Container, src []byte) error {
	return f(ctx, c, src)
}

// Result is the outcome of a discovery.
type Result struct {
	Containers []*domain.Container
	// Errors contains path problems that did not produce a container.
	Errors []DiscoveryError
}

// Discoverer builds containers from the Run section.
type Discoverer struct {
	parser  Parser
	options *Options
}

// New creates a discoverer that parses definitions with parser.
func New(parser Parser, opts ...Option) *Discoverer {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	applyDefaults(options)

	return &Discoverer{
		parser:  parser,
		options: options,
	}
}

// Discover builds containers in this order: test files found under Run.Path,
// then Run.ScriptBlock texts, then Run.Container entries (one container per
// data row). Parse failures are recorded on the container, which is still
// returned. ErrNoContainers is returned with an empty result.
func (d *Discoverer) Discover(ctx context.Context, run config.RunConfiguration) (*Result, error) {
	result := &Result{
		Containers: []*domain.Container{},
		Errors:     []DiscoveryError{},
	}

	files, walkErrs := d.FindFiles(ctx, run.Path.Value(), run.ExcludePath.Value(), run.TestExtension.Value())
	result.Errors = append(result.Errors, walkErrs...)
	for _, f := range files {
		result.Containers = append(result.Containers, domain.NewFileContainer(f))
	}
	for _, text := range run.ScriptBlock.Value() {
		result.Containers = append(result.Containers, domain.NewScriptBlockContainer(text))
	}
	for _, ci := range run.Container.Value() {
		containers, err := ci.Containers()
		if err != nil {
			return nil, fmt.Errorf("discovery: %w", err)
		}
		result.Containers = append(result.Containers, containers...)
	}

	ctxlog.Debug(ctx, ctxlog.SourceDiscovery, "containers found", "count", len(result.Containers), "files", len(files))

	d.parseAll(ctx, result.Containers)

	if err := ctx.Err(); err != nil {
		return result, ErrDiscoveryCancelled
	}
	if len(result.Containers) == 0 {
		return result, ErrNoContainers
	}
	return result, nil
}

// FindFiles resolves paths to test files. Directories are walked recursively
// for files ending in extension (ignoring case), files are taken as given and
// glob patterns are expanded. Paths matching an exclude pattern, or lying
// under an excluded directory, are dropped. Duplicates are removed.
func (d *Discoverer) FindFiles(ctx context.Context, paths, exclude []string, extension string) ([]string, []DiscoveryError) {
	var (
		files []string
		errs  []DiscoveryError
		seen  = make(map[string]bool)
	)
	excludes := absPatterns(exclude)
	skipSet := buildSkipSet(append(append([]string{}, DefaultSkipPatterns...), d.options.SkipDirs...))

	add := func(path string) {
		if isExcluded(path, excludes) {
			ctxlog.Debug(ctx, ctxlog.SourceDiscovery, "excluded by path", "path", path)
			return
		}
		key := absPath(path)
		if seen[key] {
			return
		}
		seen[key] = true
		files = append(files, path)
	}

	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}

		candidates := []string{p}
		if hasMeta(p) {
			matches, err := doublestar.FilepathGlob(p)
			if err != nil {
				errs = append(errs, DiscoveryError{Err: err, Path: p, Phase: "walk"})
				continue
			}
			candidates = matches
		}

		for _, candidate := range candidates {
			info, err := os.Stat(candidate)
			if err != nil {
				errs = append(errs, DiscoveryError{Err: err, Path: candidate, Phase: "walk"})
				continue
			}
			if !info.IsDir() {
				add(candidate)
				continue
			}
			walkErrs := d.walk(ctx, candidate, extension, skipSet, excludes, add)
			errs = append(errs, walkErrs...)
		}
	}

	return files, errs
}

func (d *Discoverer) walk(ctx context.Context, root, extension string, skipSet map[string]bool, excludes []string, add func(string)) []DiscoveryError {
	var errs []DiscoveryError
	ext := strings.ToLower(extension)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if walkErr != nil {
			errs = append(errs, DiscoveryError{Err: walkErr, Path: path, Phase: "walk"})
			return nil
		}

		if entry.IsDir() {
			if shouldSkipDir(path, root, skipSet) || (path != root && isExcluded(path, excludes)) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(strings.ToLower(entry.Name()), ext) {
			return nil
		}
		add(path)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		errs = append(errs, DiscoveryError{Err: err, Path: root, Phase: "walk"})
	}
	return errs
}

// parseAll parses every container concurrently. Each goroutine only writes
// to its own container, so no result merging is needed and order is kept.
func (d *Discoverer) parseAll(ctx context.Context, containers []*domain.Container) {
	sem := semaphore.NewWeighted(int64(d.options.Workers))
	g, gCtx := errgroup.WithContext(ctx)

	for _, c := range containers {
		g.Go(func() error {
			if err := sem.Acquire(gCtx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			d.parseContainer(gCtx, c)
			return nil
		})
	}

	_ = g.Wait()
}

func (d *Discoverer) parseContainer(ctx context.Context, c *domain.Container) {
	start := time.Now()
	defer func() {
		c.DiscoveryDuration = time.Since(start)
	}()

	src, derr := d.source(ctx, c)
	if derr == nil && d.parser != nil {
		if err := d.parser.Parse(ctx, c, src); err != nil {
			derr = &DiscoveryError{Err: err, Path: c.Name(), Phase: "parse"}
		}
	}
	if derr == nil {
		ctxlog.Debug(ctx, ctxlog.SourceDiscovery, "container discovered",
			"container", c.Name(), "tests", c.CountTests())
		return
	}

	loc := domain.Location{}
	if c.Type == domain.ContainerTypeFile {
		loc.File = c.Item
	}
	c.ErrorRecord = append(c.ErrorRecord, domain.NewErrorRecord(domain.ErrorIDDiscoveryFailed, derr, loc))
	ctxlog.FromContext(ctx).WarnContext(ctx, "discovery failed", "container", c.Name(), "error", derr)
}

// source returns the definition text of c.
func (d *Discoverer) source(ctx context.Context, c *domain.Container) ([]byte, error) {
	if c.Type == domain.ContainerTypeScriptBlock {
		return []byte(c.Item), nil
	}
	content, err := d.readFile(ctx, c.Item)
	if err != nil {
		return nil, &DiscoveryError{Err: err, Path: c.Item, Phase: "read"}
	}
	return content, nil
}

func (d *Discoverer) readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > d.options.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, info.Size(), d.options.MaxFileSize)
	}
	if content, ok := d.options.Cache.Get(absPath(path), info); ok {
		return content, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	d.options.Cache.Set(absPath(path), info, content)
	return content, nil
}

func buildSkipSet(patterns []string) map[string]bool {
	skipSet := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		skipSet[p] = true
	}
	return skipSet
}

func shouldSkipDir(path, rootPath string, skipSet map[string]bool) bool {
	if path == rootPath {
		return false
	}

	base := filepath.Base(path)
	return skipSet[base]
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(path))
	}
	return filepath.ToSlash(abs)
}

func absPatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, strings.TrimSuffix(absPath(p), "/"))
	}
	return out
}

// isExcluded matches path against exclude patterns, either directly or as a
// file under an excluded directory.
func isExcluded(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	abs := absPath(path)
	for _, pattern := range patterns {
		if abs == pattern || strings.HasPrefix(abs, pattern+"/") {
			return true
		}
		matched, err := doublestar.Match(pattern, abs)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
