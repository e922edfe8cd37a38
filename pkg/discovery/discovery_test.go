package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specvital/pester/pkg/config"
	"github.com/specvital/pester/pkg/domain"
)

// lineParser creates one top-level block per non-empty line of the source.
func lineParser() Parser {
	return ParserFunc(func(_ context.Context, c *domain.Container, src []byte) error {
		for _, line := range strings.Split(string(src), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if line == "broken" {
				return errors.New("syntax error")
			}
			b := domain.NewBlock(line)
			b.AddTest(domain.NewTest("it"))
			c.AddBlock(b)
		}
		return nil
	})
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func runConfig(paths ...string) config.RunConfiguration {
	run := config.DefaultRunConfiguration()
	run.Path.Set(paths)
	run.TestExtension.Set(".tests.yaml")
	return run
}

func containerNames(containers []*domain.Container) []string {
	names := make([]string, 0, len(containers))
	for _, c := range containers {
		names = append(names, c.Name())
	}
	return names
}

func TestFindFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.tests.yaml":                 "A",
		"nested/b.TESTS.yaml":          "B",
		"nested/helper.yaml":           "x",
		"node_modules/c.tests.yaml":    "C",
		"vendor/lib/h.tests.yaml":      "H",
		".git/i.tests.yaml":            "I",
		"excluded/d.tests.yaml":        "D",
		"other/e.tests.yaml":           "E",
		"other/deeper/f.tests.yaml":    "F",
		"custom_skip/g.tests.yaml":     "G",
		"other/deeper/ignored.txt":     "",
		"other/deeper/f.tests.yaml.bk": "",
	})

	tests := []struct {
		name    string
		opts    []Option
		paths   []string
		exclude []string
		want    []string
	}{
		{
			name:  "should walk directories matching the extension ignoring case",
			paths: []string{root},
			opts:  []Option{WithSkipDirs([]string{"custom_skip"})},
			want: []string{
				"a.tests.yaml",
				"excluded/d.tests.yaml",
				"nested/b.TESTS.yaml",
				"other/deeper/f.tests.yaml",
				"other/e.tests.yaml",
			},
		},
		{
			name:    "should drop files under an excluded directory",
			paths:   []string{root},
			exclude: []string{filepath.Join(root, "excluded"), filepath.Join(root, "custom_skip")},
			want: []string{
				"a.tests.yaml",
				"nested/b.TESTS.yaml",
				"other/deeper/f.tests.yaml",
				"other/e.tests.yaml",
			},
		},
		{
			name:    "should drop files matching an exclude glob",
			paths:   []string{filepath.Join(root, "other")},
			exclude: []string{filepath.Join(root, "**", "deeper", "*")},
			want:    []string{"other/e.tests.yaml"},
		},
		{
			name:  "should take files as given regardless of extension",
			paths: []string{filepath.Join(root, "nested", "helper.yaml")},
			want:  []string{"nested/helper.yaml"},
		},
		{
			name:  "should expand glob paths",
			paths: []string{filepath.Join(root, "other", "**", "*.tests.yaml")},
			want:  []string{"other/deeper/f.tests.yaml", "other/e.tests.yaml"},
		},
		{
			name:  "should remove duplicates",
			paths: []string{filepath.Join(root, "a.tests.yaml"), filepath.Join(root, "a.tests.yaml"), filepath.Join(root, "nested")},
			want:  []string{"a.tests.yaml", "nested/b.TESTS.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := New(lineParser(), tt.opts...)

			files, errs := d.FindFiles(context.Background(), tt.paths, tt.exclude, ".tests.yaml")

			require.Empty(t, errs)
			rel := make([]string, 0, len(files))
			for _, f := range files {
				r, err := filepath.Rel(root, f)
				require.NoError(t, err)
				rel = append(rel, filepath.ToSlash(r))
			}
			assert.ElementsMatch(t, tt.want, rel)
		})
	}
}

func TestFindFiles_MissingPath(t *testing.T) {
	t.Parallel()

	d := New(lineParser())
	missing := filepath.Join(t.TempDir(), "missing")

	files, errs := d.FindFiles(context.Background(), []string{missing}, nil, ".tests.yaml")

	assert.Empty(t, files)
	require.Len(t, errs, 1)
	assert.Equal(t, "walk", errs[0].Phase)
	assert.ErrorIs(t, errs[0], os.ErrNotExist)
	assert.Contains(t, errs[0].Error(), "[walk] "+missing)
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	t.Run("should order files, script blocks and container entries", func(t *testing.T) {
		t.Parallel()

		// Given
		root := t.TempDir()
		writeFiles(t, root, map[string]string{"a.tests.yaml": "A1\nA2"})
		run := runConfig(root)
		run.ScriptBlock.Set([]string{"S"})
		info, err := config.NewContainerInfo("ScriptBlock", "C", map[string]any{"n": 1}, map[string]any{"n": 2})
		require.NoError(t, err)
		run.Container.Set([]config.ContainerInfo{info})

		// When
		result, err := New(lineParser()).Discover(context.Background(), run)

		// Then
		require.NoError(t, err)
		require.Len(t, result.Containers, 4)
		assert.Equal(t, []string{filepath.Join(root, "a.tests.yaml"), "<ScriptBlock>", "<ScriptBlock>", "<ScriptBlock>"}, containerNames(result.Containers))
		assert.Equal(t, 2, result.Containers[0].CountTests())
		assert.Equal(t, "S", result.Containers[1].Blocks[0].Name)
		assert.Equal(t, map[string]any{"n": 1}, result.Containers[2].Data)
		assert.Equal(t, map[string]any{"n": 2}, result.Containers[3].Data)
	})

	t.Run("should record parse failures on the container", func(t *testing.T) {
		t.Parallel()

		// Given
		run := runConfig()
		run.ScriptBlock.Set([]string{"broken", "ok"})

		// When
		result, err := New(lineParser()).Discover(context.Background(), run)

		// Then
		require.NoError(t, err)
		require.Len(t, result.Containers, 2)
		failed := result.Containers[0]
		require.Len(t, failed.ErrorRecord, 1)
		assert.Equal(t, domain.ErrorIDDiscoveryFailed, failed.ErrorRecord[0].ErrorID)
		assert.Contains(t, failed.ErrorRecord[0].Message, "syntax error")
		assert.Empty(t, result.Containers[1].ErrorRecord)
	})

	t.Run("should record oversized files without parsing them", func(t *testing.T) {
		t.Parallel()

		// Given
		root := t.TempDir()
		writeFiles(t, root, map[string]string{"big.tests.yaml": strings.Repeat("x", 64)})
		var calls atomic.Int32
		parser := ParserFunc(func(context.Context, *domain.Container, []byte) error {
			calls.Add(1)
			return nil
		})

		// When
		result, err := New(parser, WithMaxFileSize(16)).Discover(context.Background(), runConfig(root))

		// Then
		require.NoError(t, err)
		require.Len(t, result.Containers, 1)
		require.Len(t, result.Containers[0].ErrorRecord, 1)
		assert.Contains(t, result.Containers[0].ErrorRecord[0].Message, ErrFileTooLarge.Error())
		assert.Equal(t, filepath.Join(root, "big.tests.yaml"), result.Containers[0].ErrorRecord[0].File)
		assert.Zero(t, calls.Load())
	})

	t.Run("should return ErrNoContainers when nothing is found", func(t *testing.T) {
		t.Parallel()

		result, err := New(lineParser()).Discover(context.Background(), runConfig(t.TempDir()))

		assert.ErrorIs(t, err, ErrNoContainers)
		require.NotNil(t, result)
		assert.Empty(t, result.Containers)
	})

	t.Run("should report cancellation", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeFiles(t, root, map[string]string{"a.tests.yaml": "A"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(lineParser()).Discover(ctx, runConfig(root))

		assert.ErrorIs(t, err, ErrDiscoveryCancelled)
	})

	t.Run("should read each file once through a shared cache", func(t *testing.T) {
		t.Parallel()

		// Given
		root := t.TempDir()
		writeFiles(t, root, map[string]string{"a.tests.yaml": "A"})
		cache := NewCache()
		d := New(lineParser(), WithCache(cache), WithWorkers(4))

		// When
		_, err := d.Discover(context.Background(), runConfig(root))
		require.NoError(t, err)
		_, err = d.Discover(context.Background(), runConfig(root))
		require.NoError(t, err)

		// Then
		assert.Equal(t, 1, cache.Size())
	})
}

func TestDiscoveryError(t *testing.T) {
	t.Parallel()

	err := DiscoveryError{Err: os.ErrNotExist, Path: "a.tests.yaml", Phase: "read"}

	assert.Equal(t, "[read] a.tests.yaml: file does not exist", err.Error())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, "[parse] boom", DiscoveryError{Err: errors.New("boom"), Phase: "parse"}.Error())
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	opts := &Options{Workers: MaxWorkers + 1}
	applyDefaults(opts)

	assert.Equal(t, int64(DefaultMaxFileSize), opts.MaxFileSize)
	assert.Equal(t, MaxWorkers, opts.Workers)
	assert.NotNil(t, opts.Cache)
}
