package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/specvital/pester/internal/ctxlog"
	"github.com/specvital/pester/pkg/config"
	"github.com/specvital/pester/pkg/definition"
	"github.com/specvital/pester/pkg/discovery"
	"github.com/specvital/pester/pkg/domain"
)

// loadConfiguration layers CLI defaults, the configuration file with its
// environment overrides, and the changed flags, later layers winning per option.
func loadConfiguration(path string, overrides *config.Configuration, warn func(error)) (*config.Configuration, error) {
	base := config.Default()
	base.Run.TestExtension.Set(DefaultTestExtension)

	file, err := config.Load(path, config.WithWarnings(warn))
	if err != nil {
		return nil, err
	}

	cfg := config.Merge(config.Merge(base, file), overrides)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes to w at the level implied by the output verbosity.
// Debug records are further restricted to the configured debug sources.
func newLogger(w io.Writer, cfg *config.Configuration) *slog.Logger {
	level := slog.LevelInfo
	debug := cfg.Debug.WriteDebugMessages.Value()
	sources := cfg.Debug.WriteDebugMessagesFrom.Value()

	switch cfg.Output.EffectiveVerbosity() {
	case config.VerbosityNone:
		level = slog.LevelError
	case config.VerbosityDiagnostic:
		debug = true
		sources = []string{"*"}
	}
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(ctxlog.NewSourceHandler(handler, debug, sources))
}

// session is the configured state shared by the run and discover commands.
type session struct {
	cfg    *config.Configuration
	logger *slog.Logger
}

func newSession(configPath string, apply func(*config.Configuration), stderr io.Writer) (*session, error) {
	overrides := config.Default()
	apply(overrides)

	var warnings []error
	cfg, err := loadConfiguration(configPath, overrides, func(err error) {
		warnings = append(warnings, err)
	})
	if err != nil {
		return nil, err
	}

	logger := newLogger(stderr, cfg)
	for _, w := range warnings {
		logger.Warn("ignoring configuration value", "error", w)
	}
	return &session{cfg: cfg, logger: logger}, nil
}

// discover finds and parses the containers selected by the configuration.
// Finding nothing is reported but not an error.
func (s *session) discover(ctx context.Context, workers int) ([]*domain.Container, error) {
	parser := definition.NewParser(
		definition.WithFailOnNullOrEmptyForEach(s.cfg.Run.FailOnNullOrEmptyForEach.Value()),
	)
	d := discovery.New(parser, discovery.WithWorkers(workers))

	result, err := d.Discover(ctx, s.cfg.Run)
	if result != nil {
		for _, derr := range result.Errors {
			s.logger.WarnContext(ctx, "path skipped", "error", derr)
		}
	}
	switch {
	case errors.Is(err, discovery.ErrNoContainers):
		s.logger.WarnContext(ctx, "no test files were found", "path", s.cfg.Run.Path.Value())
		return []*domain.Container{}, nil
	case err != nil:
		return nil, err
	}
	return result.Containers, nil
}
