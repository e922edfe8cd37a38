package main

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/specvital/pester/pkg/config"
)

// skipScopeValue is a pflag.Value accepting None, Run, Container or Block.
type skipScopeValue struct {
	scope config.SkipScope
}

var _ pflag.Value = (*skipScopeValue)(nil)

func (v *skipScopeValue) String() string {
	if v.scope == "" {
		return string(config.SkipNone)
	}
	return string(v.scope)
}

func (v *skipScopeValue) Set(s string) error {
	scope, err := config.ParseSkipScope(s)
	if err != nil {
		return err
	}
	v.scope = scope
	return nil
}

func (v *skipScopeValue) Type() string {
	return "scope"
}

// commonFlags select and filter tests; shared by run and discover.
type commonFlags struct {
	configPath   string
	excludePath  []string
	extension    string
	tags         []string
	excludeTags  []string
	lines        []string
	excludeLines []string
	fullNames    []string
	verbosity    string
	workers      int
}

func (f *commonFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.configPath, "config", "c", "", "Configuration file (YAML, JSON or TOML)")
	flags.StringSliceVar(&f.excludePath, "exclude-path", nil, "Directories or files excluded from discovery")
	flags.StringVar(&f.extension, "extension", DefaultTestExtension, "Suffix of test definition files")
	flags.StringSliceVarP(&f.tags, "tag", "t", nil, "Run only tests with one of these tags")
	flags.StringSliceVar(&f.excludeTags, "exclude-tag", nil, "Exclude tests with one of these tags")
	flags.StringSliceVarP(&f.lines, "line", "l", nil, "Run only tests declared at path:line")
	flags.StringSliceVar(&f.excludeLines, "exclude-line", nil, "Exclude tests declared at path:line")
	flags.StringSliceVarP(&f.fullNames, "full-name", "n", nil, "Run only tests whose full name matches a wildcard")
	flags.StringVarP(&f.verbosity, "verbosity", "v", config.VerbosityNormal, "Output verbosity: None, Normal, Detailed or Diagnostic")
	flags.IntVarP(&f.workers, "workers", "w", 1, "Containers executed and parsed concurrently")
}

// apply copies the flags the user actually changed onto cfg.
func (f *commonFlags) apply(flags *pflag.FlagSet, cfg *config.Configuration, paths []string) {
	if len(paths) > 0 {
		cfg.Run.Path.Set(paths)
	}
	if flags.Changed("exclude-path") {
		cfg.Run.ExcludePath.Set(f.excludePath)
	}
	if flags.Changed("extension") {
		cfg.Run.TestExtension.Set(f.extension)
	}
	if flags.Changed("tag") {
		cfg.Filter.Tag.Set(f.tags)
	}
	if flags.Changed("exclude-tag") {
		cfg.Filter.ExcludeTag.Set(f.excludeTags)
	}
	if flags.Changed("line") {
		cfg.Filter.Line.Set(f.lines)
	}
	if flags.Changed("exclude-line") {
		cfg.Filter.ExcludeLine.Set(f.excludeLines)
	}
	if flags.Changed("full-name") {
		cfg.Filter.FullName.Set(f.fullNames)
	}
	if flags.Changed("verbosity") {
		cfg.Output.Verbosity.Set(f.verbosity)
	}
}

// runFlags are the flags of the run command.
type runFlags struct {
	commonFlags
	skipRemaining skipScopeValue
	skipRun       bool
	exit          bool
	throw         bool
	passThru      bool
	otlpEndpoint  string
	shell         string
	timeout       time.Duration
}

func (f *runFlags) register(flags *pflag.FlagSet) {
	f.commonFlags.register(flags)
	flags.Var(&f.skipRemaining, "skip-remaining-on-failure", "Skip the rest of the Block, Container or Run after a failed test")
	flags.BoolVar(&f.skipRun, "skip-run", false, "Discover and filter without running tests")
	flags.BoolVar(&f.exit, "exit", false, "Exit with the number of failed tests, blocks and containers")
	flags.BoolVar(&f.throw, "throw", false, "Fail the command when any test fails")
	flags.BoolVar(&f.passThru, "passthru", false, "Print the run summary as JSON on stdout")
	flags.StringVar(&f.otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint receiving run traces")
	flags.StringVar(&f.shell, "shell", "sh", "Shell interpreting test bodies and hooks")
	flags.DurationVar(&f.timeout, "timeout", 0, "Time limit of a single test body or hook (0 means none)")
}

func (f *runFlags) apply(flags *pflag.FlagSet, cfg *config.Configuration, paths []string) {
	f.commonFlags.apply(flags, cfg, paths)
	if flags.Changed("skip-remaining-on-failure") {
		cfg.Run.SkipRemainingOnFailure.Set(string(f.skipRemaining.scope))
	}
	if flags.Changed("skip-run") {
		cfg.Run.SkipRun.Set(f.skipRun)
	}
	if flags.Changed("exit") {
		cfg.Run.Exit.Set(f.exit)
	}
	if flags.Changed("throw") {
		cfg.Run.Throw.Set(f.throw)
	}
	if flags.Changed("passthru") {
		cfg.Run.PassThru.Set(f.passThru)
	}
}
