package config

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration is the root of all sections.
type Configuration struct {
	Run          RunConfiguration
	Filter       FilterConfiguration
	CodeCoverage CodeCoverageConfiguration
	TestResult   TestResultConfiguration
	Should       ShouldConfiguration
	Debug        DebugConfiguration
	Output       OutputConfiguration
	TestDrive    TestDriveConfiguration
	TestRegistry TestRegistryConfiguration
}

type namedSection struct {
	name string
	sec  section
}

// sections lists the sections in their canonical order.
func (c *Configuration) sections() []namedSection {
	return []namedSection{
		{"Run", &c.Run},
		{"Filter", &c.Filter},
		{"CodeCoverage", &c.CodeCoverage},
		{"TestResult", &c.TestResult},
		{"Should", &c.Should},
		{"Debug", &c.Debug},
		{"Output", &c.Output},
		{"TestDrive", &c.TestDrive},
		{"TestRegistry", &c.TestRegistry},
	}
}

// Default returns a configuration with every option at its default value.
func Default() *Configuration {
	return &Configuration{
		Run:          DefaultRunConfiguration(),
		Filter:       DefaultFilterConfiguration(),
		CodeCoverage: DefaultCodeCoverageConfiguration(),
		TestResult:   DefaultTestResultConfiguration(),
		Should:       DefaultShouldConfiguration(),
		Debug:        DefaultDebugConfiguration(),
		Output:       DefaultOutputConfiguration(),
		TestDrive:    DefaultTestDriveConfiguration(),
		TestRegistry: DefaultTestRegistryConfiguration(),
	}
}

// ShallowClone copies every option, including its explicitly-set flag.
// Slice values are shared with c.
func (c *Configuration) ShallowClone() *Configuration {
	clone := *c
	return &clone
}

// Merge returns a new configuration where every option explicitly set in
// override replaces the one in base. Options are merged one by one, so a
// partially overridden section keeps the remaining values of base.
// A nil base is treated as Default; a nil override returns a clone of base.
func Merge(base, override *Configuration) *Configuration {
	if base == nil {
		base = Default()
	}
	out := base.ShallowClone()
	if override == nil {
		return out
	}

	dst, src := out.sections(), override.sections()
	if len(dst) != len(src) {
		panic(fmt.Sprintf("config: cannot merge %d sections into %d", len(src), len(dst)))
	}
	for i := range dst {
		if dst[i].name != src[i].name {
			panic(fmt.Sprintf("config: cannot merge section %s into %s", src[i].name, dst[i].name))
		}
		mergeFields(dst[i].name, dst[i].sec.fields(), src[i].sec.fields())
	}
	return out
}

func mergeFields(name string, dst, src []field) {
	if len(dst) != len(src) {
		panic(fmt.Sprintf("config: section %s has mismatched option lists", name))
	}
	for i := range dst {
		if dst[i].key != src[i].key {
			panic(fmt.Sprintf("config: cannot merge %s.%s into %s.%s", name, src[i].key, name, dst[i].key))
		}
		if src[i].opt.IsModified() {
			dst[i].opt.copyFrom(src[i].opt)
		}
	}
}

// DecodeOption configures FromMap.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	warn func(error)
}

// WithWarnings registers a callback for values that could not be coerced and
// fell back to their default.
func WithWarnings(fn func(error)) DecodeOption {
	return func(o *decodeOptions) {
		o.warn = fn
	}
}

func newDecodeOptions(opts []DecodeOption) *decodeOptions {
	o := &decodeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.warn == nil {
		o.warn = func(error) {}
	}
	return o
}

// FromMap builds a configuration from a sparse mapping of section name to
// option values. Keys are matched ignoring case, unknown keys are ignored and
// absent keys keep their defaults. Only values that cannot be coerced into a
// valid container type are fatal.
func FromMap(m map[string]any, opts ...DecodeOption) (*Configuration, error) {
	o := newDecodeOptions(opts)
	cfg := Default()
	for _, ns := range cfg.sections() {
		raw, ok := lookup(m, ns.name)
		if !ok || raw == nil {
			continue
		}
		sub, ok := asMap(raw)
		if !ok {
			o.warn(&FieldError{Section: ns.name, Err: fmt.Errorf("%w: section is %T, not a map", ErrInvalidValue, raw)})
			continue
		}
		if err := decodeSection(ns.name, ns.sec, sub, o); err != nil {
			return nil, err
		}
	}
	cfg.Output.normalize()
	return cfg, nil
}

// RunConfigurationFromMap builds a Run section from a sparse mapping.
func RunConfigurationFromMap(m map[string]any, opts ...DecodeOption) (RunConfiguration, error) {
	c := DefaultRunConfiguration()
	if err := decodeSection("Run", &c, m, newDecodeOptions(opts)); err != nil {
		return RunConfiguration{}, err
	}
	return c, nil
}

// FilterConfigurationFromMap builds a Filter section from a sparse mapping.
func FilterConfigurationFromMap(m map[string]any, opts ...DecodeOption) (FilterConfiguration, error) {
	c := DefaultFilterConfiguration()
	if err := decodeSection("Filter", &c, m, newDecodeOptions(opts)); err != nil {
		return FilterConfiguration{}, err
	}
	return c, nil
}

func decodeSection(name string, sec section, m map[string]any, o *decodeOptions) error {
	for _, f := range sec.fields() {
		raw, ok := lookup(m, f.key)
		if !ok {
			continue
		}
		out, err := f.opt.decode(raw)
		if out != outcomeInvalid {
			continue
		}
		fe := &FieldError{Section: name, Key: f.key, Err: err}
		if isFatal(err) {
			return fe
		}
		o.warn(fe)
	}
	return nil
}

// ToMap returns the explicitly set options only, in the shape FromMap accepts.
func (c *Configuration) ToMap() map[string]any {
	out := make(map[string]any)
	for _, ns := range c.sections() {
		if sm := sectionToMap(ns.sec); len(sm) > 0 {
			out[ns.name] = sm
		}
	}
	return out
}

// ToMap returns the explicitly set options of the Run section.
func (c *RunConfiguration) ToMap() map[string]any {
	return sectionToMap(c)
}

func sectionToMap(sec section) map[string]any {
	m := make(map[string]any)
	for _, f := range sec.fields() {
		if !f.opt.IsModified() {
			continue
		}
		v := f.opt.valueAny()
		if infos, ok := v.([]ContainerInfo); ok {
			items := make([]any, 0, len(infos))
			for _, ci := range infos {
				items = append(items, ci.toMap())
			}
			v = items
		}
		m[f.key] = v
	}
	return m
}

var allowedValues = map[string][]string{
	"Run.SkipRemainingOnFailure": {"None", "Run", "Container", "Block"},
	"CodeCoverage.OutputFormat":  {"JaCoCo", "CoverageGutters", "Cobertura"},
	"TestResult.OutputFormat":    {"NUnitXml", "NUnit2.5", "NUnit3", "JUnitXml"},
	"Should.ErrorAction":         {"Stop", "Continue"},
	"Output.Verbosity":           {VerbosityNone, VerbosityNormal, VerbosityDetailed, VerbosityDiagnostic, verbosityMinimal},
	"Output.StackTraceVerbosity": {"None", "FirstLine", "Filtered", "Full"},
	"Output.CIFormat":            {"None", "Auto", "AzureDevops", "GithubActions"},
}

// Validate checks enumerated options and numeric ranges. All problems are
// returned joined; each one is a *FieldError wrapping ErrInvalidValue.
func (c *Configuration) Validate() error {
	var errs []error
	for _, ns := range c.sections() {
		for _, f := range ns.sec.fields() {
			allowed, ok := allowedValues[ns.name+"."+f.key]
			if !ok {
				continue
			}
			v, _ := f.opt.valueAny().(string)
			if !containsFold(allowed, v) {
				errs = append(errs, &FieldError{
					Section: ns.name,
					Key:     f.key,
					Err:     fmt.Errorf("%w: %q, expected one of %s", ErrInvalidValue, v, strings.Join(allowed, ", ")),
				})
			}
		}
	}
	if t := c.CodeCoverage.CoveragePercentTarget.Value(); t < 0 || t > 100 {
		errs = append(errs, &FieldError{
			Section: "CodeCoverage",
			Key:     "CoveragePercentTarget",
			Err:     fmt.Errorf("%w: %v is outside 0..100", ErrInvalidValue, t),
		})
	}
	return errors.Join(errs...)
}

func containsFold(values []string, v string) bool {
	for _, a := range values {
		if strings.EqualFold(a, v) {
			return true
		}
	}
	return false
}

// Describe renders every option with its description, current value and default.
func (c *Configuration) Describe() string {
	var b strings.Builder
	for _, ns := range c.sections() {
		fmt.Fprintf(&b, "%s:\n", ns.name)
		for _, f := range ns.sec.fields() {
			marker := ""
			if f.opt.IsModified() {
				marker = " *"
			}
			fmt.Fprintf(&b, "  %s%s: %s\n", f.key, marker, describeValue(f.opt.valueAny()))
			fmt.Fprintf(&b, "    %s\n", f.opt.Description())
			fmt.Fprintf(&b, "    default: %s\n", describeValue(f.opt.defaultAny()))
		}
	}
	return b.String()
}

func describeValue(v any) string {
	switch val := v.(type) {
	case []string:
		if len(val) == 0 {
			return "[]"
		}
		return "[" + strings.Join(val, ", ") + "]"
	case []ContainerInfo:
		names := make([]string, 0, len(val))
		for _, ci := range val {
			names = append(names, fmt.Sprintf("%s:%s(%d)", ci.Type, ci.Item, len(ci.Data)))
		}
		return "[" + strings.Join(names, ", ") + "]"
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprint(val)
	}
}

// SkipScope is the granularity of SkipRemainingOnFailure.
type SkipScope string

const (
	SkipNone      SkipScope = "None"
	SkipRun       SkipScope = "Run"
	SkipContainer SkipScope = "Container"
	SkipBlock     SkipScope = "Block"
)

// ParseSkipScope parses s ignoring case.
func ParseSkipScope(s string) (SkipScope, error) {
	for _, scope := range []SkipScope{SkipNone, SkipRun, SkipContainer, SkipBlock} {
		if strings.EqualFold(string(scope), s) {
			return scope, nil
		}
	}
	return "", fmt.Errorf("%w: skip scope %q, expected None, Run, Container or Block", ErrInvalidValue, s)
}

// Output verbosity levels.
const (
	VerbosityNone       = "None"
	VerbosityNormal     = "Normal"
	VerbosityDetailed   = "Detailed"
	VerbosityDiagnostic = "Diagnostic"

	// verbosityMinimal is accepted for compatibility and treated as Normal.
	verbosityMinimal = "Minimal"
)

func (c *OutputConfiguration) normalize() {
	if strings.EqualFold(c.Verbosity.Value(), verbosityMinimal) {
		c.Verbosity.Set(VerbosityNormal)
	}
}

// EffectiveVerbosity returns Verbosity in canonical casing with Minimal
// mapped to Normal. Unknown values yield Normal.
func (c *OutputConfiguration) EffectiveVerbosity() string {
	v := c.Verbosity.Value()
	for _, known := range []string{VerbosityNone, VerbosityNormal, VerbosityDetailed, VerbosityDiagnostic} {
		if strings.EqualFold(known, v) {
			return known
		}
	}
	return VerbosityNormal
}
