package config

// RunConfiguration selects what to run and how the run ends.
type RunConfiguration struct {
	Path                     StringArrayOption
	ExcludePath              StringArrayOption
	ScriptBlock              StringArrayOption
	Container                ContainerInfoArrayOption
	TestExtension            StringOption
	Exit                     BoolOption
	Throw                    BoolOption
	PassThru                 BoolOption
	SkipRun                  BoolOption
	SkipRemainingOnFailure   StringOption
	FailOnNullOrEmptyForEach BoolOption
}

// DefaultRunConfiguration returns the Run section with every option at its default.
func DefaultRunConfiguration() RunConfiguration {
	return RunConfiguration{
		Path:                     NewOption("Directories to be searched for tests, paths directly to test files, or combination of both.", []string{"."}),
		ExcludePath:              NewOption("Directories or files to be excluded from the run.", []string{}),
		ScriptBlock:              NewOption("Test definitions to be executed, given as text.", []string{}),
		Container:                NewOption("ContainerInfo objects containing tests to be executed.", []ContainerInfo{}),
		TestExtension:            NewOption("Filter used to identify test files.", ".Tests.ps1"),
		Exit:                     NewOption("Exit with non-zero exit code when the test run fails. When used together with Throw, throwing an error is preferred.", false),
		Throw:                    NewOption("Throw an error when test run fails. When used together with Exit, throwing an error is preferred.", false),
		PassThru:                 NewOption("Return result object after finishing the test run.", false),
		SkipRun:                  NewOption("Runs the discovery phase but skips run. Use it with PassThru to get object populated with all tests.", false),
		SkipRemainingOnFailure:   NewOption("Skips remaining tests after failure for selected scope, options are None, Run, Container and Block.", string(SkipNone)),
		FailOnNullOrEmptyForEach: NewOption("Fails discovery when forEach is empty or null in a block or test. Can be overridden for a specific block or test using allowNullOrEmptyForEach.", true),
	}
}

func (c *RunConfiguration) fields() []field {
	return []field{
		{"Path", &c.Path},
		{"ExcludePath", &c.ExcludePath},
		{"ScriptBlock", &c.ScriptBlock},
		{"Container", &c.Container},
		{"TestExtension", &c.TestExtension},
		{"Exit", &c.Exit},
		{"Throw", &c.Throw},
		{"PassThru", &c.PassThru},
		{"SkipRun", &c.SkipRun},
		{"SkipRemainingOnFailure", &c.SkipRemainingOnFailure},
		{"FailOnNullOrEmptyForEach", &c.FailOnNullOrEmptyForEach},
	}
}

// SkipScope returns the parsed SkipRemainingOnFailure value. Unknown values
// are reported by Validate and treated as SkipNone here.
func (c *RunConfiguration) SkipScope() SkipScope {
	s, err := ParseSkipScope(c.SkipRemainingOnFailure.Value())
	if err != nil {
		return SkipNone
	}
	return s
}

// FilterConfiguration holds the selection criteria.
type FilterConfiguration struct {
	Tag         StringArrayOption
	ExcludeTag  StringArrayOption
	Line        StringArrayOption
	ExcludeLine StringArrayOption
	FullName    StringArrayOption
}

func DefaultFilterConfiguration() FilterConfiguration {
	return FilterConfiguration{
		Tag:         NewOption("Tags of Describe, Context or It to be run.", []string{}),
		ExcludeTag:  NewOption("Tags of Describe, Context or It to be excluded from the run.", []string{}),
		Line:        NewOption("Filter by file and start line, useful to run parsed tests programmatically to avoid problems with expanded names. Example: 'tests/file1.tests.yaml:37'", []string{}),
		ExcludeLine: NewOption("Exclude by file and start line, takes precedence over Line.", []string{}),
		FullName:    NewOption("Full name of test with -like wildcards, joined by dot. Example: '*.describe Get-Item.test1'", []string{}),
	}
}

func (c *FilterConfiguration) fields() []field {
	return []field{
		{"Tag", &c.Tag},
		{"ExcludeTag", &c.ExcludeTag},
		{"Line", &c.Line},
		{"ExcludeLine", &c.ExcludeLine},
		{"FullName", &c.FullName},
	}
}

// IsEmpty reports whether no positive or negative filter is set.
func (c *FilterConfiguration) IsEmpty() bool {
	return len(c.Tag.Value()) == 0 &&
		len(c.ExcludeTag.Value()) == 0 &&
		len(c.Line.Value()) == 0 &&
		len(c.ExcludeLine.Value()) == 0 &&
		len(c.FullName.Value()) == 0
}

type CodeCoverageConfiguration struct {
	Enabled               BoolOption
	OutputFormat          StringOption
	OutputPath            StringOption
	OutputEncoding        StringOption
	Path                  StringArrayOption
	ExcludeTests          BoolOption
	RecursePaths          BoolOption
	UseBreakpoints        BoolOption
	CoveragePercentTarget DecimalOption
	SingleHitBreakpoints  BoolOption
}

func DefaultCodeCoverageConfiguration() CodeCoverageConfiguration {
	return CodeCoverageConfiguration{
		Enabled:               NewOption("Enable CodeCoverage.", false),
		OutputFormat:          NewOption("Format to use for code coverage report. Possible values: JaCoCo, CoverageGutters, Cobertura", "JaCoCo"),
		OutputPath:            NewOption("Path relative to the current directory where code coverage report is saved.", "coverage.xml"),
		OutputEncoding:        NewOption("Encoding of the output file.", "UTF8"),
		Path:                  NewOption("Directories or files to be used for code coverage, by default the Path(s) from general settings are used, unless overridden here.", []string{}),
		ExcludeTests:          NewOption("Exclude tests from code coverage. This uses the TestFilter from general configuration.", true),
		RecursePaths:          NewOption("Will recurse through directories in the Path option.", true),
		UseBreakpoints:        NewOption("When false, use Profiler based tracer to do CodeCoverage instead of using breakpoints.", false),
		CoveragePercentTarget: NewOption("Target percent of code coverage that you want to achieve, default 75%.", 75.0),
		SingleHitBreakpoints:  NewOption("Remove breakpoint when it is hit. This increases performance of breakpoint based CodeCoverage.", true),
	}
}

func (c *CodeCoverageConfiguration) fields() []field {
	return []field{
		{"Enabled", &c.Enabled},
		{"OutputFormat", &c.OutputFormat},
		{"OutputPath", &c.OutputPath},
		{"OutputEncoding", &c.OutputEncoding},
		{"Path", &c.Path},
		{"ExcludeTests", &c.ExcludeTests},
		{"RecursePaths", &c.RecursePaths},
		{"UseBreakpoints", &c.UseBreakpoints},
		{"CoveragePercentTarget", &c.CoveragePercentTarget},
		{"SingleHitBreakpoints", &c.SingleHitBreakpoints},
	}
}

type TestResultConfiguration struct {
	Enabled        BoolOption
	OutputFormat   StringOption
	OutputPath     StringOption
	OutputEncoding StringOption
	TestSuiteName  StringOption
}

func DefaultTestResultConfiguration() TestResultConfiguration {
	return TestResultConfiguration{
		Enabled:        NewOption("Enable TestResult.", false),
		OutputFormat:   NewOption("Format to use for test result report. Possible values: NUnitXml, NUnit2.5, NUnit3 or JUnitXml", "NUnitXml"),
		OutputPath:     NewOption("Path relative to the current directory where test result report is saved.", "testResults.xml"),
		OutputEncoding: NewOption("Encoding of the output file.", "UTF8"),
		TestSuiteName:  NewOption("Set the name assigned to the root 'test-suite' element.", "Pester"),
	}
}

func (c *TestResultConfiguration) fields() []field {
	return []field{
		{"Enabled", &c.Enabled},
		{"OutputFormat", &c.OutputFormat},
		{"OutputPath", &c.OutputPath},
		{"OutputEncoding", &c.OutputEncoding},
		{"TestSuiteName", &c.TestSuiteName},
	}
}

type ShouldConfiguration struct {
	ErrorAction StringOption
	DisableV5   BoolOption
}

func DefaultShouldConfiguration() ShouldConfiguration {
	return ShouldConfiguration{
		ErrorAction: NewOption("Controls if Should throws on error. Use 'Stop' to throw on error, or 'Continue' to fail at the end of the test.", "Stop"),
		DisableV5:   NewOption("Disables usage of Should -Be assertions, that are replaced by Should-Be in version 6.", false),
	}
}

func (c *ShouldConfiguration) fields() []field {
	return []field{
		{"ErrorAction", &c.ErrorAction},
		{"DisableV5", &c.DisableV5},
	}
}

// DebugConfiguration controls diagnostic output of the framework itself.
type DebugConfiguration struct {
	ShowFullErrors         BoolOption
	WriteDebugMessages     BoolOption
	WriteDebugMessagesFrom StringArrayOption
	ShowNavigationMarkers  BoolOption
	ShowStartMarkers       BoolOption
	ReturnRawResultObject  BoolOption
}

func DefaultDebugConfiguration() DebugConfiguration {
	return DebugConfiguration{
		ShowFullErrors:         NewOption("Show full errors including internal stack. If set to true it overrides Output.StackTraceVerbosity to 'Full'.", false),
		WriteDebugMessages:     NewOption("Write Debug messages to screen.", false),
		WriteDebugMessagesFrom: NewOption("Write Debug messages from a given source, WriteDebugMessages must be set to true for this to work. You can use like wildcards to get messages from multiple sources, as well as * to get everything.", []string{"Discovery", "Skip", "Mock", "CodeCoverage"}),
		ShowNavigationMarkers:  NewOption("Write paths after every block and test, for easy navigation in VSCode.", false),
		ShowStartMarkers:       NewOption("Write an indication when each test starts.", false),
		ReturnRawResultObject:  NewOption("Returns unfiltered result object, this is for development only. Do not rely on this object for additional properties, non-public properties will be renamed without previous notice.", false),
	}
}

func (c *DebugConfiguration) fields() []field {
	return []field{
		{"ShowFullErrors", &c.ShowFullErrors},
		{"WriteDebugMessages", &c.WriteDebugMessages},
		{"WriteDebugMessagesFrom", &c.WriteDebugMessagesFrom},
		{"ShowNavigationMarkers", &c.ShowNavigationMarkers},
		{"ShowStartMarkers", &c.ShowStartMarkers},
		{"ReturnRawResultObject", &c.ReturnRawResultObject},
	}
}

type OutputConfiguration struct {
	Verbosity           StringOption
	StackTraceVerbosity StringOption
	CIFormat            StringOption
}

func DefaultOutputConfiguration() OutputConfiguration {
	return OutputConfiguration{
		Verbosity:           NewOption("The verbosity of output, options are None, Normal, Detailed and Diagnostic.", VerbosityNormal),
		StackTraceVerbosity: NewOption("The verbosity of stacktrace output, options are None, FirstLine, Filtered and Full.", "Filtered"),
		CIFormat:            NewOption("The CI format of output in build logs, options are None, Auto, AzureDevops and GithubActions.", "Auto"),
	}
}

func (c *OutputConfiguration) fields() []field {
	return []field{
		{"Verbosity", &c.Verbosity},
		{"StackTraceVerbosity", &c.StackTraceVerbosity},
		{"CIFormat", &c.CIFormat},
	}
}

type TestDriveConfiguration struct {
	Enabled BoolOption
}

func DefaultTestDriveConfiguration() TestDriveConfiguration {
	return TestDriveConfiguration{
		Enabled: NewOption("Enable TestDrive.", true),
	}
}

func (c *TestDriveConfiguration) fields() []field {
	return []field{{"Enabled", &c.Enabled}}
}

type TestRegistryConfiguration struct {
	Enabled BoolOption
}

func DefaultTestRegistryConfiguration() TestRegistryConfiguration {
	return TestRegistryConfiguration{
		Enabled: NewOption("Enable TestRegistry.", true),
	}
}

func (c *TestRegistryConfiguration) fields() []field {
	return []field{{"Enabled", &c.Enabled}}
}
