package domain

import "time"

// Run is the summary of one whole execution.
type Run struct {
	// Containers holds every container of the run in discovery order.
	Containers []*Container `json:"containers"`

	// Result aggregates the containers with the same precedence as blocks.
	Result Result `json:"result"`
	Counts
	FailedBlocksCount     int `json:"failedBlocksCount"`
	FailedContainersCount int `json:"failedContainersCount"`
	Durations

	Executed   bool      `json:"executed"`
	ExecutedAt time.Time `json:"executedAt"`
	// Version is the pester version that produced the run.
	Version string `json:"version,omitempty"`

	// Configuration is the *config.Configuration the run was started with.
	Configuration any `json:"configuration,omitempty"`
	// CodeCoverage is set when coverage was enabled.
	CodeCoverage *CodeCoverage `json:"codeCoverage,omitempty"`

	// Tests and the per-result lists below flatten the tree for reporting.
	Tests        []*Test `json:"-"`
	Passed       []*Test `json:"-"`
	Failed       []*Test `json:"-"`
	Skipped      []*Test `json:"-"`
	Inconclusive []*Test `json:"-"`
	NotRun       []*Test `json:"-"`
	// FailedBlocks lists every block whose Result is Failed.
	FailedBlocks     []*Block     `json:"-"`
	FailedContainers []*Container `json:"-"`
}

// NewRun creates an empty run over containers.
func NewRun(containers []*Container) *Run {
	if containers == nil {
		containers = []*Container{}
	}
	return &Run{
		Containers: containers,
		Result:     ResultNotRun,
	}
}

// CountTests returns the total number of tests across all containers.
func (r *Run) CountTests() int {
	count := 0
	for _, c := range r.Containers {
		count += c.CountTests()
	}
	return count
}

// CommandCoverage is one analysed command of a coverage report.
type CommandCoverage struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Command  string `json:"command"`
	HitCount int    `json:"hitCount"`
}

// CodeCoverage is the coverage result attached to a run.
type CodeCoverage struct {
	CoveragePercent       float64           `json:"coveragePercent"`
	CoveragePercentTarget float64           `json:"coveragePercentTarget"`
	CoverageReport        string            `json:"coverageReport,omitempty"`
	CommandsAnalyzedCount int64             `json:"commandsAnalyzedCount"`
	CommandsExecutedCount int64             `json:"commandsExecutedCount"`
	CommandsMissedCount   int64             `json:"commandsMissedCount"`
	FilesAnalyzedCount    int64             `json:"filesAnalyzedCount"`
	CommandsMissed        []CommandCoverage `json:"commandsMissed,omitempty"`
	CommandsExecuted      []CommandCoverage `json:"commandsExecuted,omitempty"`
	FilesAnalyzed         []string          `json:"filesAnalyzed,omitempty"`
}

// ComputePercent derives the counters and CoveragePercent from the command lists.
func (c *CodeCoverage) ComputePercent() {
	c.CommandsExecutedCount = int64(len(c.CommandsExecuted))
	c.CommandsMissedCount = int64(len(c.CommandsMissed))
	c.CommandsAnalyzedCount = c.CommandsExecutedCount + c.CommandsMissedCount
	c.FilesAnalyzedCount = int64(len(c.FilesAnalyzed))
	if c.CommandsAnalyzedCount == 0 {
		c.CoveragePercent = 0
		return
	}
	c.CoveragePercent = float64(c.CommandsExecutedCount) / float64(c.CommandsAnalyzedCount) * 100
}

// MeetsTarget reports whether the coverage reached its target percentage.
func (c *CodeCoverage) MeetsTarget() bool {
	return c.CoveragePercent >= c.CoveragePercentTarget
}
