package domain

import "time"

// Counts holds per-result test counters for a scope.
type Counts struct {
	FailedCount       int `json:"failedCount"`
	PassedCount       int `json:"passedCount"`
	SkippedCount      int `json:"skippedCount"`
	NotRunCount       int `json:"notRunCount"`
	InconclusiveCount int `json:"inconclusiveCount"`
	TotalCount        int `json:"totalCount"`
}

// Record counts a single test result. Unknown or empty results count as NotRun.
func (c *Counts) Record(r Result) {
	switch r {
	case ResultPassed:
		c.PassedCount++
	case ResultFailed:
		c.FailedCount++
	case ResultSkipped:
		c.SkippedCount++
	case ResultInconclusive:
		c.InconclusiveCount++
	default:
		c.NotRunCount++
	}
	c.TotalCount++
}

// Add adds the counters of o to c.
func (c *Counts) Add(o Counts) {
	c.FailedCount += o.FailedCount
	c.PassedCount += o.PassedCount
	c.SkippedCount += o.SkippedCount
	c.NotRunCount += o.NotRunCount
	c.InconclusiveCount += o.InconclusiveCount
	c.TotalCount += o.TotalCount
}

// Consistent reports whether TotalCount equals the sum of the per-result counters.
func (c Counts) Consistent() bool {
	return c.TotalCount == c.PassedCount+c.FailedCount+c.SkippedCount+c.NotRunCount+c.InconclusiveCount
}

// Executed returns the number of tests whose body actually completed.
func (c Counts) Executed() int {
	return c.PassedCount + c.FailedCount + c.InconclusiveCount
}

// Durations splits elapsed time into discovery, user code and framework overhead.
type Durations struct {
	DiscoveryDuration time.Duration `json:"discoveryDuration"`
	UserDuration      time.Duration `json:"userDuration"`
	FrameworkDuration time.Duration `json:"frameworkDuration"`
}

// Duration returns the sum of all three phases.
func (d Durations) Duration() time.Duration {
	return d.DiscoveryDuration + d.UserDuration + d.FrameworkDuration
}

// Add adds the phases of o to d.
func (d *Durations) Add(o Durations) {
	d.DiscoveryDuration += o.DiscoveryDuration
	d.UserDuration += o.UserDuration
	d.FrameworkDuration += o.FrameworkDuration
}
