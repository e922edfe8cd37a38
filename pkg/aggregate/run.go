package aggregate

import (
	"time"

	"github.com/specvital/pester/pkg/domain"
)

// Finalize fills the run summary from its containers: flattened test lists
// classified by result, failed blocks and containers, total counts, durations
// and the overall result. Containers must be aggregated already.
func Finalize(run *domain.Run) {
	run.Tests = []*domain.Test{}
	run.Passed = []*domain.Test{}
	run.Failed = []*domain.Test{}
	run.Skipped = []*domain.Test{}
	run.Inconclusive = []*domain.Test{}
	run.NotRun = []*domain.Test{}
	run.FailedBlocks = []*domain.Block{}
	run.FailedContainers = []*domain.Container{}

	var total domain.Counts
	var discovery, user, framework time.Duration
	passed := true
	skipped := false

	for _, c := range run.Containers {
		for _, t := range c.AllTests() {
			run.Tests = append(run.Tests, t)
			switch t.Result {
			case domain.ResultPassed:
				run.Passed = append(run.Passed, t)
			case domain.ResultFailed:
				run.Failed = append(run.Failed, t)
			case domain.ResultSkipped:
				run.Skipped = append(run.Skipped, t)
			case domain.ResultInconclusive:
				run.Inconclusive = append(run.Inconclusive, t)
			default:
				run.NotRun = append(run.NotRun, t)
			}
		}
		c.Walk(func(b *domain.Block) {
			if b.Result == domain.ResultFailed {
				run.FailedBlocks = append(run.FailedBlocks, b)
			}
		})
		if c.Result == domain.ResultFailed {
			run.FailedContainers = append(run.FailedContainers, c)
		}

		total.Add(c.Counts)
		discovery += c.DiscoveryDuration
		user += c.UserDuration
		framework += c.FrameworkDuration
		if !c.Passed {
			passed = false
		}
		if c.Result == domain.ResultSkipped {
			skipped = true
		}
	}

	run.Counts = total
	run.FailedBlocksCount = len(run.FailedBlocks)
	run.FailedContainersCount = len(run.FailedContainers)
	run.DiscoveryDuration = discovery
	run.UserDuration = user
	run.FrameworkDuration = framework
	run.Result = result(total, passed, skipped)
}
