// Package domain defines the test tree built during discovery and filled in
// during execution: containers, blocks, tests and the run summary.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Result represents the outcome of a test or of an aggregated scope.
type Result string

// Result values.
const (
	// ResultNotRun indicates the test was never invoked (filtered out, stopped or setup failure).
	ResultNotRun Result = "NotRun"
	// ResultPassed indicates the test body completed without errors.
	ResultPassed Result = "Passed"
	// ResultFailed indicates the test body, or a setup/teardown around it, reported errors.
	ResultFailed Result = "Failed"
	// ResultSkipped indicates the test was selected but skipped, either declared or at runtime.
	ResultSkipped Result = "Skipped"
	// ResultInconclusive indicates the test completed but marked itself inconclusive.
	ResultInconclusive Result = "Inconclusive"
)

// ErrInvalidResult is returned when a string does not name a known Result.
var ErrInvalidResult = errors.New("domain: invalid result")

var results = []Result{ResultNotRun, ResultPassed, ResultFailed, ResultSkipped, ResultInconclusive}

// ParseResult converts s to a Result, ignoring case.
func ParseResult(s string) (Result, error) {
	for _, r := range results {
		if strings.EqualFold(string(r), s) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidResult, s)
}

// Valid reports whether r is one of the known Result values.
func (r Result) Valid() bool {
	switch r {
	case ResultNotRun, ResultPassed, ResultFailed, ResultSkipped, ResultInconclusive:
		return true
	default:
		return false
	}
}

// Marker returns the short console marker for r, e.g. "[+]" for Passed.
func (r Result) Marker() string {
	switch r {
	case ResultPassed:
		return "[+]"
	case ResultFailed:
		return "[-]"
	case ResultSkipped:
		return "[!]"
	case ResultInconclusive:
		return "[?]"
	case ResultNotRun, "":
		return "[ ]"
	default:
		return "[ERR]"
	}
}
