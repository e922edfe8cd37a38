package domain

import (
	"errors"
	"fmt"
)

// Error identifiers attached to records produced by the framework itself.
const (
	ErrorIDAssertionFailed = "PesterAssertionFailed"
	ErrorIDDiscoveryFailed = "PesterDiscoveryFailed"
	ErrorIDHookFailed      = "PesterHookFailed"
	ErrorIDCommandFailed   = "PesterCommandFailed"
)

// ErrorRecord is the structured error shape attached to tests, blocks and
// containers and consumed by result sinks.
type ErrorRecord struct {
	ErrorID       string `json:"errorId,omitempty"`
	Message       string `json:"message"`
	File          string `json:"file,omitempty"`
	Line          int    `json:"line,omitempty"`
	LineText      string `json:"lineText,omitempty"`
	Terminating   bool   `json:"terminating"`
	ExpectedValue any    `json:"expectedValue,omitempty"`
	ActualValue   any    `json:"actualValue,omitempty"`
	BecauseValue  any    `json:"becauseValue,omitempty"`
}

// Error implements the error interface.
func (e ErrorRecord) Error() string {
	if e.File == "" {
		return e.Message
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// NewAssertionError creates the record for a failed assertion.
func NewAssertionError(message, file string, line int, lineText string, terminating bool) ErrorRecord {
	return ErrorRecord{
		ErrorID:     ErrorIDAssertionFailed,
		Message:     message,
		File:        file,
		Line:        line,
		LineText:    lineText,
		Terminating: terminating,
	}
}

// NewErrorRecord converts err into an ErrorRecord located at loc.
// If err already wraps an ErrorRecord it is returned unchanged.
func NewErrorRecord(errorID string, err error, loc Location) ErrorRecord {
	var rec ErrorRecord
	if errors.As(err, &rec) {
		return rec
	}
	return ErrorRecord{
		ErrorID:     errorID,
		Message:     err.Error(),
		File:        loc.File,
		Line:        loc.StartLine,
		Terminating: true,
	}
}

// InvocationResult is what the executor returns for a single script invocation.
type InvocationResult struct {
	Success        bool          `json:"success"`
	ErrorRecord    []ErrorRecord `json:"errorRecord"`
	StandardOutput any           `json:"standardOutput,omitempty"`

	// Skipped and Inconclusive let a successful body mark its own outcome.
	Skipped      bool `json:"skipped,omitempty"`
	Inconclusive bool `json:"inconclusive,omitempty"`
}

// NewInvocationResult creates an InvocationResult with a non-nil error list.
func NewInvocationResult(success bool, errs []ErrorRecord, standardOutput any) InvocationResult {
	if errs == nil {
		errs = []ErrorRecord{}
	}
	return InvocationResult{
		Success:        success,
		ErrorRecord:    errs,
		StandardOutput: standardOutput,
	}
}
