package scenario

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidScenario is returned for scenarios that fail to decode or
	// validate.
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrExpectationFailed is matched by every *ExpectationError.
	ErrExpectationFailed = errors.New("expectation failed")
)

// ExpectationError lists the expectations a run did not meet.
type ExpectationError struct {
	Failed []ExpectationResult
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	msgs := make([]string, 0, len(e.Failed))
	for _, r := range e.Failed {
		msgs = append(msgs, r.String())
	}
	return fmt.Sprintf("%d expectation(s) failed: %s", len(e.Failed), strings.Join(msgs, "; "))
}

// Is allows errors.Is to match ExpectationError with ErrExpectationFailed.
func (e *ExpectationError) Is(target error) bool {
	return target == ErrExpectationFailed
}

// StepError reports the step that stopped a run.
type StepError struct {
	// Index is the zero-based step index.
	Index int
	// Kind is the step's action.
	Kind string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}
