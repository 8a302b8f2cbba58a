package command

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the command package. Using sentinels instead of ad-hoc
// fmt.Errorf allows callers to match with errors.Is for reliable error handling.
var (
	// ErrDuplicateCommand is returned when registering a name twice.
	ErrDuplicateCommand = errors.New("command already registered")

	// ErrUnknownCommand is returned when no definition matches the input.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidDefinition is returned for definitions without a name or handler.
	ErrInvalidDefinition = errors.New("invalid command definition")
)

// ParseError reports malformed input or a parameter that fails validation.
type ParseError struct {
	Message string
	Details map[string]any
}

func (e *ParseError) Error() string {
	return e.Message
}

func newParseError(details map[string]any, format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Details: details}
}

// FailedCondition pairs a condition with the reason it failed.
type FailedCondition struct {
	Condition Condition `json:"condition"`
	Reason    string    `json:"reason"`
}

// PreconditionError reports the blocking conditions that failed.
type PreconditionError struct {
	Failed []FailedCondition
}

func (e *PreconditionError) Error() string {
	reasons := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		reasons[i] = f.Reason
	}
	return "preconditions failed: " + strings.Join(reasons, "; ")
}

// ExecutionError wraps an error returned or raised by a command handler.
type ExecutionError struct {
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %s: %v", e.Command, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
