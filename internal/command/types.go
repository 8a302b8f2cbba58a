// Package command implements the slash-command framework: typed parameter
// schemas, the parser, the registry, precondition checks and the executor that
// composes them into a uniform Result.
package command

import (
	"context"
	"regexp"

	"github.com/solodevflow/solodev/internal/state"
)

// Kind is the type of a command parameter.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindStringList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindStringList:
		return "list"
	default:
		return "unknown"
	}
}

// Param describes one parameter of a command.
type Param struct {
	Name        string
	Description string
	Kind        Kind
	Required    bool
	// Default is a string, bool or []string matching Kind.
	Default any
	Enum    []string
	Pattern *regexp.Regexp
}

// ConditionType names a precondition predicate.
type ConditionType string

const (
	CondStateNotExists      ConditionType = "state_not_exists"
	CondStateExists         ConditionType = "state_exists"
	CondPhaseCompleted      ConditionType = "phase_completed"
	CondPhaseApproved       ConditionType = "phase_approved"
	CondPhaseInProgress     ConditionType = "phase_in_progress"
	CondModulesApproved     ConditionType = "modules_approved"
	CondIterationNotStarted ConditionType = "iteration_not_started"
	CondCustom              ConditionType = "custom"
)

// Severity decides whether a failed condition blocks execution.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Condition is a precondition attached to a command.
type Condition struct {
	Type    ConditionType `json:"type"`
	Phase   state.Phase   `json:"phase,omitempty"`
	Modules []string      `json:"modules,omitempty"`
	// Check is evaluated for CondCustom.
	Check    func(st *state.State) (bool, error) `json:"-"`
	Severity Severity                            `json:"severity"`
	// Message overrides the generated failure reason.
	Message string `json:"message,omitempty"`
}

// Handler runs a parsed command. st is nil for commands that skip state loading.
type Handler func(ctx context.Context, p Params, st *state.State) (*Result, error)

// Definition declares a command.
type Definition struct {
	Name             string
	Description      string
	Usage            string
	Params           []Param
	Preconditions    []Condition
	ApprovalRequired bool
	// SkipStateLoad is set for commands that run before a state file exists.
	SkipStateLoad bool
	// ReadOnly commands do not take the state lock.
	ReadOnly bool
	Handler  Handler
}

// Result is the uniform outcome of executing a command.
type Result struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
	NextAction string         `json:"nextAction,omitempty"`
}

// Error returns the error text, or an empty string.
func (r *Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Succeed builds a successful result.
func Succeed(message string, details map[string]any, next string) *Result {
	return &Result{Success: true, Message: message, Details: details, NextAction: next}
}

// Fail builds a failed result.
func Fail(message string, err error, next string) *Result {
	return &Result{Message: message, Err: err, NextAction: next}
}
