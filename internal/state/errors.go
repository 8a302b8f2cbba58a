package state

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the state package. Using sentinels instead of ad-hoc
// fmt.Errorf allows callers to match with errors.Is for reliable error handling.
var (
	// ErrStateExists is returned by Initialize when a state file is already present.
	ErrStateExists = errors.New("state file already exists")

	// ErrUnknownPhase is returned for a phase name that is not one of the five phases.
	ErrUnknownPhase = errors.New("unknown phase")

	// ErrModuleNotFound is returned when a module is absent from a phase.
	ErrModuleNotFound = errors.New("module not found")

	// ErrIterationNotFound is returned when currentIteration has no entry in iterations.
	ErrIterationNotFound = errors.New("current iteration not found")

	// ErrModuleExists is returned when registering a module that is already declared.
	ErrModuleExists = errors.New("module already registered")

	// ErrMigrationNotReady is returned when archiving before deployment is approved.
	ErrMigrationNotReady = errors.New("iteration is not ready for archival")
)

// Error codes carried by StateError.
const (
	CodeStateFileNotFound  = "STATE_FILE_NOT_FOUND"
	CodeStateFileRead      = "STATE_FILE_READ_ERROR"
	CodeStateFileCorrupted = "STATE_FILE_CORRUPTED"
	CodeStateFieldMissing  = "STATE_FIELD_MISSING"
	CodeStateValidation    = "STATE_VALIDATION_ERROR"
	CodePhaseTransition    = "PHASE_TRANSITION_ERROR"
	CodeModuleStatus       = "MODULE_STATUS_ERROR"
)

// SuggestionType classifies a repair suggestion.
type SuggestionType string

const (
	SuggestRecreate    SuggestionType = "recreate"
	SuggestGitRestore  SuggestionType = "git_restore"
	SuggestManualCheck SuggestionType = "manual_check"
)

// RepairSuggestion tells the user how to recover from a state file problem.
type RepairSuggestion struct {
	Type        SuggestionType `json:"type"`
	Description string         `json:"description"`
	Command     string         `json:"command,omitempty"`
	Link        string         `json:"link,omitempty"`
}

// StateError is the common shape of state file errors.
type StateError struct {
	Code        string             `json:"code"`
	Message     string             `json:"message"`
	Path        string             `json:"path"`
	Suggestions []RepairSuggestion `json:"suggestions"`
}

func (e *StateError) Error() string {
	return e.Message
}

// StateFileNotFoundError is returned when the state file does not exist.
type StateFileNotFoundError struct {
	StateError
}

// NewStateFileNotFoundError builds the not-found error for path.
func NewStateFileNotFoundError(path string) *StateFileNotFoundError {
	return &StateFileNotFoundError{StateError{
		Code:    CodeStateFileNotFound,
		Message: fmt.Sprintf("state file not found: %s", path),
		Path:    path,
		Suggestions: []RepairSuggestion{
			{
				Type:        SuggestRecreate,
				Description: "create an initial state.json with the init command",
				Command:     "solodev init <project-name>",
			},
			{
				Type:        SuggestGitRestore,
				Description: "restore the state file from git if it was deleted",
				Command:     "git checkout HEAD -- " + path,
			},
		},
	}}
}

// StateFileCorruptedError is returned when the state file is not valid JSON.
type StateFileCorruptedError struct {
	StateError
	ParseError string `json:"parseError"`
	// Line and Column are 1-based, or zero when the decoder gave no position.
	Line   int   `json:"line,omitempty"`
	Column int   `json:"column,omitempty"`
	Err    error `json:"-"`
}

// NewStateFileCorruptedError builds the corrupted-file error for path.
func NewStateFileCorruptedError(path string, parseErr error, line, column int) *StateFileCorruptedError {
	msg := fmt.Sprintf("state file is not valid JSON: %s", path)
	if line > 0 {
		msg = fmt.Sprintf("%s (line %d, column %d)", msg, line, column)
	}
	return &StateFileCorruptedError{
		StateError: StateError{
			Code:    CodeStateFileCorrupted,
			Message: msg,
			Path:    path,
			Suggestions: []RepairSuggestion{
				{
					Type:        SuggestManualCheck,
					Description: "check the JSON syntax with a validator",
					Link:        "https://jsonlint.com/",
				},
				{
					Type:        SuggestManualCheck,
					Description: "common problems: missing commas, trailing commas, mismatched quotes, illegal characters",
				},
				{
					Type:        SuggestGitRestore,
					Description: "restore the last good version from git",
					Command:     fmt.Sprintf("git log --oneline -5 %s && git checkout HEAD~1 -- %s", path, path),
				},
			},
		},
		ParseError: parseErr.Error(),
		Line:       line,
		Column:     column,
		Err:        parseErr,
	}
}

func (e *StateFileCorruptedError) Unwrap() error { return e.Err }

// StateFieldMissingError is returned when required fields are absent.
type StateFieldMissingError struct {
	StateError
	MissingFields []string `json:"missingFields"`
}

// NewStateFieldMissingError builds the missing-fields error for path.
func NewStateFieldMissingError(path string, fields []string) *StateFieldMissingError {
	return &StateFieldMissingError{
		StateError: StateError{
			Code:    CodeStateFieldMissing,
			Message: fmt.Sprintf("state file is missing required fields: %s", strings.Join(fields, ", ")),
			Path:    path,
			Suggestions: []RepairSuggestion{
				{
					Type:        SuggestManualCheck,
					Description: "add the missing fields: " + strings.Join(fields, ", "),
				},
				{
					Type:        SuggestGitRestore,
					Description: "restore the previous version from git",
					Command:     "git checkout HEAD~1 -- " + path,
				},
			},
		},
		MissingFields: fields,
	}
}

// TransitionError describes a rejected phase transition.
type TransitionError struct {
	From    Phase
	To      Phase
	Reasons []string
}

func (e *TransitionError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("cannot start %s: %s", e.To, strings.Join(e.Reasons, "; "))
	}
	return fmt.Sprintf("cannot transition from %s to %s: %s", e.From, e.To, strings.Join(e.Reasons, "; "))
}

// Code returns the stable error code.
func (e *TransitionError) Code() string { return CodePhaseTransition }
