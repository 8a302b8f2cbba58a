package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/solodevflow/solodev/internal/state"
)

// StateLoader loads the state for a command. It returns nil, nil when no
// state file exists.
type StateLoader func(ctx context.Context) (*state.State, error)

// Executor runs slash commands: parse, load state, check preconditions, then
// call the handler.
type Executor struct {
	registry *Registry
	checker  *Checker
	load     StateLoader
	logger   *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor creates an executor over registry.
func NewExecutor(registry *Registry, file StateFile, load StateLoader, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: registry,
		checker:  NewChecker(file),
		load:     load,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the executor's registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs input and always returns a Result; failures are reported in it.
func (e *Executor) Execute(ctx context.Context, input string) *Result {
	name, err := ExtractName(input)
	if err != nil {
		return parseFailure(err)
	}
	log := e.logger.With("command", name)

	def, ok := e.registry.Get(name)
	if !ok {
		return Fail(fmt.Sprintf("unknown command: /%s", name),
			fmt.Errorf("%w: %s", ErrUnknownCommand, name),
			"available commands: "+strings.Join(e.registry.Names(), ", "))
	}

	params, err := Parse(def, input)
	if err != nil {
		log.Debug("parse failed", "error", err)
		return parseFailure(err)
	}

	var st *state.State
	if !def.SkipStateLoad {
		st, err = e.load(ctx)
		if err != nil {
			log.Debug("state load failed", "error", err)
			return stateFailure(err)
		}
	}

	check := e.checker.Check(def.Preconditions, st)
	if !check.Passed {
		log.Debug("preconditions failed", "failed", len(check.FailedConditions))
		res := Fail("preconditions not met", &PreconditionError{Failed: check.FailedConditions}, "")
		res.Details = map[string]any{
			"failedConditions": check.FailedConditions,
		}
		if len(check.Warnings) > 0 {
			res.Details["warnings"] = check.Warnings
		}
		return res
	}

	res := e.invoke(ctx, def, params, st)
	if len(check.Warnings) > 0 {
		if res.Details == nil {
			res.Details = map[string]any{}
		}
		handlerWarnings, _ := res.Details["warnings"].([]string)
		res.Details["warnings"] = append(check.Warnings, handlerWarnings...)
	}
	log.Debug("command finished", "success", res.Success)
	return res
}

// invoke calls the handler, turning returned errors and panics into an
// execution-error result.
func (e *Executor) invoke(ctx context.Context, def *Definition, params Params, st *state.State) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("command panicked", "command", def.Name, "panic", r)
			res = executionFailure(def.Name, params, fmt.Errorf("panic: %v", r))
		}
	}()

	res, err := def.Handler(ctx, params, st)
	if err != nil {
		return executionFailure(def.Name, params, err)
	}
	if res == nil {
		return Succeed(fmt.Sprintf("/%s done", def.Name), nil, "")
	}
	return res
}

func parseFailure(err error) *Result {
	res := Fail("parse error: "+err.Error(), err, "")
	var pe *ParseError
	if errors.As(err, &pe) && len(pe.Details) > 0 {
		res.Details = pe.Details
	}
	return res
}

func executionFailure(name string, params Params, err error) *Result {
	res := Fail("command failed: "+err.Error(), &ExecutionError{Command: name, Err: err}, "")
	res.Details = map[string]any{
		"command": name,
		"params":  params.Map(),
	}
	return res
}

// stateFailure reports a state file that exists but cannot be loaded.
func stateFailure(err error) *Result {
	res := Fail("cannot load state: "+err.Error(), err, "run `solodev validate state` for repair suggestions")

	var corrupted *state.StateFileCorruptedError
	var notFound *state.StateFileNotFoundError
	switch {
	case errors.As(err, &corrupted):
		res.Details = map[string]any{
			"code":        corrupted.Code,
			"line":        corrupted.Line,
			"column":      corrupted.Column,
			"suggestions": corrupted.Suggestions,
		}
	case errors.As(err, &notFound):
		res.Details = map[string]any{
			"code":        notFound.Code,
			"suggestions": notFound.Suggestions,
		}
	}
	return res
}
