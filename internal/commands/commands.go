// Package commands defines the solodev slash commands and binds them to the
// state manager.
package commands

import (
	"fmt"
	"log/slog"
	"os/user"
	"strings"

	"github.com/solodevflow/solodev/internal/command"
	"github.com/solodevflow/solodev/internal/gitinfo"
	"github.com/solodevflow/solodev/internal/state"
)

// HeadReader returns the HEAD commit of the project repository.
type HeadReader func() (*gitinfo.Commit, error)

type options struct {
	actor  string
	head   HeadReader
	logger *slog.Logger
}

// Option configures Register.
type Option func(*options)

// WithActor sets the name recorded as approver.
func WithActor(name string) Option {
	return func(o *options) {
		if name != "" {
			o.actor = name
		}
	}
}

// WithHeadReader overrides how the HEAD commit is read.
func WithHeadReader(fn HeadReader) Option {
	return func(o *options) {
		if fn != nil {
			o.head = fn
		}
	}
}

// WithLogger sets the logger used by command handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// handlers carries the dependencies shared by every command handler.
type handlers struct {
	mgr *state.Manager
	options
}

// Register adds every solodev command to reg.
func Register(reg *command.Registry, mgr *state.Manager, opts ...Option) error {
	h := &handlers{mgr: mgr}
	h.actor = defaultActor()
	h.head = defaultHeadReader(mgr)
	h.logger = slog.New(slog.DiscardHandler)
	for _, opt := range opts {
		opt(&h.options)
	}

	defs := []*command.Definition{
		h.initDef(),
		h.startRequirementsDef(),
		h.startPhaseDef(state.PhaseArchitecture),
		h.startPhaseDef(state.PhaseImplementation),
		h.startPhaseDef(state.PhaseTesting),
		h.startPhaseDef(state.PhaseDeployment),
		h.approveDef(),
		h.rollbackDef(),
		h.statusDef(),
		h.addModuleDef(),
		h.updateModuleDef(),
		h.testPhaseDef(),
		h.syncGitDef(),
		h.completeIterationDef(),
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return fmt.Errorf("register %s: %w", def.Name, err)
		}
	}
	return nil
}

func defaultActor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "human"
}

func defaultHeadReader(mgr *state.Manager) HeadReader {
	fio := mgr.Repository().FileIO()
	return func() (*gitinfo.Commit, error) {
		if root := fio.Root(); root != "" {
			return gitinfo.Head(root)
		}
		return gitinfo.HeadFS(fio.FS())
	}
}

// stateExists is the precondition shared by every command that needs a project.
var stateExists = command.Condition{
	Type:    command.CondStateExists,
	Message: "state.json does not exist, run /init first",
}

// rejected converts business-rule violations reported by the state service
// into a failed command result.
func rejected(action string, r state.Result, details map[string]any) *command.Result {
	res := command.Fail(
		fmt.Sprintf("%s failed: %s", action, strings.Join(r.Errors, "; ")),
		fmt.Errorf("%s: %s", action, strings.Join(r.Errors, "; ")),
		"",
	)
	if details == nil {
		details = map[string]any{}
	}
	details["errors"] = r.Errors
	res.Details = details
	return res
}

// withWarnings copies service warnings into result details.
func withWarnings(details map[string]any, warnings []string) map[string]any {
	if len(warnings) > 0 {
		details["warnings"] = warnings
	}
	return details
}

func startAction(p state.Phase) string {
	return "/start-" + string(p)
}

// nextPhaseAction suggests what follows approval of p.
func nextPhaseAction(p state.Phase) string {
	next, ok := p.Next()
	if !ok {
		return "iteration complete, use /complete-iteration to archive it and start the next one"
	}
	return fmt.Sprintf("use %s to begin the %s phase", startAction(next), next)
}
