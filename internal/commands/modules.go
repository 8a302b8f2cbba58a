package commands

import (
	"context"
	"fmt"
	"regexp"

	"github.com/solodevflow/solodev/internal/command"
	"github.com/solodevflow/solodev/internal/state"
)

var moduleNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

func moduleStatusNames() []string {
	statuses := state.AllModuleStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (h *handlers) addModuleDef() *command.Definition {
	return &command.Definition{
		Name:        "add-module",
		Description: "Register a module in the dependency graph and the current phase",
		Usage:       "/add-module <name> [--depends-on a,b] [--priority P1] [--description text] [--foundation]",
		Params: []command.Param{
			{Name: "name", Kind: command.KindString, Required: true, Pattern: moduleNamePattern, Description: "Module name"},
			{Name: "depends-on", Kind: command.KindStringList, Description: "Modules this one depends on"},
			{Name: "priority", Kind: command.KindString, Default: string(state.PriorityP1), Enum: []string{"P0", "P1", "P2"}, Description: "Module priority"},
			{Name: "description", Kind: command.KindString, Description: "What the module does"},
			{Name: "foundation", Kind: command.KindBool, Default: false, Description: "Whether other modules build on this one"},
		},
		Preconditions: []command.Condition{stateExists},
		Handler:       h.runAddModule,
	}
}

func (h *handlers) runAddModule(_ context.Context, p command.Params, _ *state.State) (*command.Result, error) {
	name := p.String("name")
	res, err := h.mgr.RegisterModule(name, state.RegisterOptions{
		Priority:    state.Priority(p.String("priority")),
		DependsOn:   p.List("depends-on"),
		Description: p.String("description"),
		Foundation:  p.Bool("foundation"),
	})
	if err != nil {
		return nil, fmt.Errorf("register module %s: %w", name, err)
	}
	details := map[string]any{"module": name, "phase": res.Phase}
	if !res.Success {
		return rejected("add module "+name, res.Result, details), nil
	}
	details["status"] = res.Status
	details["dependsOn"] = p.List("depends-on")
	return command.Succeed(
		fmt.Sprintf("module %q registered in %s", name, res.Phase),
		details,
		fmt.Sprintf("use /update-module %s in_progress when work on it begins", name),
	), nil
}

func (h *handlers) updateModuleDef() *command.Definition {
	return &command.Definition{
		Name:        "update-module",
		Description: "Set the status of a module in the current phase",
		Usage:       "/update-module <name> <status> [--artifacts a.md,b.md]",
		Params: []command.Param{
			{Name: "name", Kind: command.KindString, Required: true, Description: "Module name"},
			{Name: "status", Kind: command.KindString, Required: true, Enum: moduleStatusNames(), Description: "New module status"},
			{Name: "artifacts", Kind: command.KindStringList, Description: "Artifacts produced so far"},
		},
		Preconditions: []command.Condition{stateExists},
		Handler:       h.runUpdateModule,
	}
}

func (h *handlers) runUpdateModule(_ context.Context, p command.Params, st *state.State) (*command.Result, error) {
	it := st.CurrentIterationState()
	if it == nil {
		return nil, fmt.Errorf("update module: %w: %q", state.ErrIterationNotFound, st.CurrentIteration)
	}
	name := p.String("name")
	status := state.ModuleStatus(p.String("status"))

	res, err := h.mgr.UpdateModuleStatus(it.CurrentPhase, name, status, p.List("artifacts"))
	if err != nil {
		return nil, fmt.Errorf("update module %s: %w", name, err)
	}
	details := map[string]any{"module": name, "phase": it.CurrentPhase, "status": status}
	if !res.Success {
		return rejected("update module "+name, res.Result, details), nil
	}

	next := "continue the work of the current phase"
	if status == state.ModuleCompleted {
		next = fmt.Sprintf("use /approve %s after review", name)
	}
	return command.Succeed(fmt.Sprintf("module %q is now %s", name, status), details, next), nil
}
