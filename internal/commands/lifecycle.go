package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/solodevflow/solodev/internal/command"
	"github.com/solodevflow/solodev/internal/state"
)

func (h *handlers) initDef() *command.Definition {
	return &command.Definition{
		Name:        "init",
		Description: "Initialize the project and create .solodev/state.json",
		Usage:       `/init <project-name> [description] [--type tool]`,
		Params: []command.Param{
			{Name: "project-name", Kind: command.KindString, Required: true, Description: "Project name"},
			{Name: "description", Kind: command.KindString, Description: "Project description"},
			{
				Name:        "type",
				Kind:        command.KindString,
				Default:     string(state.ProjectTool),
				Enum:        []string{"backend", "frontend", "fullstack", "library", "tool"},
				Description: "Project type",
			},
		},
		Preconditions: []command.Condition{{
			Type:    command.CondStateNotExists,
			Message: "state.json already exists, the project is initialized",
		}},
		SkipStateLoad: true,
		Handler:       h.runInit,
	}
}

func (h *handlers) runInit(_ context.Context, p command.Params, _ *state.State) (*command.Result, error) {
	name := p.String("project-name")
	in := state.InitOptions{
		ProjectName: name,
		Description: p.String("description"),
		Type:        state.ProjectType(p.String("type")),
	}
	if commit, err := h.head(); err == nil {
		in.StartCommit = commit.Hash
	} else {
		h.logger.Debug("no git commit recorded", "error", err)
	}

	st, err := h.mgr.Initialize(in)
	if err != nil {
		if errors.Is(err, state.ErrStateExists) {
			return command.Fail("project is already initialized", err, "use /status to see where it stands"), nil
		}
		return nil, fmt.Errorf("initialize project: %w", err)
	}
	return command.Succeed(
		fmt.Sprintf("project %q initialized", name),
		map[string]any{
			"projectName": name,
			"description": in.Description,
			"type":        st.Project.Type,
			"iteration":   st.CurrentIteration,
			"startCommit": in.StartCommit,
			"stateFile":   h.mgr.StatePath(),
		},
		"use /start-requirements to begin requirements analysis",
	), nil
}

func (h *handlers) startRequirementsDef() *command.Definition {
	return &command.Definition{
		Name:        "start-requirements",
		Description: "Start the requirements phase of the current iteration",
		Usage:       "/start-requirements",
		Preconditions: []command.Condition{
			stateExists,
			{Type: command.CondIterationNotStarted, Message: "the current iteration has already started"},
		},
		Handler: h.startHandler(state.PhaseRequirements),
	}
}

// startPhaseDef declares /start-<phase> for every phase after requirements.
// Each requires the previous phase to be approved.
func (h *handlers) startPhaseDef(phase state.Phase) *command.Definition {
	prev, _ := phase.Previous()
	return &command.Definition{
		Name:        "start-" + string(phase),
		Description: fmt.Sprintf("Start the %s phase", phase),
		Usage:       "/start-" + string(phase),
		Preconditions: []command.Condition{
			stateExists,
			{
				Type:    command.CondPhaseApproved,
				Phase:   prev,
				Message: fmt.Sprintf("phase %s is not approved yet, cannot start %s", prev, phase),
			},
		},
		Handler: h.startHandler(phase),
	}
}

func (h *handlers) startHandler(phase state.Phase) command.Handler {
	return func(_ context.Context, _ command.Params, st *state.State) (*command.Result, error) {
		res, err := h.mgr.StartPhase(phase)
		if err != nil {
			return nil, fmt.Errorf("start %s: %w", phase, err)
		}
		details := map[string]any{
			"iteration": st.CurrentIteration,
			"phase":     phase,
		}
		if !res.Success {
			out := rejected("start "+string(phase), res.Result, details)
			if terr := res.Err(); terr != nil {
				out.Err = fmt.Errorf("start %s: %w", phase, terr)
			}
			return out, nil
		}
		details["status"] = state.PhaseInProgress
		if res.From != "" {
			details["from"] = res.From
		}
		return command.Succeed(
			fmt.Sprintf("%s phase started", phase),
			details,
			fmt.Sprintf("write the %s documents, then use /approve %s", phase, phase),
		), nil
	}
}
