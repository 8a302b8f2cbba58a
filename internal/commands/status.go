package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/solodevflow/solodev/internal/command"
	"github.com/solodevflow/solodev/internal/state"
)

func (h *handlers) statusDef() *command.Definition {
	return &command.Definition{
		Name:          "status",
		Description:   "Show the project status and progress",
		Usage:         "/status",
		Preconditions: []command.Condition{stateExists},
		ReadOnly:      true,
		Handler:       h.runStatus,
	}
}

// StatusReport is the details payload of /status.
type StatusReport struct {
	ProjectName      string                 `json:"projectName"`
	Version          string                 `json:"version"`
	CurrentIteration string                 `json:"currentIteration"`
	CurrentPhase     state.Phase            `json:"currentPhase"`
	PhaseStatus      state.PhaseStatus      `json:"phaseStatus"`
	TotalModules     int                    `json:"totalModules"`
	CompletedModules int                    `json:"completedModules"`
	Modules          map[string]string      `json:"modules,omitempty"`
	Progress         *state.ProgressSummary `json:"progress,omitempty"`
	FileSize         state.FileSizeCheck    `json:"fileSize"`
}

func (h *handlers) runStatus(_ context.Context, _ command.Params, st *state.State) (*command.Result, error) {
	it := st.CurrentIterationState()
	if it == nil {
		return nil, fmt.Errorf("status: %w: %q", state.ErrIterationNotFound, st.CurrentIteration)
	}
	ps := it.Phases.Get(it.CurrentPhase)
	if ps == nil {
		return nil, fmt.Errorf("status: %w: %s", state.ErrUnknownPhase, it.CurrentPhase)
	}

	report := StatusReport{
		ProjectName:      st.Project.Name,
		Version:          it.Version,
		CurrentIteration: st.CurrentIteration,
		CurrentPhase:     it.CurrentPhase,
		PhaseStatus:      ps.Status,
		TotalModules:     len(ps.Modules),
		Modules:          make(map[string]string, len(ps.Modules)),
		FileSize:         h.mgr.CheckFileSize(),
	}
	for name, m := range ps.Modules {
		report.Modules[name] = string(m.Status)
		if m.Status == state.ModuleCompleted || m.Status == state.ModuleApproved {
			report.CompletedModules++
		}
	}
	if sum, err := h.mgr.GetProgressSummary(); err == nil {
		report.Progress = sum
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Project status\n")
	fmt.Fprintf(&b, "project:   %s\n", report.ProjectName)
	fmt.Fprintf(&b, "version:   %s\n", report.Version)
	fmt.Fprintf(&b, "iteration: %s\n", report.CurrentIteration)
	fmt.Fprintf(&b, "phase:     %s (%s)\n", report.CurrentPhase, report.PhaseStatus)
	fmt.Fprintf(&b, "modules:   %d/%d", report.CompletedModules, report.TotalModules)
	for _, name := range ps.ModuleNames() {
		fmt.Fprintf(&b, "\n  - %s: %s", name, ps.Modules[name].Status)
	}

	details := map[string]any{"report": report}
	if rec := report.FileSize.Recommendation; rec != "" {
		details["warnings"] = []string{rec}
	}
	return command.Succeed(b.String(), details, statusNextAction(it)), nil
}

// statusNextAction suggests the next step from the current phase status.
func statusNextAction(it *state.Iteration) string {
	ps := it.Phases.Get(it.CurrentPhase)
	switch ps.Status {
	case state.PhasePending:
		return fmt.Sprintf("use %s to begin the current phase", startAction(it.CurrentPhase))
	case state.PhaseInProgress:
		for _, name := range ps.ModuleNames() {
			if ps.Modules[name].Status == state.ModuleCompleted {
				return "completed modules are waiting for review, use /approve <module>"
			}
		}
		return "continue the work of the current phase"
	case state.PhaseCompleted:
		return "phase completed, waiting for approval"
	case state.PhaseApproved:
		if next, ok := it.CurrentPhase.Next(); ok {
			return fmt.Sprintf("use %s to enter the next phase", startAction(next))
		}
		return "all phases are done, use /complete-iteration to archive the iteration"
	default:
		return "continue the current work"
	}
}
