package commands

import (
	"context"
	"fmt"

	"github.com/solodevflow/solodev/internal/command"
	"github.com/solodevflow/solodev/internal/state"
)

func (h *handlers) approveDef() *command.Definition {
	return &command.Definition{
		Name:        "approve",
		Description: "Approve the current phase, a named phase, or a module of the current phase",
		Usage:       "/approve [phase|module] [--artifacts a.md,b.md]",
		Params: []command.Param{
			{Name: "target", Kind: command.KindString, Description: "Phase or module to approve; defaults to the current phase"},
			{Name: "artifacts", Kind: command.KindStringList, Description: "Artifacts produced by the module"},
		},
		Preconditions: []command.Condition{stateExists},
		Handler:       h.runApprove,
	}
}

func (h *handlers) runApprove(_ context.Context, p command.Params, st *state.State) (*command.Result, error) {
	it := st.CurrentIterationState()
	if it == nil {
		return nil, fmt.Errorf("approve: %w: %q", state.ErrIterationNotFound, st.CurrentIteration)
	}
	target := p.String("target")
	if target == "" {
		return h.approvePhase(it.CurrentPhase, st.CurrentIteration)
	}
	if phase := state.ParsePhase(target); phase != "" {
		return h.approvePhase(phase, st.CurrentIteration)
	}
	return h.approveModule(it.CurrentPhase, target, p.List("artifacts"), st.CurrentIteration)
}

func (h *handlers) approvePhase(phase state.Phase, iteration string) (*command.Result, error) {
	res, err := h.mgr.ApprovePhase(phase, h.actor)
	if err != nil {
		return nil, fmt.Errorf("approve phase %s: %w", phase, err)
	}
	details := map[string]any{"phase": phase, "iteration": iteration}
	if !res.Success {
		return rejected("approve "+string(phase), res.Result, details), nil
	}
	details["approvedBy"] = res.ApprovedBy
	details["approvedAt"] = res.ApprovedAt
	return command.Succeed(
		fmt.Sprintf("phase %q approved", phase),
		withWarnings(details, res.Warnings),
		nextPhaseAction(phase),
	), nil
}

func (h *handlers) approveModule(phase state.Phase, module string, artifacts []string, iteration string) (*command.Result, error) {
	res, err := h.mgr.ApproveModule(phase, module, h.actor, artifacts)
	if err != nil {
		return nil, fmt.Errorf("approve module %s: %w", module, err)
	}
	details := map[string]any{"module": module, "phase": phase, "iteration": iteration}
	if !res.Success {
		return rejected("approve "+module, res.Result, details), nil
	}
	details["approvedBy"] = res.ApprovedBy
	details["approvedAt"] = res.ApprovedAt
	return command.Succeed(
		fmt.Sprintf("module %q approved", module),
		details,
		"continue with the remaining modules or use /approve to approve the whole phase",
	), nil
}

func (h *handlers) rollbackDef() *command.Definition {
	return &command.Definition{
		Name:        "rollback",
		Description: "Roll back to an earlier phase to fix a problem",
		Usage:       `/rollback <target-phase> "<reason>"`,
		Params: []command.Param{
			{
				Name:        "target-phase",
				Kind:        command.KindString,
				Required:    true,
				Enum:        []string{"requirements", "architecture", "implementation"},
				Description: "Phase to roll back to",
			},
			{Name: "reason", Kind: command.KindString, Required: true, Description: "Why the rollback is needed"},
		},
		Preconditions:    []command.Condition{stateExists},
		ApprovalRequired: true,
		Handler:          h.runRollback,
	}
}

func (h *handlers) runRollback(_ context.Context, p command.Params, st *state.State) (*command.Result, error) {
	target := state.Phase(p.String("target-phase"))
	reason := p.String("reason")

	res, err := h.mgr.RollbackToPhase(target, reason)
	if err != nil {
		return nil, fmt.Errorf("roll back to %s: %w", target, err)
	}
	details := map[string]any{
		"fromPhase": res.From,
		"toPhase":   target,
		"reason":    reason,
		"iteration": st.CurrentIteration,
	}
	if !res.Success {
		return rejected("rollback", res.Result, details), nil
	}
	details["affectedModules"] = res.AffectedModules
	return command.Succeed(
		fmt.Sprintf("rolled back to the %s phase", target),
		details,
		fmt.Sprintf("rework the %s phase, then approve it again to move forward", target),
	), nil
}
