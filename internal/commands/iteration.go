package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/solodevflow/solodev/internal/command"
	"github.com/solodevflow/solodev/internal/gitinfo"
	"github.com/solodevflow/solodev/internal/state"
)

func testSubPhaseNames() []string {
	subs := state.AllTestSubPhases()
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = string(s)
	}
	return out
}

func testStatusNames() []string {
	statuses := state.AllTestSubPhaseStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (h *handlers) testPhaseDef() *command.Definition {
	return &command.Definition{
		Name:        "test-phase",
		Description: "Move a testing sub-phase (e2e, performance, chaos) through its lifecycle",
		Usage:       "/test-phase <sub-phase> <status> [--plan p.md] [--code dir] [--report r.md] [--reason text]",
		Params: []command.Param{
			{Name: "sub-phase", Kind: command.KindString, Required: true, Enum: testSubPhaseNames(), Description: "Testing sub-phase"},
			{Name: "status", Kind: command.KindString, Required: true, Enum: testStatusNames(), Description: "New sub-phase status"},
			{Name: "plan", Kind: command.KindString, Description: "Test plan document"},
			{Name: "code", Kind: command.KindString, Description: "Test code location"},
			{Name: "report", Kind: command.KindString, Description: "Test report document"},
			{Name: "reason", Kind: command.KindString, Description: "Failure reason"},
		},
		Preconditions: []command.Condition{
			stateExists,
			{
				Type:     command.CondPhaseInProgress,
				Phase:    state.PhaseTesting,
				Severity: command.SeverityWarning,
				Message:  "the testing phase is not in progress",
			},
		},
		Handler: h.runTestPhase,
	}
}

func (h *handlers) runTestPhase(_ context.Context, p command.Params, _ *state.State) (*command.Result, error) {
	sub := state.TestSubPhase(p.String("sub-phase"))
	status := state.TestSubPhaseStatus(p.String("status"))

	res, err := h.mgr.UpdateTestSubPhase(sub, state.TestSubPhaseUpdate{
		Status: status,
		By:     h.actor,
		Reason: p.String("reason"),
		Plan:   p.String("plan"),
		Code:   p.String("code"),
		Report: p.String("report"),
	})
	if err != nil {
		return nil, fmt.Errorf("update test sub-phase %s: %w", sub, err)
	}
	details := map[string]any{"subPhase": sub, "status": status}
	if !res.Success {
		return rejected("test "+string(sub), *res, details), nil
	}

	next := "continue the testing work"
	switch status {
	case state.TestPlanInProgress:
		next = fmt.Sprintf("write the %s test plan, then use /test-phase %s plan_approved", sub, sub)
	case state.TestPlanApproved:
		next = fmt.Sprintf("implement and run the %s tests", sub)
	case state.TestFailed:
		next = "fix the failures and run the tests again"
	case state.TestPassed:
		next = "continue with the other sub-phases or use /approve testing"
	}
	return command.Succeed(
		fmt.Sprintf("%s testing is now %s", sub, status),
		withWarnings(details, res.Warnings),
		next,
	), nil
}

func (h *handlers) syncGitDef() *command.Definition {
	return &command.Definition{
		Name:          "sync-git",
		Description:   "Record the current HEAD commit in the state metadata",
		Usage:         "/sync-git",
		Preconditions: []command.Condition{stateExists},
		Handler:       h.runSyncGit,
	}
}

func (h *handlers) runSyncGit(_ context.Context, _ command.Params, _ *state.State) (*command.Result, error) {
	commit, err := h.head()
	if err != nil {
		if errors.Is(err, gitinfo.ErrNotRepository) || errors.Is(err, gitinfo.ErrNoCommits) {
			return command.Fail("no commit to record: "+err.Error(), err, "commit your work, then run /sync-git again"), nil
		}
		return nil, fmt.Errorf("read HEAD: %w", err)
	}
	if err := h.mgr.UpdateGitMetadata(commit.Hash, commit.Subject(), state.FormatTimestamp(commit.When)); err != nil {
		return nil, fmt.Errorf("update git metadata: %w", err)
	}
	details := map[string]any{
		"commit":  commit.Hash,
		"message": commit.Subject(),
		"author":  commit.Author,
	}
	if commit.Tag != "" {
		details["tag"] = commit.Tag
	}
	return command.Succeed(fmt.Sprintf("recorded commit %s", commit.ShortHash()), details, ""), nil
}

func (h *handlers) completeIterationDef() *command.Definition {
	return &command.Definition{
		Name:        "complete-iteration",
		Description: "Archive the finished iteration into state_his.json and start the next one",
		Usage:       `/complete-iteration ["summary"]`,
		Params: []command.Param{
			{Name: "summary", Kind: command.KindString, Description: "What the iteration delivered"},
		},
		Preconditions: []command.Condition{
			stateExists,
			{
				Type:    command.CondPhaseApproved,
				Phase:   state.PhaseDeployment,
				Message: "the deployment phase is not approved yet",
			},
		},
		Handler: h.runCompleteIteration,
	}
}

func (h *handlers) runCompleteIteration(_ context.Context, p command.Params, _ *state.State) (*command.Result, error) {
	if commit, err := h.head(); err == nil {
		if err := h.mgr.UpdateGitMetadata(commit.Hash, commit.Subject(), state.FormatTimestamp(commit.When)); err != nil {
			return nil, fmt.Errorf("update git metadata: %w", err)
		}
	} else {
		h.logger.Debug("archiving without a fresh commit", "error", err)
	}

	res, err := h.mgr.ArchiveIteration(p.String("summary"))
	if err != nil {
		out := command.Fail("archiving the iteration failed: "+err.Error(), err, "")
		if res != nil {
			out.Details = map[string]any{"transactionId": res.TransactionID, "steps": res.Steps}
			out.NextAction = "the state files were restored from backup, check them and retry"
		}
		return out, nil
	}
	details := map[string]any{"transactionId": res.TransactionID, "steps": res.Steps}
	if !res.Success {
		return rejected("complete iteration", res.Result, details), nil
	}
	details["archived"] = res.MigratedIterationID
	details["current"] = res.NewCurrentIterationID
	details["backups"] = res.Backups
	return command.Succeed(
		fmt.Sprintf("iteration %s archived, %s started", res.MigratedIterationID, res.NewCurrentIterationID),
		details,
		"use /start-requirements to begin the next iteration",
	), nil
}
