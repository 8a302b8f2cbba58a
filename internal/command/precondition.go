package command

import (
	"fmt"
	"strings"

	"github.com/solodevflow/solodev/internal/state"
)

// StateFile reports whether the state file exists without loading it.
type StateFile interface {
	Exists() bool
}

// CheckResult is the outcome of evaluating a command's preconditions.
type CheckResult struct {
	Passed           bool              `json:"passed"`
	FailedConditions []FailedCondition `json:"failedConditions,omitempty"`
	Warnings         []string          `json:"warnings,omitempty"`
}

// Checker evaluates preconditions against the loaded state.
type Checker struct {
	file StateFile
}

// NewChecker creates a checker that uses file for the existence checks.
func NewChecker(file StateFile) *Checker {
	return &Checker{file: file}
}

// Check evaluates every condition. Failures with warning severity are
// advisory; any other failure blocks.
func (c *Checker) Check(conds []Condition, st *state.State) CheckResult {
	res := CheckResult{Passed: true}
	for _, cond := range conds {
		ok, reason := c.evaluate(cond, st)
		if ok {
			continue
		}
		if cond.Severity == SeverityWarning {
			res.Warnings = append(res.Warnings, reason)
			continue
		}
		res.Passed = false
		res.FailedConditions = append(res.FailedConditions, FailedCondition{Condition: cond, Reason: reason})
	}
	return res
}

// evaluate runs one condition. A panic or error from a custom check counts as
// a failure carrying the error text.
func (c *Checker) evaluate(cond Condition, st *state.State) (ok bool, reason string) {
	defer func() {
		if r := recover(); r != nil {
			ok, reason = false, fmt.Sprintf("condition %s failed: %v", cond.Type, r)
		}
	}()

	ok, err := c.test(cond, st)
	switch {
	case err != nil:
		return false, fmt.Sprintf("condition %s failed: %v", cond.Type, err)
	case ok:
		return true, ""
	case cond.Message != "":
		return false, cond.Message
	default:
		return false, defaultReason(cond)
	}
}

func (c *Checker) test(cond Condition, st *state.State) (bool, error) {
	switch cond.Type {
	case CondStateNotExists:
		return !c.file.Exists(), nil
	case CondStateExists:
		return c.file.Exists(), nil
	case CondIterationNotStarted:
		it := st.CurrentIterationState()
		if it == nil {
			return true, nil
		}
		return it.Status == state.IterationPlanning && it.Phases.Requirements.Status == state.PhasePending, nil
	case CondCustom:
		if cond.Check == nil {
			return false, fmt.Errorf("custom condition has no check function")
		}
		if st == nil {
			return false, fmt.Errorf("state not loaded")
		}
		return cond.Check(st)
	}

	it := st.CurrentIterationState()
	if it == nil {
		return false, nil
	}
	switch cond.Type {
	case CondPhaseCompleted:
		ps := it.Phases.Get(cond.Phase)
		return ps != nil && (ps.Status == state.PhaseCompleted || ps.Status == state.PhaseApproved), nil
	case CondPhaseApproved:
		ps := it.Phases.Get(cond.Phase)
		return ps != nil && ps.Status == state.PhaseApproved, nil
	case CondPhaseInProgress:
		return it.CurrentPhase == cond.Phase, nil
	case CondModulesApproved:
		if len(cond.Modules) == 0 {
			return false, nil
		}
		ps := it.Phases.Get(it.CurrentPhase)
		if ps == nil {
			return false, nil
		}
		for _, name := range cond.Modules {
			m, ok := ps.Modules[name]
			if !ok || m.Status != state.ModuleApproved {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown condition type %q", cond.Type)
	}
}

func defaultReason(cond Condition) string {
	switch cond.Type {
	case CondStateNotExists:
		return "state file already exists"
	case CondStateExists:
		return "state file does not exist; run init first"
	case CondPhaseCompleted:
		return fmt.Sprintf("phase %s is not completed", cond.Phase)
	case CondPhaseApproved:
		return fmt.Sprintf("phase %s is not approved", cond.Phase)
	case CondPhaseInProgress:
		return fmt.Sprintf("phase %s is not the current phase", cond.Phase)
	case CondModulesApproved:
		return fmt.Sprintf("modules not approved: %s", strings.Join(cond.Modules, ", "))
	case CondIterationNotStarted:
		return "the current iteration has already started"
	default:
		return fmt.Sprintf("condition %s not met", cond.Type)
	}
}
