package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solodevflow/solodev/internal/state"
)

type stateFile bool

func (p stateFile) Exists() bool { return bool(p) }

// sampleState returns a state in the architecture phase with requirements
// approved and two architecture modules.
func sampleState() *state.State {
	it := &state.Iteration{
		ID:           "iteration-1",
		Status:       state.IterationInProgress,
		CurrentPhase: state.PhaseArchitecture,
	}
	pending := func() *state.PhaseState {
		return &state.PhaseState{Status: state.PhasePending, Modules: map[string]*state.ModuleState{}}
	}
	arch := &state.PhaseState{Status: state.PhaseInProgress, Modules: map[string]*state.ModuleState{
		"auth": {Status: state.ModuleApproved},
		"api":  {Status: state.ModuleInProgress},
	}}
	it.Phases = state.Phases{
		Requirements:   &state.PhaseState{Status: state.PhaseApproved, Modules: map[string]*state.ModuleState{}},
		Architecture:   arch,
		Implementation: pending(),
		Testing:        pending(),
		Deployment:     pending(),
	}
	return &state.State{
		CurrentIteration: "iteration-1",
		Iterations:       map[string]*state.Iteration{"iteration-1": it},
	}
}

func TestChecker(t *testing.T) {
	st := sampleState()
	planning := sampleState()
	pit := planning.CurrentIterationState()
	pit.Status = state.IterationPlanning
	pit.CurrentPhase = state.PhaseRequirements
	pit.Phases.Requirements.Status = state.PhasePending

	tests := []struct {
		name   string
		exists bool
		st     *state.State
		cond   Condition
		want   bool
	}{
		{"state exists", true, st, Condition{Type: CondStateExists}, true},
		{"state missing", false, nil, Condition{Type: CondStateExists}, false},
		{"state not exists", false, nil, Condition{Type: CondStateNotExists}, true},
		{"phase approved", true, st, Condition{Type: CondPhaseApproved, Phase: state.PhaseRequirements}, true},
		{"phase not approved", true, st, Condition{Type: CondPhaseApproved, Phase: state.PhaseArchitecture}, false},
		{"phase completed accepts approved", true, st, Condition{Type: CondPhaseCompleted, Phase: state.PhaseRequirements}, true},
		{"phase in progress", true, st, Condition{Type: CondPhaseInProgress, Phase: state.PhaseArchitecture}, true},
		{"phase not current", true, st, Condition{Type: CondPhaseInProgress, Phase: state.PhaseTesting}, false},
		{"modules approved", true, st, Condition{Type: CondModulesApproved, Modules: []string{"auth"}}, true},
		{"module not approved", true, st, Condition{Type: CondModulesApproved, Modules: []string{"auth", "api"}}, false},
		{"empty module list", true, st, Condition{Type: CondModulesApproved}, false},
		{"iteration started", true, st, Condition{Type: CondIterationNotStarted}, false},
		{"iteration planning", true, planning, Condition{Type: CondIterationNotStarted}, true},
		{"no state means not started", false, nil, Condition{Type: CondIterationNotStarted}, true},
		{"phase check without state", false, nil, Condition{Type: CondPhaseApproved, Phase: state.PhaseRequirements}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewChecker(stateFile(tt.exists)).Check([]Condition{tt.cond}, tt.st)
			assert.Equal(t, tt.want, res.Passed)
			if !tt.want {
				assert.Len(t, res.FailedConditions, 1)
				assert.NotEmpty(t, res.FailedConditions[0].Reason)
			}
		})
	}
}

func TestChecker_Custom(t *testing.T) {
	st := sampleState()
	c := NewChecker(stateFile(true))

	res := c.Check([]Condition{{Type: CondCustom, Check: func(*state.State) (bool, error) { return true, nil }}}, st)
	assert.True(t, res.Passed)

	res = c.Check([]Condition{{Type: CondCustom, Check: func(*state.State) (bool, error) {
		return false, errors.New("boom")
	}}}, st)
	assert.False(t, res.Passed)
	assert.Contains(t, res.FailedConditions[0].Reason, "boom")

	res = c.Check([]Condition{{Type: CondCustom, Check: func(*state.State) (bool, error) {
		panic("exploded")
	}}}, st)
	assert.False(t, res.Passed)
	assert.Contains(t, res.FailedConditions[0].Reason, "exploded")

	res = c.Check([]Condition{{Type: CondCustom}}, st)
	assert.False(t, res.Passed, "custom without a check function fails")

	res = c.Check([]Condition{{Type: CondCustom, Check: func(*state.State) (bool, error) { return true, nil }}}, nil)
	assert.False(t, res.Passed, "custom without state fails")
}

func TestChecker_Severity(t *testing.T) {
	res := NewChecker(stateFile(true)).Check([]Condition{
		{Type: CondStateExists},
		{Type: CondPhaseInProgress, Phase: state.PhaseTesting, Severity: SeverityWarning, Message: "not in testing"},
	}, sampleState())

	assert.True(t, res.Passed)
	assert.Empty(t, res.FailedConditions)
	assert.Equal(t, []string{"not in testing"}, res.Warnings)
}
