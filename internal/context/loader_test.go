package context

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solodevflow/solodev/internal/fileio"
	"github.com/solodevflow/solodev/internal/state"
)

const statePath = ".solodev/state.json"

func modules(statuses map[string]state.ModuleStatus) map[string]*state.ModuleState {
	out := make(map[string]*state.ModuleState, len(statuses))
	for name, s := range statuses {
		out[name] = &state.ModuleState{Status: s, Artifacts: []string{}}
	}
	return out
}

// newTestLoader seeds a project in its second iteration. Requirements has
// auth and payments approved and billing completed. Architecture has only
// auth approved. payments depends on auth, billing and ledger.
func newTestLoader(t *testing.T, opts ...Option) *Loader {
	t.Helper()
	fio := fileio.NewMemory()
	repo := state.NewRepository(fio)

	st := &state.State{
		SchemaVersion:    state.SchemaVersion,
		Project:          state.Project{Name: "demo"},
		CurrentIteration: "iteration-2",
		Iterations: map[string]*state.Iteration{
			"iteration-2": {
				ID:           "iteration-2",
				CurrentPhase: state.PhaseImplementation,
				Phases: state.Phases{
					Requirements: &state.PhaseState{Status: state.PhaseApproved, Modules: modules(map[string]state.ModuleStatus{
						"auth":     state.ModuleApproved,
						"payments": state.ModuleApproved,
						"billing":  state.ModuleCompleted,
					})},
					Architecture: &state.PhaseState{Status: state.PhaseInProgress, Modules: modules(map[string]state.ModuleStatus{
						"auth":     state.ModuleApproved,
						"payments": state.ModuleInProgress,
						"billing":  state.ModuleInProgress,
					})},
				},
			},
		},
		ModuleDependencies: map[string]*state.ModuleDependency{
			"auth":     {},
			"billing":  {},
			"ledger":   {DependsOn: []string{"auth", "auth"}},
			"payments": {DependsOn: []string{"auth", "billing", "ledger"}},
			"orphan":   nil,
		},
	}
	require.NoError(t, repo.Write(st))

	for _, p := range []string{
		"docs/PRD/modules/auth-PRD.md",
		"docs/PRD/modules/billing-PRD.md",
		"docs/PRD/modules/payments-PRD.md",
		"docs/architecture/iteration-2/auth-design.md",
		"docs/architecture/iteration-2/auth-api.md",
		"docs/architecture/iteration-2/billing-design.md",
		"docs/architecture/iteration-2/payments-design.md",
		"docs/architecture/iteration-2/auth-notes.txt",
		"docs/architecture/iteration-1/auth-old.md",
		".solodev/templates/architecture-overview-template.md",
		".solodev/templates/PRD-module-template.md",
	} {
		require.NoError(t, fio.WriteRaw(p, []byte(strings.Repeat("x", 400))))
	}
	return NewLoader(repo, opts...)
}

func TestForPhase(t *testing.T) {
	tests := []struct {
		name      string
		phase     state.Phase
		files     []string
		templates []string
	}{
		{
			name:      "requirements only loads state and templates",
			phase:     state.PhaseRequirements,
			files:     []string{statePath},
			templates: []string{".solodev/templates/PRD-module-template.md"},
		},
		{
			name:  "architecture loads approved PRDs",
			phase: state.PhaseArchitecture,
			files: []string{
				statePath,
				"docs/PRD/modules/auth-PRD.md",
				"docs/architecture/iteration-2/auth-api.md",
				"docs/architecture/iteration-2/auth-design.md",
				"docs/PRD/modules/payments-PRD.md",
				"docs/architecture/iteration-2/payments-design.md",
			},
			templates: []string{".solodev/templates/architecture-overview-template.md"},
		},
		{
			name:  "implementation loads approved architecture",
			phase: state.PhaseImplementation,
			files: []string{
				statePath,
				"docs/PRD/modules/auth-PRD.md",
				"docs/architecture/iteration-2/auth-api.md",
				"docs/architecture/iteration-2/auth-design.md",
			},
			templates: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestLoader(t).ForPhase(tt.phase)
			require.True(t, res.Success, res.Error)
			assert.Equal(t, tt.files, res.Files)
			assert.Equal(t, tt.templates, res.Templates)
			assert.Equal(t, PhaseRules[tt.phase].StateFields, res.StateFields)
			assert.Equal(t, PhaseRules[tt.phase].Description, res.Description)
			assert.Empty(t, res.Warnings)
		})
	}
}

func TestForPhase_Failures(t *testing.T) {
	res := newTestLoader(t).ForPhase(state.Phase("build"))
	assert.False(t, res.Success)
	assert.Equal(t, "invalid phase: build", res.Error)
	assert.Empty(t, res.Files)

	empty := NewLoader(state.NewRepository(fileio.NewMemory()))
	res = empty.ForPhase(state.PhaseRequirements)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "does not exist or is malformed")
	assert.Nil(t, res.Budget)
}

func TestForModule(t *testing.T) {
	l := newTestLoader(t)

	res := l.ForModule("payments", state.PhaseImplementation)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{
		statePath,
		"docs/PRD/modules/payments-PRD.md",
		"docs/architecture/iteration-2/payments-design.md",
		"docs/PRD/modules/auth-PRD.md",
		"docs/architecture/iteration-2/auth-api.md",
		"docs/architecture/iteration-2/auth-design.md",
	}, res.Files)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, `dependency "billing": architecture document not yet approved, skipped`, res.Warnings[0])
	assert.Equal(t, `dependency "ledger": architecture document not yet completed, skipped`, res.Warnings[1])
	assert.True(t, strings.HasSuffix(res.Description, "\ncurrent module: payments"))
}

func TestForModule_ArchitectureGatesOnPRD(t *testing.T) {
	res := newTestLoader(t).ForModule("payments", state.PhaseArchitecture)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Files, "docs/PRD/modules/auth-PRD.md")
	assert.NotContains(t, res.Files, "docs/PRD/modules/billing-PRD.md")
	assert.Equal(t, []string{
		`dependency "billing": PRD not yet approved, skipped`,
		`dependency "ledger": PRD not yet completed, skipped`,
	}, res.Warnings)
}

func TestForModule_RequirementsIncludesAllDependencies(t *testing.T) {
	l := newTestLoader(t)

	res := l.ForModule("payments", state.PhaseRequirements)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{
		statePath,
		"docs/PRD/modules/payments-PRD.md",
		"docs/PRD/modules/auth-PRD.md",
		"docs/PRD/modules/billing-PRD.md",
	}, res.Files)
	assert.Empty(t, res.Warnings)

	res = l.ForModule("ledger", state.PhaseRequirements)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{statePath, "docs/PRD/modules/auth-PRD.md"}, res.Files, "files are deduplicated")
}

func TestForModule_Failures(t *testing.T) {
	l := newTestLoader(t)

	res := l.ForModule("nope", state.PhaseArchitecture)
	assert.False(t, res.Success)
	assert.Equal(t, "invalid module: nope", res.Error)

	res = l.ForModule("auth", state.Phase("build"))
	assert.False(t, res.Success)
	assert.Equal(t, "invalid phase: build", res.Error)

	res = l.ForModule("orphan", state.PhaseTesting)
	assert.True(t, res.Success, "a nil dependency entry still names a module")
	assert.Equal(t, []string{statePath}, res.Files)
}

func TestIterationNumber(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"iteration-3", "3"},
		{"iteration-", "1"},
		{"main", "1"},
		{"", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, iterationNumber(tt.id))
		})
	}
}

func TestLoader_CustomDirs(t *testing.T) {
	fio := fileio.NewMemory()
	repo := state.NewRepository(fio, state.WithBaseDir(".workflow"))
	st := &state.State{
		SchemaVersion:    state.SchemaVersion,
		CurrentIteration: "iteration-1",
		Iterations: map[string]*state.Iteration{
			"iteration-1": {
				ID:           "iteration-1",
				CurrentPhase: state.PhaseArchitecture,
				Phases: state.Phases{
					Requirements: &state.PhaseState{Status: state.PhaseApproved, Modules: modules(map[string]state.ModuleStatus{
						"auth": state.ModuleApproved,
					})},
					Architecture: &state.PhaseState{Status: state.PhaseInProgress, Modules: modules(map[string]state.ModuleStatus{})},
				},
			},
		},
		ModuleDependencies: map[string]*state.ModuleDependency{"auth": {}},
	}
	require.NoError(t, repo.Write(st))
	for _, p := range []string{
		"documentation/PRD/modules/auth-PRD.md",
		"docs/PRD/modules/auth-PRD.md",
		".workflow/templates/architecture-overview-template.md",
		".solodev/templates/architecture-data-model-template.md",
	} {
		require.NoError(t, fio.WriteRaw(p, []byte("x")))
	}

	res := NewLoader(repo, WithDocsDir("documentation/")).ForPhase(state.PhaseArchitecture)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{".workflow/state.json", "documentation/PRD/modules/auth-PRD.md"}, res.Files)
	assert.Equal(t, []string{".workflow/templates/architecture-overview-template.md"}, res.Templates)

	res = NewLoader(repo, WithDocsDir("documentation"), WithTemplateDir(".solodev/templates")).ForPhase(state.PhaseArchitecture)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{".solodev/templates/architecture-data-model-template.md"}, res.Templates)
}
