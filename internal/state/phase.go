package state

import "strings"

// Phase is one of the five fixed lifecycle stages of an iteration.
type Phase string

const (
	PhaseRequirements   Phase = "requirements"
	PhaseArchitecture   Phase = "architecture"
	PhaseImplementation Phase = "implementation"
	PhaseTesting        Phase = "testing"
	PhaseDeployment     Phase = "deployment"
)

// AllPhases returns all phases in lifecycle order.
func AllPhases() []Phase {
	return []Phase{
		PhaseRequirements,
		PhaseArchitecture,
		PhaseImplementation,
		PhaseTesting,
		PhaseDeployment,
	}
}

// phaseAliases maps alternative names to canonical phases.
var phaseAliases = map[string]Phase{
	"requirements":   PhaseRequirements,
	"architecture":   PhaseArchitecture,
	"implementation": PhaseImplementation,
	"testing":        PhaseTesting,
	"deployment":     PhaseDeployment,

	"prd":    PhaseRequirements,
	"req":    PhaseRequirements,
	"arch":   PhaseArchitecture,
	"impl":   PhaseImplementation,
	"test":   PhaseTesting,
	"deploy": PhaseDeployment,
}

// ParsePhase normalizes a phase name or alias to its canonical form.
// Returns empty string if the name is not recognized.
func ParsePhase(name string) Phase {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if p, ok := phaseAliases[normalized]; ok {
		return p
	}
	return ""
}

// Index returns the position of p in lifecycle order, or -1 for unknown phases.
// Only canonical names are accepted.
func (p Phase) Index() int {
	for i, candidate := range AllPhases() {
		if candidate == p {
			return i
		}
	}
	return -1
}

// IsValid reports whether p is a canonical phase name.
func (p Phase) IsValid() bool {
	return p.Index() >= 0
}

// Next returns the phase after p. ok is false for the last phase.
func (p Phase) Next() (next Phase, ok bool) {
	i := p.Index()
	phases := AllPhases()
	if i < 0 || i+1 >= len(phases) {
		return "", false
	}
	return phases[i+1], true
}

// Previous returns the phase before p. ok is false for the first phase.
func (p Phase) Previous() (prev Phase, ok bool) {
	i := p.Index()
	if i <= 0 {
		return "", false
	}
	return AllPhases()[i-1], true
}

func (p Phase) String() string {
	return string(p)
}

// TestSubPhase names a stage of the testing phase.
type TestSubPhase string

const (
	TestSubPhaseE2E         TestSubPhase = "e2e"
	TestSubPhasePerformance TestSubPhase = "performance"
	TestSubPhaseChaos       TestSubPhase = "chaos"
)

// AllTestSubPhases returns the testing sub-phases in execution order.
func AllTestSubPhases() []TestSubPhase {
	return []TestSubPhase{TestSubPhaseE2E, TestSubPhasePerformance, TestSubPhaseChaos}
}
