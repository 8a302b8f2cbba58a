package state

import "fmt"

// GetProgressSummary reports where the current iteration stands and what to
// do next.
func (s *Service) GetProgressSummary() (*ProgressSummary, error) {
	st, it, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}
	ps := it.Phases.Get(it.CurrentPhase)
	if ps == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPhase, it.CurrentPhase)
	}

	sum := &ProgressSummary{
		CurrentIteration: it.ID,
		CurrentPhase:     it.CurrentPhase,
		LastAction:       "none",
		LastActionTime:   st.Metadata.LastGitCommitAt,
	}
	if ps.CurrentProcess != nil {
		sum.CurrentModule = ps.CurrentProcess.CurrentModule
	}

	var remaining []string
	for _, name := range ps.ModuleNames() {
		if ps.Modules[name].Status.IsDone() {
			sum.CompletedModules++
		} else {
			remaining = append(remaining, name)
		}
	}
	sum.RemainingModules = len(remaining)

	if n := len(st.ChangeHistory); n > 0 {
		last := st.ChangeHistory[n-1]
		sum.LastAction = last.Description
		sum.LastActionTime = last.Timestamp
	}

	next, hasNext := it.CurrentPhase.Next()
	switch {
	case len(remaining) > 0:
		sum.SuggestedNextStep = "continue module: " + remaining[0]
	case ps.Status != PhaseApproved && ps.Status != PhaseCompleted:
		sum.SuggestedNextStep = fmt.Sprintf("all modules done, approve %s", it.CurrentPhase)
	case hasNext:
		sum.SuggestedNextStep = fmt.Sprintf("phase approved, transition to %s", next)
	default:
		sum.SuggestedNextStep = "all phases done, the iteration can end"
	}
	return sum, nil
}
