package formatter

import (
	"encoding/json"
	"io"

	"github.com/solodevflow/solodev/internal/state"
)

// IterationFormatter writes one archived iteration.
type IterationFormatter interface {
	Format(w io.Writer, it *state.HistoricalIteration) error
	Extension() string
}

// JSONLFormatter outputs archived iterations as JSON Lines format.
// Each iteration is a single JSON object on one line.
type JSONLFormatter struct {
	// Pretty enables indented JSON (not recommended for JSONL).
	Pretty bool
}

// NewJSONLFormatter creates a new JSONL formatter.
func NewJSONLFormatter() *JSONLFormatter {
	return &JSONLFormatter{}
}

// Format writes the iteration as a JSON line.
func (jf *JSONLFormatter) Format(w io.Writer, it *state.HistoricalIteration) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false) // Don't escape < > & in summaries

	if jf.Pretty {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(jf.buildOutput(it))
}

// Extension returns the file extension for JSONL.
func (jf *JSONLFormatter) Extension() string {
	return ".jsonl"
}

// jsonlOutput is the flattened record written per iteration. Phases and
// change details are reduced to what a timeline needs.
type jsonlOutput struct {
	ID          string                 `json:"id"`
	Version     string                 `json:"version"`
	Goal        string                 `json:"goal,omitempty"`
	Status      string                 `json:"status"`
	StartedAt   string                 `json:"startedAt"`
	CompletedAt string                 `json:"completedAt,omitempty"`
	DeployedAt  string                 `json:"deployedAt,omitempty"`
	GitTag      string                 `json:"gitTag,omitempty"`
	Summary     string                 `json:"summary,omitempty"`
	PhaseStatus map[state.Phase]string `json:"phaseStatus"`
	Modules     []string               `json:"modules,omitempty"`
	ChangeCount int                    `json:"changeCount"`
	Stats       *state.IterationStats  `json:"stats,omitempty"`
}

func (jf *JSONLFormatter) buildOutput(it *state.HistoricalIteration) *jsonlOutput {
	out := &jsonlOutput{
		ID:          it.ID,
		Version:     it.Version,
		Goal:        it.Goal,
		Status:      string(it.Status),
		StartedAt:   it.StartedAt,
		CompletedAt: it.CompletedAt,
		DeployedAt:  it.DeployedAt,
		GitTag:      it.GitTag,
		Summary:     it.Summary,
		PhaseStatus: make(map[state.Phase]string),
		ChangeCount: len(it.ChangeHistory),
		Stats:       it.Stats,
	}
	seen := make(map[string]bool)
	for _, p := range state.AllPhases() {
		ps := it.Phases.Get(p)
		if ps == nil {
			continue
		}
		out.PhaseStatus[p] = string(ps.Status)
		for _, m := range ps.ModuleNames() {
			if !seen[m] {
				seen[m] = true
				out.Modules = append(out.Modules, m)
			}
		}
	}
	return out
}
