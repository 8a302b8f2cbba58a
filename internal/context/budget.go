package context

// Thresholds for context budget management.
const (
	// WarningThreshold suggests loading module context instead of phase context (60%).
	WarningThreshold = 0.60

	// CriticalThreshold means the context will crowd out the work itself (80%).
	CriticalThreshold = 0.80

	// DefaultMaxTokens is the assumed max context window.
	DefaultMaxTokens = 200000

	// bytesPerToken is the rough size of a token in prose and code.
	bytesPerToken = 4

	// missingFileTokens is charged for a listed file that cannot be stat'ed.
	missingFileTokens = 1000
)

// BudgetStatus represents the current budget state.
type BudgetStatus string

const (
	StatusOptimal  BudgetStatus = "OPTIMAL"
	StatusWarning  BudgetStatus = "WARNING"
	StatusCritical BudgetStatus = "CRITICAL"
)

// FileEstimate is the token estimate of one context file.
type FileEstimate struct {
	Path   string `json:"path" yaml:"path"`
	Tokens int    `json:"tokens" yaml:"tokens"`
}

// Budget estimates how much of the context window a result would use.
type Budget struct {
	MaxTokens      int            `json:"maxTokens" yaml:"maxTokens"`
	Tokens         int            `json:"tokens" yaml:"tokens"`
	UsagePercent   float64        `json:"usagePercent" yaml:"usagePercent"`
	Status         BudgetStatus   `json:"status" yaml:"status"`
	Recommendation string         `json:"recommendation" yaml:"recommendation"`
	Files          []FileEstimate `json:"files" yaml:"files"`
}

// EstimateTokens estimates tokens from a byte count.
// Uses rough 4 chars per token approximation.
func EstimateTokens(size int64) int {
	return int(size / bytesPerToken)
}

// StatusFor classifies a usage fraction.
func StatusFor(usage float64) BudgetStatus {
	switch {
	case usage >= CriticalThreshold:
		return StatusCritical
	case usage >= WarningThreshold:
		return StatusWarning
	default:
		return StatusOptimal
	}
}

// Recommendation returns advice for a budget status.
func Recommendation(status BudgetStatus) string {
	switch status {
	case StatusCritical:
		return "context nearly full, load module context for one module at a time"
	case StatusWarning:
		return "context is getting large, prefer module context over phase context"
	default:
		return "context budget healthy"
	}
}

func (l *Loader) budget(paths []string) *Budget {
	b := &Budget{MaxTokens: l.maxTokens, Files: make([]FileEstimate, 0, len(paths))}
	for _, p := range paths {
		tokens := missingFileTokens
		if info, err := l.fio.Stat(p); err == nil {
			tokens = EstimateTokens(info.Size())
		}
		b.Files = append(b.Files, FileEstimate{Path: p, Tokens: tokens})
		b.Tokens += tokens
	}
	usage := float64(b.Tokens) / float64(b.MaxTokens)
	b.UsagePercent = usage * 100
	b.Status = StatusFor(usage)
	b.Recommendation = Recommendation(b.Status)
	return b
}
