// Package state implements the solodev state model: the JSON state document,
// its cached repository, and the service that owns every mutation of it.
package state

import (
	"encoding/json"
	"sort"
	"time"
)

// Paths of the files owned by the repository, relative to the project root.
const (
	DefaultBaseDir = ".solodev"
	StateFile      = "state.json"
	HistoryFile    = "state_his.json"
	BackupDir      = "backups"
	LockFile       = ".state.lock"

	// SchemaVersion is written into new state and history documents.
	SchemaVersion = "1.0.0"
)

// Priority ranks modules and tasks.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
)

// ChangedBy identifies who made a change.
type ChangedBy string

const (
	ChangedByAI    ChangedBy = "ai"
	ChangedByHuman ChangedBy = "human"
)

// ProjectType classifies the project.
type ProjectType string

const (
	ProjectBackend   ProjectType = "backend"
	ProjectFrontend  ProjectType = "frontend"
	ProjectFullstack ProjectType = "fullstack"
	ProjectLibrary   ProjectType = "library"
	ProjectTool      ProjectType = "tool"
)

// IterationStatus is the lifecycle status of an iteration.
type IterationStatus string

const (
	IterationPlanning   IterationStatus = "planning"
	IterationInProgress IterationStatus = "in_progress"
	IterationCompleted  IterationStatus = "completed"
	IterationDeployed   IterationStatus = "deployed"
)

// PhaseStatus is the status of a phase within an iteration.
type PhaseStatus string

const (
	PhasePending    PhaseStatus = "pending"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseApproved   PhaseStatus = "approved"
	PhaseCompleted  PhaseStatus = "completed"
)

// ModuleStatus is the status of a module within a phase.
type ModuleStatus string

const (
	ModulePending            ModuleStatus = "pending"
	ModuleInProgress         ModuleStatus = "in_progress"
	ModulePartiallyClarified ModuleStatus = "partially_clarified"
	ModuleApproved           ModuleStatus = "approved"
	ModuleCompleted          ModuleStatus = "completed"
	ModuleRolledBack         ModuleStatus = "rolled_back"
	ModulePartial            ModuleStatus = "partial"
	ModuleNotApplicable      ModuleStatus = "not_applicable"
)

// AllModuleStatuses returns every module status.
func AllModuleStatuses() []ModuleStatus {
	return []ModuleStatus{
		ModulePending, ModuleInProgress, ModulePartiallyClarified, ModuleApproved,
		ModuleCompleted, ModuleRolledBack, ModulePartial, ModuleNotApplicable,
	}
}

// IsDone reports whether the status allows the phase to move on.
func (s ModuleStatus) IsDone() bool {
	return s == ModuleCompleted || s == ModuleApproved || s == ModuleNotApplicable
}

// TestSubPhaseStatus is the status of a testing sub-phase.
type TestSubPhaseStatus string

const (
	TestPending        TestSubPhaseStatus = "pending"
	TestPlanInProgress TestSubPhaseStatus = "plan_in_progress"
	TestPlanApproved   TestSubPhaseStatus = "plan_approved"
	TestExecuting      TestSubPhaseStatus = "executing"
	TestPassed         TestSubPhaseStatus = "passed"
	TestFailed         TestSubPhaseStatus = "failed"
)

// AllTestSubPhaseStatuses returns every testing sub-phase status.
func AllTestSubPhaseStatuses() []TestSubPhaseStatus {
	return []TestSubPhaseStatus{
		TestPending, TestPlanInProgress, TestPlanApproved, TestExecuting, TestPassed, TestFailed,
	}
}

// ChangeType classifies a change history entry.
type ChangeType string

const (
	ChangeInit                   ChangeType = "init"
	ChangeBootstrap              ChangeType = "bootstrap"
	ChangePhaseTransition        ChangeType = "phase_transition"
	ChangeModuleStatus           ChangeType = "module_status_change"
	ChangeModuleCompleted        ChangeType = "module_completed"
	ChangeApproval               ChangeType = "approval"
	ChangeRollback               ChangeType = "rollback"
	ChangeTaskCompleted          ChangeType = "task_completed"
	ChangeIterationCompleted     ChangeType = "iteration_completed"
	ChangeArchitectureSupplement ChangeType = "architecture_supplement"
	ChangeHotfix                 ChangeType = "hotfix"
)

// State is the complete project state stored in .solodev/state.json.
type State struct {
	SchemaVersion      string                       `json:"schema_version"`
	Project            Project                      `json:"project"`
	Bootstrap          *Bootstrap                   `json:"bootstrap,omitempty"`
	CurrentIteration   string                       `json:"currentIteration"`
	Iterations         map[string]*Iteration        `json:"iterations"`
	ModuleDependencies map[string]*ModuleDependency `json:"moduleDependencies"`
	GlobalTasks        GlobalTasks                  `json:"globalTasks"`
	ChangeHistory      []Change                     `json:"changeHistory"`
	Settings           Settings                     `json:"settings"`
	Metadata           Metadata                     `json:"metadata"`
	TemplateVersions   map[string]string            `json:"templateVersions,omitempty"`
}

// Project holds basic project information.
type Project struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        ProjectType `json:"type"`
	CreatedAt   string      `json:"createdAt"`
	UpdatedAt   string      `json:"updatedAt,omitempty"`
}

// Bootstrap describes a self-hosting bootstrap in progress.
type Bootstrap struct {
	IsBootstrapping  bool   `json:"isBootstrapping"`
	Stage            string `json:"stage"`
	StageDescription string `json:"stageDescription"`
	StageStartedAt   string `json:"stageStartedAt"`
}

// Iteration is one full pass through the five phases.
type Iteration struct {
	ID           string          `json:"id"`
	Version      string          `json:"version"`
	Goal         string          `json:"goal,omitempty"`
	Status       IterationStatus `json:"status"`
	StartedAt    string          `json:"startedAt"`
	CompletedAt  string          `json:"completedAt,omitempty"`
	DeployedAt   string          `json:"deployedAt,omitempty"`
	CurrentPhase Phase           `json:"currentPhase"`
	Phases       Phases          `json:"phases"`
	Git          *IterationGit   `json:"git,omitempty"`
}

// IterationGit records the git boundaries of an iteration.
type IterationGit struct {
	StartCommit string `json:"startCommit"`
	EndCommit   string `json:"endCommit,omitempty"`
	Tag         string `json:"tag,omitempty"`
}

// Phases holds the fixed set of phase states of an iteration.
type Phases struct {
	Requirements   *PhaseState `json:"requirements"`
	Architecture   *PhaseState `json:"architecture"`
	Implementation *PhaseState `json:"implementation"`
	Testing        *PhaseState `json:"testing"`
	Deployment     *PhaseState `json:"deployment"`
}

// Get returns the state of phase p, or nil for an unknown phase.
func (ps *Phases) Get(p Phase) *PhaseState {
	switch p {
	case PhaseRequirements:
		return ps.Requirements
	case PhaseArchitecture:
		return ps.Architecture
	case PhaseImplementation:
		return ps.Implementation
	case PhaseTesting:
		return ps.Testing
	case PhaseDeployment:
		return ps.Deployment
	default:
		return nil
	}
}

// set stores s as the state of phase p.
func (ps *Phases) set(p Phase, s *PhaseState) {
	switch p {
	case PhaseRequirements:
		ps.Requirements = s
	case PhaseArchitecture:
		ps.Architecture = s
	case PhaseImplementation:
		ps.Implementation = s
	case PhaseTesting:
		ps.Testing = s
	case PhaseDeployment:
		ps.Deployment = s
	}
}

// PhaseState is the status of one phase and its modules.
type PhaseState struct {
	Status         PhaseStatus             `json:"status"`
	StartedAt      string                  `json:"startedAt,omitempty"`
	ApprovedAt     string                  `json:"approvedAt,omitempty"`
	ApprovedBy     string                  `json:"approvedBy,omitempty"`
	CompletedAt    string                  `json:"completedAt,omitempty"`
	Modules        map[string]*ModuleState `json:"modules"`
	CurrentProcess *CurrentProcess         `json:"currentProcess,omitempty"`

	// TestPhases is only populated for the testing phase.
	TestPhases *TestPhases `json:"testPhases,omitempty"`
}

// ModuleNames returns the phase's module names in sorted order.
func (p *PhaseState) ModuleNames() []string {
	names := make([]string, 0, len(p.Modules))
	for name := range p.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CurrentProcess tracks in-flight work within a phase.
type CurrentProcess struct {
	CurrentModule    string   `json:"currentModule"`
	CompletedModules []string `json:"completedModules"`
	RemainingModules []string `json:"remainingModules"`
	NextAction       string   `json:"nextAction"`
}

// TestPhases holds the testing sub-phases.
type TestPhases struct {
	E2E         *TestSubPhaseState `json:"e2e"`
	Performance *TestSubPhaseState `json:"performance"`
	Chaos       *TestSubPhaseState `json:"chaos"`
}

// Get returns the sub-phase state for sub, or nil when unknown.
func (tp *TestPhases) Get(sub TestSubPhase) *TestSubPhaseState {
	switch sub {
	case TestSubPhaseE2E:
		return tp.E2E
	case TestSubPhasePerformance:
		return tp.Performance
	case TestSubPhaseChaos:
		return tp.Chaos
	default:
		return nil
	}
}

// TestSubPhaseState is the lifecycle of one testing sub-phase.
type TestSubPhaseState struct {
	Status         TestSubPhaseStatus    `json:"status"`
	PlanApprovedAt string                `json:"planApprovedAt,omitempty"`
	PlanApprovedBy string                `json:"planApprovedBy,omitempty"`
	ExecutedAt     string                `json:"executedAt,omitempty"`
	PassedAt       string                `json:"passedAt,omitempty"`
	FailedAt       string                `json:"failedAt,omitempty"`
	FailureReason  string                `json:"failureReason,omitempty"`
	Artifacts      TestSubPhaseArtifacts `json:"artifacts"`
}

// TestSubPhaseArtifacts are the documents produced by a testing sub-phase.
type TestSubPhaseArtifacts struct {
	Plan   string `json:"plan"`
	Code   string `json:"code,omitempty"`
	Report string `json:"report,omitempty"`
}

// ModuleState is the status of one module within a phase.
type ModuleState struct {
	Status             ModuleStatus    `json:"status"`
	Priority           Priority        `json:"priority"`
	StartedAt          string          `json:"startedAt,omitempty"`
	ApprovedAt         string          `json:"approvedAt,omitempty"`
	ApprovedBy         string          `json:"approvedBy,omitempty"`
	CompletedAt        string          `json:"completedAt,omitempty"`
	Artifacts          []string        `json:"artifacts"`
	Reviewer           string          `json:"reviewer,omitempty"`
	PendingQuestions   []string        `json:"pendingQuestions,omitempty"`
	ClarifiedAspects   []string        `json:"clarifiedAspects,omitempty"`
	PreviousApprovedAt string          `json:"previousApprovedAt,omitempty"`
	RollbackHistory    []RollbackEntry `json:"rollbackHistory,omitempty"`
	Description        string          `json:"description,omitempty"`
	ImplementedFiles   []string        `json:"implementedFiles,omitempty"`
}

// RollbackEntry records one rollback affecting a module.
type RollbackEntry struct {
	RolledBackAt string `json:"rolledBackAt"`
	Reason       string `json:"reason"`
	FromPhase    Phase  `json:"fromPhase"`
	ToPhase      Phase  `json:"toPhase"`
}

// ModuleDependency is a node of the module dependency graph.
type ModuleDependency struct {
	DependsOn         []string           `json:"dependsOn"`
	DependedBy        []string           `json:"dependedBy"`
	IsFoundation      bool               `json:"isFoundation,omitempty"`
	Description       string             `json:"description,omitempty"`
	IntegrationPoints []IntegrationPoint `json:"integrationPoints,omitempty"`
}

// IntegrationPoint describes how a module talks to another.
type IntegrationPoint struct {
	TargetModule  string `json:"targetModule"`
	Interface     string `json:"interface"`
	Purpose       string `json:"purpose"`
	DataFlow      string `json:"dataFlow"`
	ErrorHandling string `json:"errorHandling"`
	Complexity    string `json:"complexity"`
}

// GlobalTasks groups tasks by status.
type GlobalTasks struct {
	Pending    []Task `json:"pending"`
	InProgress []Task `json:"in_progress,omitempty"`
	Completed  []Task `json:"completed"`
}

// Task is a unit of follow-up work.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority"`
	Iteration   string   `json:"iteration,omitempty"`
	Phase       string   `json:"phase,omitempty"`
	Module      string   `json:"module,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	CompletedAt string   `json:"completedAt,omitempty"`
	Resolution  string   `json:"resolution,omitempty"`
}

// Change is an append-only change history entry.
type Change struct {
	Timestamp      string         `json:"timestamp"`
	Type           ChangeType     `json:"type"`
	Description    string         `json:"description"`
	ChangedBy      ChangedBy      `json:"changedBy"`
	Changes        []ChangeDetail `json:"changes"`
	Decision       string         `json:"decision,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	ReviewFeedback []string       `json:"reviewFeedback,omitempty"`
	Artifacts      []string       `json:"artifacts,omitempty"`
}

// ChangeDetail is a field-level diff.
type ChangeDetail struct {
	Field string `json:"field"`
	From  any    `json:"from"`
	To    any    `json:"to"`
}

// Settings holds workflow settings. Unknown keys are preserved in Extra.
type Settings struct {
	AutoReadHistory                   bool
	RequireApprovalForPhaseTransition bool
	Extra                             map[string]any
}

const (
	settingAutoReadHistory = "autoReadHistory"
	settingRequireApproval = "requireApprovalForPhaseTransition"
)

// MarshalJSON flattens Extra alongside the known settings.
func (s Settings) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+2)
	for k, v := range s.Extra {
		out[k] = v
	}
	out[settingAutoReadHistory] = s.AutoReadHistory
	out[settingRequireApproval] = s.RequireApprovalForPhaseTransition
	return json.Marshal(out)
}

// UnmarshalJSON reads the known settings and keeps the rest in Extra.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Settings{}
	if v, ok := raw[settingAutoReadHistory].(bool); ok {
		s.AutoReadHistory = v
	}
	if v, ok := raw[settingRequireApproval].(bool); ok {
		s.RequireApprovalForPhaseTransition = v
	}
	delete(raw, settingAutoReadHistory)
	delete(raw, settingRequireApproval)
	if len(raw) > 0 {
		s.Extra = raw
	}
	return nil
}

// Metadata holds git info and version counters.
type Metadata struct {
	LastGitCommit        string    `json:"lastGitCommit"`
	LastGitCommitMessage string    `json:"lastGitCommitMessage"`
	LastGitCommitAt      string    `json:"lastGitCommitAt"`
	StateFileVersion     int       `json:"stateFileVersion"`
	TotalStateChanges    int       `json:"totalStateChanges"`
	LastUpdatedAt        string    `json:"lastUpdatedAt,omitempty"`
	LastUpdatedBy        ChangedBy `json:"lastUpdatedBy,omitempty"`
}

// HistoricalState is the archive document stored in .solodev/state_his.json.
type HistoricalState struct {
	SchemaVersion       string                          `json:"schema_version"`
	CompletedIterations map[string]*HistoricalIteration `json:"completedIterations"`
}

// HistoricalIteration is an archived iteration with its tasks and changes.
type HistoricalIteration struct {
	ID            string          `json:"id"`
	Version       string          `json:"version"`
	Goal          string          `json:"goal"`
	Status        IterationStatus `json:"status"`
	StartedAt     string          `json:"startedAt"`
	CompletedAt   string          `json:"completedAt"`
	DeployedAt    string          `json:"deployedAt"`
	GitTag        string          `json:"gitTag"`
	Phases        Phases          `json:"phases"`
	Tasks         []Task          `json:"tasks"`
	ChangeHistory []Change        `json:"changeHistory"`
	Summary       string          `json:"summary"`
	Stats         *IterationStats `json:"stats,omitempty"`
}

// IterationStats summarizes an archived iteration.
type IterationStats struct {
	TotalModules  int `json:"totalModules"`
	TotalTasks    int `json:"totalTasks"`
	RollbackCount int `json:"rollbackCount"`
	DurationDays  int `json:"durationDays"`
}

// FileSizeCheck reports the state file size against the thresholds.
type FileSizeCheck struct {
	SizeKB         float64 `json:"sizeKB"`
	IsOverLimit    bool    `json:"isOverLimit"`
	IsWarning      bool    `json:"isWarning"`
	Recommendation string  `json:"recommendation,omitempty"`
}

// ProgressSummary is a compact view of where the current iteration stands.
type ProgressSummary struct {
	CurrentIteration  string `json:"currentIteration"`
	CurrentPhase      Phase  `json:"currentPhase"`
	CurrentModule     string `json:"currentModule,omitempty"`
	CompletedModules  int    `json:"completedModules"`
	RemainingModules  int    `json:"remainingModules"`
	LastAction        string `json:"lastAction"`
	LastActionTime    string `json:"lastActionTime"`
	SuggestedNextStep string `json:"suggestedNextStep"`
}

// timestampLayout matches millisecond-precision UTC ISO-8601 timestamps.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in the state file's timestamp format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp parses a state file timestamp. Any RFC 3339 value is accepted.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// normalize fills nil maps and phase entries so callers can mutate freely.
func (s *State) normalize() {
	if s.Iterations == nil {
		s.Iterations = map[string]*Iteration{}
	}
	if s.ModuleDependencies == nil {
		s.ModuleDependencies = map[string]*ModuleDependency{}
	}
	if s.ChangeHistory == nil {
		s.ChangeHistory = []Change{}
	}
	if s.GlobalTasks.Pending == nil {
		s.GlobalTasks.Pending = []Task{}
	}
	if s.GlobalTasks.Completed == nil {
		s.GlobalTasks.Completed = []Task{}
	}
	for _, it := range s.Iterations {
		if it == nil {
			continue
		}
		it.Phases.normalize()
	}
}

func (ps *Phases) normalize() {
	for _, p := range AllPhases() {
		phase := ps.Get(p)
		if phase == nil {
			phase = &PhaseState{Status: PhasePending}
			ps.set(p, phase)
		}
		if phase.Modules == nil {
			phase.Modules = map[string]*ModuleState{}
		}
		for _, m := range phase.Modules {
			if m != nil && m.Artifacts == nil {
				m.Artifacts = []string{}
			}
		}
	}
	if ps.Testing.TestPhases == nil {
		ps.Testing.TestPhases = newTestPhases()
	}
}

func newTestPhases() *TestPhases {
	sub := func() *TestSubPhaseState {
		return &TestSubPhaseState{Status: TestPending}
	}
	return &TestPhases{E2E: sub(), Performance: sub(), Chaos: sub()}
}

// CurrentIterationState returns the current iteration, or nil when the
// currentIteration key is missing from iterations.
func (s *State) CurrentIterationState() *Iteration {
	if s == nil || s.Iterations == nil {
		return nil
	}
	return s.Iterations[s.CurrentIteration]
}
