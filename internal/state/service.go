package state

import (
	"fmt"
	"slices"
	"strings"
)

// Result is the outcome of a state mutation. Business rule violations are
// reported in Errors with Success false; I/O failures are returned as errors.
type Result struct {
	Success  bool     `json:"success"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func failed(format string, args ...any) Result {
	return Result{Errors: []string{fmt.Sprintf(format, args...)}}
}

// TransitionResult reports a phase start or transition.
type TransitionResult struct {
	Result
	From Phase `json:"from,omitempty"`
	To   Phase `json:"to"`
}

// Err returns the rejection as a *TransitionError, or nil when the
// transition succeeded.
func (r *TransitionResult) Err() error {
	if r.Success || len(r.Errors) == 0 {
		return nil
	}
	return &TransitionError{From: r.From, To: r.To, Reasons: r.Errors}
}

// ApprovalResult reports a phase or module approval.
type ApprovalResult struct {
	Result
	Phase      Phase  `json:"phase"`
	Module     string `json:"module,omitempty"`
	ApprovedBy string `json:"approvedBy,omitempty"`
	ApprovedAt string `json:"approvedAt,omitempty"`
}

// RollbackResult reports a rollback and the modules it reopened.
type RollbackResult struct {
	Result
	From            Phase    `json:"from"`
	To              Phase    `json:"to"`
	Reason          string   `json:"reason"`
	AffectedModules []string `json:"affectedModules"`
}

// ModuleResult reports a module status change or registration.
type ModuleResult struct {
	Result
	Phase  Phase        `json:"phase"`
	Module string       `json:"module"`
	Status ModuleStatus `json:"status"`
}

// InitOptions describes a new project.
type InitOptions struct {
	ProjectName string
	Description string
	Type        ProjectType
	StartCommit string
}

// RegisterOptions describes a module added to the dependency graph.
type RegisterOptions struct {
	// Phase receives a pending entry for the module. Empty means the current phase.
	Phase       Phase
	Priority    Priority
	DependsOn   []string
	Description string
	Foundation  bool
}

// TestSubPhaseUpdate is applied by UpdateTestSubPhase.
type TestSubPhaseUpdate struct {
	Status TestSubPhaseStatus
	By     string
	Reason string
	Plan   string
	Code   string
	Report string
}

// Service owns every mutation of the state. Each call reads the state,
// validates, mutates it in memory, records a Change and persists.
type Service struct {
	repo *Repository
	opts options
}

// NewService creates a service over repo.
func NewService(repo *Repository, opts ...Option) *Service {
	return &Service{
		repo: repo,
		opts: buildOptions(opts),
	}
}

func (s *Service) timestamp() string {
	return FormatTimestamp(s.opts.now())
}

// recordChange stamps and appends c, then bumps the change counters.
func (s *Service) recordChange(st *State, c Change) {
	ts := s.timestamp()
	c.Timestamp = ts
	c.ChangedBy = ChangedByAI
	if c.Changes == nil {
		c.Changes = []ChangeDetail{}
	}
	st.ChangeHistory = append(st.ChangeHistory, c)
	st.Metadata.TotalStateChanges++
	st.Metadata.LastUpdatedAt = ts
	st.Metadata.LastUpdatedBy = ChangedByAI
	st.Project.UpdatedAt = ts
}

func (s *Service) persist(st *State) error {
	return s.repo.Write(st)
}

// loadCurrent returns the state and its current iteration.
func (s *Service) loadCurrent() (*State, *Iteration, error) {
	st, err := s.repo.Read()
	if err != nil {
		return nil, nil, err
	}
	it := st.CurrentIterationState()
	if it == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrIterationNotFound, st.CurrentIteration)
	}
	return st, it, nil
}

// Initialize creates the state file for a new project.
func (s *Service) Initialize(in InitOptions) (*State, error) {
	if s.repo.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrStateExists, s.repo.StatePath())
	}
	if in.Type == "" {
		in.Type = ProjectTool
	}

	now := s.timestamp()
	it := newIteration("iteration-1", "0.1.0", in.Description, now, in.StartCommit)
	st := &State{
		SchemaVersion: SchemaVersion,
		Project: Project{
			Name:        in.ProjectName,
			Description: in.Description,
			Type:        in.Type,
			CreatedAt:   now,
		},
		CurrentIteration: it.ID,
		Iterations:       map[string]*Iteration{it.ID: it},
		Settings: Settings{
			AutoReadHistory:                   false,
			RequireApprovalForPhaseTransition: true,
		},
		Metadata: Metadata{
			LastGitCommit:    in.StartCommit,
			StateFileVersion: 1,
		},
	}
	st.normalize()
	s.recordChange(st, Change{
		Type:        ChangeInit,
		Description: fmt.Sprintf("initialize project %s", in.ProjectName),
		Changes: []ChangeDetail{
			{Field: "project.name", From: nil, To: in.ProjectName},
			{Field: "currentIteration", From: nil, To: it.ID},
		},
	})

	if err := s.persist(st); err != nil {
		return nil, err
	}
	s.opts.logger.Info("project initialized", "project", in.ProjectName, "iteration", it.ID)
	return st, nil
}

func newIteration(id, version, goal, now, startCommit string) *Iteration {
	it := &Iteration{
		ID:           id,
		Version:      version,
		Goal:         goal,
		Status:       IterationPlanning,
		StartedAt:    now,
		CurrentPhase: PhaseRequirements,
	}
	if startCommit != "" {
		it.Git = &IterationGit{StartCommit: startCommit}
	}
	it.Phases.normalize()
	return it
}

// StartPhase begins phase. Requirements may only start on an iteration that has
// not started yet; later phases follow the TransitionPhase rules.
func (s *Service) StartPhase(phase Phase) (*TransitionResult, error) {
	if !phase.IsValid() {
		return &TransitionResult{Result: failed("invalid phase: %s", phase), To: phase}, nil
	}
	if phase != PhaseRequirements {
		return s.TransitionPhase(phase)
	}

	st, it, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}
	req := it.Phases.Requirements
	res := &TransitionResult{To: phase}
	if it.Status != IterationPlanning || req.Status != PhasePending {
		res.Result = failed("iteration %s has already started (status %s, requirements %s)", it.ID, it.Status, req.Status)
		return res, nil
	}

	now := s.timestamp()
	it.Status = IterationInProgress
	it.CurrentPhase = PhaseRequirements
	req.Status = PhaseInProgress
	req.StartedAt = now
	s.recordChange(st, Change{
		Type:        ChangePhaseTransition,
		Description: "start requirements phase",
		Changes: []ChangeDetail{
			{Field: fmt.Sprintf("iterations.%s.status", it.ID), From: IterationPlanning, To: IterationInProgress},
			{Field: "phases.requirements.status", From: PhasePending, To: PhaseInProgress},
		},
	})
	if err := s.persist(st); err != nil {
		return nil, err
	}
	res.Success = true
	return res, nil
}

// TransitionPhase moves the iteration from its current phase to target. Every
// violated rule is reported and nothing is applied unless all pass.
func (s *Service) TransitionPhase(target Phase) (*TransitionResult, error) {
	st, it, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}
	current := it.CurrentPhase
	res := &TransitionResult{From: current, To: target}

	if !current.IsValid() {
		res.Result = failed("invalid source phase: %s", current)
		return res, nil
	}
	if !target.IsValid() {
		res.Result = failed("invalid target phase: %s", target)
		return res, nil
	}

	if target.Index() != current.Index()+1 {
		res.Errors = append(res.Errors, fmt.Sprintf("can only transition to the next phase: current %s, target %s", current, target))
	}
	cur := it.Phases.Get(current)
	if cur.Status != PhaseApproved {
		res.Errors = append(res.Errors, fmt.Sprintf("phase %s is not approved yet", current))
	}
	for _, name := range unfinishedModules(cur) {
		res.Errors = append(res.Errors, fmt.Sprintf("module %s is not completed", name))
	}
	if len(res.Errors) > 0 {
		s.opts.logger.Debug("transition rejected", "from", current, "to", target, "errors", res.Errors)
		return res, nil
	}

	now := s.timestamp()
	next := it.Phases.Get(target)
	cur.Status = PhaseCompleted
	cur.CompletedAt = now
	next.Status = PhaseInProgress
	next.StartedAt = now
	it.CurrentPhase = target
	s.recordChange(st, Change{
		Type:        ChangePhaseTransition,
		Description: fmt.Sprintf("transition from %s to %s", current, target),
		Changes: []ChangeDetail{
			{Field: "currentPhase", From: current, To: target},
			{Field: fmt.Sprintf("phases.%s.status", current), From: PhaseApproved, To: PhaseCompleted},
			{Field: fmt.Sprintf("phases.%s.status", target), From: PhasePending, To: PhaseInProgress},
		},
	})
	if err := s.persist(st); err != nil {
		return nil, err
	}
	s.opts.logger.Info("phase transitioned", "from", current, "to", target)
	res.Success = true
	return res, nil
}

// unfinishedModules returns the sorted names of modules not yet done.
func unfinishedModules(p *PhaseState) []string {
	var names []string
	for _, name := range p.ModuleNames() {
		if !p.Modules[name].Status.IsDone() {
			names = append(names, name)
		}
	}
	return names
}

// ApprovePhase approves phase. Pending phases, phases after the current one
// and already-approved phases are rejected.
func (s *Service) ApprovePhase(phase Phase, approvedBy string) (*ApprovalResult, error) {
	res := &ApprovalResult{Phase: phase}
	if !phase.IsValid() {
		res.Result = failed("invalid phase: %s", phase)
		return res, nil
	}
	st, it, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}

	ps := it.Phases.Get(phase)
	switch {
	case ps.Status == PhaseApproved:
		res.Result = failed("phase %s is already approved", phase)
		return res, nil
	case ps.Status == PhaseCompleted:
		res.Result = failed("phase %s is already completed", phase)
		return res, nil
	case ps.Status == PhasePending || phase.Index() > it.CurrentPhase.Index():
		res.Result = failed("phase %s has not started", phase)
		return res, nil
	}

	now := s.timestamp()
	from := ps.Status
	ps.Status = PhaseApproved
	ps.ApprovedAt = now
	ps.ApprovedBy = approvedBy
	if pending := unfinishedModules(ps); len(pending) > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("modules not completed: %s", strings.Join(pending, ", ")))
	}
	s.recordChange(st, Change{
		Type:        ChangeApproval,
		Description: fmt.Sprintf("approve phase %s", phase),
		Decision:    "approved",
		Changes: []ChangeDetail{
			{Field: fmt.Sprintf("phases.%s.status", phase), From: from, To: PhaseApproved},
			{Field: fmt.Sprintf("phases.%s.approvedAt", phase), From: nil, To: now},
		},
	})
	if err := s.persist(st); err != nil {
		return nil, err
	}
	s.opts.logger.Info("phase approved", "phase", phase, "by", approvedBy)
	res.Success = true
	res.ApprovedBy = approvedBy
	res.ApprovedAt = now
	return res, nil
}

// lookupModule returns the module entry in ps. A module declared in the
// dependency graph but absent from the phase gets a pending entry.
func lookupModule(st *State, ps *PhaseState, module string) (*ModuleState, bool) {
	if m, ok := ps.Modules[module]; ok && m != nil {
		return m, true
	}
	if _, declared := st.ModuleDependencies[module]; !declared {
		return nil, false
	}
	m := &ModuleState{Status: ModulePending, Priority: PriorityP1, Artifacts: []string{}}
	ps.Modules[module] = m
	return m, true
}

// ApproveModule approves module within phase and appends artifacts.
func (s *Service) ApproveModule(phase Phase, module, approvedBy string, artifacts []string) (*ApprovalResult, error) {
	res := &ApprovalResult{Phase: phase, Module: module}
	if !phase.IsValid() {
		res.Result = failed("invalid phase: %s", phase)
		return res, nil
	}
	st, it, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}

	ps := it.Phases.Get(phase)
	m, ok := lookupModule(st, ps, module)
	if !ok {
		res.Result = failed("module %s not found in phase %s", module, phase)
		return res, nil
	}

	now := s.timestamp()
	from := m.Status
	m.Status = ModuleApproved
	m.ApprovedAt = now
	m.ApprovedBy = approvedBy
	m.Artifacts = appendUnique(m.Artifacts, artifacts...)
	refreshProcess(ps)

	field := fmt.Sprintf("phases.%s.modules.%s", phase, module)
	s.recordChange(st, Change{
		Type:        ChangeApproval,
		Description: fmt.Sprintf("approve module %s in %s", module, phase),
		Decision:    "approved",
		Artifacts:   artifacts,
		Changes: []ChangeDetail{
			{Field: field + ".status", From: from, To: ModuleApproved},
			{Field: field + ".approvedAt", From: nil, To: now},
		},
	})
	if err := s.persist(st); err != nil {
		return nil, err
	}
	s.opts.logger.Info("module approved", "phase", phase, "module", module, "by", approvedBy)
	res.Success = true
	res.ApprovedBy = approvedBy
	res.ApprovedAt = now
	return res, nil
}

// RollbackToPhase reopens an earlier phase. Phases after target up to the
// current one go back to pending, and the target's finished modules are
// marked rolled_back.
func (s *Service) RollbackToPhase(target Phase, reason string) (*RollbackResult, error) {
	res := &RollbackResult{To: target, Reason: reason, AffectedModules: []string{}}
	if !target.IsValid() {
		res.Result = failed("invalid target phase: %s", target)
		return res, nil
	}
	st, it, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}
	current := it.CurrentPhase
	res.From = current
	if target.Index() >= current.Index() {
		res.Result = failed("cannot roll back: target %s is not before current phase %s", target, current)
		return res, nil
	}
	if strings.TrimSpace(reason) == "" {
		res.Result = failed("a rollback reason is required")
		return res, nil
	}

	now := s.timestamp()
	details := []ChangeDetail{{Field: "currentPhase", From: current, To: target}}

	for _, p := range AllPhases()[target.Index()+1 : current.Index()+1] {
		ps := it.Phases.Get(p)
		details = append(details, ChangeDetail{Field: fmt.Sprintf("phases.%s.status", p), From: ps.Status, To: PhasePending})
		ps.Status = PhasePending
		ps.StartedAt = ""
		ps.ApprovedAt = ""
		ps.ApprovedBy = ""
		ps.CompletedAt = ""
		ps.CurrentProcess = nil
	}

	tp := it.Phases.Get(target)
	details = append(details, ChangeDetail{Field: fmt.Sprintf("phases.%s.status", target), From: tp.Status, To: PhaseInProgress})
	tp.Status = PhaseInProgress
	tp.ApprovedAt = ""
	tp.ApprovedBy = ""
	tp.CompletedAt = ""

	for _, name := range tp.ModuleNames() {
		m := tp.Modules[name]
		if m.Status != ModuleApproved && m.Status != ModuleCompleted {
			continue
		}
		if m.ApprovedAt != "" {
			m.PreviousApprovedAt = m.ApprovedAt
		}
		m.Status = ModuleRolledBack
		m.ApprovedAt = ""
		m.ApprovedBy = ""
		m.RollbackHistory = append(m.RollbackHistory, RollbackEntry{
			RolledBackAt: now,
			Reason:       reason,
			FromPhase:    current,
			ToPhase:      target,
		})
		res.AffectedModules = append(res.AffectedModules, name)
	}
	refreshProcess(tp)
	it.CurrentPhase = target

	s.recordChange(st, Change{
		Type:        ChangeRollback,
		Description: fmt.Sprintf("roll back from %s to %s: %s", current, target, reason),
		Notes:       reason,
		Changes:     details,
	})
	if err := s.persist(st); err != nil {
		return nil, err
	}
	s.opts.logger.Info("rolled back", "from", current, "to", target, "modules", len(res.AffectedModules))
	res.Success = true
	return res, nil
}

// UpdateModuleStatus sets the status of module in phase and appends artifacts.
func (s *Service) UpdateModuleStatus(phase Phase, module string, status ModuleStatus, artifacts []string) (*ModuleResult, error) {
	res := &ModuleResult{Phase: phase, Module: module, Status: status}
	if !phase.IsValid() {
		res.Result = failed("invalid phase: %s", phase)
		return res, nil
	}
	if !slices.Contains(AllModuleStatuses(), status) {
		res.Result = failed("invalid module status: %s", status)
		return res, nil
	}
	st, it, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}

	ps := it.Phases.Get(phase)
	m, ok := lookupModule(st, ps, module)
	if !ok {
		res.Result = failed("module %s not found in phase %s", module, phase)
		return res, nil
	}

	now := s.timestamp()
	from := m.Status
	m.Status = status
	if status == ModuleInProgress && m.StartedAt == "" {
		m.StartedAt = now
	}
	if status == ModuleCompleted {
		m.CompletedAt = now
	}
	m.Artifacts = appendUnique(m.Artifacts, artifacts...)
	if status == ModuleInProgress {
		if ps.CurrentProcess == nil {
			ps.CurrentProcess = &CurrentProcess{}
		}
		ps.CurrentProcess.CurrentModule = module
	}
	refreshProcess(ps)

	changeType := ChangeModuleStatus
	if status == ModuleCompleted {
		changeType = ChangeModuleCompleted
	}
	s.recordChange(st, Change{
		Type:        changeType,
		Description: fmt.Sprintf("module %s in %s: %s -> %s", module, phase, from, status),
		Artifacts:   artifacts,
		Changes: []ChangeDetail{
			{Field: fmt.Sprintf("phases.%s.modules.%s.status", phase, module), From: from, To: status},
		},
	})
	if err := s.persist(st); err != nil {
		return nil, err
	}
	res.Success = true
	return res, nil
}

// RegisterModule declares module in the dependency graph and adds a pending
// entry to a phase.
func (s *Service) RegisterModule(module string, in RegisterOptions) (*ModuleResult, error) {
	st, it, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}
	phase := in.Phase
	if phase == "" {
		phase = it.CurrentPhase
	}
	res := &ModuleResult{Phase: phase, Module: module, Status: ModulePending}

	module = strings.TrimSpace(module)
	switch {
	case module == "":
		res.Result = failed("module name is required")
		return res, nil
	case !phase.IsValid():
		res.Result = failed("invalid phase: %s", phase)
		return res, nil
	}
	if _, exists := st.ModuleDependencies[module]; exists {
		res.Result = failed("%s: %s", ErrModuleExists, module)
		return res, nil
	}
	for _, dep := range in.DependsOn {
		if dep == module {
			res.Errors = append(res.Errors, fmt.Sprintf("module %s cannot depend on itself", module))
			continue
		}
		if _, ok := st.ModuleDependencies[dep]; !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("unknown dependency: %s", dep))
		}
	}
	if len(res.Errors) > 0 {
		return res, nil
	}

	priority := in.Priority
	if priority == "" {
		priority = PriorityP1
	}
	deps := appendUnique([]string{}, in.DependsOn...)
	st.ModuleDependencies[module] = &ModuleDependency{
		DependsOn:    deps,
		DependedBy:   []string{},
		IsFoundation: in.Foundation,
		Description:  in.Description,
	}
	for _, dep := range deps {
		d := st.ModuleDependencies[dep]
		d.DependedBy = appendUnique(d.DependedBy, module)
	}

	ps := it.Phases.Get(phase)
	if _, ok := ps.Modules[module]; !ok {
		ps.Modules[module] = &ModuleState{
			Status:      ModulePending,
			Priority:    priority,
			Description: in.Description,
			Artifacts:   []string{},
		}
	}
	refreshProcess(ps)

	s.recordChange(st, Change{
		Type:        ChangeModuleStatus,
		Description: fmt.Sprintf("register module %s in %s", module, phase),
		Changes: []ChangeDetail{
			{Field: "moduleDependencies." + module, From: nil, To: deps},
			{Field: fmt.Sprintf("phases.%s.modules.%s.status", phase, module), From: nil, To: ModulePending},
		},
	})
	if err := s.persist(st); err != nil {
		return nil, err
	}
	res.Module = module
	res.Success = true
	return res, nil
}

// UpdateTestSubPhase moves a testing sub-phase through its lifecycle.
func (s *Service) UpdateTestSubPhase(sub TestSubPhase, up TestSubPhaseUpdate) (*Result, error) {
	if !slices.Contains(AllTestSubPhases(), sub) {
		res := failed("invalid test sub-phase: %s", sub)
		return &res, nil
	}
	if !slices.Contains(AllTestSubPhaseStatuses(), up.Status) {
		res := failed("invalid test sub-phase status: %s", up.Status)
		return &res, nil
	}
	st, it, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if it.CurrentPhase != PhaseTesting {
		res.Warnings = append(res.Warnings, fmt.Sprintf("current phase is %s, not testing", it.CurrentPhase))
	}

	tsp := it.Phases.Testing.TestPhases.Get(sub)
	now := s.timestamp()
	from := tsp.Status
	tsp.Status = up.Status
	switch up.Status {
	case TestPlanApproved:
		tsp.PlanApprovedAt = now
		tsp.PlanApprovedBy = up.By
	case TestExecuting:
		tsp.ExecutedAt = now
	case TestPassed:
		tsp.PassedAt = now
		tsp.FailureReason = ""
	case TestFailed:
		tsp.FailedAt = now
		tsp.FailureReason = up.Reason
	}
	if up.Plan != "" {
		tsp.Artifacts.Plan = up.Plan
	}
	if up.Code != "" {
		tsp.Artifacts.Code = up.Code
	}
	if up.Report != "" {
		tsp.Artifacts.Report = up.Report
	}

	s.recordChange(st, Change{
		Type:        ChangeModuleStatus,
		Description: fmt.Sprintf("testing %s: %s -> %s", sub, from, up.Status),
		Notes:       up.Reason,
		Changes: []ChangeDetail{
			{Field: fmt.Sprintf("phases.testing.testPhases.%s.status", sub), From: from, To: up.Status},
		},
	})
	if err := s.persist(st); err != nil {
		return nil, err
	}
	res.Success = true
	return res, nil
}

// UpdateGitMetadata records the latest commit. It bumps the file version but
// does not add a change history entry.
func (s *Service) UpdateGitMetadata(commit, message, committedAt string) error {
	st, err := s.repo.Read()
	if err != nil {
		return err
	}
	now := s.timestamp()
	if committedAt == "" {
		committedAt = now
	}
	st.Metadata.LastGitCommit = commit
	st.Metadata.LastGitCommitMessage = message
	st.Metadata.LastGitCommitAt = committedAt
	st.Metadata.StateFileVersion++
	st.Metadata.TotalStateChanges++
	st.Metadata.LastUpdatedAt = now
	st.Metadata.LastUpdatedBy = ChangedByAI
	return s.persist(st)
}

// GetState returns the current state.
func (s *Service) GetState() (*State, error) {
	return s.repo.Read()
}

// GetCurrentIteration returns the current iteration.
func (s *Service) GetCurrentIteration() (*Iteration, error) {
	_, it, err := s.loadCurrent()
	return it, err
}

// GetCurrentPhase returns the current phase of the current iteration.
func (s *Service) GetCurrentPhase() (Phase, error) {
	_, it, err := s.loadCurrent()
	if err != nil {
		return "", err
	}
	return it.CurrentPhase, nil
}

// GetPhase returns the state of phase in the current iteration.
func (s *Service) GetPhase(phase Phase) (*PhaseState, error) {
	if !phase.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPhase, phase)
	}
	_, it, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}
	return it.Phases.Get(phase), nil
}

// GetModule returns module within phase of the current iteration.
func (s *Service) GetModule(phase Phase, module string) (*ModuleState, error) {
	ps, err := s.GetPhase(phase)
	if err != nil {
		return nil, err
	}
	m, ok := ps.Modules[module]
	if !ok || m == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrModuleNotFound, module, phase)
	}
	return m, nil
}

// CheckFileSize reports the state file size against the configured limits.
func (s *Service) CheckFileSize() FileSizeCheck {
	return s.repo.CheckFileSize()
}

// refreshProcess recomputes the completed and remaining module lists of ps.
func refreshProcess(ps *PhaseState) {
	if len(ps.Modules) == 0 && ps.CurrentProcess == nil {
		return
	}
	if ps.CurrentProcess == nil {
		ps.CurrentProcess = &CurrentProcess{}
	}
	cp := ps.CurrentProcess
	cp.CompletedModules = []string{}
	cp.RemainingModules = []string{}
	for _, name := range ps.ModuleNames() {
		if ps.Modules[name].Status.IsDone() {
			cp.CompletedModules = append(cp.CompletedModules, name)
		} else {
			cp.RemainingModules = append(cp.RemainingModules, name)
		}
	}
	if !slices.Contains(cp.RemainingModules, cp.CurrentModule) {
		cp.CurrentModule = ""
		if len(cp.RemainingModules) > 0 {
			cp.CurrentModule = cp.RemainingModules[0]
		}
	}
	switch {
	case cp.CurrentModule != "":
		cp.NextAction = "continue module " + cp.CurrentModule
	case ps.Status == PhaseApproved || ps.Status == PhaseCompleted:
		cp.NextAction = ""
	default:
		cp.NextAction = "approve phase"
	}
}

// appendUnique appends the items not already present in dst, keeping order.
func appendUnique(dst []string, items ...string) []string {
	if dst == nil {
		dst = []string{}
	}
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || slices.Contains(dst, item) {
			continue
		}
		dst = append(dst, item)
	}
	return dst
}
