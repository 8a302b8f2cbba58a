package state

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MigrationStep tracks how far an archival transaction got.
type MigrationStep string

const (
	StepStarted       MigrationStep = "started"
	StepBackupCreated MigrationStep = "backup_created"
	StepHistoryWrite  MigrationStep = "history_written"
	StepStateCleaned  MigrationStep = "state_cleaned"
	StepCompleted     MigrationStep = "completed"
	StepRolledBack    MigrationStep = "rolled_back"
)

// MigrationResult reports an archival transaction.
type MigrationResult struct {
	Result
	TransactionID         string          `json:"transactionId"`
	MigratedIterationID   string          `json:"migratedIterationId,omitempty"`
	NewCurrentIterationID string          `json:"newCurrentIterationId,omitempty"`
	Steps                 []MigrationStep `json:"steps"`
	Backups               []string        `json:"backups,omitempty"`
}

type migration struct {
	repo          *Repository
	res           *MigrationResult
	hadHistory    bool
	stateBackup   string
	historyBackup string
}

func (m *migration) step(s MigrationStep) {
	m.res.Steps = append(m.res.Steps, s)
}

// backup copies both files into the backup directory under the transaction id.
func (m *migration) backup() error {
	fio := m.repo.FileIO()
	dir := m.repo.BackupDir()
	m.stateBackup = path.Join(dir, fmt.Sprintf("state-%s.json", m.res.TransactionID))
	if err := fio.Copy(m.repo.StatePath(), m.stateBackup); err != nil {
		return fmt.Errorf("back up state: %w", err)
	}
	m.res.Backups = append(m.res.Backups, m.stateBackup)

	m.hadHistory = m.repo.HistoryExists()
	if m.hadHistory {
		m.historyBackup = path.Join(dir, fmt.Sprintf("state_his-%s.json", m.res.TransactionID))
		if err := fio.Copy(m.repo.HistoryPath(), m.historyBackup); err != nil {
			return fmt.Errorf("back up history: %w", err)
		}
		m.res.Backups = append(m.res.Backups, m.historyBackup)
	}
	return nil
}

// restore puts the backed-up files back in place.
func (m *migration) restore() error {
	fio := m.repo.FileIO()
	defer m.repo.InvalidateCache()
	if err := fio.Copy(m.stateBackup, m.repo.StatePath()); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	if m.hadHistory {
		if err := fio.Copy(m.historyBackup, m.repo.HistoryPath()); err != nil {
			return fmt.Errorf("restore history: %w", err)
		}
		return nil
	}
	return fio.Delete(m.repo.HistoryPath())
}

// ArchiveIteration moves the current iteration, once its deployment phase is
// approved, into the history file and starts the next iteration. Both files
// are backed up first and restored if any later step fails.
func (s *Service) ArchiveIteration(summary string) (*MigrationResult, error) {
	res := &MigrationResult{TransactionID: uuid.NewString(), Steps: []MigrationStep{}}
	st, it, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}
	dep := it.Phases.Deployment
	if dep.Status != PhaseApproved && dep.Status != PhaseCompleted {
		res.Result = failed("%s: deployment phase of %s is %s, not approved", ErrMigrationNotReady, it.ID, dep.Status)
		return res, nil
	}

	log := s.opts.logger.With("tx", res.TransactionID, "iteration", it.ID)
	m := &migration{repo: s.repo, res: res}
	m.step(StepStarted)

	if err := m.backup(); err != nil {
		return nil, err
	}
	m.step(StepBackupCreated)
	log.Debug("migration backups created", "backups", res.Backups)

	fail := func(cause error) (*MigrationResult, error) {
		log.Warn("migration failed, restoring backups", "error", cause)
		if rerr := m.restore(); rerr != nil {
			return res, fmt.Errorf("archive %s: %w (restore failed: %v)", it.ID, cause, rerr)
		}
		m.step(StepRolledBack)
		return res, fmt.Errorf("archive %s: %w", it.ID, cause)
	}

	hist, err := s.repo.ReadHistory()
	if err != nil {
		return fail(err)
	}

	now := s.timestamp()
	it.Status = IterationDeployed
	it.DeployedAt = now
	if it.CompletedAt == "" {
		it.CompletedAt = now
	}
	if it.Git == nil {
		it.Git = &IterationGit{}
	}
	if it.Git.EndCommit == "" {
		it.Git.EndCommit = st.Metadata.LastGitCommit
	}

	var tasks, keep []Task
	for _, t := range st.GlobalTasks.Completed {
		if t.Iteration == it.ID {
			tasks = append(tasks, t)
		} else {
			keep = append(keep, t)
		}
	}
	if tasks == nil {
		tasks = []Task{}
	}
	if keep == nil {
		keep = []Task{}
	}

	hist.CompletedIterations[it.ID] = &HistoricalIteration{
		ID:            it.ID,
		Version:       it.Version,
		Goal:          it.Goal,
		Status:        it.Status,
		StartedAt:     it.StartedAt,
		CompletedAt:   it.CompletedAt,
		DeployedAt:    it.DeployedAt,
		GitTag:        it.Git.Tag,
		Phases:        it.Phases,
		Tasks:         tasks,
		ChangeHistory: st.ChangeHistory,
		Summary:       summary,
		Stats:         iterationStats(it, tasks, st.ChangeHistory, s.opts.now().UTC()),
	}
	if err := s.repo.WriteHistory(hist); err != nil {
		return fail(err)
	}
	m.step(StepHistoryWrite)

	next := newIteration(nextIterationID(it.ID, len(hist.CompletedIterations)), nextVersion(it.Version), "", now, st.Metadata.LastGitCommit)
	delete(st.Iterations, it.ID)
	st.Iterations[next.ID] = next
	st.CurrentIteration = next.ID
	st.GlobalTasks.Completed = keep
	st.ChangeHistory = []Change{}
	s.recordChange(st, Change{
		Type:        ChangeIterationCompleted,
		Description: fmt.Sprintf("archive %s and start %s", it.ID, next.ID),
		Notes:       summary,
		Changes: []ChangeDetail{
			{Field: "currentIteration", From: it.ID, To: next.ID},
			{Field: fmt.Sprintf("iterations.%s.status", it.ID), From: IterationInProgress, To: IterationDeployed},
		},
	})
	if err := s.persist(st); err != nil {
		return fail(err)
	}
	m.step(StepStateCleaned)
	m.step(StepCompleted)

	log.Info("iteration archived", "next", next.ID)
	res.Success = true
	res.MigratedIterationID = it.ID
	res.NewCurrentIterationID = next.ID
	return res, nil
}

func iterationStats(it *Iteration, tasks []Task, changes []Change, now time.Time) *IterationStats {
	modules := map[string]struct{}{}
	for _, p := range AllPhases() {
		for name := range it.Phases.Get(p).Modules {
			modules[name] = struct{}{}
		}
	}
	rollbacks := 0
	for _, c := range changes {
		if c.Type == ChangeRollback {
			rollbacks++
		}
	}
	days := 0
	if started, err := ParseTimestamp(it.StartedAt); err == nil {
		days = int(now.Sub(started).Hours() / 24)
	}
	return &IterationStats{
		TotalModules:  len(modules),
		TotalTasks:    len(tasks),
		RollbackCount: rollbacks,
		DurationDays:  days,
	}
}

// nextIterationID increments the numeric suffix of id ("iteration-3" -> "iteration-4").
// Ids without a numeric suffix continue from the archive size.
func nextIterationID(id string, archived int) string {
	if n, err := strconv.Atoi(strings.TrimPrefix(id, "iteration-")); err == nil {
		return fmt.Sprintf("iteration-%d", n+1)
	}
	return fmt.Sprintf("iteration-%d", archived+1)
}

// nextVersion bumps the minor component of a semantic version.
func nextVersion(v string) string {
	parts := strings.Split(strings.TrimPrefix(v, "v"), ".")
	if len(parts) != 3 {
		return v
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return v
	}
	return fmt.Sprintf("%d.%d.0", major, minor+1)
}

// GetHistory returns the archive of completed iterations.
func (s *Service) GetHistory() (*HistoricalState, error) {
	return s.repo.ReadHistory()
}

// GetHistoricalIteration returns one archived iteration.
func (s *Service) GetHistoricalIteration(id string) (*HistoricalIteration, error) {
	hist, err := s.repo.ReadHistory()
	if err != nil {
		return nil, err
	}
	hi, ok := hist.CompletedIterations[id]
	if !ok {
		return nil, fmt.Errorf("%w in history: %s", ErrIterationNotFound, id)
	}
	return hi, nil
}
