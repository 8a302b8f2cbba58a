package state

import (
	"errors"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solodevflow/solodev/internal/fileio"
)

// advanceToDeployment walks a fresh project through every phase and approves
// deployment.
func advanceToDeployment(t *testing.T, m *Manager) {
	t.Helper()
	startWithModule(t, m, "auth")
	_, err := m.ApproveModule(PhaseRequirements, "auth", "alice", nil)
	require.NoError(t, err)
	for range 4 {
		approveAndAdvance(t, m)
	}
	res, err := m.ApprovePhase(PhaseDeployment, "alice")
	require.NoError(t, err)
	require.True(t, res.Success, res.Errors)
}

func TestArchiveIteration(t *testing.T) {
	m, _ := newTestManager(t)
	advanceToDeployment(t, m)

	st, err := m.GetState()
	require.NoError(t, err)
	st.GlobalTasks.Completed = append(st.GlobalTasks.Completed,
		Task{ID: "t1", Title: "write docs", Iteration: "iteration-1"},
		Task{ID: "t2", Title: "carry over", Iteration: "iteration-0"},
	)
	liveChanges := len(st.ChangeHistory)

	res, err := m.ArchiveIteration("first release")
	require.NoError(t, err)
	require.True(t, res.Success, res.Errors)
	assert.NotEmpty(t, res.TransactionID)
	assert.Equal(t, "iteration-1", res.MigratedIterationID)
	assert.Equal(t, "iteration-2", res.NewCurrentIterationID)
	assert.Equal(t, []MigrationStep{StepStarted, StepBackupCreated, StepHistoryWrite, StepStateCleaned, StepCompleted}, res.Steps)
	require.Len(t, res.Backups, 1, "no history file existed, so only state is backed up")
	assert.True(t, m.Repository().FileIO().Exists(res.Backups[0]))

	st, err = m.GetState()
	require.NoError(t, err)
	assert.Equal(t, "iteration-2", st.CurrentIteration)
	assert.NotContains(t, st.Iterations, "iteration-1")
	next := st.CurrentIterationState()
	require.NotNil(t, next)
	assert.Equal(t, "0.2.0", next.Version)
	assert.Equal(t, IterationPlanning, next.Status)
	require.Len(t, st.ChangeHistory, 1)
	assert.Equal(t, ChangeIterationCompleted, st.ChangeHistory[0].Type)
	require.Len(t, st.GlobalTasks.Completed, 1)
	assert.Equal(t, "t2", st.GlobalTasks.Completed[0].ID)

	hi, err := m.GetHistoricalIteration("iteration-1")
	require.NoError(t, err)
	assert.Equal(t, IterationDeployed, hi.Status)
	assert.Equal(t, "first release", hi.Summary)
	assert.Len(t, hi.ChangeHistory, liveChanges)
	require.Len(t, hi.Tasks, 1)
	require.NotNil(t, hi.Stats)
	assert.Equal(t, 1, hi.Stats.TotalModules)
	assert.Equal(t, 1, hi.Stats.TotalTasks)
	assert.Equal(t, "alice", hi.Phases.Requirements.Modules["auth"].ApprovedBy)
	assert.Equal(t, "abc123", st.Iterations["iteration-2"].Git.StartCommit)

	_, err = m.GetHistoricalIteration("iteration-7")
	assert.ErrorIs(t, err, ErrIterationNotFound)
}

func TestArchiveIteration_NotReady(t *testing.T) {
	m, _ := newTestManager(t)
	startWithModule(t, m, "auth")

	res, err := m.ArchiveIteration("")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors[0], "not ready")
	assert.False(t, m.Repository().HistoryExists())
}

// renameFailFS fails renames onto one path so a single write can be broken.
type renameFailFS struct {
	billy.Filesystem
	target string
}

func (f *renameFailFS) Rename(from, to string) error {
	if to == f.target {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: errors.New("disk full")}
	}
	return f.Filesystem.Rename(from, to)
}

func TestArchiveIteration_RestoresOnFailure(t *testing.T) {
	clock := newFakeClock()
	fs := &renameFailFS{Filesystem: memfs.New()}
	m := NewManager(fileio.New(fs), WithClock(clock.Now))
	_, err := m.Initialize(InitOptions{ProjectName: "demo"})
	require.NoError(t, err)
	advanceToDeployment(t, m)

	fs.target = m.Repository().HistoryPath()
	res, err := m.ArchiveIteration("boom")
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StepRolledBack, res.Steps[len(res.Steps)-1])
	assert.False(t, m.Repository().HistoryExists())

	it, err := m.GetCurrentIteration()
	require.NoError(t, err)
	assert.Equal(t, "iteration-1", it.ID)
	assert.Equal(t, PhaseApproved, it.Phases.Deployment.Status)
}

func TestNextIterationIDAndVersion(t *testing.T) {
	tests := []struct {
		id, version     string
		wantID, wantVer string
	}{
		{"iteration-1", "0.1.0", "iteration-2", "0.2.0"},
		{"iteration-12", "v1.9.3", "iteration-13", "1.10.0"},
		{"alpha", "next", "iteration-3", "next"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := nextIterationID(tt.id, 2); got != tt.wantID {
				t.Errorf("nextIterationID(%q) = %q, want %q", tt.id, got, tt.wantID)
			}
			if got := nextVersion(tt.version); got != tt.wantVer {
				t.Errorf("nextVersion(%q) = %q, want %q", tt.version, got, tt.wantVer)
			}
		})
	}
}
