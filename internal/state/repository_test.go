package state

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solodevflow/solodev/internal/fileio"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRepository(t *testing.T) (*Repository, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return NewRepository(fileio.NewMemory(), WithClock(clock.Now)), clock
}

func TestRepository_ReadMissing(t *testing.T) {
	repo, _ := newTestRepository(t)
	assert.False(t, repo.Exists())

	_, err := repo.Read()
	var notFound *StateFileNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, CodeStateFileNotFound, notFound.Code)
	assert.Equal(t, ".solodev/state.json", notFound.Path)
	require.Len(t, notFound.Suggestions, 2)
	assert.Equal(t, SuggestRecreate, notFound.Suggestions[0].Type)
	assert.Equal(t, SuggestGitRestore, notFound.Suggestions[1].Type)
}

func TestRepository_ReadCorrupted(t *testing.T) {
	repo, _ := newTestRepository(t)
	bad := "{\n  \"schema_version\": \"1.0.0\",\n  oops\n}\n"
	require.NoError(t, repo.FileIO().WriteRaw(repo.StatePath(), []byte(bad)))

	_, err := repo.Read()
	var corrupted *StateFileCorruptedError
	require.ErrorAs(t, err, &corrupted)
	assert.Equal(t, CodeStateFileCorrupted, corrupted.Code)
	assert.Equal(t, 3, corrupted.Line)
	assert.NotEmpty(t, corrupted.ParseError)
	assert.Len(t, corrupted.Suggestions, 3)
	assert.Contains(t, corrupted.Error(), "line 3")
}

func TestRepository_CacheWithinTTL(t *testing.T) {
	repo, clock := newTestRepository(t)
	svc := NewService(repo, WithClock(clock.Now))
	written, err := svc.Initialize(InitOptions{ProjectName: "demo", Description: "a demo"})
	require.NoError(t, err)

	got, err := repo.Read()
	require.NoError(t, err)
	assert.Same(t, written, got, "read within the TTL should return the cached state")

	repo.InvalidateCache()
	fresh, err := repo.Read()
	require.NoError(t, err)
	assert.NotSame(t, written, fresh)
	assert.Equal(t, written, fresh)
}

func TestRepository_CacheExpires(t *testing.T) {
	repo, clock := newTestRepository(t)
	svc := NewService(repo, WithClock(clock.Now))
	written, err := svc.Initialize(InitOptions{ProjectName: "demo"})
	require.NoError(t, err)

	clock.Advance(4 * time.Second)
	got, err := repo.Read()
	require.NoError(t, err)
	assert.Same(t, written, got)

	clock.Advance(DefaultCacheTTL)
	got, err = repo.Read()
	require.NoError(t, err)
	assert.NotSame(t, written, got)
	assert.Equal(t, "demo", got.Project.Name)
}

func TestRepository_CheckFileSize(t *testing.T) {
	tests := []struct {
		name      string
		sizeKB    int
		wantWarn  bool
		wantLimit bool
		wantRec   string
	}{
		{"small", 10, false, false, ""},
		{"warning", 85, true, false, "approaching"},
		{"over limit", 105, true, true, "exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _ := newTestRepository(t)
			require.NoError(t, repo.FileIO().WriteRaw(repo.StatePath(), make([]byte, tt.sizeKB*1024)))

			check := repo.CheckFileSize()
			assert.InDelta(t, float64(tt.sizeKB), check.SizeKB, 0.001)
			assert.Equal(t, tt.wantWarn, check.IsWarning)
			assert.Equal(t, tt.wantLimit, check.IsOverLimit)
			if tt.wantRec == "" {
				assert.Empty(t, check.Recommendation)
			} else {
				assert.Contains(t, check.Recommendation, tt.wantRec)
			}
		})
	}
}

func TestRepository_CheckFileSizeMissing(t *testing.T) {
	repo, _ := newTestRepository(t)
	assert.Equal(t, FileSizeCheck{}, repo.CheckFileSize())
}

func TestRepository_CustomThresholds(t *testing.T) {
	repo := NewRepository(fileio.NewMemory(), WithSizeThresholds(1, 2))
	require.NoError(t, repo.FileIO().WriteRaw(repo.StatePath(), make([]byte, 3*1024)))

	check := repo.CheckFileSize()
	assert.True(t, check.IsOverLimit)
	assert.True(t, strings.Contains(check.Recommendation, "2KB"))
}

func TestRepository_History(t *testing.T) {
	repo, _ := newTestRepository(t)
	assert.False(t, repo.HistoryExists())

	hist, err := repo.ReadHistory()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, hist.SchemaVersion)
	assert.Empty(t, hist.CompletedIterations)

	hist.CompletedIterations["iteration-1"] = &HistoricalIteration{ID: "iteration-1", Summary: "first"}
	require.NoError(t, repo.WriteHistory(hist))
	assert.True(t, repo.HistoryExists())

	again, err := repo.ReadHistory()
	require.NoError(t, err)
	require.Contains(t, again.CompletedIterations, "iteration-1")
	assert.Equal(t, "first", again.CompletedIterations["iteration-1"].Summary)
}

func TestRepository_HistoryCorrupted(t *testing.T) {
	repo, _ := newTestRepository(t)
	require.NoError(t, repo.FileIO().WriteRaw(repo.HistoryPath(), []byte("{not json")))

	_, err := repo.ReadHistory()
	var parseErr *fileio.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestSettings_PreservesExtraKeys(t *testing.T) {
	repo, _ := newTestRepository(t)
	raw := `{"schema_version":"1.0.0","project":{"name":"x"},"currentIteration":"iteration-1",
"iterations":{"iteration-1":{"id":"iteration-1","currentPhase":"requirements","phases":{}}},
"moduleDependencies":{},"settings":{"autoReadHistory":true,"theme":"dark"},"metadata":{}}`
	require.NoError(t, repo.FileIO().WriteRaw(repo.StatePath(), []byte(raw)))

	st, err := repo.Read()
	require.NoError(t, err)
	assert.True(t, st.Settings.AutoReadHistory)
	assert.Equal(t, "dark", st.Settings.Extra["theme"])

	it := st.CurrentIterationState()
	require.NotNil(t, it)
	require.NotNil(t, it.Phases.Testing, "missing phases are filled in on read")
	assert.Equal(t, PhasePending, it.Phases.Testing.Status)
	assert.NotNil(t, it.Phases.Testing.TestPhases.Chaos)

	require.NoError(t, repo.Write(st))
	data, err := repo.FileIO().ReadRaw(repo.StatePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"theme": "dark"`)
}
