package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/solodevflow/solodev/internal/fileio"
)

// Repository owns the on-disk representation of the state and history files.
// Reads are served from an in-memory cache until the TTL expires.
type Repository struct {
	fio  *fileio.FileIO
	opts options

	mu       sync.Mutex
	cached   *State
	cachedAt time.Time
}

// NewRepository creates a repository over fio.
func NewRepository(fio *fileio.FileIO, opts ...Option) *Repository {
	return &Repository{
		fio:  fio,
		opts: buildOptions(opts),
	}
}

// StatePath returns the state file path relative to the filesystem root.
func (r *Repository) StatePath() string {
	return path.Join(r.opts.baseDir, StateFile)
}

// HistoryPath returns the history file path relative to the filesystem root.
func (r *Repository) HistoryPath() string {
	return path.Join(r.opts.baseDir, HistoryFile)
}

// BackupDir returns the directory that holds migration backups.
func (r *Repository) BackupDir() string {
	return path.Join(r.opts.baseDir, BackupDir)
}

// FileIO returns the underlying file wrapper.
func (r *Repository) FileIO() *fileio.FileIO {
	return r.fio
}

// Exists reports whether the state file is present.
func (r *Repository) Exists() bool {
	return r.fio.Exists(r.StatePath())
}

// Read returns the current state. A cached copy younger than the TTL is
// returned as-is; callers share that pointer.
func (r *Repository) Read() (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil && r.opts.now().Sub(r.cachedAt) < r.opts.cacheTTL {
		return r.cached, nil
	}

	p := r.StatePath()
	data, err := r.fio.ReadRaw(p)
	if err != nil {
		if errors.Is(err, fileio.ErrNotExist) {
			return nil, NewStateFileNotFoundError(p)
		}
		return nil, err
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		line, col := fileio.ErrorPosition(data, err)
		r.opts.logger.Warn("state file corrupted", "path", p, "line", line, "column", col, "error", err)
		return nil, NewStateFileCorruptedError(p, err, line, col)
	}
	st.normalize()

	r.cached = &st
	r.cachedAt = r.opts.now()
	r.opts.logger.Debug("state loaded", "path", p, "bytes", len(data))
	return r.cached, nil
}

// Write persists st and makes it the cached state.
func (r *Repository) Write(st *State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fio.WriteJSON(r.StatePath(), st); err != nil {
		r.cached = nil
		return fmt.Errorf("write state: %w", err)
	}
	r.cached = st
	r.cachedAt = r.opts.now()
	return nil
}

// InvalidateCache drops the cached state so the next Read hits the file.
func (r *Repository) InvalidateCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
}

// CheckFileSize measures the state file against the warning and hard limits.
// A missing file reports zero size and no recommendation.
func (r *Repository) CheckFileSize() FileSizeCheck {
	info, err := r.fio.Stat(r.StatePath())
	if err != nil {
		return FileSizeCheck{}
	}

	sizeKB := float64(info.Size()) / 1024
	check := FileSizeCheck{
		SizeKB:      sizeKB,
		IsOverLimit: sizeKB > r.opts.sizeLimitKB,
		IsWarning:   sizeKB > r.opts.sizeWarningKB,
	}
	switch {
	case check.IsOverLimit:
		check.Recommendation = fmt.Sprintf(
			"state file is %.1fKB and exceeds the %.0fKB limit; migrate completed iterations to %s now (solodev complete-iteration)",
			sizeKB, r.opts.sizeLimitKB, HistoryFile)
	case check.IsWarning:
		check.Recommendation = fmt.Sprintf(
			"state file is %.1fKB and approaching the %.0fKB limit; consider migrating completed iterations to %s",
			sizeKB, r.opts.sizeLimitKB, HistoryFile)
	}
	return check
}

// HistoryExists reports whether the history file is present.
func (r *Repository) HistoryExists() bool {
	return r.fio.Exists(r.HistoryPath())
}

// ReadHistory loads the archive. A missing file yields an empty archive.
func (r *Repository) ReadHistory() (*HistoricalState, error) {
	var hist HistoricalState
	if err := r.fio.ReadJSON(r.HistoryPath(), &hist); err != nil {
		if errors.Is(err, fileio.ErrNotExist) {
			return &HistoricalState{
				SchemaVersion:       SchemaVersion,
				CompletedIterations: map[string]*HistoricalIteration{},
			}, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}
	if hist.CompletedIterations == nil {
		hist.CompletedIterations = map[string]*HistoricalIteration{}
	}
	if hist.SchemaVersion == "" {
		hist.SchemaVersion = SchemaVersion
	}
	return &hist, nil
}

// WriteHistory persists the archive.
func (r *Repository) WriteHistory(hist *HistoricalState) error {
	if err := r.fio.WriteJSON(r.HistoryPath(), hist); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
