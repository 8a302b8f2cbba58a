package state

import "github.com/solodevflow/solodev/internal/fileio"

// Manager wires FileIO, Repository and Service together. Every Service
// operation is available on the Manager directly.
type Manager struct {
	*Service
	repo *Repository
}

// NewManager builds a manager over fio. Options apply to both the repository
// and the service.
func NewManager(fio *fileio.FileIO, opts ...Option) *Manager {
	repo := NewRepository(fio, opts...)
	return &Manager{
		Service: NewService(repo, opts...),
		repo:    repo,
	}
}

// NewManagerForDir builds a manager for the project rooted at dir on disk.
func NewManagerForDir(dir string, opts ...Option) *Manager {
	return NewManager(fileio.NewOS(dir), opts...)
}

// Repository returns the underlying repository.
func (m *Manager) Repository() *Repository {
	return m.repo
}

// Exists reports whether the state file is present.
func (m *Manager) Exists() bool {
	return m.repo.Exists()
}

// InvalidateCache drops the cached state.
func (m *Manager) InvalidateCache() {
	m.repo.InvalidateCache()
}

// StatePath returns the state file path relative to the project root.
func (m *Manager) StatePath() string {
	return m.repo.StatePath()
}
