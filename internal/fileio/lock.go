package fileio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockPollInterval is how often acquisition is retried while the lock is held elsewhere.
const lockPollInterval = 50 * time.Millisecond

// StateLock is an advisory, cross-process exclusive lock guarding the state
// file's read-modify-write cycle. The lock file lives next to the state file.
type StateLock struct {
	flock   *flock.Flock
	timeout time.Duration
}

// NewStateLock creates a lock backed by the file at path. A zero timeout means
// a single non-blocking attempt.
func NewStateLock(path string, timeout time.Duration) *StateLock {
	return &StateLock{
		flock:   flock.New(path),
		timeout: timeout,
	}
}

// Path returns the lock file path.
func (l *StateLock) Path() string {
	return l.flock.Path()
}

// Acquire takes the exclusive lock, polling until ctx is done or the timeout
// elapses.
func (l *StateLock) Acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), dirPerm); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	if l.timeout <= 0 {
		locked, err := l.flock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire state lock: %w", err)
		}
		if !locked {
			return ErrLockTimeout
		}
		return nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	locked, err := l.flock.TryLockContext(lockCtx, lockPollInterval)
	if err != nil {
		if lockCtx.Err() != nil {
			return fmt.Errorf("%w after %s", ErrLockTimeout, l.timeout)
		}
		return fmt.Errorf("acquire state lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w after %s", ErrLockTimeout, l.timeout)
	}
	return nil
}

// Release drops the lock. Safe to call more than once.
func (l *StateLock) Release() error {
	return l.flock.Unlock()
}

// WithStateLock runs fn while holding the lock at path.
func WithStateLock(ctx context.Context, path string, timeout time.Duration, fn func() error) error {
	lock := NewStateLock(path, timeout)
	if err := lock.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		_ = lock.Release()
	}()
	return fn()
}
