package fsutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// LockFileName is the lock file created in an output directory.
const LockFileName = ".sthmatters.lock"

// DirLock is a cross-process lock on an output directory. It keeps two
// sthmatters processes from writing artifacts into the same directory at once.
type DirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDirLock returns an unlocked lock for dir.
func NewDirLock(dir string) *DirLock {
	path := filepath.Join(dir, LockFileName)
	return &DirLock{path: path, flock: flock.New(path)}
}

// Lock waits up to timeout for the lock. A zero timeout tries once.
func (l *DirLock) Lock(timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var (
		acquired bool
		err      error
	)
	if timeout > 0 {
		acquired, err = l.flock.TryLockContext(ctx, 50*time.Millisecond)
	} else {
		acquired, err = l.flock.TryLock()
	}
	if err != nil && !acquired {
		if ctx.Err() != nil {
			return fmt.Errorf("output directory is locked by another process (lock: %s)", l.path)
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("output directory is locked by another process (lock: %s)", l.path)
	}

	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call on an unlocked DirLock.
func (l *DirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.path
}
