// Package socketlock provides a named single-instance file lock: at most
// one process holds the lock for a given name under a directory at a
// time (the serve command takes the one named "gateway"). The locking concept (exclusive, non-blocking, lock file
// removed on release) is grounded on the teacher pack's
// elleryfamilia-thicc/internal/session/session.go, which does the same
// thing directly with syscall.Flock; this package instead uses
// github.com/gofrs/flock (already in the teacher's own go.mod) for a
// portable, higher-level advisory lock.
package socketlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Acquire when another process already holds
// the lock for this session.
var ErrLocked = fmt.Errorf("socketlock: session already locked by another process")

// Lock is an acquired single-instance lock for one session. Release it
// with Release when the session ends.
type Lock struct {
	fl *flock.Flock
}

// Path returns the lock file path for a given session ID under dir.
func Path(dir, sessionID string) string {
	return filepath.Join(dir, sessionID+".lock")
}

// Acquire attempts to take an exclusive, non-blocking lock on the lock
// file for sessionID under dir. Returns ErrLocked if another process
// already holds it.
func Acquire(dir, sessionID string) (*Lock, error) {
	path := Path(dir, sessionID)
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("socketlock: acquire %s: %w", path, err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return &Lock{fl: fl}, nil
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	path := l.fl.Path()
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("socketlock: release %s: %w", path, err)
	}
	os.Remove(path)
	return nil
}
