package store

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/docsentinel/docsentinel/internal/driftcore"
)

// writeLock enforces the single-writer scheduling model with an advisory
// file lock on the store directory, the same mechanism the teacher's daemon
// package uses to keep two instances from racing on startup -- here it
// guards scan writes instead of process ownership.
type writeLock struct {
	flock *flock.Flock
}

func acquireWriteLock(storeDir string) (*writeLock, error) {
	lockPath := filepath.Join(storeDir, ".write.lock")
	fl := flock.New(lockPath)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("store: acquiring write lock: %w", err)
	}
	if !locked {
		return nil, driftcore.ErrStoreLocked
	}
	return &writeLock{flock: fl}, nil
}

func (l *writeLock) release() error {
	return l.flock.Unlock()
}
