package lock

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileName is the lock file created inside a staging directory.
const FileName = ".datafetch.lock"

// FileLock wraps gofrs/flock for a staging directory.
type FileLock struct {
	fl   *flock.Flock
	path string
}

// New returns the lock guarding dir. The directory must exist.
func New(dir string) *FileLock {
	name := filepath.Join(filepath.Clean(dir), FileName)
	return &FileLock{fl: flock.New(name), path: name}
}

// Path of the lock file.
func (l *FileLock) Path() string { return l.path }

// TryLock attempts non-blocking lock.
func (l *FileLock) TryLock() (bool, error) {
	return l.fl.TryLock()
}

// Unlock releases.
func (l *FileLock) Unlock() error {
	if err := l.fl.Unlock(); err != nil {
		return err
	}
	// Best-effort cleanup; another fetch may already hold a new lock on it.
	_ = os.Remove(l.path)
	return nil
}
