// Package runctx owns the local staging directory of one fetch.
package runctx

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/vbp1/datafetch/internal/failure"
	"github.com/vbp1/datafetch/internal/lock"
	"github.com/vbp1/datafetch/internal/util/fs"
)

// RunCtx is an exclusively locked staging directory. Files in it are never
// removed wholesale; callers delete what they created on success.
type RunCtx struct {
	Dir  string
	lock *lock.FileLock
}

// New creates dir if needed and locks it. A staging directory already in
// use by another fetch yields FetchFailed.
func New(dir string) (*RunCtx, error) {
	if err := fs.MkdirP(dir); err != nil {
		return nil, failure.New(failure.KindFetch, "create staging dir", err)
	}
	l := lock.New(dir)
	ok, err := l.TryLock()
	if err != nil {
		return nil, failure.New(failure.KindFetch, "lock staging dir", err)
	}
	if !ok {
		return nil, failure.New(failure.KindFetch, "lock staging dir",
			fmt.Errorf("%s is in use by another fetch", dir))
	}
	slog.Debug("staging dir locked", "dir", dir, "lock", l.Path())
	return &RunCtx{Dir: dir, lock: l}, nil
}

// Release unlocks the directory. Contents are left in place.
func (r *RunCtx) Release() error {
	return r.lock.Unlock()
}

// Path joins run dir with subpath.
func (r *RunCtx) Path(elem ...string) string {
	return filepath.Join(append([]string{r.Dir}, elem...)...)
}

func (r *RunCtx) String() string { return fmt.Sprintf("RunCtx(%s)", r.Dir) }
