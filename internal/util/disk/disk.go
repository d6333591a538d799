// Package disk answers free-space questions about local filesystems.
package disk

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// Space holds free and total bytes of a filesystem.
type Space struct {
	Free  uint64 // available to unprivileged users
	Total uint64
}

// Usage stats the filesystem containing path.
func Usage(path string) (Space, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Space{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := uint64(st.Bsize)
	return Space{Free: uint64(st.Bavail) * bsize, Total: uint64(st.Blocks) * bsize}, nil
}

// EnsureFree fails when the filesystem of dir has less than need bytes available.
func EnsureFree(dir string, need uint64) error {
	sp, err := Usage(dir)
	if err != nil {
		return err
	}
	if sp.Free < need {
		return fmt.Errorf("insufficient space on %s: free %s, need %s", dir, humanize.IBytes(sp.Free), humanize.IBytes(need))
	}
	return nil
}
