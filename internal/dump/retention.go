package dump

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// Retention is the age after which staged dumps are swept.
const Retention = 24 * time.Hour

var stagedName = regexp.MustCompile(`db-dump-(\d+)\.sql$`)

// StagedName returns the file name for a dump started at t.
func StagedName(t time.Time) string {
	return fmt.Sprintf("db-dump-%d.sql", t.Unix())
}

// Sweep deletes staged dumps in dir whose embedded timestamp is older than
// Retention relative to now. It returns the removed paths.
func Sweep(dir string, now time.Time) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "db-dump-*.sql"))
	if err != nil {
		return nil, err
	}
	cutoff := now.Add(-Retention).Unix()
	var removed []string
	for _, path := range matches {
		m := stagedName.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		ts, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || ts >= cutoff {
			continue
		}
		if err := os.Remove(path); err != nil {
			slog.Warn("retention sweep: remove failed", "path", path, "err", err)
			continue
		}
		slog.Info("retention sweep: removed stale dump", "path", path)
		removed = append(removed, path)
	}
	return removed, nil
}
