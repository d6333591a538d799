// Package filesync mirrors remote directory trees into the local checkout.
package filesync

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/vbp1/datafetch/internal/failure"
	"github.com/vbp1/datafetch/internal/process"
	"github.com/vbp1/datafetch/internal/progress"
	"github.com/vbp1/datafetch/internal/remote"
	"github.com/vbp1/datafetch/internal/rsync"
	"github.com/vbp1/datafetch/internal/util/fs"
)

// Mapping pairs a path below the remote working directory with a local
// destination directory.
type Mapping struct {
	Src string
	Dst string
}

// NewMapping returns a mapping; an empty dst means the parent of src.
func NewMapping(src, dst string) Mapping {
	if dst == "" {
		dst = filepath.Dir(filepath.Clean(src))
	}
	return Mapping{Src: src, Dst: dst}
}

// Coordinator runs one rsync pull per mapping, sequentially.
type Coordinator struct {
	Target  remote.Target
	Runner  process.Runner
	Options []string // rsync options
	Binary  string   // rsync binary, default "rsync"
}

// Sync processes every mapping in order. A failing mapping does not stop the
// remaining ones; each failure is returned as its own SyncFailed error inside
// a *multierror.Error. Cancellation stops before the next mapping.
func (c *Coordinator) Sync(ctx context.Context, mappings []Mapping, rep *progress.Reporter) error {
	cfg := rsync.Config{Binary: c.Binary, Options: c.Options, Shell: c.Target.RsyncShell()}
	var (
		result *multierror.Error
		total  rsync.Stats
		start  = time.Now()
	)
	for _, m := range mappings {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}
		st, err := c.syncOne(ctx, cfg, m, rep)
		if err != nil {
			slog.Warn("folder sync failed", "src", m.Src, "dst", m.Dst, "err", err)
			result = multierror.Append(result, err)
			continue
		}
		total = total.Add(st)
		rep.OK()
	}
	if len(mappings) > 0 {
		slog.Info("files synced", "mappings", len(mappings), "summary", total.Summary(time.Since(start)))
	}
	return result.ErrorOrNil()
}

func (c *Coordinator) syncOne(ctx context.Context, cfg rsync.Config, m Mapping, rep *progress.Reporter) (rsync.Stats, error) {
	op := fmt.Sprintf("sync %s -> %s", m.Src, m.Dst)
	if err := fs.MkdirP(m.Dst); err != nil {
		return rsync.Stats{}, failure.New(failure.KindSync, op, err)
	}

	rep.Println("Counting files")
	parser := rsync.NewPhaseParser(rep)
	start := time.Now()
	res := cfg.Pull(ctx, c.Runner, c.Target.RemotePath(c.remoteSource(m.Src)), m.Dst, parser.Line)
	if res.Err != nil {
		return rsync.Stats{}, failure.WithOutput(failure.KindSync, op, res.Combined(), res.Err)
	}
	if !parser.Transferring() {
		if rep.State().Ticks > 0 {
			rep.EndStage()
		}
		rep.Println("Files already up-to-date")
	}

	st, err := rsync.ParseStats(bufio.NewScanner(bytes.NewReader(res.Stdout)))
	if err != nil {
		slog.Debug("rsync stats unreadable", "src", m.Src, "err", err)
	}
	slog.Info("folder synced", "src", m.Src, "dst", m.Dst, "summary", st.Summary(time.Since(start)))
	return st, nil
}

func (c *Coordinator) remoteSource(src string) string {
	if c.Target.Dir == "" {
		return src
	}
	return strings.TrimSuffix(c.Target.Dir, "/") + "/" + src
}
