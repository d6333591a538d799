package rsync

import (
	"context"
	"path/filepath"

	"github.com/vbp1/datafetch/internal/process"
)

// Config holds parameters common for every rsync pull in a session.
type Config struct {
	Binary  string   // default "rsync"
	Options []string // extra rsync options, passed verbatim
	Shell   string   // value for -e, e.g. "ssh -p 2222"
}

// BuildCmd constructs the command pulling src (a remote user@host:path location)
// into the local directory dstDir.
func (c Config) BuildCmd(src, dstDir string) process.Cmd {
	bin := c.Binary
	if bin == "" {
		bin = "rsync"
	}
	args := []string{"-P"}
	args = append(args, c.Options...)
	// Always enable stats for post-processing
	args = append(args, "--stats")
	if c.Shell != "" {
		args = append(args, "-e", c.Shell)
	}
	args = append(args, src, filepath.Clean(dstDir)+"/")
	return process.Cmd{Name: bin, Args: args}
}

// Pull runs the pull and hands every stdout line (split on CR and LF, since
// rsync rewrites progress lines in place) to onLine.
func (c Config) Pull(ctx context.Context, r process.Runner, src, dstDir string, onLine func(string)) process.Result {
	lw := &LineWriter{Fn: onLine}
	res := r.Run(ctx, c.BuildCmd(src, dstDir), func(s process.Stream, p []byte) error {
		if s == process.Stdout && onLine != nil {
			_, _ = lw.Write(p)
		}
		return nil
	})
	lw.Flush()
	return res
}
