// Package transfer fetches a database dump from the remote host and imports
// it into the local database.
package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"

	"github.com/vbp1/datafetch/internal/dbconn"
	"github.com/vbp1/datafetch/internal/dump"
	"github.com/vbp1/datafetch/internal/failure"
	"github.com/vbp1/datafetch/internal/process"
	"github.com/vbp1/datafetch/internal/progress"
	"github.com/vbp1/datafetch/internal/remote"
	"github.com/vbp1/datafetch/internal/rsync"
	"github.com/vbp1/datafetch/internal/runctx"
	"github.com/vbp1/datafetch/internal/util/disk"
	"github.com/vbp1/datafetch/internal/util/fs"
)

// StreamFile is the staging file name used in stream mode.
const StreamFile = "data-transfer.sql"

const mib = 1 << 20

// Verifier checks the local database after a successful import.
type Verifier interface {
	Verify(ctx context.Context, d dbconn.Descriptor) (int, error)
}

// Coordinator drives export, transfer, validation and import.
type Coordinator struct {
	Target   remote.Target
	Shell    remote.Shell   // remote commands (export, cleanup)
	Runner   process.Runner // local commands (rsync, mysql)
	Resolver dbconn.Resolver
	Staging  *runctx.RunCtx
	Mode     dump.Mode

	RemoteCommand []string // export entry point on the remote host, default ["datafetch"]
	RsyncOptions  []string
	RsyncBinary   string
	ImportBinary  string // default "mysql"
	Verifier      Verifier

	// Bar draws the staged pull as a byte progress bar on BarOutput instead of ticks.
	Bar       bool
	BarOutput io.Writer

	// CleanupBackOff returns the retry policy for removing the remote dump.
	CleanupBackOff func() backoff.BackOff
}

// FetchDatabase runs the whole database stage. The local staging file is
// removed only after a successful import.
func (c *Coordinator) FetchDatabase(ctx context.Context, rep *progress.Reporter) error {
	rep.Println("Fetching database")
	rep.Tick()

	var (
		local string
		err   error
	)
	if c.Mode == dump.StagedFile {
		local, err = c.fetchStaged(ctx, rep)
	} else {
		local, err = c.fetchStream(ctx, rep)
	}
	if err != nil {
		return err
	}

	ok, err := dump.ValidateFile(local)
	if err != nil {
		return failure.New(failure.KindValidation, "read staged dump", err)
	}
	if !ok {
		return failure.New(failure.KindValidation, "validate dump",
			fmt.Errorf("%s lacks the dump begin/completed markers; file kept for inspection", local))
	}
	rep.OK()
	rep.EndStage()

	rep.Println("Importing database")
	d, err := c.Resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if err := c.importDump(ctx, d, local, rep); err != nil {
		return err
	}
	if err := fs.RemoveFile(local); err != nil {
		slog.Warn("remove staging file", "path", local, "err", err)
	}
	rep.Tick()

	if c.Verifier != nil {
		n, err := c.Verifier.Verify(ctx, d)
		if err != nil {
			return failure.New(failure.KindImport, "verify import", err)
		}
		slog.Info("import verified", "database", d.Database, "tables", n)
		rep.OK()
	}
	return nil
}

func (c *Coordinator) exportCommand() string {
	argv := c.RemoteCommand
	if len(argv) == 0 {
		argv = []string{"datafetch"}
	}
	argv = append(append([]string(nil), argv...), "export")
	if c.Target.Env != "" {
		argv = append(argv, "--env="+c.Target.Env)
	}
	if c.Mode == dump.StagedFile {
		argv = append(argv, "--file")
	} else {
		argv = append(argv, "--stream")
	}
	return c.Target.Command(argv...)
}

func (c *Coordinator) fetchStream(ctx context.Context, rep *progress.Reporter) (string, error) {
	local := c.Staging.Path(StreamFile)
	f, err := os.Create(local)
	if err != nil {
		return "", failure.New(failure.KindFetch, "create staging file", err)
	}

	ticks := &byteTicker{rep: rep}
	start := time.Now()
	res := c.Shell.Run(ctx, c.Target, c.exportCommand(), func(s process.Stream, p []byte) error {
		if s != process.Stdout {
			return nil
		}
		if _, err := f.Write(p); err != nil {
			return err
		}
		ticks.add(int64(len(p)))
		return nil
	})
	if err := f.Close(); err != nil && res.Err == nil {
		return "", failure.New(failure.KindFetch, "write staging file", err)
	}
	if err := remoteError(ctx, "fetch dump", res); err != nil {
		return "", err
	}
	slog.Info("dump streamed", "path", local, "size", humanize.IBytes(uint64(ticks.total)), "dur", time.Since(start))
	rep.OK()
	return local, nil
}

func (c *Coordinator) fetchStaged(ctx context.Context, rep *progress.Reporter) (string, error) {
	res := c.Shell.Run(ctx, c.Target, c.exportCommand(), nil)
	if err := remoteError(ctx, "export dump", res); err != nil {
		return "", err
	}
	staged, err := dump.ParseResult(res.Stdout)
	if err != nil {
		return "", failure.WithOutput(failure.KindFetch, "read export result", res.Combined(), err)
	}
	rep.OK()

	if err := disk.EnsureFree(c.Staging.Dir, uint64(staged.Size)); err != nil {
		return "", failure.New(failure.KindFetch, "check staging space", err)
	}

	cfg := rsync.Config{Binary: c.RsyncBinary, Options: c.RsyncOptions, Shell: c.Target.RsyncShell()}
	var onLine func(string)
	var bar *rsync.ByteBar
	if c.Bar {
		out := c.BarOutput
		if out == nil {
			out = os.Stdout
		}
		bar = rsync.NewByteBar(out, staged.BaseName, staged.Size)
		onLine = bar.Line
	} else {
		ticks := &byteTicker{rep: rep}
		onLine = ticks.line
	}
	remotePath := c.Target.Resolve(staged.FileName)
	pull := cfg.Pull(ctx, c.Runner, c.Target.RemotePath(remotePath), c.Staging.Dir, onLine)
	if bar != nil {
		bar.Done(pull.Err == nil)
	}
	if err := remoteError(ctx, "pull dump", pull); err != nil {
		return "", err
	}
	rep.OK()

	c.removeRemote(ctx, remotePath)
	rep.OK()
	return c.Staging.Path(staged.BaseName), nil
}

// removeRemote deletes the remote staged dump. Failure only leaves the file
// to the retention sweep, so it is logged and ignored.
func (c *Coordinator) removeRemote(ctx context.Context, path string) {
	var b backoff.BackOff
	if c.CleanupBackOff != nil {
		b = c.CleanupBackOff()
	} else {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 500 * time.Millisecond
		b = backoff.WithMaxRetries(eb, 3)
	}
	cmd := c.Target.Command("rm", "-f", path)
	err := backoff.Retry(func() error {
		res := c.Shell.Run(ctx, c.Target, cmd, nil)
		if res.Err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return res.Err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		slog.Warn("remote dump not removed", "path", path, "err", err)
	}
}

func (c *Coordinator) importDump(ctx context.Context, d dbconn.Descriptor, local string, rep *progress.Reporter) error {
	f, err := os.Open(local)
	if err != nil {
		return failure.New(failure.KindImport, "open staged dump", err)
	}
	defer func() { _ = f.Close() }()

	bin := c.ImportBinary
	if bin == "" {
		bin = "mysql"
	}
	args := append(d.ClientArgs(), d.ImportArgs...)
	rep.Tick()

	res := c.Runner.Run(ctx, process.Cmd{Name: bin, Args: args, Env: d.PasswordEnv(), Stdin: f}, nil)
	rep.Tick()
	if ctx.Err() != nil {
		return failure.New(failure.KindImport, "import database", ctx.Err())
	}
	if res.Err != nil {
		return failure.WithOutput(failure.KindImport, "import database", res.Combined(), res.Err)
	}
	rep.OK()
	return nil
}

// remoteError classifies a failed remote-side command.
func remoteError(ctx context.Context, op string, res process.Result) error {
	switch {
	case res.Err == nil:
		return nil
	case ctx.Err() != nil:
		return failure.New(failure.KindFetch, op, ctx.Err())
	case remote.Unreachable(res):
		return failure.WithOutput(failure.KindConnect, op, res.Stderr, res.Err)
	default:
		return failure.WithOutput(failure.KindFetch, op, res.Combined(), res.Err)
	}
}

// byteTicker emits one tick per MiB, carrying the remainder.
type byteTicker struct {
	rep     *progress.Reporter
	pending int64
	total   int64
	last    int64 // last cumulative counter seen on an rsync line
}

func (b *byteTicker) add(n int64) {
	b.total += n
	b.pending += n
	for b.pending >= mib {
		b.rep.Tick()
		b.pending -= mib
	}
}

func (b *byteTicker) line(l string) {
	n, ok := rsync.TransferredBytes(l)
	if !ok {
		return
	}
	if n > b.last {
		b.add(n - b.last)
	}
	b.last = n
}
