package process

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Stream identifies which output of a process a chunk came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// ChunkFunc receives process output as it arrives. Calls are serialized.
// Returning an error aborts the copy and makes Run report that error.
type ChunkFunc func(s Stream, p []byte) error

// Cmd describes one external process invocation.
type Cmd struct {
	Name  string
	Args  []string
	Env   []string // appended to the current environment
	Dir   string
	Stdin io.Reader
}

func (c Cmd) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result содержит данные о выполненной команде.
// Stdout/Stderr hold at most the last OutputLimit bytes of each stream.
type Result struct {
	Cmd      string
	Args     []string
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
	Err      error
}

// Combined returns stdout followed by stderr, for diagnostics.
func (r Result) Combined() []byte {
	out := make([]byte, 0, len(r.Stdout)+len(r.Stderr)+1)
	out = append(out, r.Stdout...)
	if len(r.Stdout) > 0 && len(r.Stderr) > 0 && r.Stdout[len(r.Stdout)-1] != '\n' {
		out = append(out, '\n')
	}
	return append(out, r.Stderr...)
}

// Runner executes external processes. Implementations must not impose a timeout.
type Runner interface {
	Run(ctx context.Context, c Cmd, onChunk ChunkFunc) Result
}

const (
	DefaultGrace       = 10 * time.Second
	DefaultOutputLimit = 1 << 20
)

// Exec runs processes on the local machine via os/exec.
// On ctx cancellation the process gets SIGTERM, then SIGKILL after Grace.
type Exec struct {
	Grace       time.Duration
	OutputLimit int
}

// Run выполняет внешний процесс, логируя начало/конец и собирая вывод.
func (e Exec) Run(ctx context.Context, c Cmd, onChunk ChunkFunc) Result {
	grace, limit := e.Grace, e.OutputLimit
	if grace == 0 {
		grace = DefaultGrace
	}
	if limit == 0 {
		limit = DefaultOutputLimit
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = grace
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	capture := NewCapture(limit, onChunk)
	cmd.Stdout = capture.Writer(Stdout)
	cmd.Stderr = capture.Writer(Stderr)

	slog.Info("exec start", "cmd", c.Name, "args", c.Args)
	start := time.Now()

	err := cmd.Run()
	duration := time.Since(start)

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	slog.Info("exec done", "cmd", c.Name, "code", exitCode, "dur", duration, "err", err)

	return capture.Result(c.Name, c.Args, exitCode, duration, err)
}

// Capture collects the tails of both output streams and forwards chunks
// to an optional callback, serializing calls across streams.
type Capture struct {
	mu      sync.Mutex
	out     tailBuffer
	err     tailBuffer
	onChunk ChunkFunc
}

// NewCapture returns a Capture keeping at most limit bytes per stream.
func NewCapture(limit int, onChunk ChunkFunc) *Capture {
	return &Capture{out: tailBuffer{N: limit}, err: tailBuffer{N: limit}, onChunk: onChunk}
}

// Writer returns the io.Writer to attach to stream s.
func (c *Capture) Writer(s Stream) io.Writer {
	tail := &c.out
	if s == Stderr {
		tail = &c.err
	}
	return &chunkWriter{stream: s, tail: tail, fn: c.onChunk, mu: &c.mu}
}

// Result builds a Result from the captured output.
func (c *Capture) Result(name string, args []string, exitCode int, d time.Duration, err error) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Result{
		Cmd:      name,
		Args:     args,
		Stdout:   c.out.Bytes(),
		Stderr:   c.err.Bytes(),
		ExitCode: exitCode,
		Duration: d,
		Err:      err,
	}
}

type chunkWriter struct {
	stream Stream
	tail   *tailBuffer
	fn     ChunkFunc
	mu     *sync.Mutex
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = w.tail.Write(p)
	if w.fn != nil {
		if err := w.fn(w.stream, p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// tailBuffer keeps only the last N bytes written, so arbitrarily large
// outputs can be captured for diagnostics without unbounded memory.
type tailBuffer struct {
	buf bytes.Buffer
	N   int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if b.N > 0 && len(p) >= b.N {
		b.buf.Reset()
		p = p[len(p)-b.N:]
	} else if b.N > 0 && b.buf.Len()+len(p) > b.N {
		b.buf.Next(b.buf.Len() + len(p) - b.N)
	}
	b.buf.Write(p)
	return n, nil
}

func (b *tailBuffer) Bytes() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}
