// Package processtest provides a scripted process.Runner for tests.
package processtest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/vbp1/datafetch/internal/process"
)

// Response scripts what a faked process emits.
type Response struct {
	Chunks   [][]byte // stdout chunks, delivered in order
	Stderr   []byte
	ExitCode int
	Err      error
	Do       func(c process.Cmd) // side effect run before output is delivered
}

// Call records one invocation.
type Call struct {
	Cmd   process.Cmd
	Stdin []byte
}

// Fake is a process.Runner returning scripted responses.
type Fake struct {
	Handler func(c process.Cmd) Response

	mu    sync.Mutex
	calls []Call
}

// Calls returns recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns invocations of the named binary.
func (f *Fake) CallsTo(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Cmd.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) Run(ctx context.Context, c process.Cmd, onChunk process.ChunkFunc) process.Result {
	call := Call{Cmd: c}
	if c.Stdin != nil {
		call.Stdin, _ = io.ReadAll(c.Stdin)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	var resp Response
	if f.Handler != nil {
		resp = f.Handler(c)
	}
	if resp.Do != nil {
		resp.Do(c)
	}

	capture := process.NewCapture(process.DefaultOutputLimit, onChunk)
	stdout, stderr := capture.Writer(process.Stdout), capture.Writer(process.Stderr)
	err := resp.Err
	for _, ch := range resp.Chunks {
		if _, werr := stdout.Write(ch); werr != nil && err == nil {
			err = werr
			break
		}
	}
	if len(resp.Stderr) > 0 {
		_, _ = stderr.Write(resp.Stderr)
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err == nil && resp.ExitCode != 0 {
		err = fmt.Errorf("exit status %d", resp.ExitCode)
	}
	return capture.Result(c.Name, c.Args, resp.ExitCode, 0, err)
}
