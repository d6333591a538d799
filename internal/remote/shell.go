package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vbp1/datafetch/internal/process"
	"github.com/vbp1/datafetch/internal/ssh"
)

// ExitConnect is the status the ssh client exits with when it could not
// reach the host (as opposed to the remote command failing).
const ExitConnect = 255

// Shell runs a command line on a remote target.
type Shell interface {
	Run(ctx context.Context, t Target, command string, onChunk process.ChunkFunc) process.Result
}

// Unreachable reports whether res means the remote shell never ran the command.
func Unreachable(res process.Result) bool {
	return res.ExitCode == ExitConnect
}

// Invoker runs remote commands through the ssh binary.
type Invoker struct {
	Runner process.Runner
	Binary string // default "ssh"
}

func (i Invoker) Run(ctx context.Context, t Target, command string, onChunk process.ChunkFunc) process.Result {
	bin := i.Binary
	if bin == "" {
		bin = "ssh"
	}
	return i.Runner.Run(ctx, process.Cmd{Name: bin, Args: t.SSHArgs(command)}, onChunk)
}

// NativeShell runs remote commands over an in-process SSH connection.
// The connection is dialed on first use and reused until Close.
type NativeShell struct {
	KeyPath  string
	Insecure bool

	mu     sync.Mutex
	client *ssh.Client
}

func (n *NativeShell) Run(ctx context.Context, t Target, command string, onChunk process.ChunkFunc) process.Result {
	start := time.Now()
	capture := process.NewCapture(process.DefaultOutputLimit, onChunk)

	client, err := n.dial(ctx, t)
	if err != nil {
		return capture.Result("ssh", []string{t.Address(), command}, ExitConnect, time.Since(start), err)
	}

	slog.Info("exec start", "cmd", "ssh(native)", "host", t.Host, "command", command)
	err = client.Run(ctx, command, capture.Writer(process.Stdout), capture.Writer(process.Stderr))
	code := nativeExitCode(err)
	slog.Info("exec done", "cmd", "ssh(native)", "code", code, "dur", time.Since(start), "err", err)
	return capture.Result("ssh", []string{t.Address(), command}, code, time.Since(start), err)
}

// nativeExitCode maps a session error to the status the ssh binary would
// report: the remote status, -1 when interrupted, ExitConnect otherwise.
func nativeExitCode(err error) int {
	if code, ok := ssh.ExitStatus(err); ok {
		return code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return -1
	}
	return ExitConnect
}

// Close releases the cached connection.
func (n *NativeShell) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client == nil {
		return nil
	}
	err := n.client.Close()
	n.client = nil
	return err
}

func (n *NativeShell) dial(ctx context.Context, t Target) (*ssh.Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client != nil {
		return n.client, nil
	}
	cfg := ssh.Config{
		User:     t.User,
		Host:     t.Host,
		KeyPath:  n.KeyPath,
		Insecure: n.Insecure,
	}
	if t.Proxy != nil && t.Proxy.Host != "" && t.Proxy.User != "" {
		cfg.ProxyHost, cfg.ProxyUser = t.Proxy.Host, t.Proxy.User
		if len(t.Proxy.Options) > 0 {
			slog.Debug("native ssh ignores proxy options", "options", t.Proxy.Options)
		}
	}
	if len(t.ShellOptions) > 0 {
		slog.Debug("native ssh ignores shell options", "options", t.ShellOptions)
	}
	c, err := ssh.Dial(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", t.Address(), err)
	}
	n.client = c
	return c, nil
}
