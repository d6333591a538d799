// Package remote builds and runs command lines on the remote host.
package remote

import (
	"fmt"
	"path"
	"strings"

	"github.com/juju/utils/v4"
)

// Proxy is an intermediate ssh hop used to reach Target.
type Proxy struct {
	Host    string
	User    string
	Options []string
}

// Target describes how to reach the remote host. It is built once per run.
type Target struct {
	Host         string
	User         string
	Dir          string
	Env          string // optional environment label passed to the export entry point
	ShellOptions []string
	Proxy        *Proxy
}

// Address returns user@host.
func (t Target) Address() string {
	return fmt.Sprintf("%s@%s", t.User, t.Host)
}

// ProxyOption returns the ssh -o value tunnelling through the proxy,
// or "" when no usable proxy is configured.
func (t Target) ProxyOption() string {
	if t.Proxy == nil || t.Proxy.Host == "" || t.Proxy.User == "" {
		return ""
	}
	parts := []string{"ssh", "-W", "%h:%p"}
	parts = append(parts, t.Proxy.Options...)
	parts = append(parts, fmt.Sprintf("%s@%s", t.Proxy.User, t.Proxy.Host))
	return "ProxyCommand=" + strings.Join(parts, " ")
}

// SSHOptions returns the ssh options including the proxy directive.
func (t Target) SSHOptions() []string {
	opts := append([]string(nil), t.ShellOptions...)
	if p := t.ProxyOption(); p != "" {
		opts = append(opts, "-o", p)
	}
	return opts
}

// SSHArgs returns the argv for the ssh binary running command on the target.
func (t Target) SSHArgs(command string) []string {
	return append(t.SSHOptions(), t.Address(), command)
}

// RsyncShell returns the value for rsync's -e flag.
func (t Target) RsyncShell() string {
	parts := []string{"ssh"}
	for _, o := range t.SSHOptions() {
		parts = append(parts, quoteIfNeeded(o))
	}
	return strings.Join(parts, " ")
}

// RemotePath returns user@host:path for rsync sources.
func (t Target) RemotePath(path string) string {
	return fmt.Sprintf("%s:%s", t.Address(), path)
}

// Resolve anchors a relative remote path at the working directory.
func (t Target) Resolve(p string) string {
	if t.Dir == "" || path.IsAbs(p) {
		return p
	}
	return path.Join(t.Dir, p)
}

// Command returns the remote shell line: change into the working directory,
// then run argv with every argument quoted individually.
func (t Target) Command(argv ...string) string {
	return fmt.Sprintf("cd %s && %s", utils.ShQuote(t.Dir), Quote(argv...))
}

// Quote shell-quotes each argument and joins them with spaces.
func Quote(argv ...string) string {
	q := make([]string, len(argv))
	for i, a := range argv {
		q[i] = utils.ShQuote(a)
	}
	return strings.Join(q, " ")
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " \t'\"\\$`") {
		return utils.ShQuote(s)
	}
	return s
}
