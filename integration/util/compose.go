//go:build integration
// +build integration

package util

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"
)

// Stack is a docker compose project used by the integration tests.
type Stack struct {
	File    string // compose file
	Project string // docker compose -p
}

// Up builds the images and starts the stack. The returned func tears it down
// together with its volumes.
func (s Stack) Up(ctx context.Context) (func() error, error) {
	file, err := filepath.Abs(s.File)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	s.File = file
	if out, err := s.compose(ctx, "up", "-d", "--build").CombinedOutput(); err != nil {
		return nil, fmt.Errorf("docker compose up: %w\n%s", err, out)
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.compose(ctx, "down", "-v").Run()
	}, nil
}

// Container returns the container name compose gives the first replica of service.
func (s Stack) Container(service string) string {
	return fmt.Sprintf("%s-%s-1", s.Project, service)
}

// Exec prepares a command run inside service's container in /srv/app.
func (s Stack) Exec(ctx context.Context, service string, env []string, argv ...string) *exec.Cmd {
	args := []string{"exec", "-w", "/srv/app"}
	for _, e := range env {
		args = append(args, "-e", e)
	}
	args = append(append(args, s.Container(service)), argv...)
	return exec.CommandContext(ctx, "docker", args...)
}

func (s Stack) compose(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "docker", append([]string{"compose", "-f", s.File, "-p", s.Project}, args...)...)
}
