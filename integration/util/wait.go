//go:build integration
// +build integration

package util

import (
	"context"
	"fmt"
	"time"
)

// ReadyMarker is created by the container entrypoint once MySQL, the
// fixtures and sshd are up.
const ReadyMarker = "/run/datafetch-ready"

// WaitReady polls service's container until the entrypoint has finished.
func (s Stack) WaitReady(ctx context.Context, service string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := s.Exec(ctx, service, nil, "test", "-f", ReadyMarker).Run(); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s did not become ready", s.Container(service))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}
