package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	cryptossh "golang.org/x/crypto/ssh"
)

func TestNativeExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"remote exit", fmt.Errorf("run: %w", &cryptossh.ExitError{}), 0},
		{"cancelled", context.Canceled, -1},
		{"deadline", fmt.Errorf("session: %w", context.DeadlineExceeded), -1},
		{"connection dropped", io.EOF, ExitConnect},
		{"missing status", &cryptossh.ExitMissingError{}, ExitConnect},
		{"transport", errors.New("ssh: handshake failed"), ExitConnect},
	}
	for _, c := range cases {
		if got := nativeExitCode(c.err); got != c.want {
			t.Fatalf("%s: got %d, want %d", c.name, got, c.want)
		}
	}
}

func TestNativeShellUnreachable(t *testing.T) {
	n := &NativeShell{Insecure: true}
	res := n.Run(context.Background(), Target{Host: "127.0.0.1:1", Dir: "/srv"}, "true", nil)
	if res.Err == nil || !Unreachable(res) {
		t.Fatalf("dial failure must look unreachable, got code %d err %v", res.ExitCode, res.Err)
	}
}
