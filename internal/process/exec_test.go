package process

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestTailBufferKeepsLastBytes(t *testing.T) {
	b := &tailBuffer{N: 5}
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defg"))
	if got := string(b.Bytes()); got != "cdefg" {
		t.Fatalf("want cdefg, got %q", got)
	}
	_, _ = b.Write([]byte("0123456789"))
	if got := string(b.Bytes()); got != "56789" {
		t.Fatalf("want 56789, got %q", got)
	}
}

func TestExecStreamsChunks(t *testing.T) {
	var got strings.Builder
	res := Exec{}.Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "printf hello; printf oops >&2; exit 3"}},
		func(s Stream, p []byte) error {
			if s == Stdout {
				got.Write(p)
			}
			return nil
		})
	if res.ExitCode != 3 || res.Err == nil {
		t.Fatalf("expected exit 3, got %d (%v)", res.ExitCode, res.Err)
	}
	if got.String() != "hello" {
		t.Fatalf("callback saw %q", got.String())
	}
	if string(res.Combined()) != "hello\noops" {
		t.Fatalf("combined output %q", res.Combined())
	}
}

func TestExecCallbackErrorAborts(t *testing.T) {
	boom := errors.New("disk full")
	res := Exec{}.Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo data"}},
		func(Stream, []byte) error { return boom })
	if !errors.Is(res.Err, boom) {
		t.Fatalf("expected callback error, got %v", res.Err)
	}
}

func TestExecPassesEnvAndStdin(t *testing.T) {
	res := Exec{}.Run(context.Background(), Cmd{
		Name:  "sh",
		Args:  []string{"-c", `printf "%s:" "$FOO"; cat`},
		Env:   []string{"FOO=bar"},
		Stdin: strings.NewReader("in"),
	}, nil)
	if res.Err != nil {
		t.Fatalf("run: %v", res.Err)
	}
	if string(res.Stdout) != "bar:in" {
		t.Fatalf("stdout %q", res.Stdout)
	}
}
