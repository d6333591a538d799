package ssh

import (
	"context"
	"errors"
	"testing"
)

func TestWithPort(t *testing.T) {
	cases := map[string]string{
		"db.example.com":      "db.example.com:22",
		"db.example.com:2222": "db.example.com:2222",
		"[::1]":               "[::1]:22",
		"[::1]:2200":          "[::1]:2200",
	}
	for in, want := range cases {
		if got := withPort(in); got != want {
			t.Fatalf("withPort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDialRequiresUserAndHost(t *testing.T) {
	if _, err := Dial(context.Background(), Config{Host: "example.com"}); err == nil {
		t.Fatalf("expected error without user")
	}
}

func TestExitStatus(t *testing.T) {
	if st, ok := ExitStatus(nil); !ok || st != 0 {
		t.Fatalf("nil error should be status 0")
	}
	if _, ok := ExitStatus(errors.New("connection reset")); ok {
		t.Fatalf("transport error must not look like an exit status")
	}
}
