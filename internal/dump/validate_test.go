package dump

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	banner    = "-- MySQL dump 10.13  Distrib 8.0.36, for Linux (x86_64)\n--\n-- Host: localhost    Database: shop\n"
	completed = "-- Dump completed on 2024-03-01 12:34:56\n"
)

func body(n int) string {
	return strings.Repeat("INSERT INTO t VALUES (1,'x');\n", n)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		dump string
		want bool
	}{
		{"complete", banner + body(3) + completed, true},
		{"trailing whitespace", banner + body(3) + "-- Dump completed on 2024-03-01 12:34:56\r\n\n  \t\n", true},
		{"truncated tail", banner + body(3), false},
		{"missing head", body(3) + completed, false},
		{"neither", body(3), false},
		{"empty", "", false},
		{"text after marker", banner + completed + "ERROR 2013: lost connection\n", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := []byte(c.dump)
			if got := Validate(b, b); got != c.want {
				t.Fatalf("Validate = %v, want %v", got, c.want)
			}
		})
	}
}

func TestValidateFileReadsBoundedWindows(t *testing.T) {
	dir := t.TempDir()
	large := banner + body(2000) + completed
	if len(large) < 10*Window {
		t.Fatalf("fixture too small")
	}
	ok := filepath.Join(dir, "ok.sql")
	if err := os.WriteFile(ok, []byte(large), 0o644); err != nil {
		t.Fatal(err)
	}
	valid, err := ValidateFile(ok)
	if err != nil || !valid {
		t.Fatalf("expected valid dump, got %v (%v)", valid, err)
	}

	// completion marker buried before the last window does not count
	buried := filepath.Join(dir, "buried.sql")
	if err := os.WriteFile(buried, []byte(banner+completed+body(2000)), 0o644); err != nil {
		t.Fatal(err)
	}
	if valid, _ := ValidateFile(buried); valid {
		t.Fatalf("marker outside the tail window must not validate")
	}

	small := filepath.Join(dir, "small.sql")
	if err := os.WriteFile(small, []byte(banner+completed), 0o644); err != nil {
		t.Fatal(err)
	}
	if valid, _ := ValidateFile(small); !valid {
		t.Fatalf("dump smaller than the window should validate")
	}
}

func TestValidateTrimsOversizedInput(t *testing.T) {
	tail := []byte(body(500) + completed)
	head := append([]byte(banner), bytes.Repeat([]byte("x"), 2*Window)...)
	if !Validate(head, tail) {
		t.Fatalf("oversized inputs should be windowed, not rejected")
	}
}
