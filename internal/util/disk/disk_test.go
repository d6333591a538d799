package disk

import (
	"math"
	"strings"
	"testing"
)

func TestUsage(t *testing.T) {
	space, err := Usage("./")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if space.Free == 0 || space.Total == 0 || space.Free > space.Total {
		t.Fatalf("implausible usage: %+v", space)
	}
	if _, err := Usage("/does/not/exist"); err == nil {
		t.Fatalf("expected statfs error")
	}
}

func TestEnsureFree(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureFree(dir, 1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	err := EnsureFree(dir, math.MaxUint64)
	if err == nil || !strings.Contains(err.Error(), "insufficient space") {
		t.Fatalf("expected insufficient space, got %v", err)
	}
}
