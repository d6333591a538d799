package dump

import (
	"fmt"
	"io"
	"os"
	"regexp"
)

// Window is how many bytes are inspected at each end of a dump.
const Window = 4096

var (
	headMarker = regexp.MustCompile(`\A-- MySQL dump`)
	tailMarker = regexp.MustCompile(`-- Dump completed on\s+\d*-\d*-\d*\s+\d+:\d+:\d+[\r\n\s\t]*\z`)
)

// Validate reports whether head starts with the dump banner and tail ends
// with the completion line. Only the framing is checked, not the content.
func Validate(head, tail []byte) bool {
	if len(head) > Window {
		head = head[:Window]
	}
	if len(tail) > Window {
		tail = tail[len(tail)-Window:]
	}
	return headMarker.Match(head) && tailMarker.Match(tail)
}

// ValidateFile reads at most Window bytes from each end of path.
func ValidateFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return false, err
	}
	head := make([]byte, min(st.Size(), Window))
	if _, err := io.ReadFull(f, head); err != nil {
		return false, fmt.Errorf("read head: %w", err)
	}
	tailOff := max(st.Size()-Window, 0)
	tail := make([]byte, st.Size()-tailOff)
	if _, err := f.ReadAt(tail, tailOff); err != nil && err != io.EOF {
		return false, fmt.Errorf("read tail: %w", err)
	}
	return Validate(head, tail), nil
}
