package rsync

import "bytes"

// LineWriter splits written bytes into lines terminated by '\n' or '\r'
// and calls Fn for each non-empty line. Partial lines are kept until the
// next Write or Flush.
type LineWriter struct {
	Fn  func(line string)
	buf []byte
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexAny(w.buf, "\r\n")
		if i < 0 {
			break
		}
		if i > 0 {
			w.Fn(string(w.buf[:i]))
		}
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *LineWriter) Flush() {
	if len(w.buf) > 0 {
		w.Fn(string(w.buf))
		w.buf = w.buf[:0]
	}
}
