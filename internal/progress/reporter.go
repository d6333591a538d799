// Package progress renders stage progress as rows of glyphs and buffers
// non-fatal errors until the stage ends.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// RowWidth is the number of glyphs per row.
const RowWidth = 50

var (
	okColor   = color.New(color.FgGreen)
	errColor  = color.New(color.FgRed, color.Bold)
	doneColor = color.New(color.FgGreen)
)

// State is the per-stage progress state.
type State struct {
	Ticks         int
	PendingErrors []string
}

// Reporter writes progress glyphs for one stage at a time.
// Ticks are monotonic within a stage; EndStage resets the state.
type Reporter struct {
	mu    sync.Mutex
	w     io.Writer
	state State
}

// New returns a Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Tick records neutral progress.
func (r *Reporter) Tick() { r.emit(".", nil, "") }

// OK records a completed step.
func (r *Reporter) OK() { r.emit(".", okColor, "") }

// Fail records an error glyph; a non-empty message is buffered until EndStage.
func (r *Reporter) Fail(message string) { r.emit("E", errColor, message) }

// Report dispatches to Tick/OK/Fail.
func (r *Reporter) Report(ok bool, message string) {
	switch {
	case !ok:
		r.Fail(message)
	case message != "":
		r.OK()
	default:
		r.Tick()
	}
}

// Println writes a status line outside the glyph row.
func (r *Reporter) Println(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, format+"\n", args...)
}

// State returns a copy of the current stage state.
func (r *Reporter) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{Ticks: r.state.Ticks, PendingErrors: append([]string(nil), r.state.PendingErrors...)}
}

// EndStage pads the row, prints the completion marker, flushes buffered
// errors one per line and resets the state.
func (r *Reporter) EndStage() {
	r.mu.Lock()
	defer r.mu.Unlock()
	pad := RowWidth - r.state.Ticks%RowWidth
	fmt.Fprintf(r.w, "%s %s\n", strings.Repeat(" ", pad), doneColor.Sprint("done"))
	for _, msg := range r.state.PendingErrors {
		fmt.Fprintln(r.w, errColor.Sprint(msg))
	}
	r.state = State{}
}

func (r *Reporter) emit(glyph string, c *color.Color, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Ticks++
	if c != nil {
		glyph = c.Sprint(glyph)
	}
	fmt.Fprint(r.w, glyph)
	if message != "" {
		r.state.PendingErrors = append(r.state.PendingErrors, message)
	}
	if r.state.Ticks%RowWidth == 0 {
		fmt.Fprintf(r.w, " %4d\n", r.state.Ticks)
	}
}
