package rsync

import (
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ByteBar renders a single-file pull as a byte progress bar.
type ByteBar struct {
	p     *mpb.Progress
	bar   *mpb.Bar
	total int64
}

// NewByteBar starts a bar of total bytes labelled name, drawn on w.
func NewByteBar(w io.Writer, name string, total int64) *ByteBar {
	p := mpb.New(mpb.WithOutput(w), mpb.WithWidth(40), mpb.WithRefreshRate(100*time.Millisecond))
	namePrefix := name + " "
	bar := p.New(total, mpb.BarStyle().Rbound("|").Lbound("|"),
		mpb.PrependDecorators(decor.Name(namePrefix, decor.WC{W: len(namePrefix), C: decor.DSyncWidth}), decor.Percentage()),
		mpb.AppendDecorators(decor.Any(func(s decor.Statistics) string {
			return humanize.Bytes(uint64(s.Current)) + " / " + humanize.Bytes(uint64(s.Total))
		})))
	return &ByteBar{p: p, bar: bar, total: total}
}

// Line updates the bar from one rsync output line.
func (b *ByteBar) Line(line string) {
	if n, ok := TransferredBytes(line); ok {
		b.bar.SetCurrent(n)
	}
}

// Done completes (or aborts) the bar and waits for the final render.
func (b *ByteBar) Done(ok bool) {
	switch {
	case ok && b.total > 0:
		b.bar.SetCurrent(b.total)
	case ok:
		b.bar.SetTotal(-1, true)
	default:
		b.bar.Abort(false)
	}
	b.p.Wait()
}
