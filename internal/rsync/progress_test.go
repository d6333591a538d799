package rsync_test

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/vbp1/datafetch/internal/progress"
	"github.com/vbp1/datafetch/internal/rsync"
)

type recorder struct{ events []string }

func (r *recorder) Tick()     { r.events = append(r.events, ".") }
func (r *recorder) EndStage() { r.events = append(r.events, "end") }
func (r *recorder) Println(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func feed(p *rsync.PhaseParser, out string) {
	lw := &rsync.LineWriter{Fn: p.Line}
	_, _ = lw.Write([]byte(out))
	lw.Flush()
}

func TestPhaseParserCarriesRemainder(t *testing.T) {
	rec := &recorder{}
	p := rsync.NewPhaseParser(rec)
	// 150 -> 1 tick, 320 -> 2 more, 1,001 -> 7 more: 10 ticks, none lost to truncation
	feed(p, "   150 files...\r   320 files...\r 1,001 files...\r")
	if got := strings.Count(strings.Join(rec.events, ""), "."); got != 10 {
		t.Fatalf("counting ticks = %d, want 10 (%v)", got, rec.events)
	}
	if p.Counted() != 1001 || p.Transferring() {
		t.Fatalf("unexpected state counted=%d transferring=%v", p.Counted(), p.Transferring())
	}
}

func TestPhaseParserSwitchesOnce(t *testing.T) {
	rec := &recorder{}
	p := rsync.NewPhaseParser(rec)
	feed(p, strings.Join([]string{
		"  250 files...",
		"a.jpg",
		"      1024 100%    1.00MB/s    0:00:00 (xfer#1, to-check=249/250)",
		"b.jpg",
		"      2048 100%    1.00MB/s    0:00:00 (xfr#150, to-chk=100/250)",
		"  999 files...",
		"      2048 100%    1.00MB/s    0:00:00 (xfr#230, to-chk=20/250)",
		"",
	}, "\n"))

	want := []string{
		".", ".",
		"end", "Found 250 files/folders", "", "Syncing files",
		".",
		".",
	}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("events\nwant %q\n got %q", want, rec.events)
	}
}

func TestPhaseParserFinalizesRowBeforeTransferTicks(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	rep := progress.New(&buf)
	p := rsync.NewPhaseParser(rep)
	feed(p, "300 files...\rxfer#200, to-check=100/300)\n")

	want := "..." + strings.Repeat(" ", progress.RowWidth-3) + " done\n" +
		"Found 300 files/folders\n\nSyncing files\n" +
		".."
	if buf.String() != want {
		t.Fatalf("output\nwant %q\n got %q", want, buf.String())
	}
	if rep.State().Ticks != 2 {
		t.Fatalf("transfer phase must start from a fresh row, ticks=%d", rep.State().Ticks)
	}
}

func TestPhaseParserUpToDate(t *testing.T) {
	rec := &recorder{}
	p := rsync.NewPhaseParser(rec)
	feed(p, "receiving incremental file list\n 12 files...\r\nsent 20 bytes  received 300 bytes\n")
	if p.Transferring() {
		t.Fatalf("no transfer marker was seen")
	}
	if len(rec.events) != 0 {
		t.Fatalf("12 files must not produce a tick: %v", rec.events)
	}
}

func TestTransferredBytes(t *testing.T) {
	n, ok := rsync.TransferredBytes("     32,768  45%   10.00MB/s    0:00:05")
	if !ok || n != 32768 {
		t.Fatalf("got %d %v", n, ok)
	}
	if _, ok := rsync.TransferredBytes("db-dump-1700000000.sql"); ok {
		t.Fatalf("file name line must not parse")
	}
}
