package rsync

import (
	"regexp"
	"strconv"
	"strings"
)

// TickStep is how many files one progress tick stands for.
const TickStep = 100

var (
	reCounting = regexp.MustCompile(`([\d,]+) files\.\.\.`)
	// rsync < 3.1 prints "xfer#N, to-check=A/B", newer versions "xfr#N, to-chk=A/B"
	reTransfer = regexp.MustCompile(`xfe?r#(\d+), to-(?:check|chk)=(\d+)/(\d+)`)
	reBytes    = regexp.MustCompile(`^\s*([\d,]+)\s+\d+%`)
)

// Display is the part of the progress reporter the parser drives.
type Display interface {
	Tick()
	EndStage()
	Println(format string, args ...any)
}

// PhaseParser turns rsync -P output into progress ticks. It starts in the
// counting phase and switches to the transfer phase at most once, on the
// first transfer marker.
type PhaseParser struct {
	d            Display
	transferring bool
	counted      int64
	ticked       int64 // files already represented by ticks in the current phase
}

// NewPhaseParser returns a parser in the counting phase.
func NewPhaseParser(d Display) *PhaseParser {
	return &PhaseParser{d: d}
}

// Line feeds one output line.
func (p *PhaseParser) Line(line string) {
	if m := reTransfer.FindStringSubmatch(line); m != nil {
		if !p.transferring {
			p.transferring = true
			p.d.EndStage()
			p.d.Println("Found %d files/folders", p.counted)
			p.d.Println("")
			p.d.Println("Syncing files")
			p.ticked = 0
		}
		n, _ := strconv.ParseInt(m[1], 10, 64)
		p.advance(n)
		return
	}
	if p.transferring {
		return
	}
	if m := reCounting.FindStringSubmatch(line); m != nil {
		n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
		if err != nil {
			return
		}
		p.counted = n
		p.advance(n)
	}
}

// Transferring reports whether a transfer marker has been seen.
func (p *PhaseParser) Transferring() bool { return p.transferring }

// Counted returns the last file count reported in the counting phase.
func (p *PhaseParser) Counted() int64 { return p.counted }

func (p *PhaseParser) advance(n int64) {
	if n <= p.ticked {
		return
	}
	steps := (n - p.ticked) / TickStep
	for i := int64(0); i < steps; i++ {
		p.d.Tick()
	}
	p.ticked += steps * TickStep
}

// TransferredBytes parses the byte counter of an rsync -P progress line
// ("  1,234,567  45%  10.00MB/s    0:00:05").
func TransferredBytes(line string) (int64, bool) {
	m := reBytes.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	return n, err == nil
}
