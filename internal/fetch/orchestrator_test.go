package fetch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"

	"github.com/vbp1/datafetch/internal/failure"
	"github.com/vbp1/datafetch/internal/filesync"
	"github.com/vbp1/datafetch/internal/progress"
)

type dbStub struct {
	err   error
	calls int
}

func (d *dbStub) FetchDatabase(ctx context.Context, rep *progress.Reporter) error {
	d.calls++
	rep.Tick()
	return d.err
}

type filesStub struct {
	err   error
	calls int
	got   []filesync.Mapping
}

func (f *filesStub) Sync(ctx context.Context, m []filesync.Mapping, rep *progress.Reporter) error {
	f.calls++
	f.got = m
	rep.OK()
	return f.err
}

func states(o *Orchestrator) (db, files State) {
	r := o.Results()
	return r[0].State, r[1].State
}

func TestDatabaseFailureDoesNotBlockFiles(t *testing.T) {
	color.NoColor = true
	db := &dbStub{err: failure.New(failure.KindExport, "dumping database", errors.New("exit status 2"))}
	files := &filesStub{}
	var out bytes.Buffer
	o := New(&Config{Folders: []filesync.Mapping{{Src: "media", Dst: "."}}, Out: &out}, db, files)

	err := o.Run(context.Background())
	if !errors.Is(err, failure.ExportFailed) {
		t.Fatalf("expected ExportFailed, got %v", err)
	}
	dbState, fileState := states(o)
	if dbState != Failed || fileState != Succeeded {
		t.Fatalf("states db=%s files=%s", dbState, fileState)
	}
	if files.calls != 1 || len(files.got) != 1 {
		t.Fatalf("file stage did not run with the mappings")
	}
	r := o.Results()[0]
	if len(r.Errors) != 1 || !strings.Contains(r.Errors[0], "dumping database") {
		t.Fatalf("expected one buffered message, got %q", r.Errors)
	}
	// error glyph, then the message flushed after the done marker
	if !strings.Contains(out.String(), ".E"+strings.Repeat(" ", progress.RowWidth-2)+" done\ndumping database: exit status 2\n") {
		t.Fatalf("unexpected stage output %q", out.String())
	}
	if failure.ExitCode(err) == 0 {
		t.Fatalf("failed stage must give a non-zero exit code")
	}
}

func TestBothStagesSucceed(t *testing.T) {
	db, files := &dbStub{}, &filesStub{}
	o := New(&Config{Out: &bytes.Buffer{}}, db, files)
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if d, f := states(o); d != Succeeded || f != Succeeded {
		t.Fatalf("states db=%s files=%s", d, f)
	}
}

func TestOneMessagePerMappingFailure(t *testing.T) {
	var merr *multierror.Error
	merr = multierror.Append(merr,
		failure.New(failure.KindSync, "sync a -> a", errors.New("exit status 23")),
		failure.New(failure.KindSync, "sync b -> b", errors.New("exit status 12")),
	)
	files := &filesStub{err: merr}
	o := New(&Config{Out: &bytes.Buffer{}}, &dbStub{}, files)

	err := o.Run(context.Background())
	if !errors.Is(err, failure.SyncFailed) {
		t.Fatalf("expected SyncFailed, got %v", err)
	}
	r := o.Results()[1]
	if r.State != Failed || len(r.Errors) != 2 {
		t.Fatalf("expected two messages, got %+v", r)
	}
}

func TestSkippedStages(t *testing.T) {
	db, files := &dbStub{}, &filesStub{}
	o := New(&Config{DBOnly: true, Out: &bytes.Buffer{}}, db, files)
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if d, f := states(o); d != Succeeded || f != Skipped || files.calls != 0 {
		t.Fatalf("db-only: db=%s files=%s calls=%d", d, f, files.calls)
	}

	db, files = &dbStub{}, &filesStub{}
	o = New(&Config{FilesOnly: true, Out: &bytes.Buffer{}}, db, files)
	_ = o.Run(context.Background())
	if d, f := states(o); d != Skipped || f != Succeeded || db.calls != 0 {
		t.Fatalf("files-only: db=%s files=%s calls=%d", d, f, db.calls)
	}
}

func TestCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	db, files := &dbStub{}, &filesStub{}
	o := New(&Config{Out: &bytes.Buffer{}}, db, files)

	err := o.Run(ctx)
	if !errors.Is(err, context.Canceled) || failure.ExitCode(err) != failure.ExitCancelled {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if d, f := states(o); d != Failed || f != Failed || db.calls+files.calls != 0 {
		t.Fatalf("stages must be recorded as failed without running: db=%s files=%s", d, f)
	}
}
