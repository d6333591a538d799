// Package fetch sequences the database and file stages of a fetch.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/vbp1/datafetch/internal/debug"
	"github.com/vbp1/datafetch/internal/filesync"
	"github.com/vbp1/datafetch/internal/progress"
)

// Stage names.
const (
	DatabaseStage = "database"
	FileStage     = "files"
)

// State of one stage.
type State int

const (
	Pending State = iota
	Running
	Succeeded
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StageResult records how a stage ended.
type StageResult struct {
	Name   string
	State  State
	Errors []string
}

// DatabaseFetcher runs the database stage.
type DatabaseFetcher interface {
	FetchDatabase(ctx context.Context, rep *progress.Reporter) error
}

// FolderSyncer runs the file stage.
type FolderSyncer interface {
	Sync(ctx context.Context, mappings []filesync.Mapping, rep *progress.Reporter) error
}

// Orchestrator keeps state across fetch steps. Stages are siblings: a
// failed database stage never keeps the file stage from running.
type Orchestrator struct {
	cfg      *Config
	database DatabaseFetcher
	files    FolderSyncer

	results []StageResult
	errs    *multierror.Error
}

// New returns an orchestrator with both stages Pending.
func New(cfg *Config, db DatabaseFetcher, files FolderSyncer) *Orchestrator {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Orchestrator{
		cfg:      cfg,
		database: db,
		files:    files,
		results: []StageResult{
			{Name: DatabaseStage, State: Pending},
			{Name: FileStage, State: Pending},
		},
	}
}

// Run executes both stages and returns the errors of every failed stage.
func (o *Orchestrator) Run(ctx context.Context) error {
	start := time.Now()
	o.stepDatabase(ctx)
	debug.StopIf(ctx, "between-stages")
	o.stepFiles(ctx)

	if err := o.errs.ErrorOrNil(); err != nil {
		slog.Warn("fetch finished with failures", "dur", time.Since(start), "results", o.summary())
		return err
	}
	slog.Info("fetch completed", "dur", time.Since(start), "results", o.summary())
	return nil
}

// Results returns a copy of the stage results.
func (o *Orchestrator) Results() []StageResult {
	out := make([]StageResult, len(o.results))
	for i, r := range o.results {
		out[i] = StageResult{Name: r.Name, State: r.State, Errors: append([]string(nil), r.Errors...)}
	}
	return out
}

// stepDatabase fetches, validates and imports the dump.
func (o *Orchestrator) stepDatabase(ctx context.Context) {
	o.runStage(ctx, &o.results[0], o.cfg.FilesOnly, func(rep *progress.Reporter) error {
		return o.database.FetchDatabase(ctx, rep)
	})
}

// stepFiles mirrors the configured folders.
func (o *Orchestrator) stepFiles(ctx context.Context) {
	o.runStage(ctx, &o.results[1], o.cfg.DBOnly, func(rep *progress.Reporter) error {
		return o.files.Sync(ctx, o.cfg.Folders, rep)
	})
}

// runStage wraps one stage: every failure becomes one buffered message,
// flushed when the stage ends.
func (o *Orchestrator) runStage(ctx context.Context, res *StageResult, skip bool, fn func(*progress.Reporter) error) {
	if skip {
		res.State = Skipped
		slog.Debug("stage skipped", "stage", res.Name)
		return
	}
	rep := progress.New(o.cfg.Out)
	defer rep.EndStage()

	var err error
	if cerr := ctx.Err(); cerr != nil {
		err = fmt.Errorf("%s stage not started: %w", res.Name, cerr)
	} else {
		res.State = Running
		slog.Info("stage started", "stage", res.Name)
		err = fn(rep)
	}
	if err == nil {
		res.State = Succeeded
		return
	}

	res.State = Failed
	for _, msg := range messages(err) {
		res.Errors = append(res.Errors, msg)
		rep.Fail(msg)
	}
	o.errs = multierror.Append(o.errs, err)
	slog.Debug("stage failed", "stage", res.Name, "err", err)
}

func (o *Orchestrator) summary() map[string]string {
	m := make(map[string]string, len(o.results))
	for _, r := range o.results {
		m[r.Name] = r.State.String()
	}
	return m
}

// messages splits aggregated errors so each failure is reported once.
func messages(err error) []string {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		var out []string
		for _, e := range merr.WrappedErrors() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
