// Package dump produces database dumps on the remote side and checks their
// framing on the local side.
package dump

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vbp1/datafetch/internal/dbconn"
	"github.com/vbp1/datafetch/internal/failure"
	"github.com/vbp1/datafetch/internal/process"
)

// Mode selects how the dump leaves the remote host.
type Mode int

const (
	// Stream writes the dump to stdout.
	Stream Mode = iota
	// StagedFile writes the dump to a server-local file and reports its location.
	StagedFile
)

func (m Mode) String() string {
	if m == StagedFile {
		return "file"
	}
	return "stream"
}

// Result describes a staged dump file. It is printed as one JSON line.
type Result struct {
	FileName string `json:"filename"`
	BaseName string `json:"basename"`
	Size     int64  `json:"size"`
}

// ParseResult extracts the Result from export output. Lines before the
// JSON object (banners, warnings) are ignored.
func ParseResult(out []byte) (*Result, error) {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if !bytes.HasPrefix(line, []byte("{")) {
			continue
		}
		var r Result
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("decode export result: %w", err)
		}
		if r.FileName == "" {
			return nil, fmt.Errorf("export result without filename: %s", line)
		}
		if r.BaseName == "" {
			r.BaseName = filepath.Base(r.FileName)
		}
		return &r, nil
	}
	return nil, fmt.Errorf("no export result in output: %q", bytes.TrimSpace(out))
}

// Exporter runs the dump binary on the host that owns the database.
type Exporter struct {
	Runner process.Runner
	Binary string // default "mysqldump"
	Dir    string // where staged dumps are written
	Now    func() time.Time
}

// Export dumps the database described by d. In Stream mode the dump is
// copied to w as it is produced; in StagedFile mode the dump goes to a
// file under Dir and w receives the JSON Result.
func (e *Exporter) Export(ctx context.Context, d dbconn.Descriptor, mode Mode, w io.Writer) (*Result, error) {
	bin := e.Binary
	if bin == "" {
		bin = "mysqldump"
	}
	args := dumpArgs(d)
	cmd := process.Cmd{Name: bin, Args: args, Env: d.PasswordEnv()}

	if mode == Stream {
		res := e.Runner.Run(ctx, cmd, func(s process.Stream, p []byte) error {
			if s != process.Stdout {
				return nil
			}
			_, err := w.Write(p)
			return err
		})
		if res.Err != nil {
			return nil, failure.WithOutput(failure.KindExport, "dumping database", res.Stderr, res.Err)
		}
		return nil, nil
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, failure.New(failure.KindExport, "prepare dump dir", err)
	}
	// make space for the new dump first
	if _, err := Sweep(e.Dir, now()); err != nil {
		return nil, failure.New(failure.KindExport, "retention sweep", err)
	}

	dir, err := filepath.Abs(e.Dir)
	if err != nil {
		return nil, failure.New(failure.KindExport, "resolve dump dir", err)
	}
	path := filepath.Join(dir, StagedName(now()))
	cmd.Args = append(cmd.Args, "-q", "--result-file="+path)
	res := e.Runner.Run(ctx, cmd, nil)
	if res.Err != nil {
		return nil, failure.WithOutput(failure.KindExport, "dumping database", res.Combined(), res.Err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, failure.New(failure.KindExport, "stat dump file", err)
	}
	r := &Result{FileName: path, BaseName: filepath.Base(path), Size: st.Size()}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return nil, err
	}
	return r, nil
}

func dumpArgs(d dbconn.Descriptor) []string {
	return append(d.ClientArgs(), d.ExportArgs...)
}
