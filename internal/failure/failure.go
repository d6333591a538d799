// Package failure defines the error kinds a fetch or export can end with
// and maps them onto process exit codes.
package failure

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	KindConnect    Kind = "connect"
	KindExport     Kind = "export"
	KindFetch      Kind = "fetch"
	KindValidation Kind = "validation"
	KindImport     Kind = "import"
	KindSync       Kind = "sync"
	KindConfig     Kind = "config"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ConnectFailed    = &Error{Kind: KindConnect}
	ExportFailed     = &Error{Kind: KindExport}
	FetchFailed      = &Error{Kind: KindFetch}
	ValidationFailed = &Error{Kind: KindValidation}
	ImportFailed     = &Error{Kind: KindImport}
	SyncFailed       = &Error{Kind: KindSync}
	ConfigMissing    = &Error{Kind: KindConfig}
)

// Error carries the failed operation, captured process output (if any)
// and the underlying cause.
type Error struct {
	Kind   Kind
	Op     string
	Output string
	Err    error
}

// MaxOutput bounds the process output carried by an error.
const MaxOutput = 8 << 10

// New returns an *Error of kind k.
func New(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

// WithOutput returns an *Error of kind k with captured process output attached.
// Only the last MaxOutput bytes are kept.
func WithOutput(k Kind, op string, output []byte, err error) *Error {
	if len(output) > MaxOutput {
		output = append([]byte("..."), output[len(output)-MaxOutput:]...)
	}
	return &Error{Kind: k, Op: op, Output: strings.TrimSpace(string(output)), Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Err != nil {
		if e.Op != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	if e.Output != "" {
		b.WriteString("\n")
		b.WriteString(e.Output)
	}
	if b.Len() == 0 {
		return fmt.Sprintf("%s failed", e.Kind)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches by kind so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Exit codes, sysexits(3) where one fits.
const (
	ExitOK        = 0
	ExitGeneral   = 1
	ExitData      = 65
	ExitNoHost    = 68
	ExitSoftware  = 70
	ExitConfig    = 78
	ExitCancelled = 130
)

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitCancelled
	}
	switch KindOf(err) {
	case KindConfig:
		return ExitConfig
	case KindConnect:
		return ExitNoHost
	case KindValidation:
		return ExitData
	case KindExport, KindImport:
		return ExitSoftware
	}
	return ExitGeneral
}
