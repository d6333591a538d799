package log

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Setup инициализирует глобальный slog.Logger.
// Если debug=true — уровень Debug; если verbose=true — Info; иначе — Warn.
// Функция также делает этот логгер логгером по-умолчанию (slog.SetDefault).
func Setup(debug bool, verbose bool) *slog.Logger {
	l := New(os.Stderr, debug, verbose)
	slog.SetDefault(l)
	return l
}

// New builds the logger without installing it. Colour is enabled only when w
// is a terminal.
func New(w io.Writer, debug bool, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	if debug {
		level = slog.LevelDebug
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}
	h := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
		AddSource:  debug,
	})
	return slog.New(h)
}
