// Package logging configures the structured logger shared by every ratbuild component.
package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// New returns a console logger writing to w (stderr when nil).
// Verbose enables debug output.
func New(w io.Writer, verbose bool) *log.Logger {
	if w == nil {
		w = os.Stderr
	}

	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	return &log.Logger{
		Level:      level,
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			Writer:      w,
			ColorOutput: isTerminal(w),
		},
	}
}

// NewJSON returns a logger emitting one JSON object per line, used when
// output is captured by another tool.
func NewJSON(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	return &log.Logger{
		Level:  level,
		Writer: &log.IOWriter{Writer: w},
	}
}

// WithRun returns a copy of l tagging every entry with the run id.
func WithRun(l *log.Logger, runID string) *log.Logger {
	child := *l
	child.Context = log.NewContext(l.Context).Str("run", runID).Value()
	return &child
}

// Nop returns a logger that discards everything.
func Nop() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return log.IsTerminal(f.Fd())
}
