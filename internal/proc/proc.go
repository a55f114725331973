// Package proc runs external tools (cargo, strip, rake...) as blocking child
// processes, capturing their output and forwarding interrupts.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"
)

// maxCapture bounds the diagnostic text kept per process; the tail is kept.
const maxCapture = 64 * 1024

// ShellCommand is a single process invocation.
type ShellCommand struct {
	Path string
	Args []string
	// Dir is the working directory, the current one when empty.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
}

func (c ShellCommand) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}

	return c.Path + " " + strings.Join(c.Args, " ")
}

// Result describes a finished process.
type Result struct {
	ExitCode int
	// Output is the combined stdout/stderr tail.
	Output   string
	Duration time.Duration
}

// Success reports whether the process exited with code 0.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Runner executes commands. A non-zero exit code is reported through Result;
// the error is reserved for processes that could not start or were interrupted.
type Runner interface {
	Run(ctx context.Context, cmd ShellCommand) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout/Stderr receive live output; nil discards it (it is still captured).
	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
}

// NewExecRunner creates a runner streaming to the process's stdout and stderr.
func NewExecRunner(logger *log.Logger) *ExecRunner {
	return &ExecRunner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	}
}

// Run starts cmd and blocks until it exits or ctx is cancelled. On
// cancellation the whole child process group receives an interrupt.
func (r *ExecRunner) Run(ctx context.Context, sc ShellCommand) (*Result, error) {
	c := exec.CommandContext(ctx, sc.Path, sc.Args...)
	c.Dir = sc.Dir
	if len(sc.Env) > 0 {
		c.Env = append(os.Environ(), sc.Env...)
	}

	capture := &tailBuffer{limit: maxCapture}
	c.Stdout = io.MultiWriter(orDiscard(r.Stdout), capture)
	c.Stderr = io.MultiWriter(orDiscard(r.Stderr), capture)
	configure(c)

	if r.Logger != nil {
		r.Logger.Debug().Str("cmd", sc.String()).Str("dir", sc.Dir).Msg("exec")
	}

	start := time.Now()
	err := c.Run()
	res := &Result{
		Output:   capture.String(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", sc.Path, ctxErr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}

		return res, fmt.Errorf("failed to start %s: %w", sc.Path, err)
	}

	return res, nil
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}

	return w
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}

	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.buf.String()
}
