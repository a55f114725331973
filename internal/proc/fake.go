package proc

import (
	"context"
	"sync"
)

// FakeRunner records commands instead of running them. Handler decides the
// outcome; a nil handler makes every command succeed.
type FakeRunner struct {
	Handler func(ctx context.Context, cmd ShellCommand) (*Result, error)

	mu    sync.Mutex
	calls []ShellCommand
}

func (f *FakeRunner) Run(ctx context.Context, cmd ShellCommand) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if f.Handler == nil {
		return &Result{}, nil
	}

	return f.Handler(ctx, cmd)
}

// Calls returns a copy of the recorded commands in invocation order.
func (f *FakeRunner) Calls() []ShellCommand {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]ShellCommand, len(f.calls))
	copy(out, f.calls)
	return out
}
