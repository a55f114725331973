// Package verify runs the workspace's test suites as ordered stages.
package verify

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/phuslu/log"

	"github.com/Norgate-AV/ratbuild/internal/codes"
	"github.com/Norgate-AV/ratbuild/internal/proc"
)

// Stage names.
const (
	Native     = "native"
	Downstream = "downstream"
)

// Stage is one test suite invocation.
type Stage struct {
	Name    string
	Command proc.ShellCommand
}

// StageResult records a stage that ran.
type StageResult struct {
	Stage    string
	Passed   bool
	ExitCode int
	Duration time.Duration
}

// Options configures the default stages.
type Options struct {
	Cargo string
	Root  string
	// NativeArgs defaults to "test".
	NativeArgs []string
	ExtraFlags []string
	// Downstream is the downstream test command; DownstreamDir is relative to Root.
	Downstream    []string
	DownstreamDir string
}

// DefaultStages returns the native suite followed by the downstream suite.
func DefaultStages(opts Options) []Stage {
	cargo := opts.Cargo
	if cargo == "" {
		cargo = "cargo"
	}

	nativeArgs := opts.NativeArgs
	if len(nativeArgs) == 0 {
		nativeArgs = []string{"test"}
	}

	stages := []Stage{{
		Name: Native,
		Command: proc.ShellCommand{
			Path: cargo,
			Args: append(append([]string{}, nativeArgs...), opts.ExtraFlags...),
			Dir:  opts.Root,
		},
	}}

	downstream := opts.Downstream
	if len(downstream) == 0 {
		downstream = []string{"rake", "test"}
	}

	dir := opts.DownstreamDir
	if dir == "" {
		dir = "ruby"
	}

	if !filepath.IsAbs(dir) {
		dir = filepath.Join(opts.Root, dir)
	}

	return append(stages, Stage{
		Name:    Downstream,
		Command: proc.ShellCommand{Path: downstream[0], Args: downstream[1:], Dir: dir},
	})
}

// Dispatcher runs stages in order and stops at the first failure.
type Dispatcher struct {
	Runner proc.Runner
	Stages []Stage
	Logger *log.Logger
}

// Run executes the stages. A failing stage yields a TestFailed error naming
// it; later stages are not started.
func (d *Dispatcher) Run(ctx context.Context) ([]StageResult, error) {
	results := make([]StageResult, 0, len(d.Stages))

	for _, s := range d.Stages {
		if err := ctx.Err(); err != nil {
			return results, codes.New(codes.Interrupted, "", s.Name, err)
		}

		d.Logger.Info().Str("stage", s.Name).Str("command", s.Command.String()).Msg("running tests")

		res, err := d.Runner.Run(ctx, s.Command)
		if err != nil {
			if ctx.Err() != nil {
				return results, codes.New(codes.Interrupted, "", s.Name, err)
			}

			return results, codes.New(codes.TestFailed, "", s.Name, fmt.Errorf("failed to run %s: %w", s.Command.Path, err))
		}

		sr := StageResult{Stage: s.Name, Passed: res.Success(), ExitCode: res.ExitCode, Duration: res.Duration}
		results = append(results, sr)

		if !sr.Passed {
			d.Logger.Error().Str("stage", s.Name).Int("exit_code", res.ExitCode).Msg("tests failed")
			return results, codes.New(codes.TestFailed, "", s.Name, fmt.Errorf("exit code %d", res.ExitCode)).WithDiagnostic(res.Output)
		}

		d.Logger.Info().Str("stage", s.Name).Dur("took", res.Duration).Msg("tests passed")
	}

	return results, nil
}
