// Package compiler drives the native compiler (cargo) for a single build
// target and reports where its outputs land.
package compiler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/phuslu/log"

	"github.com/Norgate-AV/ratbuild/internal/codes"
	"github.com/Norgate-AV/ratbuild/internal/platform"
	"github.com/Norgate-AV/ratbuild/internal/proc"
	"github.com/Norgate-AV/ratbuild/internal/target"
)

// CommandBuilder handles building compiler commands
type CommandBuilder struct {
	// Cargo is the compiler executable.
	Cargo string
	// Root is the workspace root the compiler runs in.
	Root string
	// TargetDir is the compiler's output root, relative to Root unless absolute.
	TargetDir string
}

// NewCommandBuilder creates a new command builder
func NewCommandBuilder(cargo, root, targetDir string) *CommandBuilder {
	if cargo == "" {
		cargo = "cargo"
	}

	if targetDir == "" {
		targetDir = "target"
	}

	return &CommandBuilder{Cargo: cargo, Root: root, TargetDir: targetDir}
}

// BuildCommandArgs builds the command arguments for the compiler
func (cb *CommandBuilder) BuildCommandArgs(t target.BuildTarget, p platform.Profile) ([]string, error) {
	if t.Package == "" {
		return nil, fmt.Errorf("target %q has no package", t.Name)
	}

	var cmdArgs []string

	switch t.Kind {
	case target.Library:
		cmdArgs = append(cmdArgs, "rustc", "-p", t.Package, "--lib", "--crate-type", "staticlib")

		// Darwin debug and release dylibs are not distinguishable by name
		// alone, so the dynamic library is requested explicitly there.
		if p.IsDarwin() {
			cmdArgs = append(cmdArgs, "--crate-type", "cdylib")
		}
	case target.Stub:
		cmdArgs = append(cmdArgs, "rustc", "-p", t.Package, "--lib", "--crate-type", "cdylib")
	case target.Executable:
		cmdArgs = append(cmdArgs, "build", "-p", t.Package, "--bin", t.LogicalName)
	default:
		return nil, fmt.Errorf("target %q has unknown kind %q", t.Name, t.Kind)
	}

	if t.Profile == target.Release {
		cmdArgs = append(cmdArgs, "--release")
	}

	if cb.TargetDir != "target" {
		cmdArgs = append(cmdArgs, "--target-dir", cb.TargetDir)
	}

	cmdArgs = append(cmdArgs, t.ExtraFlags...)

	if t.Kind == target.Stub {
		cmdArgs = append(cmdArgs, linkArgs(p)...)
	}

	return cmdArgs, nil
}

// linkArgs forwards the platform's runtime link requirements to rustc.
func linkArgs(p platform.Profile) []string {
	if p.RuntimeSearchPath == "" && len(p.LinkFlags) == 0 {
		return nil
	}

	args := []string{"--"}
	if p.RuntimeSearchPath != "" {
		args = append(args, "-C", "link-arg=-L"+p.RuntimeSearchPath)
	}

	for _, flag := range p.LinkFlags {
		args = append(args, "-C", "link-arg="+flag)
	}

	return args
}

// GetBuildCommand returns the full compiler invocation for t
func (cb *CommandBuilder) GetBuildCommand(t target.BuildTarget, p platform.Profile) (*proc.ShellCommand, error) {
	cmdArgs, err := cb.BuildCommandArgs(t, p)
	if err != nil {
		return nil, err
	}

	return &proc.ShellCommand{
		Path: cb.Cargo,
		Args: cmdArgs,
		Dir:  cb.Root,
	}, nil
}

// OutputDir is the compiler-determined directory for a profile.
func (cb *CommandBuilder) OutputDir(profile target.Profile) string {
	dir := cb.TargetDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cb.Root, dir)
	}

	return filepath.Join(dir, string(profile))
}

// Outputs lists the canonical compiler output paths for t, primary first.
func (cb *CommandBuilder) Outputs(t target.BuildTarget, p platform.Profile) []string {
	dir := cb.OutputDir(t.Profile)

	switch t.Kind {
	case target.Library:
		outputs := []string{filepath.Join(dir, "lib"+t.LogicalName+".a")}
		if p.IsDarwin() {
			outputs = append(outputs, filepath.Join(dir, "lib"+t.LogicalName+p.DylibExt))
		}

		return outputs
	case target.Stub:
		return []string{filepath.Join(dir, "lib"+t.LogicalName+p.DylibExt)}
	default:
		return []string{filepath.Join(dir, t.LogicalName)}
	}
}

// Compiler invokes the native compiler through a process runner.
type Compiler struct {
	Builder *CommandBuilder
	Runner  proc.Runner
	Logger  *log.Logger
}

// Invocation is a finished, successful compiler run.
type Invocation struct {
	Command proc.ShellCommand
	Result  *proc.Result
	// Outputs are the canonical artifact paths, primary first.
	Outputs []string
}

// Invoke compiles t. A non-zero exit is a CompileFailed error carrying the
// captured diagnostics; it is never retried.
func (c *Compiler) Invoke(ctx context.Context, t target.BuildTarget, p platform.Profile) (*Invocation, error) {
	cmd, err := c.Builder.GetBuildCommand(t, p)
	if err != nil {
		return nil, codes.New(codes.ConfigInvalid, t.Name, "compile", err)
	}

	c.Logger.Info().Str("target", t.Name).Str("profile", string(t.Profile)).Msg("compiling")
	c.Logger.Debug().Str("target", t.Name).Str("command", cmd.String()).Msg("compiler command")

	res, err := c.Runner.Run(ctx, *cmd)
	if err != nil {
		if ctx.Err() != nil {
			return nil, codes.New(codes.Interrupted, t.Name, "compile", err).WithDiagnostic(output(res))
		}

		return nil, codes.New(codes.CompileFailed, t.Name, "compile", err).WithDiagnostic(output(res))
	}

	if !IsSuccess(res.ExitCode) {
		c.Logger.Error().
			Str("target", t.Name).
			Int("exit_code", res.ExitCode).
			Str("reason", GetErrorMessage(res.ExitCode)).
			Msg("compilation failed")

		cause := fmt.Errorf("exit code %d: %s", res.ExitCode, GetErrorMessage(res.ExitCode))
		return nil, codes.New(codes.CompileFailed, t.Name, "compile", cause).WithDiagnostic(res.Output)
	}

	c.Logger.Debug().Str("target", t.Name).Dur("took", res.Duration).Msg("compiled")

	return &Invocation{
		Command: *cmd,
		Result:  res,
		Outputs: c.Builder.Outputs(t, p),
	}, nil
}

// CheckArgs returns the arguments for a type-check of the whole workspace.
func CheckArgs(extraFlags []string) []string {
	return append([]string{"check", "--workspace", "--all-targets"}, extraFlags...)
}

func output(res *proc.Result) string {
	if res == nil {
		return ""
	}

	return strings.TrimSpace(res.Output)
}
