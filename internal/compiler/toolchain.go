package compiler

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/Norgate-AV/ratbuild/internal/proc"
)

// MinCargoVersion is the oldest cargo accepting repeated --crate-type flags.
const MinCargoVersion = "v1.64.0"

// ParseVersion extracts a semver ("v1.75.0") from `cargo --version` output
// such as "cargo 1.75.0 (1d8b05cdd 2023-11-20)".
func ParseVersion(out string) (string, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return "", fmt.Errorf("unrecognised version output: %q", strings.TrimSpace(out))
	}

	v := "v" + strings.TrimPrefix(fields[1], "v")
	if !semver.IsValid(v) {
		return "", fmt.Errorf("unrecognised version %q", fields[1])
	}

	return semver.Canonical(v), nil
}

// CheckToolchain verifies the compiler is runnable and at least min.
// An empty min uses MinCargoVersion.
func CheckToolchain(ctx context.Context, runner proc.Runner, cargo, min string) (string, error) {
	if min == "" {
		min = MinCargoVersion
	}

	if !strings.HasPrefix(min, "v") {
		min = "v" + min
	}

	if !semver.IsValid(min) {
		return "", fmt.Errorf("invalid minimum compiler version %q", min)
	}

	res, err := runner.Run(ctx, proc.ShellCommand{Path: cargo, Args: []string{"--version"}})
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", cargo, err)
	}

	if !res.Success() {
		return "", fmt.Errorf("%s --version exited with code %d", cargo, res.ExitCode)
	}

	v, err := ParseVersion(res.Output)
	if err != nil {
		return "", err
	}

	if semver.Compare(v, min) < 0 {
		return v, fmt.Errorf("%s %s is older than required %s", cargo, v, min)
	}

	return v, nil
}
