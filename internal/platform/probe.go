package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/Norgate-AV/ratbuild/internal/proc"
)

// DefaultLibDirQuery and DefaultLibNameQuery ask Ruby for its link settings.
var (
	DefaultLibDirQuery  = []string{"ruby", "-e", "print RbConfig::CONFIG['libdir']"}
	DefaultLibNameQuery = []string{"ruby", "-e", "print RbConfig::CONFIG['RUBY_SO_NAME']"}
)

// Probe fills in the missing fields of rt by running the query commands.
// Fields already set are left untouched and their query is not run.
func Probe(ctx context.Context, runner proc.Runner, rt Runtime, libDirQuery, libNameQuery []string) (Runtime, error) {
	if rt.LibDir == "" {
		v, err := query(ctx, runner, libDirQuery)
		if err != nil {
			return rt, fmt.Errorf("failed to probe runtime libdir: %w", err)
		}

		rt.LibDir = v
	}

	if rt.LibName == "" {
		v, err := query(ctx, runner, libNameQuery)
		if err != nil {
			return rt, fmt.Errorf("failed to probe runtime library name: %w", err)
		}

		rt.LibName = v
	}

	return rt, nil
}

func query(ctx context.Context, runner proc.Runner, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("no query command configured")
	}

	cmd := proc.ShellCommand{Path: argv[0], Args: argv[1:]}
	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return "", err
	}

	if !res.Success() {
		return "", fmt.Errorf("%s exited with code %d: %s", cmd, res.ExitCode, strings.TrimSpace(res.Output))
	}

	v := strings.TrimSpace(res.Output)
	if v == "" {
		return "", fmt.Errorf("%s printed nothing", cmd)
	}

	return v, nil
}
