package artifact

import (
	"context"
	"fmt"
	"strings"

	"github.com/Norgate-AV/ratbuild/internal/proc"
)

// CommandStripper strips symbols by running an external tool.
type CommandStripper struct {
	Runner proc.Runner
	// Tool defaults to "strip".
	Tool string
	Args []string
}

func (s *CommandStripper) Strip(ctx context.Context, path string) error {
	tool := s.Tool
	if tool == "" {
		tool = "strip"
	}

	cmd := proc.ShellCommand{Path: tool, Args: append(append([]string{}, s.Args...), path)}
	res, err := s.Runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", tool, err)
	}

	if !res.Success() {
		return fmt.Errorf("%s exited with code %d: %s", tool, res.ExitCode, strings.TrimSpace(res.Output))
	}

	return nil
}
