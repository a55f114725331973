// Package clean removes build outputs: the native compiler's target
// directory first, then the downstream project's generated files.
package clean

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phuslu/log"

	"github.com/Norgate-AV/ratbuild/internal/codes"
	"github.com/Norgate-AV/ratbuild/internal/proc"
)

// Cleaner runs the primary and secondary cleanup commands.
type Cleaner struct {
	Runner  proc.Runner
	Logger  *log.Logger
	Primary proc.ShellCommand
	// Secondary is optional; its failure never fails the clean.
	Secondary *proc.ShellCommand
	// Artifacts are relocated files removed after the primary cleanup.
	Artifacts []string
}

// Summary describes what a clean did.
type Summary struct {
	Removed []string
	// SecondaryErr is the tolerated secondary failure, if any.
	SecondaryErr error
}

// New returns a Cleaner running "<cargo> clean" in root and, when secondary
// is non-empty, secondary in secondaryDir.
func New(runner proc.Runner, logger *log.Logger, cargo, root string, secondary []string, secondaryDir string) *Cleaner {
	if cargo == "" {
		cargo = "cargo"
	}

	c := &Cleaner{
		Runner:  runner,
		Logger:  logger,
		Primary: proc.ShellCommand{Path: cargo, Args: []string{"clean"}, Dir: root},
	}

	if len(secondary) > 0 {
		if !filepath.IsAbs(secondaryDir) {
			secondaryDir = filepath.Join(root, secondaryDir)
		}

		c.Secondary = &proc.ShellCommand{Path: secondary[0], Args: secondary[1:], Dir: secondaryDir}
	}

	return c
}

// Run fails only if the primary cleanup fails.
func (c *Cleaner) Run(ctx context.Context) (*Summary, error) {
	c.Logger.Info().Str("command", c.Primary.String()).Msg("cleaning")

	res, err := c.Runner.Run(ctx, c.Primary)
	if err != nil {
		if ctx.Err() != nil {
			return nil, codes.New(codes.Interrupted, "", "clean", err)
		}

		return nil, fmt.Errorf("failed to run %s: %w", c.Primary.Path, err)
	}

	if !res.Success() {
		return nil, fmt.Errorf("failed to clean: %s exited with code %d", c.Primary.String(), res.ExitCode)
	}

	summary := &Summary{}

	for _, path := range c.Artifacts {
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return summary, fmt.Errorf("failed to remove %s: %w", path, err)
		}

		summary.Removed = append(summary.Removed, path)
		c.Logger.Debug().Str("path", path).Msg("removed artifact")
	}

	if c.Secondary != nil {
		summary.SecondaryErr = c.secondary(ctx)
	}

	return summary, nil
}

func (c *Cleaner) secondary(ctx context.Context) error {
	res, err := c.Runner.Run(ctx, *c.Secondary)
	if err == nil && !res.Success() {
		err = fmt.Errorf("exit code %d", res.ExitCode)
	}

	if err != nil {
		c.Logger.Warn().
			Str("command", c.Secondary.String()).
			Bool("tolerated", true).
			Err(err).
			Msg("secondary cleanup failed; continuing")

		return err
	}

	return nil
}
