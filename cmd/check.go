package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/ratbuild/internal/codes"
	"github.com/Norgate-AV/ratbuild/internal/compiler"
	"github.com/Norgate-AV/ratbuild/internal/proc"
)

var checkCmd = &cobra.Command{
	Use:          "check",
	Short:        "Type-check the workspace without producing artifacts",
	RunE:         runCheck,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	if err := a.checkToolchain(ctx); err != nil {
		return err
	}

	sc := proc.ShellCommand{Path: a.cfg.Cargo, Args: compiler.CheckArgs(a.cfg.ExtraFlags), Dir: a.cfg.Root}
	a.logger.Info().Str("command", sc.String()).Msg("checking")

	res, err := a.runner.Run(ctx, sc)
	if err != nil {
		if ctx.Err() != nil {
			return codes.New(codes.Interrupted, "", "check", err)
		}

		return codes.New(codes.CompileFailed, "", "check", err)
	}

	if !compiler.IsSuccess(res.ExitCode) {
		cause := fmt.Errorf("exit code %d: %s", res.ExitCode, compiler.GetErrorMessage(res.ExitCode))
		return codes.New(codes.CompileFailed, "", "check", cause).WithDiagnostic(res.Output)
	}

	a.logger.Info().Dur("took", res.Duration).Msg("check passed")
	return nil
}
