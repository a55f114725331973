package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/ratbuild/internal/verify"
)

var testCmd = &cobra.Command{
	Use:          "test",
	Short:        "Build every target, then run the native and downstream test suites",
	Long:         `Build and relocate every target first; the downstream suite loads the relocated stub. No suite runs unless the build succeeded.`,
	RunE:         runTest,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	if err := a.buildTargets(ctx, cmd.OutOrStdout(), nil); err != nil {
		return err
	}

	d := &verify.Dispatcher{
		Runner: a.runner,
		Logger: a.logger,
		Stages: verify.DefaultStages(verify.Options{
			Cargo:         a.cfg.Cargo,
			Root:          a.cfg.Root,
			NativeArgs:    a.cfg.NativeTest,
			ExtraFlags:    a.cfg.ExtraFlags,
			Downstream:    a.cfg.DownstreamTest,
			DownstreamDir: a.cfg.DownstreamDir,
		}),
	}

	_, err = d.Run(ctx)
	return err
}
