package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/ratbuild/internal/artifact"
	"github.com/Norgate-AV/ratbuild/internal/clean"
	"github.com/Norgate-AV/ratbuild/internal/platform"
)

var cleanCmd = &cobra.Command{
	Use:          "clean",
	Short:        "Remove compiler outputs and relocated artifacts",
	RunE:         runClean,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runClean(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	// destinations only depend on the loader extension, so the runtime is not probed
	p := platform.Resolve(hostOS, a.cfg.Runtime)

	c := clean.New(a.runner, a.logger, a.cfg.Cargo, a.cfg.Root, a.cfg.CleanSecondary, a.cfg.DownstreamDir)
	for _, t := range a.cfg.BuildTargets() {
		c.Artifacts = append(c.Artifacts, artifact.ForTarget(t, p, nil, a.cfg.Root).Destination)
	}

	summary, err := c.Run(cmd.Context())
	if err != nil {
		return err
	}

	a.logger.Info().Int("removed", len(summary.Removed)).Bool("secondary_ok", summary.SecondaryErr == nil).Msg("clean finished")
	return nil
}
