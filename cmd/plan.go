package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Norgate-AV/ratbuild/internal/codes"
	"github.com/Norgate-AV/ratbuild/internal/pipeline"
	"github.com/Norgate-AV/ratbuild/internal/platform"
	"github.com/Norgate-AV/ratbuild/internal/target"
)

var planCmd = &cobra.Command{
	Use:          "plan",
	Short:        "Print the resolved build plan as YAML without building",
	RunE:         runPlan,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func init() {
	planCmd.Flags().String("targets", "", "Comma separated targets to plan, with their dependencies")
}

// buildPlan is the document printed by the plan command.
type buildPlan struct {
	Root     string               `yaml:"root"`
	Profile  target.Profile       `yaml:"profile"`
	Jobs     int                  `yaml:"jobs"`
	Platform platform.Profile     `yaml:"platform"`
	Targets  []pipeline.PlanEntry `yaml:"targets"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	selection, _ := cmd.Flags().GetString("targets")
	targets, err := a.selectTargets(target.ParseSelection(selection))
	if err != nil {
		return err
	}

	p, err := a.resolveProfile(cmd.Context(), targets)
	if err != nil {
		return err
	}

	g, err := a.newGraph(targets, p)
	if err != nil {
		return err
	}

	entries, err := a.pipelineBuilder(p).Plan(g.Targets())
	if err != nil {
		return codes.New(codes.ConfigInvalid, "", "plan", err)
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)

	if err := enc.Encode(buildPlan{
		Root:     a.cfg.Root,
		Profile:  a.cfg.Profile,
		Jobs:     a.cfg.Jobs,
		Platform: p,
		Targets:  entries,
	}); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}

	return enc.Close()
}
