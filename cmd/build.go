package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/ratbuild/internal/artifact"
	"github.com/Norgate-AV/ratbuild/internal/compiler"
	"github.com/Norgate-AV/ratbuild/internal/orchestrator"
	"github.com/Norgate-AV/ratbuild/internal/pipeline"
	"github.com/Norgate-AV/ratbuild/internal/platform"
	"github.com/Norgate-AV/ratbuild/internal/target"
)

var buildCmd = &cobra.Command{
	Use:          "build",
	Short:        "Build every target",
	Long:         `Compile core, the IPASIR shim, the Ruby extension stub and the ratsat binary in dependency order and relocate their artifacts.`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

var buildDebugCmd = &cobra.Command{
	Use:          "build-debug",
	Short:        "Build every target with the debug profile",
	RunE:         buildProfile(target.Debug),
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

var buildIPASIRCmd = &cobra.Command{
	Use:          "build-ipasir",
	Short:        "Build the IPASIR static library",
	RunE:         buildSelection(target.IPASIR),
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

var buildStubCmd = &cobra.Command{
	Use:          "build-foreign-stub",
	Short:        "Build the Ruby extension stub",
	RunE:         buildSelection(target.Ruby),
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func init() {
	buildCmd.Flags().String("targets", "", "Comma separated targets to build, with their dependencies")
}

func runBuild(cmd *cobra.Command, args []string) error {
	selection, _ := cmd.Flags().GetString("targets")
	return build(cmd, target.ParseSelection(selection), "")
}

func buildProfile(profile target.Profile) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return build(cmd, nil, profile)
	}
}

func buildSelection(names ...string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return build(cmd, names, "")
	}
}

func build(cmd *cobra.Command, selection []string, profile target.Profile) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	if profile != "" {
		a.cfg.Profile = profile
	}

	return a.buildTargets(cmd.Context(), cmd.OutOrStdout(), selection)
}

// buildTargets builds selection and its dependencies, printing the report
// to w. It returns the first failure in dependency order.
func (a *app) buildTargets(ctx context.Context, w io.Writer, selection []string) error {
	targets, err := a.selectTargets(selection)
	if err != nil {
		return err
	}

	if err := a.checkToolchain(ctx); err != nil {
		return err
	}

	p, err := a.resolveProfile(ctx, targets)
	if err != nil {
		return err
	}

	g, err := a.newGraph(targets, p)
	if err != nil {
		return err
	}

	o := orchestrator.New(g, a.pipelineBuilder(p), a.logger)
	o.Jobs = a.cfg.Jobs

	a.logger.Info().
		Str("profile", string(a.cfg.Profile)).
		Strs("order", g.Order()).
		Int("jobs", o.Jobs).
		Msg("build started")

	report, err := o.Run(ctx)
	if err != nil {
		return err
	}

	printReport(w, report)

	return report.Err()
}

// pipelineBuilder wires the compiler, relocation and strip steps for one
// invocation's platform profile.
func (a *app) pipelineBuilder(p platform.Profile) *pipeline.Builder {
	commands := compiler.NewCommandBuilder(a.cfg.Cargo, a.cfg.Root, a.cfg.TargetDir)

	return &pipeline.Builder{
		Profile:  p.Clone(),
		Root:     a.cfg.Root,
		Commands: commands,
		Compiler: &compiler.Compiler{Builder: commands, Runner: a.runner, Logger: a.logger},
		Stripper: &artifact.CommandStripper{Runner: a.quiet, Tool: a.cfg.StripTool, Args: a.cfg.StripArgs},
		Logger:   a.logger,
	}
}

func printReport(w io.Writer, report *orchestrator.Report) {
	for _, res := range report.Results {
		switch {
		case res.Status == orchestrator.Succeeded:
			fmt.Fprintf(w, "%-8s ok      %s (%s)\n", res.Target, res.Artifact, res.Duration.Round(time.Millisecond))
		case res.BlockedBy != "":
			fmt.Fprintf(w, "%-8s skipped (%s failed)\n", res.Target, res.BlockedBy)
		default:
			fmt.Fprintf(w, "%-8s FAILED  %v\n", res.Target, res.Err)
		}
	}
}
