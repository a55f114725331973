package pipeline

import (
	"context"
	"fmt"

	"github.com/phuslu/log"

	"github.com/Norgate-AV/ratbuild/internal/artifact"
	"github.com/Norgate-AV/ratbuild/internal/codes"
	"github.com/Norgate-AV/ratbuild/internal/compiler"
	"github.com/Norgate-AV/ratbuild/internal/orchestrator"
	"github.com/Norgate-AV/ratbuild/internal/platform"
	"github.com/Norgate-AV/ratbuild/internal/target"
)

// Builder builds single targets through their pipelines. It satisfies
// orchestrator.Builder.
type Builder struct {
	// Profile is resolved once per invocation and only read here.
	Profile  platform.Profile
	Root     string
	Commands *compiler.CommandBuilder
	Compiler Invoker
	Stripper artifact.Stripper
	Logger   *log.Logger
}

var _ orchestrator.Builder = (*Builder)(nil)

// PipelineFor returns the stage chain for t.
func (b *Builder) PipelineFor(t target.BuildTarget) Pipeline {
	compile := &CompileStage{Target: t, Profile: b.Profile, Root: b.Root, Compiler: b.Compiler}

	switch t.Kind {
	case target.Stub:
		return Pipeline{compile, &ForeignStubStage{}}
	case target.Executable:
		return Pipeline{compile, &PublishStage{Kind: artifact.Executable, Stripper: b.Stripper}}
	default:
		return Pipeline{compile, &PublishStage{Kind: artifact.KindOf(t)}}
	}
}

// Build compiles t and relocates its primary artifact.
func (b *Builder) Build(ctx context.Context, t target.BuildTarget) (*orchestrator.Outcome, error) {
	p := b.PipelineFor(t)

	out, err := p.Run(ctx, Artifact{Kind: Source, Target: t.Name})
	if err != nil {
		if _, ok := codes.AsError(err); !ok {
			err = codes.New(codes.ConfigInvalid, t.Name, "pipeline", err)
		}

		return &orchestrator.Outcome{Log: out.Log}, err
	}

	b.Logger.Info().
		Str("target", t.Name).
		Str("artifact", out.Path).
		Str("kind", string(out.Kind)).
		Msg("artifact ready")

	return &orchestrator.Outcome{Artifact: out.Path, Log: out.Log}, nil
}

// PlanEntry describes what building a target would do.
type PlanEntry struct {
	Target  string        `yaml:"target"`
	Deps    []string      `yaml:"deps,omitempty"`
	Command string        `yaml:"command"`
	Stages  []string      `yaml:"stages"`
	Spec    artifact.Spec `yaml:"artifact"`
}

// Plan resolves commands and artifact specs without running anything.
func (b *Builder) Plan(targets []target.BuildTarget) ([]PlanEntry, error) {
	entries := make([]PlanEntry, 0, len(targets))

	for _, t := range targets {
		cmd, err := b.Commands.GetBuildCommand(t, b.Profile)
		if err != nil {
			return nil, fmt.Errorf("failed to plan %s: %w", t.Name, err)
		}

		p := b.PipelineFor(t)
		if err := p.Validate(Source); err != nil {
			return nil, fmt.Errorf("failed to plan %s: %w", t.Name, err)
		}

		entries = append(entries, PlanEntry{
			Target:  t.Name,
			Deps:    t.Deps,
			Command: cmd.String(),
			Stages:  p.Names(),
			Spec:    artifact.ForTarget(t, b.Profile, b.Commands.Outputs(t, b.Profile), b.Root),
		})
	}

	return entries, nil
}
