package pipeline

import (
	"context"

	"github.com/Norgate-AV/ratbuild/internal/artifact"
	"github.com/Norgate-AV/ratbuild/internal/compiler"
	"github.com/Norgate-AV/ratbuild/internal/platform"
	"github.com/Norgate-AV/ratbuild/internal/target"
)

// Invoker is the part of compiler.Compiler the compile stage needs.
type Invoker interface {
	Invoke(ctx context.Context, t target.BuildTarget, p platform.Profile) (*compiler.Invocation, error)
}

// CompileStage runs the native compiler for one target.
type CompileStage struct {
	Target   target.BuildTarget
	Profile  platform.Profile
	Root     string
	Compiler Invoker
}

func (s *CompileStage) Name() string          { return "compile" }
func (s *CompileStage) Input() artifact.Kind  { return Source }
func (s *CompileStage) Output() artifact.Kind { return artifact.KindOf(s.Target) }

func (s *CompileStage) Apply(ctx context.Context, in Artifact) (Artifact, error) {
	inv, err := s.Compiler.Invoke(ctx, s.Target, s.Profile)
	if err != nil {
		return in, err
	}

	spec := artifact.ForTarget(s.Target, s.Profile, inv.Outputs, s.Root)

	return Artifact{
		Kind:   s.Output(),
		Target: s.Target.Name,
		Spec:   spec,
		Path:   spec.Primary(),
		Log:    inv.Result.Output,
	}, nil
}

// PublishStage relocates a library or executable without changing its kind.
type PublishStage struct {
	Kind     artifact.Kind
	Stripper artifact.Stripper
}

func (s *PublishStage) Name() string          { return "publish" }
func (s *PublishStage) Input() artifact.Kind  { return s.Kind }
func (s *PublishStage) Output() artifact.Kind { return s.Kind }

func (s *PublishStage) Apply(ctx context.Context, in Artifact) (Artifact, error) {
	return relocate(ctx, in, s.Kind, s.Stripper)
}

// ForeignStubStage turns the compiler's dynamic library into a module the
// foreign runtime's loader can bind, under the loader's extension.
type ForeignStubStage struct{}

func (s *ForeignStubStage) Name() string          { return "foreign-stub" }
func (s *ForeignStubStage) Input() artifact.Kind  { return artifact.DynamicLib }
func (s *ForeignStubStage) Output() artifact.Kind { return artifact.LoadableModule }

func (s *ForeignStubStage) Apply(ctx context.Context, in Artifact) (Artifact, error) {
	// loader-bound libraries are never stripped
	return relocate(ctx, in, artifact.LoadableModule, nil)
}

func relocate(ctx context.Context, in Artifact, kind artifact.Kind, stripper artifact.Stripper) (Artifact, error) {
	rel, err := artifact.Relocate(ctx, in.Spec, stripper)
	if err != nil {
		return in, err
	}

	out := in
	out.Kind = kind
	out.Path = rel.Destination

	return out, nil
}
