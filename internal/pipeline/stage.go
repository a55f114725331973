// Package pipeline turns a build target into a chain of typed artifact
// transformations: compile, then publish (or, for the foreign-runtime stub,
// convert the dynamic library into a loadable module).
//
// Each stage declares the artifact kind it consumes and produces, so a chain
// can be validated before anything runs and every stage can be exercised in
// isolation with a fake compiler.
package pipeline

import (
	"context"
	"fmt"

	"github.com/Norgate-AV/ratbuild/internal/artifact"
)

// Source is the input kind of the compile stage.
const Source artifact.Kind = "source"

// Artifact is the value flowing between stages.
type Artifact struct {
	Kind   artifact.Kind
	Target string
	// Spec is known once the compile stage has run.
	Spec artifact.Spec
	// Path is where the artifact currently lives.
	Path string
	// Log carries diagnostic output gathered along the way.
	Log string
}

// Stage is one typed transformation.
type Stage interface {
	Name() string
	Input() artifact.Kind
	Output() artifact.Kind
	Apply(ctx context.Context, in Artifact) (Artifact, error)
}

// Pipeline is an ordered chain of stages.
type Pipeline []Stage

// Validate checks that each stage consumes what the previous one produces.
func (p Pipeline) Validate(input artifact.Kind) error {
	kind := input
	for _, s := range p {
		if s.Input() != kind {
			return fmt.Errorf("stage %s expects %s but receives %s", s.Name(), s.Input(), kind)
		}

		kind = s.Output()
	}

	return nil
}

// Names lists the stage names in order.
func (p Pipeline) Names() []string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.Name()
	}

	return names
}

// Run validates the chain and applies every stage in order.
func (p Pipeline) Run(ctx context.Context, in Artifact) (Artifact, error) {
	if err := p.Validate(in.Kind); err != nil {
		return in, err
	}

	cur := in
	for _, s := range p {
		out, err := s.Apply(ctx, cur)
		if err != nil {
			return cur, err
		}

		if out.Kind != s.Output() {
			return cur, fmt.Errorf("stage %s produced %s, declared %s", s.Name(), out.Kind, s.Output())
		}

		cur = out
	}

	return cur, nil
}
