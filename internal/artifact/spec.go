// Package artifact moves compiler outputs into the layout the consuming build
// system expects.
//
// The consumer performs no discovery: after a successful relocation the
// destination path must exist with complete content. Relocation therefore
// writes to a staging file next to the destination and renames it into place.
package artifact

import (
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/ratbuild/internal/platform"
	"github.com/Norgate-AV/ratbuild/internal/target"
)

// DarwinDylibExt is the fallback extension tried when the primary output is missing.
const DarwinDylibExt = ".dylib"

// Kind is the type of a build artifact, used to type pipeline stages.
type Kind string

const (
	StaticLib      Kind = "staticlib"
	DynamicLib     Kind = "cdylib"
	LoadableModule Kind = "loadable-module"
	Executable     Kind = "executable"
)

// PostProcess is what happens to an output on its way to the destination.
type PostProcess string

const (
	None            PostProcess = "none"
	Strip           PostProcess = "strip"
	RenameExtension PostProcess = "rename-extension"
)

// Spec describes where a target's output comes from and where it goes.
type Spec struct {
	Target    string `yaml:"target"`
	SourceDir string `yaml:"source_dir"`
	// Outputs are the canonical compiler outputs, primary first.
	Outputs []string `yaml:"outputs"`
	// Fallback replaces the primary output when it does not exist.
	Fallback    string      `yaml:"fallback,omitempty"`
	Destination string      `yaml:"destination"`
	PostProcess PostProcess `yaml:"post_process"`
}

// Primary returns the primary compiler output.
func (s Spec) Primary() string {
	if len(s.Outputs) == 0 {
		return ""
	}

	return s.Outputs[0]
}

// KindOf returns the artifact kind a target's primary output has.
func KindOf(t target.BuildTarget) Kind {
	switch t.Kind {
	case target.Stub:
		return DynamicLib
	case target.Executable:
		return Executable
	default:
		return StaticLib
	}
}

// ForTarget derives the Spec for t from the compiler outputs.
// Destinations are resolved against root.
func ForTarget(t target.BuildTarget, p platform.Profile, outputs []string, root string) Spec {
	spec := Spec{
		Target:      t.Name,
		Outputs:     outputs,
		Destination: resolve(root, t.Destination),
		PostProcess: None,
	}

	if len(outputs) > 0 {
		spec.SourceDir = filepath.Dir(outputs[0])
	}

	switch t.Kind {
	case target.Stub:
		spec.PostProcess = RenameExtension
		spec.Destination = spec.Destination + "." + p.LoaderExt

		if primary := spec.Primary(); primary != "" {
			if fallback := swapExt(primary, DarwinDylibExt); fallback != primary {
				spec.Fallback = fallback
			}
		}
	case target.Executable:
		if t.Strip {
			spec.PostProcess = Strip
		}
	}

	return spec
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) || root == "" {
		return filepath.Clean(path)
	}

	return filepath.Join(root, path)
}

func swapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
