// Package target defines the buildable units of the workspace and their
// static dependency declarations.
package target

import (
	"fmt"
	"slices"
	"strings"
)

// Profile is the compiler build profile.
type Profile string

const (
	Debug   Profile = "debug"
	Release Profile = "release"
)

// ParseProfile validates a profile name.
func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case Debug:
		return Debug, nil
	case Release, "":
		return Release, nil
	default:
		return "", fmt.Errorf("invalid build profile: %q", s)
	}
}

// Kind is what a target produces.
type Kind string

const (
	// Library produces a static library (plus a dynamic one on Darwin).
	Library Kind = "library"
	// Stub produces a dynamic library loaded by the foreign runtime.
	Stub Kind = "stub"
	// Executable produces a user-facing binary.
	Executable Kind = "executable"
)

// Names of the default targets.
const (
	Core   = "core"
	IPASIR = "ipasir"
	Ruby   = "stub"
	Binary = "bin"
)

// BuildTarget is one independently buildable unit.
type BuildTarget struct {
	Name string `mapstructure:"name" yaml:"name"`
	// Package is the cargo package (-p).
	Package string `mapstructure:"package" yaml:"package"`
	Kind    Kind   `mapstructure:"kind" yaml:"kind"`
	// LogicalName is the platform-independent artifact name (libfoo.a -> foo).
	LogicalName string   `mapstructure:"logical_name" yaml:"logical_name"`
	Deps        []string `mapstructure:"deps" yaml:"deps,omitempty"`
	Profile     Profile  `mapstructure:"-" yaml:"profile"`
	ExtraFlags  []string `mapstructure:"-" yaml:"extra_flags,omitempty"`
	// Destination is relative to the workspace root. Stub destinations omit
	// the extension; the loader extension is appended on relocation.
	Destination string `mapstructure:"destination" yaml:"destination"`
	Strip       bool   `mapstructure:"strip" yaml:"strip,omitempty"`
}

// Defaults returns the workspace targets: core -> {ipasir, stub} -> bin.
func Defaults() []BuildTarget {
	return []BuildTarget{
		{
			Name:        Core,
			Package:     "ratsat",
			Kind:        Library,
			LogicalName: "ratsat",
			Destination: "target/ratbuild/core/libratsat.a",
		},
		{
			Name:        IPASIR,
			Package:     "ratsat-ipasir",
			Kind:        Library,
			LogicalName: "ratsat_ipasir",
			Deps:        []string{Core},
			Destination: "ipasir/libipasirratsat.a",
		},
		{
			Name:        Ruby,
			Package:     "ratsat-ruby",
			Kind:        Stub,
			LogicalName: "ratsat_ruby",
			Deps:        []string{Core},
			Destination: "ruby/lib/ratsat/ratsat",
		},
		{
			Name:        Binary,
			Package:     "ratsat",
			Kind:        Executable,
			LogicalName: "ratsat",
			Deps:        []string{IPASIR, Ruby},
			Destination: "bin/ratsat",
			Strip:       true,
		},
	}
}

// Apply returns copies of targets with profile and extra flags set.
func Apply(targets []BuildTarget, profile Profile, extraFlags []string) []BuildTarget {
	out := make([]BuildTarget, len(targets))
	for i, t := range targets {
		t.Deps = slices.Clone(t.Deps)
		t.Profile = profile
		t.ExtraFlags = slices.Clone(extraFlags)
		out[i] = t
	}

	return out
}

// ParseSelection parses a comma separated list of target names, dropping
// blanks and duplicates while keeping order.
func ParseSelection(s string) []string {
	names := make([]string, 0)

	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		if name == "" || slices.Contains(names, name) {
			continue
		}

		names = append(names, name)
	}

	return names
}

// Closure returns the selected targets plus all of their transitive
// dependencies, in the order they are declared in all.
func Closure(all []BuildTarget, selected []string) ([]BuildTarget, error) {
	byName := make(map[string]BuildTarget, len(all))
	for _, t := range all {
		byName[t.Name] = t
	}

	want := make(map[string]bool)
	var visit func(name string) error
	visit = func(name string) error {
		if want[name] {
			return nil
		}

		t, ok := byName[name]
		if !ok {
			return fmt.Errorf("unknown target: %q", name)
		}

		want[name] = true
		for _, dep := range t.Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}

		return nil
	}

	for _, name := range selected {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	out := make([]BuildTarget, 0, len(want))
	for _, t := range all {
		if want[t.Name] {
			out = append(out, t)
		}
	}

	return out, nil
}
