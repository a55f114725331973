// Package platform decides the linker policy and file naming for the host.
//
// The policy is a table keyed by OS class. Supporting a new platform means
// adding a row, not branching inside build steps.
package platform

import "slices"

// Class groups host operating systems that share dynamic linking rules.
type Class string

const (
	Darwin Class = "darwin"
	Other  Class = "other"
)

// Runtime describes the foreign runtime the stub is linked against.
type Runtime struct {
	// LibDir is the runtime's library directory.
	LibDir string `yaml:"libdir,omitempty"`
	// LibName is the runtime library name without lib prefix or extension.
	LibName string `yaml:"libname,omitempty"`
}

// Profile is the resolved platform policy. Treat it as immutable; it is
// passed by value into every component.
type Profile struct {
	Class Class `yaml:"class"`
	// DylibExt is the extension the native compiler gives dynamic libraries.
	DylibExt string `yaml:"dylib_ext"`
	// LoaderExt is the extension token the foreign runtime's loader expects.
	LoaderExt string `yaml:"loader_ext"`
	// LinkFlags are passed to the linker for stub targets.
	LinkFlags []string `yaml:"link_flags,omitempty"`
	// RuntimeSearchPath is only set for Darwin-like hosts.
	RuntimeSearchPath string `yaml:"runtime_search_path,omitempty"`
}

// IsDarwin reports whether the host is Darwin-like.
func (p Profile) IsDarwin() bool {
	return p.Class == Darwin
}

// Clone returns a deep copy so callers cannot alias LinkFlags.
func (p Profile) Clone() Profile {
	p.LinkFlags = slices.Clone(p.LinkFlags)
	return p
}

type policy struct {
	dylibExt  string
	loaderExt string
	// linkRuntime injects -l<runtime> and the runtime search path.
	linkRuntime bool
}

var policies = map[Class]policy{
	Darwin: {dylibExt: ".dylib", loaderExt: "bundle", linkRuntime: true},
	Other:  {dylibExt: ".so", loaderExt: "so"},
}

// darwinLike lists GOOS values sharing Darwin's dynamic linker.
var darwinLike = []string{"darwin", "ios"}

// ClassOf maps a GOOS value to its OS class.
func ClassOf(goos string) Class {
	if slices.Contains(darwinLike, goos) {
		return Darwin
	}

	return Other
}

// Resolve builds the profile for goos. It never fails: unknown hosts fall
// into the Other class.
func Resolve(goos string, rt Runtime) Profile {
	class := ClassOf(goos)
	pol := policies[class]

	p := Profile{
		Class:     class,
		DylibExt:  pol.dylibExt,
		LoaderExt: pol.loaderExt,
	}

	if pol.linkRuntime {
		if rt.LibName != "" {
			p.LinkFlags = []string{"-l" + rt.LibName}
		}

		p.RuntimeSearchPath = rt.LibDir
	}

	return p
}

// NeedsRuntime reports whether goos requires runtime link information.
func NeedsRuntime(goos string) bool {
	return policies[ClassOf(goos)].linkRuntime
}
