package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/mod/semver"

	"github.com/Norgate-AV/ratbuild/internal/compiler"
	"github.com/Norgate-AV/ratbuild/internal/platform"
	"github.com/Norgate-AV/ratbuild/internal/target"
)

// Default configuration values
const (
	DefaultCargo         = "cargo"
	DefaultTargetDir     = "target"
	DefaultProfile       = string(target.Release)
	DefaultJobs          = 1
	DefaultVerbose       = false
	DefaultLogFormat     = "console"
	DefaultStripTool     = "strip"
	DefaultDownstreamDir = "ruby"
)

// Defaults for the argv-valued settings.
var (
	DefaultNativeTest     = []string{"test"}
	DefaultDownstreamTest = []string{"rake", "test"}
	DefaultCleanSecondary = []string{"rake", "clean"}
)

// Holds the configuration options for ratbuild
type Config struct {
	// Native compiler executable
	Cargo string

	// Workspace root; every relative path is resolved against it
	Root string

	// Compiler output directory, relative to Root unless absolute
	TargetDir string

	// Build profile (debug or release)
	Profile target.Profile

	// Flags appended verbatim to every compiler invocation
	ExtraFlags []string

	// Maximum concurrent builds within a wave
	Jobs int

	// Enable verbose output
	Verbose bool

	// Log output format: console or json
	LogFormat string

	// Build targets; the built-in set when none are configured
	Targets []target.BuildTarget

	// Foreign runtime link settings; probed when empty
	Runtime      platform.Runtime
	LibDirQuery  []string
	LibNameQuery []string

	// Oldest accepted compiler version
	MinCargo string

	StripTool string
	StripArgs []string

	// Test stage commands
	NativeTest     []string
	DownstreamTest []string
	DownstreamDir  string

	// Secondary cleanup command, run in DownstreamDir
	CleanSecondary []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Cargo:      viper.GetString("cargo"),
		Root:       viper.GetString("root"),
		TargetDir:  viper.GetString("target_dir"),
		ExtraFlags: viper.GetStringSlice("extra_flags"),
		Jobs:       viper.GetInt("jobs"),
		Verbose:    viper.GetBool("verbose"),
		LogFormat:  viper.GetString("log_format"),
		Runtime: platform.Runtime{
			LibDir:  viper.GetString("runtime.libdir"),
			LibName: viper.GetString("runtime.libname"),
		},
		LibDirQuery:    viper.GetStringSlice("runtime.libdir_query"),
		LibNameQuery:   viper.GetStringSlice("runtime.libname_query"),
		MinCargo:       viper.GetString("min_cargo"),
		StripTool:      viper.GetString("strip.tool"),
		StripArgs:      viper.GetStringSlice("strip.args"),
		NativeTest:     viper.GetStringSlice("test.native"),
		DownstreamTest: viper.GetStringSlice("test.downstream"),
		DownstreamDir:  viper.GetString("test.dir"),
		CleanSecondary: viper.GetStringSlice("clean.secondary"),
	}

	profile, err := target.ParseProfile(viper.GetString("profile"))
	if err != nil {
		return nil, err
	}

	cfg.Profile = profile

	if viper.IsSet("targets") {
		if err := viper.UnmarshalKey("targets", &cfg.Targets); err != nil {
			return nil, fmt.Errorf("invalid targets: %w", err)
		}
	}

	// Apply defaults if not set
	if cfg.Cargo == "" {
		cfg.Cargo = DefaultCargo
	}

	if cfg.TargetDir == "" {
		cfg.TargetDir = DefaultTargetDir
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}

	if len(cfg.Targets) == 0 {
		cfg.Targets = target.Defaults()
	}

	if len(cfg.LibDirQuery) == 0 {
		cfg.LibDirQuery = platform.DefaultLibDirQuery
	}

	if len(cfg.LibNameQuery) == 0 {
		cfg.LibNameQuery = platform.DefaultLibNameQuery
	}

	if cfg.MinCargo == "" {
		cfg.MinCargo = compiler.MinCargoVersion
	}

	if cfg.StripTool == "" {
		cfg.StripTool = DefaultStripTool
	}

	if len(cfg.NativeTest) == 0 {
		cfg.NativeTest = DefaultNativeTest
	}

	if len(cfg.DownstreamTest) == 0 {
		cfg.DownstreamTest = DefaultDownstreamTest
	}

	if cfg.DownstreamDir == "" {
		cfg.DownstreamDir = DefaultDownstreamDir
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	abs, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("invalid root path: %v", err)
	}

	c.Root = abs

	if c.Jobs < 1 {
		return fmt.Errorf("invalid jobs: %d (must be at least 1)", c.Jobs)
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}

	min := c.MinCargo
	if !strings.HasPrefix(min, "v") {
		min = "v" + min
	}

	if !semver.IsValid(min) {
		return fmt.Errorf("invalid minimum compiler version: %s", c.MinCargo)
	}

	for _, t := range c.Targets {
		if err := validateTarget(t); err != nil {
			return err
		}
	}

	return nil
}

func validateTarget(t target.BuildTarget) error {
	if t.Name == "" {
		return fmt.Errorf("invalid target: missing name")
	}

	switch t.Kind {
	case target.Library, target.Stub, target.Executable:
	default:
		return fmt.Errorf("invalid target %s: unknown kind %q", t.Name, t.Kind)
	}

	if t.Package == "" || t.LogicalName == "" {
		return fmt.Errorf("invalid target %s: package and logical_name are required", t.Name)
	}

	if t.Strip && t.Kind != target.Executable {
		return fmt.Errorf("invalid target %s: only executables can be stripped", t.Name)
	}

	return nil
}

// BuildTargets returns the configured targets with the profile and extra
// flags applied.
func (c *Config) BuildTargets() []target.BuildTarget {
	return target.Apply(c.Targets, c.Profile, c.ExtraFlags)
}
