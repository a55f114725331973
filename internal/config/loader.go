package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override (RATBUILD_JOBS, ...).
const EnvPrefix = "RATBUILD"

// Loader handles configuration loading from various sources
type Loader struct {
	// GlobalDir overrides the user config directory.
	GlobalDir string
	// WorkDir is where the local config search starts; the current
	// directory when empty.
	WorkDir string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForCommand loads configuration for a ratbuild command
func (l *Loader) LoadForCommand(cmd *cobra.Command) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig()
	l.bindEnv()
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("cargo", DefaultCargo)
	viper.SetDefault("root", ".")
	viper.SetDefault("target_dir", DefaultTargetDir)
	viper.SetDefault("profile", DefaultProfile)
	viper.SetDefault("jobs", DefaultJobs)
	viper.SetDefault("verbose", DefaultVerbose)
	viper.SetDefault("log_format", DefaultLogFormat)
	viper.SetDefault("strip.tool", DefaultStripTool)
	viper.SetDefault("test.native", DefaultNativeTest)
	viper.SetDefault("test.downstream", DefaultDownstreamTest)
	viper.SetDefault("test.dir", DefaultDownstreamDir)
	viper.SetDefault("clean.secondary", DefaultCleanSecondary)
}

func (l *Loader) globalDir() string {
	if l.GlobalDir != "" {
		return l.GlobalDir
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "ratbuild")
}

// loadGlobalConfig loads global configuration from the user config directory
func (l *Loader) loadGlobalConfig() {
	globalDir := l.globalDir()
	if globalDir == "" {
		return
	}

	for _, ext := range []string{"yml", "yaml", "json", "toml"} {
		globalPath := filepath.Join(globalDir, "config."+ext)

		if _, err := os.Stat(globalPath); err == nil {
			viper.SetConfigFile(globalPath)

			if err := viper.ReadInConfig(); err == nil {
				break
			}
		}
	}
}

// loadLocalConfig merges the nearest .ratbuild config over the global one.
// Its directory becomes the default workspace root.
func (l *Loader) loadLocalConfig() {
	dir := l.WorkDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return // silently ignore, config.Load() will handle validation
		}

		dir = wd
	}

	localPath := FindLocalConfig(dir)
	if localPath != "" {
		viper.SetDefault("root", filepath.Dir(localPath))
		viper.SetConfigFile(localPath)
		_ = viper.MergeInConfig()
	}
}

// bindEnv maps RATBUILD_* variables onto config keys. CARGO_FLAGS is
// accepted as an alias for RATBUILD_EXTRA_FLAGS.
func (l *Loader) bindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("extra_flags", EnvPrefix+"_EXTRA_FLAGS", "CARGO_FLAGS")
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
	_ = viper.BindPFlag("jobs", cmd.Flags().Lookup("jobs"))
	_ = viper.BindPFlag("profile", cmd.Flags().Lookup("profile"))
	_ = viper.BindPFlag("root", cmd.Flags().Lookup("root"))
	_ = viper.BindPFlag("cargo", cmd.Flags().Lookup("cargo"))
	_ = viper.BindPFlag("extra_flags", cmd.Flags().Lookup("extra-flags"))
	_ = viper.BindPFlag("log_format", cmd.Flags().Lookup("log-format"))
}
