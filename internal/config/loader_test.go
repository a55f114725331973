package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/ratbuild/internal/target"
)

// newTestCommand declares the flags the root command exposes.
func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	cmd.Flags().IntP("jobs", "j", 1, "Concurrent builds")
	cmd.Flags().String("profile", "", "Build profile")
	cmd.Flags().String("root", "", "Workspace root")
	cmd.Flags().String("cargo", "", "Compiler executable")
	cmd.Flags().String("extra-flags", "", "Extra compiler flags")
	cmd.Flags().String("log-format", "", "Log format")
	return cmd
}

// clearEnv keeps the developer's environment out of the tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"RATBUILD_EXTRA_FLAGS", "CARGO_FLAGS", "RATBUILD_JOBS", "RATBUILD_PROFILE", "RATBUILD_ROOT", "RATBUILD_VERBOSE"} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	assert.NotNil(t, loader)
}

func TestLoader_SetupViperDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	loader := NewLoader()
	loader.setupViperDefaults()

	assert.Equal(t, "cargo", viper.GetString("cargo"))
	assert.Equal(t, "release", viper.GetString("profile"))
	assert.Equal(t, 1, viper.GetInt("jobs"))
	assert.Equal(t, false, viper.GetBool("verbose"))
	assert.Equal(t, []string{"rake", "clean"}, viper.GetStringSlice("clean.secondary"))
}

func TestLoader_LoadGlobalConfig(t *testing.T) {
	globalDir := t.TempDir()

	t.Run("loads yaml config", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()

		configPath := filepath.Join(globalDir, "config.yml")
		writeFile(t, configPath, `cargo: /opt/cargo
jobs: 4
verbose: true`)
		defer os.Remove(configPath)

		loader := &Loader{GlobalDir: globalDir}
		loader.loadGlobalConfig()

		assert.Equal(t, "/opt/cargo", viper.GetString("cargo"))
		assert.Equal(t, 4, viper.GetInt("jobs"))
		assert.Equal(t, true, viper.GetBool("verbose"))
	})

	t.Run("loads json config", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()

		configPath := filepath.Join(globalDir, "config.json")
		writeFile(t, configPath, `{
  "profile": "debug",
  "runtime": {"libdir": "/opt/ruby/lib"}
}`)
		defer os.Remove(configPath)

		loader := &Loader{GlobalDir: globalDir}
		loader.loadGlobalConfig()

		assert.Equal(t, "debug", viper.GetString("profile"))
		assert.Equal(t, "/opt/ruby/lib", viper.GetString("runtime.libdir"))
	})

	t.Run("handles missing directory gracefully", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()

		loader := &Loader{GlobalDir: filepath.Join(globalDir, "missing")}

		assert.NotPanics(t, func() {
			loader.loadGlobalConfig()
		})
		assert.False(t, viper.IsSet("cargo"))
	})
}

func TestLoader_LoadLocalConfig(t *testing.T) {
	t.Run("walks up directory tree to find config", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()

		tempDir := t.TempDir()
		subDir := filepath.Join(tempDir, "crates", "ratsat")
		require.NoError(t, os.MkdirAll(subDir, 0o755))
		writeFile(t, filepath.Join(tempDir, ".ratbuild.yml"), `jobs: 2`)

		loader := &Loader{WorkDir: subDir}
		loader.loadLocalConfig()

		assert.Equal(t, 2, viper.GetInt("jobs"))
		assert.Equal(t, tempDir, viper.GetString("root"), "config directory is the default root")
	})

	t.Run("merges over global config", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()

		globalDir := t.TempDir()
		writeFile(t, filepath.Join(globalDir, "config.yml"), `cargo: /global/cargo
jobs: 8`)

		localDir := t.TempDir()
		writeFile(t, filepath.Join(localDir, ".ratbuild.yml"), `jobs: 2`)

		loader := &Loader{GlobalDir: globalDir, WorkDir: localDir}
		loader.loadGlobalConfig()
		loader.loadLocalConfig()

		assert.Equal(t, "/global/cargo", viper.GetString("cargo"))
		assert.Equal(t, 2, viper.GetInt("jobs"))
	})

	t.Run("no local config", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()

		loader := &Loader{WorkDir: t.TempDir()}

		assert.NotPanics(t, func() {
			loader.loadLocalConfig()
		})
		assert.False(t, viper.IsSet("root"))
	})
}

func TestLoader_BindEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{
			name: "whitespace separated",
			env:  map[string]string{"RATBUILD_EXTRA_FLAGS": "--locked  --features simd"},
			want: []string{"--locked", "--features", "simd"},
		},
		{
			name: "alias",
			env:  map[string]string{"CARGO_FLAGS": "--offline"},
			want: []string{"--offline"},
		},
		{
			name: "primary wins over alias",
			env:  map[string]string{"RATBUILD_EXTRA_FLAGS": "--locked", "CARGO_FLAGS": "--offline"},
			want: []string{"--locked"},
		},
		{
			name: "unset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()

			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			NewLoader().bindEnv()
			if len(tt.want) == 0 {
				assert.Empty(t, viper.GetStringSlice("extra_flags"))
				return
			}
			assert.Equal(t, tt.want, viper.GetStringSlice("extra_flags"))
		})
	}
}

func TestLoader_BindCommandFlags(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Set("jobs", "3"))
	require.NoError(t, cmd.Flags().Set("verbose", "true"))
	require.NoError(t, cmd.Flags().Set("profile", "debug"))
	require.NoError(t, cmd.Flags().Set("extra-flags", "--locked --offline"))

	loader := NewLoader()
	loader.bindCommandFlags(cmd)

	assert.Equal(t, 3, viper.GetInt("jobs"))
	assert.Equal(t, true, viper.GetBool("verbose"))
	assert.Equal(t, "debug", viper.GetString("profile"))
	assert.Equal(t, []string{"--locked", "--offline"}, viper.GetStringSlice("extra_flags"))
}

func TestLoader_LoadForCommand_Integration(t *testing.T) {
	t.Run("flags override env override local override global", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()
		clearEnv(t)

		globalDir := t.TempDir()
		writeFile(t, filepath.Join(globalDir, "config.yml"), `cargo: /global/cargo
profile: debug
jobs: 8
verbose: false`)

		localDir := t.TempDir()
		writeFile(t, filepath.Join(localDir, ".ratbuild.yml"), `jobs: 2
verbose: true`)

		t.Setenv("RATBUILD_EXTRA_FLAGS", "--locked")
		t.Setenv("RATBUILD_JOBS", "6")

		cmd := newTestCommand()
		require.NoError(t, cmd.Flags().Set("profile", "release"))

		loader := &Loader{GlobalDir: globalDir, WorkDir: localDir}
		cfg, err := loader.LoadForCommand(cmd)
		require.NoError(t, err)

		// Flag value should win
		assert.Equal(t, target.Release, cfg.Profile)
		// Env overrides config files
		assert.Equal(t, 6, cfg.Jobs)
		assert.Equal(t, []string{"--locked"}, cfg.ExtraFlags)
		// Local config should override global
		assert.Equal(t, true, cfg.Verbose)
		// Global config is the base
		assert.Equal(t, "/global/cargo", cfg.Cargo)
		assert.Equal(t, localDir, cfg.Root)
	})

	t.Run("invalid configuration is reported", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()
		clearEnv(t)

		localDir := t.TempDir()
		writeFile(t, filepath.Join(localDir, ".ratbuild.yml"), `profile: turbo`)

		loader := &Loader{GlobalDir: t.TempDir(), WorkDir: localDir}
		_, err := loader.LoadForCommand(newTestCommand())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid build profile")
	})
}
