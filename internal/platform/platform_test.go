package platform

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/ratbuild/internal/proc"
)

func TestResolve(t *testing.T) {
	rt := Runtime{LibDir: "/opt/ruby/lib", LibName: "ruby.3.3"}

	tests := []struct {
		name string
		goos string
		want Profile
	}{
		{
			name: "darwin links the runtime",
			goos: "darwin",
			want: Profile{
				Class:             Darwin,
				DylibExt:          ".dylib",
				LoaderExt:         "bundle",
				LinkFlags:         []string{"-lruby.3.3"},
				RuntimeSearchPath: "/opt/ruby/lib",
			},
		},
		{
			name: "ios is darwin-like",
			goos: "ios",
			want: Profile{
				Class:             Darwin,
				DylibExt:          ".dylib",
				LoaderExt:         "bundle",
				LinkFlags:         []string{"-lruby.3.3"},
				RuntimeSearchPath: "/opt/ruby/lib",
			},
		},
		{
			name: "linux needs nothing extra",
			goos: "linux",
			want: Profile{Class: Other, DylibExt: ".so", LoaderExt: "so"},
		},
		{
			name: "freebsd falls into other",
			goos: "freebsd",
			want: Profile{Class: Other, DylibExt: ".so", LoaderExt: "so"},
		},
		{
			name: "unknown host is still resolved",
			goos: "plan10",
			want: Profile{Class: Other, DylibExt: ".so", LoaderExt: "so"},
		},
		{
			name: "empty goos is still resolved",
			goos: "",
			want: Profile{Class: Other, DylibExt: ".so", LoaderExt: "so"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.goos, rt)
			assert.Equal(t, tt.want, got)

			// deterministic for the same host
			assert.Equal(t, got, Resolve(tt.goos, rt))
		})
	}
}

func TestResolve_DarwinWithoutRuntimeInfo(t *testing.T) {
	p := Resolve("darwin", Runtime{})
	assert.True(t, p.IsDarwin())
	assert.Empty(t, p.LinkFlags)
	assert.Empty(t, p.RuntimeSearchPath)
}

func TestProfile_Clone(t *testing.T) {
	p := Resolve("darwin", Runtime{LibDir: "/lib", LibName: "ruby"})
	c := p.Clone()
	c.LinkFlags[0] = "-lother"

	assert.Equal(t, "-lruby", p.LinkFlags[0])
}

func TestNeedsRuntime(t *testing.T) {
	assert.True(t, NeedsRuntime("darwin"))
	assert.False(t, NeedsRuntime("linux"))
	assert.False(t, NeedsRuntime("windows"))
}

func TestProbe(t *testing.T) {
	runner := &proc.FakeRunner{
		Handler: func(_ context.Context, cmd proc.ShellCommand) (*proc.Result, error) {
			script := strings.Join(cmd.Args, " ")
			switch {
			case strings.Contains(script, "libdir"):
				return &proc.Result{Output: "/usr/local/lib\n"}, nil
			case strings.Contains(script, "RUBY_SO_NAME"):
				return &proc.Result{Output: "ruby.3.3"}, nil
			}

			return &proc.Result{ExitCode: 1}, nil
		},
	}

	t.Run("fills missing fields", func(t *testing.T) {
		rt, err := Probe(context.Background(), runner, Runtime{}, DefaultLibDirQuery, DefaultLibNameQuery)
		require.NoError(t, err)
		assert.Equal(t, Runtime{LibDir: "/usr/local/lib", LibName: "ruby.3.3"}, rt)
	})

	t.Run("keeps configured fields", func(t *testing.T) {
		before := len(runner.Calls())
		rt, err := Probe(context.Background(), runner, Runtime{LibDir: "/custom", LibName: "ruby"}, DefaultLibDirQuery, DefaultLibNameQuery)
		require.NoError(t, err)
		assert.Equal(t, Runtime{LibDir: "/custom", LibName: "ruby"}, rt)
		assert.Len(t, runner.Calls(), before, "no query should run")
	})

	t.Run("failing query is reported", func(t *testing.T) {
		failing := &proc.FakeRunner{
			Handler: func(context.Context, proc.ShellCommand) (*proc.Result, error) {
				return &proc.Result{ExitCode: 127, Output: "ruby: not found"}, nil
			},
		}

		_, err := Probe(context.Background(), failing, Runtime{}, DefaultLibDirQuery, DefaultLibNameQuery)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "libdir")
		assert.Contains(t, err.Error(), "ruby: not found")
	})

	t.Run("empty output is rejected", func(t *testing.T) {
		empty := &proc.FakeRunner{}
		_, err := Probe(context.Background(), empty, Runtime{}, DefaultLibDirQuery, DefaultLibNameQuery)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "printed nothing")
	})
}
