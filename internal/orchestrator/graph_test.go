package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/ratbuild/internal/target"
)

func tgt(name string, deps ...string) target.BuildTarget {
	return target.BuildTarget{Name: name, Deps: deps, Destination: "out/" + name}
}

func TestNewGraph_DefaultsOrder(t *testing.T) {
	g, err := NewGraph(target.Defaults())
	require.NoError(t, err)

	assert.Equal(t, []string{target.Core, target.IPASIR, target.Ruby, target.Binary}, g.Order())
	assert.Equal(t, []string{target.IPASIR, target.Ruby, target.Binary}, g.Dependents(target.Core))
	assert.Equal(t, []string{target.Binary}, g.Dependents(target.IPASIR))
	assert.Empty(t, g.Dependents(target.Binary))
	assert.Nil(t, g.Dependents("missing"))
}

func TestNewGraph_OrderIsIndependentOfDeclarationForDeps(t *testing.T) {
	g, err := NewGraph([]target.BuildTarget{
		tgt("bin", "ipasir", "stub"),
		tgt("stub", "core"),
		tgt("ipasir", "core"),
		tgt("core"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"core", "stub", "ipasir", "bin"}, g.Order())
}

func TestNewGraph_Validation(t *testing.T) {
	tests := []struct {
		name        string
		targets     []target.BuildTarget
		wantKind    error
		errContains string
	}{
		{
			name:        "empty name",
			targets:     []target.BuildTarget{{Destination: "x"}},
			wantKind:    ErrInvalidGraph,
			errContains: "has no name",
		},
		{
			name:        "duplicate name",
			targets:     []target.BuildTarget{tgt("a"), {Name: "a", Destination: "other"}},
			wantKind:    ErrInvalidGraph,
			errContains: "duplicate target",
		},
		{
			name:        "unknown dependency",
			targets:     []target.BuildTarget{tgt("a", "ghost")},
			wantKind:    ErrInvalidGraph,
			errContains: "unknown target",
		},
		{
			name:        "missing destination",
			targets:     []target.BuildTarget{{Name: "a"}},
			wantKind:    ErrInvalidGraph,
			errContains: "no destination",
		},
		{
			name: "colliding destinations",
			targets: []target.BuildTarget{
				{Name: "ipasir", Destination: "lib/out.a"},
				{Name: "stub", Destination: "lib/../lib/out.a"},
			},
			wantKind:    ErrInvalidGraph,
			errContains: "both relocate",
		},
		{
			name:        "self dependency",
			targets:     []target.BuildTarget{tgt("a", "a")},
			wantKind:    ErrCycleFound,
			errContains: "a -> a",
		},
		{
			name:        "cycle",
			targets:     []target.BuildTarget{tgt("a", "c"), tgt("b", "a"), tgt("c", "b")},
			wantKind:    ErrCycleFound,
			errContains: "cycle:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.targets)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind), "got %v", err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestNewGraph_CyclePath(t *testing.T) {
	_, err := NewGraph([]target.BuildTarget{tgt("a", "b"), tgt("b", "a")})
	require.Error(t, err)

	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "cycle: a -> b -> a", ge.Msg)
}

func TestNewGraph_DuplicateDepsAreCollapsed(t *testing.T) {
	g, err := NewGraph([]target.BuildTarget{tgt("a"), tgt("b", "a", "a")})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, g.Dependents("a"))
}

func TestGraph_TargetsCopy(t *testing.T) {
	in := []target.BuildTarget{tgt("a")}
	g, err := NewGraph(in)
	require.NoError(t, err)

	in[0].Name = "mutated"
	got, ok := g.Target("a")
	assert.True(t, ok)
	assert.Equal(t, "a", got.Name)
	assert.Len(t, g.Targets(), 1)
}

func TestNewGraphWithDestinations(t *testing.T) {
	targets := []target.BuildTarget{
		{Name: "mod", Kind: target.Stub, Destination: "out/mod"},
		{Name: "tool", Kind: target.Executable, Destination: "out/mod.so"},
	}

	// the loader extension is only appended at relocation time
	withExt := func(t target.BuildTarget) string {
		if t.Kind == target.Stub {
			return t.Destination + ".so"
		}
		return t.Destination
	}

	_, err := NewGraph(targets)
	require.NoError(t, err, "declared destinations differ")

	_, err = NewGraphWithDestinations(targets, withExt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidGraph))
	assert.Contains(t, err.Error(), `targets "mod" and "tool" both relocate to out/mod.so`)

	targets[1].Destination = "out/mod.bundle"
	_, err = NewGraphWithDestinations(targets, withExt)
	assert.NoError(t, err)
}
