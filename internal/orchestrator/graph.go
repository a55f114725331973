package orchestrator

import (
	"container/heap"
	"path/filepath"

	"github.com/Norgate-AV/ratbuild/internal/target"
)

// Graph is the immutable dependency graph of build targets. Node indices
// follow declaration order, which is also the tie-breaker everywhere an
// order has to be chosen.
type Graph struct {
	targets []target.BuildTarget
	index   map[string]int
	// incoming[i] are the dependencies of i, outgoing[i] its dependents.
	incoming [][]int
	outgoing [][]int
	order    []int
}

// DestinationFunc returns the path a target's artifact finally lands on.
type DestinationFunc func(t target.BuildTarget) string

// NewGraph validates targets and builds the graph. It rejects duplicate or
// empty names, unknown dependencies, cycles and colliding destinations.
// Destinations are compared as declared.
func NewGraph(targets []target.BuildTarget) (*Graph, error) {
	return NewGraphWithDestinations(targets, nil)
}

// NewGraphWithDestinations is NewGraph with destinations compared after
// resolving them through dest, so that suffixes added at relocation time
// cannot hide a collision. A nil dest compares declared destinations.
func NewGraphWithDestinations(targets []target.BuildTarget, dest DestinationFunc) (*Graph, error) {
	g := &Graph{
		targets:  make([]target.BuildTarget, len(targets)),
		index:    make(map[string]int, len(targets)),
		incoming: make([][]int, len(targets)),
		outgoing: make([][]int, len(targets)),
	}
	copy(g.targets, targets)

	destinations := make(map[string]string, len(targets))
	for i, t := range g.targets {
		if t.Name == "" {
			return nil, invalidf("target %d has no name", i)
		}
		if _, dup := g.index[t.Name]; dup {
			return nil, invalidf("duplicate target %q", t.Name)
		}
		g.index[t.Name] = i

		if t.Destination == "" {
			return nil, invalidf("target %q has no destination", t.Name)
		}
		final := t.Destination
		if dest != nil {
			final = dest(t)
		}
		final = filepath.Clean(final)
		if other, clash := destinations[final]; clash {
			return nil, invalidf("targets %q and %q both relocate to %s", other, t.Name, final)
		}
		destinations[final] = t.Name
	}

	for i, t := range g.targets {
		seen := make(map[int]bool, len(t.Deps))
		for _, dep := range t.Deps {
			j, ok := g.index[dep]
			if !ok {
				return nil, invalidf("target %q depends on unknown target %q", t.Name, dep)
			}
			if j == i {
				return nil, cycleError([]string{t.Name, t.Name})
			}
			if seen[j] {
				continue
			}
			seen[j] = true

			g.incoming[i] = append(g.incoming[i], j)
			g.outgoing[j] = append(g.outgoing[j], i)
		}
	}

	g.order = g.topoOrder()
	if len(g.order) != len(g.targets) {
		return nil, cycleError(g.findCycle())
	}

	return g, nil
}

// Len returns the number of targets.
func (g *Graph) Len() int { return len(g.targets) }

// Target returns the named target.
func (g *Graph) Target(name string) (target.BuildTarget, bool) {
	i, ok := g.index[name]
	if !ok {
		return target.BuildTarget{}, false
	}
	return g.targets[i], true
}

// Order returns target names in deterministic dependency order.
func (g *Graph) Order() []string {
	names := make([]string, len(g.order))
	for i, idx := range g.order {
		names[i] = g.targets[idx].Name
	}
	return names
}

// Targets returns the targets in dependency order.
func (g *Graph) Targets() []target.BuildTarget {
	out := make([]target.BuildTarget, len(g.order))
	for i, idx := range g.order {
		out[i] = g.targets[idx]
	}
	return out
}

// Dependents returns every transitive dependent of name in dependency order.
func (g *Graph) Dependents(name string) []string {
	start, ok := g.index[name]
	if !ok {
		return nil
	}

	reached := make([]bool, len(g.targets))
	stack := append([]int(nil), g.outgoing[start]...)
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[u] {
			continue
		}
		reached[u] = true
		stack = append(stack, g.outgoing[u]...)
	}

	var out []string
	for _, idx := range g.order {
		if reached[idx] {
			out = append(out, g.targets[idx].Name)
		}
	}
	return out
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder is Kahn's algorithm with a min-heap on declaration index.
func (g *Graph) topoOrder() []int {
	indeg := make([]int, len(g.targets))
	for i := range g.targets {
		indeg[i] = len(g.incoming[i])
	}

	ready := &intMinHeap{}
	heap.Init(ready)
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycle returns one cycle as a path of names, first and last equal.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.targets))
	parent := make([]int, len(g.targets))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.targets {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.targets[cycle[i]].Name)
	}
	return out
}
