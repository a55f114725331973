package orchestrator

import "fmt"

// State is the lifecycle state of one target within a run.
type State string

const (
	Pending   State = "Pending"
	Building  State = "Building"
	Succeeded State = "Succeeded"
	Failed    State = "Failed"
)

// IsTerminal reports whether the state is final.
func IsTerminal(s State) bool {
	return s == Succeeded || s == Failed
}

// ExecutionState maps target name to its current state.
type ExecutionState map[string]State

func isAllowedTransition(from, to State) bool {
	switch from {
	case Pending:
		// Pending -> Failed happens when a dependency fails or the run is interrupted.
		return to == Building || to == Failed
	case Building:
		return to == Succeeded || to == Failed
	default:
		return false
	}
}

// Transition performs a validated transition for a single target. The
// expected prior state makes races observable.
func Transition(state ExecutionState, name string, from, to State) error {
	cur, ok := state[name]
	if !ok {
		return fmt.Errorf("unknown target in state: %q", name)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", name, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", name, from, to)
	}
	state[name] = to
	return nil
}

// Ready returns the Pending targets whose dependencies have all Succeeded,
// in dependency order. It does not mutate state.
func Ready(g *Graph, state ExecutionState) []string {
	var ready []string
	for _, idx := range g.order {
		name := g.targets[idx].Name
		if state[name] != Pending {
			continue
		}

		ok := true
		for _, dep := range g.incoming[idx] {
			if state[g.targets[dep].Name] != Succeeded {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, name)
		}
	}
	return ready
}
