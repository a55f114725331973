// Package orchestrator runs build targets in dependency order.
//
// Each target moves Pending -> Building -> Succeeded | Failed. A target only
// starts once every dependency has Succeeded; when one fails, all of its
// transitive dependents go straight to Failed without building. Targets that
// become ready together form a wave: a wave may build concurrently (up to
// Jobs) and is joined before the next wave is considered.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/Norgate-AV/ratbuild/internal/codes"
	"github.com/Norgate-AV/ratbuild/internal/target"
)

// Outcome is what a Builder reports for one target.
type Outcome struct {
	// Artifact is the relocated artifact path.
	Artifact string
	// Log is captured tool output.
	Log string
}

// Builder builds a single target. It must not return before every process
// it started has exited.
type Builder interface {
	Build(ctx context.Context, t target.BuildTarget) (*Outcome, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, t target.BuildTarget) (*Outcome, error)

func (f BuilderFunc) Build(ctx context.Context, t target.BuildTarget) (*Outcome, error) {
	return f(ctx, t)
}

// Result is the outcome of one target in one run.
type Result struct {
	Target     string
	Status     State
	Artifact   string
	Diagnostic string
	Started    time.Time
	Duration   time.Duration
	Err        error
	// BlockedBy names the failed dependency when the target never built.
	BlockedBy string
}

// Report summarises a run. Results are in dependency order.
type Report struct {
	Results []*Result
	// Order lists targets in the order they entered Building.
	Order []string
}

// Result returns the result for name, or nil.
func (r *Report) Result(name string) *Result {
	for _, res := range r.Results {
		if res.Target == name {
			return res
		}
	}
	return nil
}

// Succeeded reports whether every target succeeded.
func (r *Report) Succeeded() bool {
	for _, res := range r.Results {
		if res.Status != Succeeded {
			return false
		}
	}
	return true
}

// FirstFailure returns the first target, in dependency order, that failed on
// its own account rather than because a dependency failed.
func (r *Report) FirstFailure() *Result {
	var blocked *Result
	for _, res := range r.Results {
		if res.Status != Failed {
			continue
		}
		if res.BlockedBy == "" {
			return res
		}
		if blocked == nil {
			blocked = res
		}
	}
	return blocked
}

// Err returns the error of the first failure, or nil.
func (r *Report) Err() error {
	if f := r.FirstFailure(); f != nil {
		return f.Err
	}
	return nil
}

// Orchestrator drives one run over a graph.
type Orchestrator struct {
	Graph   *Graph
	Builder Builder
	Logger  *log.Logger
	// Jobs bounds concurrent builds within a wave; values below 1 mean 1.
	Jobs int
	// OnTransition, if set, sees every state change. It is called with the
	// run's state lock held and must not block.
	OnTransition func(name string, from, to State)

	mu      sync.Mutex
	state   ExecutionState
	results map[string]*Result
	order   []string
}

// New creates an orchestrator with every target Pending.
func New(g *Graph, b Builder, logger *log.Logger) *Orchestrator {
	return &Orchestrator{Graph: g, Builder: b, Logger: logger, Jobs: 1}
}

// Run builds every target. The returned error is only for orchestration
// faults; build failures are reported through the Report.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if o.Graph == nil {
		return nil, errors.New("nil graph")
	}
	if o.Builder == nil {
		return nil, errors.New("nil builder")
	}

	o.reset()

	for {
		if err := ctx.Err(); err != nil {
			o.abandon(err)
			break
		}

		o.mu.Lock()
		ready := Ready(o.Graph, o.state)
		done := o.allTerminal()
		o.mu.Unlock()

		if len(ready) == 0 {
			if done {
				break
			}
			return o.report(), errors.New("no ready targets but run not finished")
		}

		if err := o.runWave(ctx, ready); err != nil {
			return o.report(), err
		}
	}

	return o.report(), nil
}

func (o *Orchestrator) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = make(ExecutionState, o.Graph.Len())
	o.results = make(map[string]*Result, o.Graph.Len())
	o.order = nil
	for _, name := range o.Graph.Order() {
		o.state[name] = Pending
		o.results[name] = &Result{Target: name, Status: Pending}
	}
}

func (o *Orchestrator) runWave(ctx context.Context, ready []string) error {
	jobs := o.Jobs
	if jobs < 1 {
		jobs = 1
	}

	var g errgroup.Group
	g.SetLimit(jobs)

	for _, name := range ready {
		t, _ := o.Graph.Target(name)
		g.Go(func() error {
			return o.buildOne(ctx, t)
		})
	}

	return g.Wait()
}

func (o *Orchestrator) buildOne(ctx context.Context, t target.BuildTarget) error {
	o.mu.Lock()
	res := o.results[t.Name]
	if err := ctx.Err(); err != nil {
		// interrupted while waiting for a slot: never started
		o.failPending(t.Name, codes.New(codes.Interrupted, t.Name, "pending", err))
		o.mu.Unlock()
		return nil
	}
	if err := o.transition(t.Name, Pending, Building); err != nil {
		o.mu.Unlock()
		return err
	}
	o.order = append(o.order, t.Name)
	res.Started = time.Now()
	o.mu.Unlock()

	o.Logger.Info().Str("target", t.Name).Strs("deps", t.Deps).Msg("building")

	outcome, err := o.Builder.Build(ctx, t)

	o.mu.Lock()
	defer o.mu.Unlock()

	res.Duration = time.Since(res.Started)
	if outcome != nil {
		res.Artifact = outcome.Artifact
		res.Diagnostic = outcome.Log
	}

	if err == nil {
		o.Logger.Info().Str("target", t.Name).Dur("took", res.Duration).Msg("succeeded")
		res.Status = Succeeded
		return o.transition(t.Name, Building, Succeeded)
	}

	if e, ok := codes.AsError(err); ok && e.Diagnostic != "" {
		res.Diagnostic = e.Diagnostic
	}
	res.Err = err
	res.Status = Failed
	res.Artifact = ""

	o.Logger.Error().Str("target", t.Name).Err(err).Dur("took", res.Duration).Msg("failed")

	if err := o.transition(t.Name, Building, Failed); err != nil {
		return err
	}

	return o.propagate(t.Name)
}

// propagate marks every transitive dependent of name Failed. None of them
// can be Building: they all wait on name.
func (o *Orchestrator) propagate(name string) error {
	kind := codes.CompileFailed
	if e, ok := codes.AsError(o.results[name].Err); ok {
		kind = e.Kind
	}

	for _, dep := range o.Graph.Dependents(name) {
		switch o.state[dep] {
		case Pending:
			o.results[dep].BlockedBy = name
			o.failPending(dep, codes.New(kind, dep, "blocked", fmt.Errorf("dependency %q failed", name)))
		case Building:
			return fmt.Errorf("invariant violation: dependent %q of %q is Building", dep, name)
		}
	}
	return nil
}

// abandon fails every target that has not started.
func (o *Orchestrator) abandon(cause error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, name := range o.Graph.Order() {
		if o.state[name] == Pending {
			o.failPending(name, codes.New(codes.Interrupted, name, "pending", cause))
		}
	}
}

// failPending requires o.mu.
func (o *Orchestrator) failPending(name string, err error) {
	if o.state[name] != Pending {
		return
	}
	_ = o.transition(name, Pending, Failed)
	res := o.results[name]
	res.Status = Failed
	res.Err = err

	o.Logger.Warn().Str("target", name).Err(err).Msg("not built")
}

// transition requires o.mu.
func (o *Orchestrator) transition(name string, from, to State) error {
	if err := Transition(o.state, name, from, to); err != nil {
		return err
	}
	o.Logger.Debug().Str("target", name).Str("from", string(from)).Str("to", string(to)).Msg("transition")
	if o.OnTransition != nil {
		o.OnTransition(name, from, to)
	}
	return nil
}

// allTerminal requires o.mu.
func (o *Orchestrator) allTerminal() bool {
	for _, st := range o.state {
		if !IsTerminal(st) {
			return false
		}
	}
	return true
}

func (o *Orchestrator) report() *Report {
	o.mu.Lock()
	defer o.mu.Unlock()

	r := &Report{Order: append([]string(nil), o.order...)}
	for _, name := range o.Graph.Order() {
		res := *o.results[name]
		r.Results = append(r.Results, &res)
	}
	return r
}
