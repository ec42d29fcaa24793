package stage

import (
	"context"

	"github.com/weavemotion/pipeline/internal/id"
	"go.opentelemetry.io/otel/attribute"
)

// PropagationResult is one (successor state, local fragment) pair a
// Propagator's compute function produces from a single incoming state
// (spec.md §4.3). A compute function may return several results for one
// input — spec.md calls this out explicitly as the "PruningMultiForward"
// case that must not let one failing branch poison its siblings.
type PropagationResult struct {
	Scene      Scene
	Cost       float64
	Trajectory Trajectory
	Comment    string
}

// PropagateFunc computes zero or more successor states from one incoming
// state. A +Inf Cost in a returned result still produces a recorded,
// infeasible SubTrajectory (spec.md §4.3).
type PropagateFunc func(ctx context.Context, from *State) []PropagationResult

// Propagator is the stage variant that extends a chain by one hop in a
// single direction, or in both simultaneously when built with
// NewEitherWayPropagator (spec.md §4.3, and SPEC_FULL.md's
// PropagatingEitherWay / RestrictDirection supplement).
type Propagator struct {
	base

	forward  PropagateFunc // consumes Starts, produces into Ends
	backward PropagateFunc // consumes Ends, produces into Starts

	consumedForward  map[id.ID]bool
	consumedBackward map[id.ID]bool

	pruner DeadChecker
}

// NewForwardPropagator builds a Propagator that only propagates forward:
// it consumes states from Starts and produces successor states into Ends.
func NewForwardPropagator(name string, fn PropagateFunc, opts ...Option) *Propagator {
	return newPropagator(name, fn, nil, opts)
}

// NewBackwardPropagator builds a Propagator that only propagates backward:
// it consumes states from Ends and produces successor states into Starts.
func NewBackwardPropagator(name string, fn PropagateFunc, opts ...Option) *Propagator {
	return newPropagator(name, nil, fn, opts)
}

// NewEitherWayPropagator builds a Propagator registered on both sides: an
// incoming state on Starts triggers forward, an incoming state on Ends
// triggers backward, using the same underlying transform for both unless
// forward/backward differ by construction. This mirrors the original
// implementation's PropagatingEitherWay (SPEC_FULL.md).
func NewEitherWayPropagator(name string, forward, backward PropagateFunc, opts ...Option) *Propagator {
	return newPropagator(name, forward, backward, opts)
}

func newPropagator(name string, forward, backward PropagateFunc, opts []Option) *Propagator {
	p := &Propagator{
		base:             newBase(name),
		forward:          forward,
		backward:         backward,
		consumedForward:  make(map[id.ID]bool),
		consumedBackward: make(map[id.ID]bool),
	}
	for _, opt := range opts {
		opt(&p.base)
	}
	return p
}

// RestrictDirection narrows an EitherWay propagator down to a single side,
// matching the original implementation's restrictDirection (SPEC_FULL.md
// supplement #1). It is a no-op if the propagator was already constructed
// single-direction on that side.
func (p *Propagator) RestrictDirection(dir Direction) {
	switch dir {
	case Forward:
		p.backward = nil
	case Backward:
		p.forward = nil
	}
}

// SetPruner wires the Pruner this propagator consults before computing on
// an upstream state (spec.md §4.8).
func (p *Propagator) SetPruner(dc DeadChecker) { p.pruner = dc }

// Init validates wiring: a forward-capable propagator needs both Starts
// (to read from) and Ends (to write into); symmetric for backward.
func (p *Propagator) Init(ctx context.Context, model RobotModel) error {
	if p.forward != nil && (p.starts == nil || p.ends == nil) {
		return NewConfigurationError("forward propagator " + p.name + " is missing starts or ends interface")
	}
	if p.backward != nil && (p.starts == nil || p.ends == nil) {
		return NewConfigurationError("backward propagator " + p.name + " is missing starts or ends interface")
	}
	return nil
}

// nextPendingForward returns the highest-priority Starts state not yet
// forward-computed, not produced by this propagator itself, and not dead in
// either direction, or nil. A state dead
// in only the opposite direction still blocks consumption here: once any
// stage has proven a state has no viable continuation on one side, no
// complete chain can ever pass through it, so the other side's computation
// on it would be wasted work (spec.md §4.8, the PropagatorFailure case).
func (p *Propagator) nextPendingForward() *State {
	if p.forward == nil || p.starts == nil {
		return nil
	}
	for _, st := range p.starts.States() {
		if p.consumedForward[st.ID()] || st.Owner() == p.id {
			continue
		}
		if p.pruner != nil && p.pruner.IsDead(st.ID(), Both) {
			continue
		}
		return st
	}
	return nil
}

// nextPendingBackward returns the highest-priority Ends state not yet
// backward-computed, not produced by this propagator itself, and not dead
// in either direction, or nil (see nextPendingForward).
func (p *Propagator) nextPendingBackward() *State {
	if p.backward == nil || p.ends == nil {
		return nil
	}
	for _, st := range p.ends.States() {
		if p.consumedBackward[st.ID()] || st.Owner() == p.id {
			continue
		}
		if p.pruner != nil && p.pruner.IsDead(st.ID(), Both) {
			continue
		}
		return st
	}
	return nil
}

// CanCompute reports whether there is a pending state on either side this
// propagator is registered for.
func (p *Propagator) CanCompute() bool {
	return p.nextPendingForward() != nil || p.nextPendingBackward() != nil
}

// NextPriority reports the priority of the best pending item across both
// sides this propagator watches.
func (p *Propagator) NextPriority() (Priority, bool) {
	f := p.nextPendingForward()
	b := p.nextPendingBackward()
	switch {
	case f != nil && b != nil:
		if f.Priority().Less(b.Priority()) {
			return f.Priority(), true
		}
		return b.Priority(), true
	case f != nil:
		return f.Priority(), true
	case b != nil:
		return b.Priority(), true
	default:
		return Priority{}, false
	}
}

// ComputeNext processes exactly one pending incoming state — whichever of
// the forward/backward candidates has the better priority — and produces
// the resulting successor states plus their local SubTrajectories.
func (p *Propagator) ComputeNext(ctx context.Context) ([]Solution, error) {
	f := p.nextPendingForward()
	b := p.nextPendingBackward()

	var dir Direction
	var from *State
	switch {
	case f != nil && b != nil && b.Priority().Less(f.Priority()):
		dir, from = Backward, b
	case f != nil:
		dir, from = Forward, f
	default:
		dir, from = Backward, b
	}

	if from == nil {
		return nil, nil
	}

	ctx, span := p.startSpan(ctx, "stage.propagator.compute")
	defer span.End()
	span.SetAttributes(
		attribute.String("stage.name", p.name),
		attribute.String("stage.direction", dir.String()),
	)

	p.numCalls++
	var results []PropagationResult
	var out *Interface
	if dir == Forward {
		p.consumedForward[from.ID()] = true
		results = p.forward(ctx, from)
		out = p.ends
	} else {
		p.consumedBackward[from.ID()] = true
		results = p.backward(ctx, from)
		out = p.starts
	}

	solutions := make([]Solution, 0, len(results))
	for _, r := range results {
		successor := NewState(r.Scene, Priority{
			Depth: from.Priority().Depth + 1,
			Cost:  from.Priority().Cost + r.Cost,
		}, p.id)

		var sub *AtomicSolution
		if dir == Forward {
			sub = p.record(NewAtomicSolution(r.Trajectory, from, successor, r.Cost, r.Comment)).(*AtomicSolution)
		} else {
			sub = p.record(NewAtomicSolution(r.Trajectory, successor, from, r.Cost, r.Comment)).(*AtomicSolution)
		}

		from.linkOutgoing(dir, sub)
		successor.linkIncoming(dir, sub)

		if !sub.IsFailure() {
			out.Insert(successor)
		}
		solutions = append(solutions, sub)
	}

	if p.pruner != nil && allFailed(solutions) {
		p.pruner.MarkDead(from.ID(), dir)
	}

	p.logger.DebugContext(ctx, "propagator computed",
		"stage", p.name, "direction", dir.String(), "results", len(results))
	return solutions, nil
}

// SetProperty resolves name into the propagator's typed properties.
func (p *Propagator) SetProperty(name string, value any) error {
	if handled, err := p.setCommonProperty(name, value); handled {
		return err
	}
	return NewError(ErrorTypeInvalidParameter, "unknown propagator property "+name)
}
