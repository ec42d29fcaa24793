package stage

import (
	"math"

	"github.com/weavemotion/pipeline/internal/id"
)

// Trajectory is the opaque output of a geometric/kinematic planner. The
// core never inspects it (spec.md §1, "Out of scope") — it only carries it
// from a Propagator/Connector through to the enumerated end-to-end
// solution.
type Trajectory any

// Solution is the common surface over the three SolutionBase variants
// described in spec.md §3: Atomic, Sequence, and Wrapped. A tagged
// interface (rather than a single struct with a Kind field) is used here
// because the three variants carry genuinely different shapes — a single
// trajectory, a list of children, or one wrapped inner solution — and Go's
// type-switch over a small, closed set of concrete types gives callers
// exhaustive dispatch without a sea of unused fields.
type Solution interface {
	// ID is the solution's identity.
	ID() id.ID
	// Cost is the solution's cost; +Inf iff IsFailure.
	Cost() float64
	// IsFailure reports whether this solution is a dead end.
	IsFailure() bool
	// Comment is an optional human-readable annotation (e.g. why a
	// solution failed).
	Comment() string
	// Start is the InterfaceState this solution begins at.
	Start() *State
	// End is the InterfaceState this solution ends at.
	End() *State
}

// AtomicSolution is a single stage-local trajectory fragment connecting
// Start to End (spec.md §3, "Atomic(SubTrajectory)").
type AtomicSolution struct {
	id         id.ID
	trajectory Trajectory
	start, end *State
	cost       float64
	failure    bool
	comment    string
}

// NewAtomicSolution constructs an AtomicSolution. A cost of +Inf
// automatically marks the solution as a failure, matching spec.md §3's
// invariant that "cost is non-negative and finite unless the solution is a
// failure, in which case cost is +∞."
func NewAtomicSolution(trajectory Trajectory, start, end *State, cost float64, comment string) *AtomicSolution {
	return &AtomicSolution{
		id:         id.New(),
		trajectory: trajectory,
		start:      start,
		end:        end,
		cost:       cost,
		failure:    math.IsInf(cost, 1),
		comment:    comment,
	}
}

func (a *AtomicSolution) ID() id.ID          { return a.id }
func (a *AtomicSolution) Cost() float64      { return a.cost }
func (a *AtomicSolution) IsFailure() bool    { return a.failure }
func (a *AtomicSolution) Comment() string    { return a.comment }
func (a *AtomicSolution) Start() *State      { return a.start }
func (a *AtomicSolution) End() *State        { return a.end }
func (a *AtomicSolution) Trajectory() Trajectory { return a.trajectory }

// MarkFailure flags an already-constructed solution as a dead end and
// raises its cost to +Inf, used when a connector/propagator discovers
// infeasibility after the fact (e.g. a merge failure in SEQUENTIAL mode).
func (a *AtomicSolution) MarkFailure(comment string) {
	a.failure = true
	a.cost = math.Inf(1)
	if comment != "" {
		a.comment = comment
	}
}

// SequenceSolution is an ordered chain of child Solutions whose ends chain
// (spec.md §3, "Sequence(SolutionSequence)"): child[i].End == child[i+1].Start.
// Cost is the sum of child costs plus every node's own SpawnCost; it is a
// failure iff any child is.
type SequenceSolution struct {
	id       id.ID
	children []Solution
	cost     float64
	failure  bool
	comment  string
}

// NewSequenceSolution composes children into a single Solution. children
// must be non-empty and already chained (the caller, the Pipeline's chain
// assembler, guarantees this).
//
// Cost is the sum of every child's own cost plus each distinct node's
// SpawnCost along the chain, counted exactly once: the leading state's (via
// children[0].Start) and then, for every child, the state it ends at (via
// child.End). Since child[i].End == child[i+1].Start by construction, this
// visits every node in the chain precisely once regardless of how many
// children flank it — the mechanism spec.md §8 relies on to fold a
// Generator's per-candidate cost into the end-to-end total it never
// produces a Solution of its own to carry.
func NewSequenceSolution(children []Solution) *SequenceSolution {
	total := children[0].Start().SpawnCost()
	failure := false
	for _, c := range children {
		total += c.Cost() + c.End().SpawnCost()
		if c.IsFailure() {
			failure = true
		}
	}
	if failure {
		total = math.Inf(1)
	}
	return &SequenceSolution{
		id:       id.New(),
		children: children,
		cost:     total,
		failure:  failure,
	}
}

func (s *SequenceSolution) ID() id.ID       { return s.id }
func (s *SequenceSolution) Cost() float64   { return s.cost }
func (s *SequenceSolution) IsFailure() bool { return s.failure }
func (s *SequenceSolution) Comment() string { return s.comment }
func (s *SequenceSolution) Start() *State   { return s.children[0].Start() }
func (s *SequenceSolution) End() *State     { return s.children[len(s.children)-1].End() }

// Children returns the ordered sub-solutions making up this sequence.
func (s *SequenceSolution) Children() []Solution { return s.children }

// WrappedSolution wraps a single inner Solution at a Container boundary
// (spec.md §3, "Wrapped(WrappedSolution)"), used when a sub-pipeline
// exposes itself as a single stage to its parent.
type WrappedSolution struct {
	id         id.ID
	inner      Solution
	start, end *State
	comment    string
}

// NewWrappedSolution wraps inner, re-anchoring Start/End to the container's
// own boundary states (which may differ by identity, though not by scene,
// from the inner solution's endpoints when the container is nested more
// than one level deep).
func NewWrappedSolution(inner Solution, start, end *State) *WrappedSolution {
	return &WrappedSolution{id: id.New(), inner: inner, start: start, end: end}
}

func (w *WrappedSolution) ID() id.ID       { return w.id }
func (w *WrappedSolution) Cost() float64   { return w.inner.Cost() }
func (w *WrappedSolution) IsFailure() bool { return w.inner.IsFailure() }
func (w *WrappedSolution) Comment() string { return w.comment }
func (w *WrappedSolution) Start() *State   { return w.start }
func (w *WrappedSolution) End() *State     { return w.end }

// Inner returns the wrapped solution.
func (w *WrappedSolution) Inner() Solution { return w.inner }
