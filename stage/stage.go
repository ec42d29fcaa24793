// Package stage implements the closed set of pipeline building blocks
// described in spec.md §3–§4: InterfaceState, Interface, the SolutionBase
// variants, and the four Stage kinds (Generator, Propagator, Connector,
// Container). The choice of which child stage computes next is made here,
// by SerialContainer; package pipeline drives that choice round by round
// through a root SerialContainer, and the dead-state marks used for
// cross-stage pruning live in package pruner, which stages reach through the
// DeadChecker interface.
package stage

import (
	"context"
	"log/slog"
	"time"

	"github.com/weavemotion/pipeline/internal/id"
	"go.opentelemetry.io/otel/trace"
)

// RobotModel is the opaque external resource handed to Init (spec.md §3's
// lifecycle: "stages are constructed, added to a pipeline, then init
// (robot_model) is called top-down"). The core never inspects it; it is
// threaded through purely so a real Generator/Connector implementation can
// validate that a required planning group exists (spec.md §7, "Init
// failure").
type RobotModel any

// Stage is the common surface over the four pipeline building blocks
// (spec.md §3, "Stage (abstract)"). spec.md §9 suggests a tagged-variant
// representation over open virtual dispatch; here that is realized as a
// small closed set of concrete Go types (Generator, Propagator, Connector,
// SerialContainer) that all implement this single interface, with the
// Pipeline scheduler doing no type-specific work beyond calling
// NextPriority/ComputeNext — the "compute_next() dispatch per variant" the
// design note asks for.
type Stage interface {
	// ID is the stage's identity.
	ID() id.ID
	// Name is the stage's human-readable name.
	Name() string

	// Starts returns the stage's backward-side interface, or nil if this
	// stage has none (a Generator has no starts/ends split — Starts and
	// Ends return the same single interface).
	Starts() *Interface
	// Ends returns the stage's forward-side interface, or nil if this
	// stage has none.
	Ends() *Interface

	// SetStarts/SetEnds wire this stage's boundary to a shared *Interface
	// (spec.md §4.5) — normally the neighboring stage's own Ends/Starts.
	SetStarts(*Interface)
	SetEnds(*Interface)

	// Init validates wiring and propagates the robot model top-down
	// (spec.md §3 lifecycle, §7 "Init failure"/"Configuration error").
	Init(ctx context.Context, model RobotModel) error

	// CanCompute reports whether this stage has at least one pending unit
	// of work (spec.md §4.2–§4.4).
	CanCompute() bool

	// NextPriority returns the priority of the next unit of work this
	// stage would process if chosen, and false if CanCompute is false.
	// The Pipeline scheduler compares this across all stages to implement
	// spec.md §4.1's depth-first selection rule.
	NextPriority() (Priority, bool)

	// ComputeNext processes exactly one unit of work (spec.md §4.7 step 3)
	// and returns the solutions it produced this round, if any.
	ComputeNext(ctx context.Context) ([]Solution, error)

	// Calls returns the number of times ComputeNext has actually run its
	// stage-specific compute logic (spec.md §6, stage.calls()).
	Calls() int
	// Failures returns the number of +Inf-cost solutions this stage has
	// produced (spec.md §6, stage.failures()).
	Failures() int
	// LocalSolutions returns every SubTrajectory/SolutionSequence this
	// stage has produced, feasible or not (spec.md §3, "local solution
	// store").
	LocalSolutions() []Solution

	// SetProperty resolves a named property into this stage's typed
	// configuration record (spec.md §6/§9).
	SetProperty(name string, value any) error
}

// base holds the fields and bookkeeping common to every Stage
// implementation (spec.md §3: "a name, two optional interface pointers
// ... a local solution store ... and a num_failures counter").
type base struct {
	id   id.ID
	name string

	starts *Interface
	ends   *Interface

	solutions   []Solution
	numFailures int
	numCalls    int

	common CommonProperties

	logger *slog.Logger
	tracer trace.Tracer
}

func newBase(name string) base {
	return base{
		id:     id.New(),
		name:   name,
		logger: slog.Default(),
	}
}

func (b *base) ID() id.ID          { return b.id }
func (b *base) Name() string      { return b.name }
func (b *base) Starts() *Interface { return b.starts }
func (b *base) Ends() *Interface   { return b.ends }
func (b *base) SetStarts(i *Interface) { b.starts = i }
func (b *base) SetEnds(i *Interface)   { b.ends = i }
func (b *base) Calls() int        { return b.numCalls }
func (b *base) Failures() int     { return b.numFailures }

// LocalSolutions returns every solution (feasible or not) this stage has
// produced, in production order.
func (b *base) LocalSolutions() []Solution {
	out := make([]Solution, len(b.solutions))
	copy(out, b.solutions)
	return out
}

// record appends sol to the local solution store and applies any
// configured CostTerm override before counting it toward Failures.
func (b *base) record(sol Solution) Solution {
	if b.common.CostTerm != nil {
		if atomic, ok := sol.(*AtomicSolution); ok {
			cost, comment := b.common.CostTerm(atomic)
			if cost != atomic.Cost() {
				if comment == "" {
					comment = atomic.Comment()
				}
				*atomic = *NewAtomicSolution(atomic.Trajectory(), atomic.Start(), atomic.End(), cost, comment)
			}
		}
	}
	b.solutions = append(b.solutions, sol)
	if sol.IsFailure() {
		b.numFailures++
	}
	return sol
}

// setCommonProperty resolves the properties every stage kind shares.
// Returns (handled, error): handled is false if name isn't a common
// property, letting the caller try variant-specific properties next.
func (b *base) setCommonProperty(name string, value any) (bool, error) {
	switch name {
	case "timeout":
		d, ok := value.(time.Duration)
		if !ok {
			return true, NewError(ErrorTypeInvalidParameter, "timeout must be a time.Duration").
				WithContext("stage", b.name).WithContext("value", value)
		}
		b.common.Timeout = d
		return true, nil
	case "cost_term":
		ct, ok := value.(CostTerm)
		if !ok {
			return true, NewError(ErrorTypeInvalidParameter, "cost_term must be a stage.CostTerm").
				WithContext("stage", b.name).WithContext("value", value)
		}
		b.common.CostTerm = ct
		return true, nil
	default:
		return false, nil
	}
}

// Option is a functional option accepted by every stage constructor,
// matching the teacher corpus's pervasive functional-options style.
type Option func(*base)

// WithLogger configures the stage's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithTracer configures the stage's OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(b *base) {
		b.tracer = tracer
	}
}

func (b *base) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	if b.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return b.tracer.Start(ctx, op)
}
