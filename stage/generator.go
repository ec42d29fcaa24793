package stage

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// Source supplies the candidate scenes a Generator spawns, one per
// CanCompute/ComputeNext pair (spec.md §4.2). HasNext must not mutate
// state; Next is only called once CanCompute has returned true and
// consumes one candidate.
type Source interface {
	HasNext() bool
	Next() (scene Scene, cost float64)
}

// Generator is the stage variant that produces InterfaceStates into a
// single bidirectional end-interface (spec.md §4.2). Its Starts and Ends
// both resolve to the same shared *Interface once the Pipeline wires it in,
// since a Generator's output is consumed by whichever stage sits on either
// side of it in the chain.
type Generator struct {
	base
	source Source
}

// NewGenerator constructs a Generator named name, drawing candidates from
// source.
func NewGenerator(name string, source Source, opts ...Option) *Generator {
	g := &Generator{base: newBase(name), source: source}
	for _, opt := range opts {
		opt(&g.base)
	}
	return g
}

// SetStarts and SetEnds are overridden so a Generator's two boundary
// pointers always alias the same *Interface: a generator's output is one
// shared junction both of its neighbors see (spec.md §4.2, §4.5). Wiring
// either side wires both; the container's generic adjacent-pair wiring
// logic (which inspects Ends before deciding whether to mint a new
// Interface) then naturally reuses the single interface on the opposite
// side too instead of minting a second, disconnected one.

// SetStarts wires i as both this generator's starts and ends interface.
func (g *Generator) SetStarts(i *Interface) {
	g.starts = i
	g.ends = i
}

// SetEnds wires i as both this generator's starts and ends interface.
func (g *Generator) SetEnds(i *Interface) {
	g.starts = i
	g.ends = i
}

// Init validates that the generator was wired into the pipeline. The model
// is not inspected; a nil model is accepted.
func (g *Generator) Init(ctx context.Context, model RobotModel) error {
	if g.ends == nil {
		return NewConfigurationError("generator " + g.name + " has no end interface; was it added to a pipeline?")
	}
	return nil
}

// CanCompute reports whether the source has another candidate.
func (g *Generator) CanCompute() bool {
	return g.source.HasNext()
}

// NextPriority reports the priority a freshly spawned state would carry.
// Generators don't know their next cost without consuming it, so this
// reports the baseline depth-0 priority used to rank against other stages;
// cost-based refinement happens once the state actually exists.
func (g *Generator) NextPriority() (Priority, bool) {
	if !g.CanCompute() {
		return Priority{}, false
	}
	return Priority{Depth: 0, Cost: 0}, true
}

// ComputeNext spawns exactly one InterfaceState (spec.md §4.2:
// "compute() spawns exactly one").
func (g *Generator) ComputeNext(ctx context.Context) ([]Solution, error) {
	_, span := g.startSpan(ctx, "stage.generator.compute")
	defer span.End()
	span.SetAttributes(attribute.String("stage.name", g.name))

	g.numCalls++
	scene, cost := g.source.Next()
	st := NewState(scene, Priority{Depth: 0, Cost: cost}, g.id)
	st.spawnCost = cost
	g.ends.Insert(st)

	g.logger.DebugContext(ctx, "generator produced state",
		"stage", g.name, "cost", cost)
	return nil, nil
}

// SetProperty resolves name into the generator's typed properties.
func (g *Generator) SetProperty(name string, value any) error {
	if handled, err := g.setCommonProperty(name, value); handled {
		return err
	}
	return NewError(ErrorTypeInvalidParameter, "unknown generator property "+name)
}
