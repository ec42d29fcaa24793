// Package stagetest provides the mock Generator/Propagator/Connector
// fixtures the pipeline package's integration tests are built on, ported
// from the original implementation's GeneratorMockup/PropagatorMockup/
// ForwardMockup/BackwardMockup/Connect test doubles. Unlike the original's
// package-level static ID counters, every constructor here takes an
// explicit name so tests stay independent of each other's execution order.
package stagetest

import (
	"context"

	"github.com/weavemotion/pipeline/stage"
)

// MockScene is a minimal stage.Scene that carries nothing but a generation
// counter, enough to give every Diff call a distinct identity without
// modelling any real robot state.
type MockScene struct {
	generation int
}

// NewMockScene constructs a fresh, generation-0 scene.
func NewMockScene() *MockScene {
	return &MockScene{}
}

// Diff returns a new scene one generation ahead of s, ignoring delta (the
// mocks never inspect scene content, only identity and counts).
func (s *MockScene) Diff(delta any) stage.Scene {
	return &MockScene{generation: s.generation + 1}
}

// FixedCosts is a FIFO queue of predetermined costs, ported from the
// original implementation's PredefinedCosts. finite controls whether the
// queue reports itself exhausted once empty (used by a Generator's
// CanCompute) or keeps re-returning its last cost forever (used by
// Propagators and Connectors, whose CanCompute is driven by pending
// interface states rather than by the cost source).
type FixedCosts struct {
	costs []float64
	next  int
	last  float64
	finite bool
}

// NewFixedCosts constructs a FixedCosts yielding costs in order.
func NewFixedCosts(finite bool, costs ...float64) *FixedCosts {
	if len(costs) == 0 {
		costs = []float64{0}
	}
	return &FixedCosts{costs: costs, finite: finite}
}

// Exhausted reports whether a finite queue has handed out every cost.
func (f *FixedCosts) Exhausted() bool {
	return f.finite && f.next >= len(f.costs)
}

// Cost returns the next queued cost, or repeats the last one handed out
// once the queue is empty.
func (f *FixedCosts) Cost() float64 {
	if f.next < len(f.costs) {
		f.last = f.costs[f.next]
		f.next++
	}
	return f.last
}

// AsCostTerm adapts f into a stage.CostTerm, drawing one cost per call
// regardless of solution variant — matching the original PredefinedCosts'
// identical operator() overloads for SubTrajectory/SolutionSequence/
// WrappedSolution.
func (f *FixedCosts) AsCostTerm() stage.CostTerm {
	return func(stage.Solution) (float64, string) {
		return f.Cost(), ""
	}
}

type generatorSource struct {
	scene stage.Scene
	costs *FixedCosts
}

func (s *generatorSource) HasNext() bool { return !s.costs.Exhausted() }

func (s *generatorSource) Next() (stage.Scene, float64) {
	return s.scene, s.costs.Cost()
}

// NewGenerator builds a Generator that spawns len(costs) states (or a
// single cost-0 state if costs is empty), ported from GeneratorMockup.
func NewGenerator(name string, costs ...float64) *stage.Generator {
	if len(costs) == 0 {
		costs = []float64{0}
	}
	source := &generatorSource{scene: NewMockScene(), costs: NewFixedCosts(true, costs...)}
	return stage.NewGenerator(name, source)
}

// propagateMockFunc builds a PropagateFunc that spawns solutionsPerCompute
// successor states per incoming state, each costed from a shared,
// non-exhausting FixedCosts queue — ported from PropagatorMockup's
// computeForward/computeBackward.
func propagateMockFunc(costs *FixedCosts, solutionsPerCompute int) stage.PropagateFunc {
	return func(ctx context.Context, from *stage.State) []stage.PropagationResult {
		results := make([]stage.PropagationResult, 0, solutionsPerCompute)
		for i := 0; i < solutionsPerCompute; i++ {
			results = append(results, stage.PropagationResult{
				Scene: from.Scene().Diff(nil),
				Cost:  costs.Cost(),
			})
		}
		return results
	}
}

// NewForwardMockup builds a forward-only Propagator producing
// solutionsPerCompute successor states per incoming state, ported from
// ForwardMockup.
func NewForwardMockup(name string, solutionsPerCompute int, costs ...float64) *stage.Propagator {
	if len(costs) == 0 {
		costs = []float64{0}
	}
	fn := propagateMockFunc(NewFixedCosts(false, costs...), solutionsPerCompute)
	return stage.NewForwardPropagator(name, fn)
}

// NewBackwardMockup builds a backward-only Propagator, ported from
// BackwardMockup.
func NewBackwardMockup(name string, costs ...float64) *stage.Propagator {
	if len(costs) == 0 {
		costs = []float64{0}
	}
	fn := propagateMockFunc(NewFixedCosts(false, costs...), 1)
	return stage.NewBackwardPropagator(name, fn)
}

// NewForwardDummy builds a forward propagator that never produces a
// solution, ported from ForwardDummy.
func NewForwardDummy(name string) *stage.Propagator {
	fn := func(ctx context.Context, from *stage.State) []stage.PropagationResult { return nil }
	return stage.NewForwardPropagator(name, fn)
}

// jointInterpolationPlanner is the stand-in for the original's
// solvers::JointInterpolationPlanner: in these mocks every group always
// connects at cost 0, leaving cost control entirely to the connector's
// configured CostTerm, matching how the original tests drive Connect's
// outcome through setCostTerm rather than through the planner itself.
func jointInterpolationPlanner(ctx context.Context, from, to stage.Scene) (stage.Trajectory, float64, string) {
	return to, 0, ""
}

// NewConnect builds a Connector with the original test suite's two
// planning groups ("group", "eef_group"), both always succeeding at cost 0
// so the supplied costs exclusively drive the connector's outcome via its
// cost_term property — ported from the original's Connect test double.
// enforceSequential selects MergeSequential instead of the default
// MergeParallel, matching the original's enforce_sequential constructor
// argument.
func NewConnect(name string, enforceSequential bool, costs ...float64) *stage.Connector {
	planners := map[string]stage.PlanFunc{
		"group":     jointInterpolationPlanner,
		"eef_group": jointInterpolationPlanner,
	}
	c := stage.NewConnector(name, planners)
	if enforceSequential {
		_ = c.SetProperty("merge_mode", stage.MergeSequential)
	}
	if len(costs) > 0 {
		_ = c.SetProperty("cost_term", NewFixedCosts(false, costs...).AsCostTerm())
	}
	return c
}
