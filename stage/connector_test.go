package stage

import (
	"context"
	"math"
	"testing"

	"github.com/weavemotion/pipeline/internal/id"
)

func alwaysConnects(cost float64) PlanFunc {
	return func(ctx context.Context, from, to Scene) (Trajectory, float64, string) {
		return to, cost, ""
	}
}

func newConnectorPair(t *testing.T, planners map[string]PlanFunc, mode MergeMode) (*Connector, *State, *State) {
	t.Helper()
	c := NewConnector("CON", planners)
	if mode != "" && mode != MergeParallel {
		if err := c.SetProperty("merge_mode", mode); err != nil {
			t.Fatalf("SetProperty merge_mode: %v", err)
		}
	}
	starts := NewInterface(Backward)
	ends := NewInterface(Forward)
	c.SetStarts(starts)
	c.SetEnds(ends)
	if err := c.Init(context.Background(), nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	owner := id.New()
	from := NewState(&countingScene{}, Priority{Depth: 0, Cost: 0}, owner)
	to := NewState(&countingScene{}, Priority{Depth: 0, Cost: 0}, owner)
	starts.Insert(from)
	ends.Insert(to)
	return c, from, to
}

// TestMergeModeRoundTripEquivalence ports spec.md §8's round-trip property:
// "constructing a connector with merge_mode = SEQUENTIAL and supplying
// identical planners per group must yield a solution equivalent (same cost,
// same endpoints) to the PARALLEL variant whenever the inputs are
// group-consistent" — here, every group always agrees (always connects at
// the same cost), so the two modes must produce identical results.
func TestMergeModeRoundTripEquivalence(t *testing.T) {
	planners := map[string]PlanFunc{
		"group":     alwaysConnects(3),
		"eef_group": alwaysConnects(4),
	}

	parallel, pFrom, pTo := newConnectorPair(t, planners, MergeParallel)
	sequential, sFrom, sTo := newConnectorPair(t, planners, MergeSequential)

	pSols, err := parallel.ComputeNext(context.Background())
	if err != nil {
		t.Fatalf("parallel ComputeNext: %v", err)
	}
	sSols, err := sequential.ComputeNext(context.Background())
	if err != nil {
		t.Fatalf("sequential ComputeNext: %v", err)
	}
	if len(pSols) != 1 || len(sSols) != 1 {
		t.Fatalf("expected exactly one solution per mode, got parallel=%d sequential=%d", len(pSols), len(sSols))
	}
	if pSols[0].Cost() != sSols[0].Cost() {
		t.Fatalf("expected equal cost across modes, got parallel=%v sequential=%v", pSols[0].Cost(), sSols[0].Cost())
	}
	if pSols[0].Start() != pFrom || pSols[0].End() != pTo {
		t.Fatalf("parallel solution endpoints do not match the pair it was computed from")
	}
	if sSols[0].Start() != sFrom || sSols[0].End() != sTo {
		t.Fatalf("sequential solution endpoints do not match the pair it was computed from")
	}
}

// TestConnectorFailureDoesNotMarkSiblingsDeadOnPartialExhaustion ports
// spec.md §4.4/§4.8's "connector failure does not kill siblings": a
// from-state with two pending end candidates must not be marked dead after
// only one of its two pairings has failed — only once every pair touching
// it has failed does it get reported to the pruner.
func TestConnectorFailureDoesNotMarkSiblingsDeadOnPartialExhaustion(t *testing.T) {
	planners := map[string]PlanFunc{"group": func(ctx context.Context, from, to Scene) (Trajectory, float64, string) {
		return nil, math.Inf(1), "no path"
	}}
	c := NewConnector("CON", planners)
	dc := newFakeDeadChecker()
	c.SetPruner(dc)

	starts := NewInterface(Backward)
	ends := NewInterface(Forward)
	c.SetStarts(starts)
	c.SetEnds(ends)
	if err := c.Init(context.Background(), nil); err != nil {
		t.Fatalf("Init: %v", err)
	}

	owner := id.New()
	from := NewState(&countingScene{}, Priority{Depth: 0, Cost: 0}, owner)
	toFails := NewState(&countingScene{}, Priority{Depth: 0, Cost: 0}, owner)
	toPending := NewState(&countingScene{}, Priority{Depth: 0, Cost: 1}, owner)
	starts.Insert(from)
	ends.Insert(toFails)
	ends.Insert(toPending)

	// The best-priority pair is (from, toFails); attempting it fails, but
	// (from, toPending) remains unattempted.
	sols, err := c.ComputeNext(context.Background())
	if err != nil {
		t.Fatalf("ComputeNext: %v", err)
	}
	if len(sols) != 1 || !sols[0].IsFailure() {
		t.Fatalf("expected one failing solution, got %+v", sols)
	}
	if dc.IsDead(from.ID(), Forward) {
		t.Fatalf("from must not be marked dead while a sibling pair (from, toPending) is still pending")
	}
}

// TestConnectorMarksEndpointDeadOnlyOnceEveryPairFails confirms the
// opposite: once every candidate on a side has failed, that side is
// reported dead (spec.md §4.4: "Only when every pair involving from_i has
// failed is from_i marked dead").
func TestConnectorMarksEndpointDeadOnlyOnceEveryPairFails(t *testing.T) {
	planners := map[string]PlanFunc{"group": func(ctx context.Context, from, to Scene) (Trajectory, float64, string) {
		return nil, math.Inf(1), "no path"
	}}
	c := NewConnector("CON", planners)
	dc := newFakeDeadChecker()
	c.SetPruner(dc)

	starts := NewInterface(Backward)
	ends := NewInterface(Forward)
	c.SetStarts(starts)
	c.SetEnds(ends)
	if err := c.Init(context.Background(), nil); err != nil {
		t.Fatalf("Init: %v", err)
	}

	owner := id.New()
	from := NewState(&countingScene{}, Priority{Depth: 0, Cost: 0}, owner)
	only := NewState(&countingScene{}, Priority{Depth: 0, Cost: 0}, owner)
	starts.Insert(from)
	ends.Insert(only)

	if _, err := c.ComputeNext(context.Background()); err != nil {
		t.Fatalf("ComputeNext: %v", err)
	}
	if !dc.IsDead(from.ID(), Forward) {
		t.Fatalf("expected from dead Forward once its only candidate pair failed")
	}
	if !dc.IsDead(only.ID(), Backward) {
		t.Fatalf("expected only dead Backward once its only candidate pair failed")
	}
}
