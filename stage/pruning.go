package stage

import "github.com/weavemotion/pipeline/internal/id"

// DeadChecker is the surface a Propagator/Connector needs from the Pruner
// (spec.md §4.8, §9: "implement as a side-structure alongside the
// interface graph"). It is defined here, rather than in package pruner, so
// stage implementations can query and report deadness without pruner
// importing stage and creating a cycle — package pruner's Pruner type
// satisfies this interface implicitly.
type DeadChecker interface {
	// IsDead reports whether the state identified by id is dead in the
	// given direction.
	IsDead(id id.ID, dir Direction) bool

	// MarkDead reports that the state identified by id has no viable
	// continuation in the given direction, letting the Pruner cascade the
	// mark transitively to any ancestor left with no other live branch
	// (spec.md §4.8).
	MarkDead(id id.ID, dir Direction)
}

// pruneAware is implemented by stage kinds that consume upstream states
// (Propagator, Connector) and therefore need to skip states the Pruner has
// already marked dead (spec.md §4.8: "Upstream dead-ends block downstream
// compute"). Package pipeline wires a Pruner into every stage that
// implements this interface as part of Pipeline.Init.
type pruneAware interface {
	SetPruner(DeadChecker)
}

// allFailed reports whether sols is non-empty and every entry is a failure,
// or empty — both cases mean the state that produced sols has no viable
// continuation and can be reported to the Pruner.
func allFailed(sols []Solution) bool {
	for _, s := range sols {
		if !s.IsFailure() {
			return false
		}
	}
	return true
}
