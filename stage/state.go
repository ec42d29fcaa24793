package stage

import (
	"github.com/weavemotion/pipeline/internal/id"
)

// State is an immutable endpoint between two stages (spec.md §3,
// InterfaceState). Its Scene and Priority never change after construction;
// what does change over a Pipeline's lifetime is its membership bookkeeping
// (which Solutions reference it) and the dead marks the Pruner attaches to
// it in its side-structure (spec.md §9) — neither of which affects the
// immutable identity a caller observes through the public accessors.
type State struct {
	id        id.ID
	scene     Scene
	priority  Priority
	owner     id.ID // the stage that spawned or received this state
	spawnCost float64

	// incoming/outgoing are solutions that produced (incoming) or consume
	// (outgoing) this state, indexed per direction. A Generator's state is
	// not produced by any solution, but may have outgoing solutions on both
	// sides (spec.md §3); a Propagator's output state has exactly one
	// producing solution on the side it was produced from. A Connector links
	// its join as Incoming(Forward) of the pair's end state and
	// Outgoing(Forward) of its start state, whatever stage made them.
	incoming map[Direction][]Solution
	outgoing map[Direction][]Solution
}

// NewState constructs a fresh, unlinked InterfaceState owned by owner.
func NewState(scene Scene, priority Priority, owner id.ID) *State {
	return &State{
		id:       id.New(),
		scene:    scene,
		priority: priority,
		owner:    owner,
		incoming: make(map[Direction][]Solution),
		outgoing: make(map[Direction][]Solution),
	}
}

// ID returns the state's identity, stable for its lifetime.
func (s *State) ID() id.ID { return s.id }

// Scene returns the opaque scene value carried by this state.
func (s *State) Scene() Scene { return s.scene }

// Priority returns the state's (depth, cost) ordering key.
func (s *State) Priority() Priority { return s.priority }

// Owner returns the ID of the stage that spawned or received this state.
func (s *State) Owner() id.ID { return s.owner }

// SpawnCost returns the cost a Generator charged for producing this state,
// zero for any state produced by a Propagator or Connector. A chain
// assembler folds each distinct state's SpawnCost into the end-to-end total
// exactly once (spec.md §8's invariant 2): a Generator never emits a
// Solution of its own, so without this the candidate cost it reports at
// spawn time would otherwise never reach the final sum.
func (s *State) SpawnCost() float64 { return s.spawnCost }

// Incoming returns the solutions that produced this state in the given
// direction. The returned slice is owned by State and must not be mutated.
func (s *State) Incoming(dir Direction) []Solution { return s.incoming[dir] }

// Outgoing returns the solutions that consume this state in the given
// direction. The returned slice is owned by State and must not be mutated.
func (s *State) Outgoing(dir Direction) []Solution { return s.outgoing[dir] }

// linkIncoming records that sol produced this state in direction dir.
func (s *State) linkIncoming(dir Direction, sol Solution) {
	s.incoming[dir] = append(s.incoming[dir], sol)
}

// linkOutgoing records that sol consumes this state in direction dir.
func (s *State) linkOutgoing(dir Direction, sol Solution) {
	s.outgoing[dir] = append(s.outgoing[dir], sol)
}
