// Package pruner implements cross-stage dead-state tracking (spec.md §4.8):
// a side-structure, independent of any single stage's local bookkeeping,
// that records which InterfaceStates have no viable continuation in a given
// direction and cascades that mark transitively to any ancestor left
// without another live branch.
package pruner

import (
	"sync"

	"github.com/weavemotion/pipeline/internal/id"
	"github.com/weavemotion/pipeline/stage"
)

// Pruner tracks dead InterfaceStates for one Pipeline.Plan run. It
// implements stage.DeadChecker, so every Propagator/Connector/
// SerialContainer that has been wired with a Pruner can both query and
// report deadness without this package needing to import any stage
// implementation type. A Pruner's marks only ever accumulate — spec.md §8
// invariant 5 requires deadness to be monotonic. Pipeline constructs one
// Pruner in New and keeps it for the Pipeline's lifetime, so marks made
// during one Plan call are still in effect in any later Plan call on the
// same Pipeline.
type Pruner struct {
	mu           sync.Mutex
	deadForward  map[id.ID]bool
	deadBackward map[id.ID]bool

	// byID lets MarkDead cascade to ancestors once it is given only an ID;
	// Pipeline registers every state it sees via Track as stages produce
	// them.
	byID map[id.ID]*stage.State
}

// New constructs an empty Pruner.
func New() *Pruner {
	return &Pruner{
		deadForward:  make(map[id.ID]bool),
		deadBackward: make(map[id.ID]bool),
		byID:         make(map[id.ID]*stage.State),
	}
}

// Track registers st so a future MarkDead(st.ID(), ...) call can cascade
// through its Incoming/Outgoing links. Pipeline calls this for both
// endpoints of every solution a stage returns from ComputeNext; a Generator
// state is therefore tracked once some solution starts or ends at it.
func (p *Pruner) Track(st *stage.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[st.ID()] = st
}

// IsDead reports whether the state identified by stateID is dead in dir.
// Direction Both is dead if either side is dead.
func (p *Pruner) IsDead(stateID id.ID, dir stage.Direction) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isDeadLocked(stateID, dir)
}

func (p *Pruner) isDeadLocked(stateID id.ID, dir stage.Direction) bool {
	switch dir {
	case stage.Forward:
		return p.deadForward[stateID]
	case stage.Backward:
		return p.deadBackward[stateID]
	default:
		return p.deadForward[stateID] || p.deadBackward[stateID]
	}
}

func (p *Pruner) setDeadLocked(stateID id.ID, dir stage.Direction) {
	switch dir {
	case stage.Forward:
		p.deadForward[stateID] = true
	case stage.Backward:
		p.deadBackward[stateID] = true
	case stage.Both:
		p.deadForward[stateID] = true
		p.deadBackward[stateID] = true
	}
}

// MarkDead records that the state identified by stateID has no viable
// continuation in dir, then cascades: it walks the producing solutions
// feeding into that state and, for each producer left with no other live
// outgoing branch in dir, marks that producer dead too (spec.md §4.8,
// "Upstream dead-ends block downstream compute" combined with the
// transitive-propagation requirement). Cascading is a no-op for states this
// Pruner was never Track-ed with, or that were already marked dead.
func (p *Pruner) MarkDead(stateID id.ID, dir stage.Direction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markDeadLocked(stateID, dir)
}

func (p *Pruner) markDeadLocked(stateID id.ID, dir stage.Direction) {
	if p.isDeadLocked(stateID, dir) {
		return
	}
	p.setDeadLocked(stateID, dir)

	st, ok := p.byID[stateID]
	if !ok {
		return
	}

	for _, sol := range st.Incoming(dir) {
		producer := producerOf(sol, dir)
		if producer == nil || producer.ID() == stateID {
			continue
		}
		if p.isDeadLocked(producer.ID(), dir) {
			continue
		}
		if p.allOutgoingDeadLocked(producer, dir) {
			p.markDeadLocked(producer.ID(), dir)
		}
	}
}

// allOutgoingDeadLocked reports whether every one of st's outgoing
// solutions in dir is either itself a failure or leads to a state already
// marked dead in dir. A state with no outgoing solutions at all in dir is
// not considered exhausted by this check alone — that case is for the
// stage that owns st to report explicitly once it has truly finished
// trying (spec.md §4.3: a compute call that yields zero results is itself
// a report of exhaustion, handled by the caller before MarkDead is ever
// invoked).
func (p *Pruner) allOutgoingDeadLocked(st *stage.State, dir stage.Direction) bool {
	outs := st.Outgoing(dir)
	if len(outs) == 0 {
		return false
	}
	for _, sol := range outs {
		if sol.IsFailure() {
			continue
		}
		successor := successorOf(sol, dir)
		if successor != nil && p.isDeadLocked(successor.ID(), dir) {
			continue
		}
		return false
	}
	return true
}

// producerOf returns the state on the upstream side of sol relative to
// dir: the side that existed before sol was computed.
func producerOf(sol stage.Solution, dir stage.Direction) *stage.State {
	if dir == stage.Backward {
		return sol.End()
	}
	return sol.Start()
}

// successorOf returns the state on the downstream side of sol relative to
// dir: the side sol produced.
func successorOf(sol stage.Solution, dir stage.Direction) *stage.State {
	if dir == stage.Backward {
		return sol.Start()
	}
	return sol.End()
}

// DeadStateCount returns the number of distinct states marked dead in
// either direction, exposed for metrics (pipeline_pending_work_items
// accounting) and tests.
func (p *Pruner) DeadStateCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := make(map[id.ID]bool, len(p.deadForward)+len(p.deadBackward))
	for k := range p.deadForward {
		seen[k] = true
	}
	for k := range p.deadBackward {
		seen[k] = true
	}
	return len(seen)
}

var _ stage.DeadChecker = (*Pruner)(nil)
