package stage

import "sort"

// Interface is an ordered sequence of InterfaceStates at a stage boundary,
// sorted by Priority ascending per spec.md §3/§4.1 (deeper states first,
// ties broken by lower cost). Adjacent stages share an *Interface by
// pointer (spec.md §4.5): stage A's ends-interface literally is stage B's
// starts-interface, so spawning on one side is immediately visible to the
// other without copying.
type Interface struct {
	direction Direction
	states    []*State
}

// NewInterface creates an empty Interface for the given direction.
func NewInterface(dir Direction) *Interface {
	return &Interface{direction: dir}
}

// Direction reports the direction the interface was created with.
// SerialContainer creates the interfaces it wires with Forward (between
// children and at its ends) or Backward (at its starts), including the one
// a Generator sits on; Both is only ever set by a caller that creates the
// interface itself.
func (i *Interface) Direction() Direction { return i.direction }

// Len returns the number of states currently queued.
func (i *Interface) Len() int { return len(i.states) }

// Insert adds a state, keeping the slice sorted by Priority ascending
// (Priority.Less). Insertion is O(n); interfaces in this engine are small
// (bounded by a stage's local fan-out), so a sorted slice is simpler than a
// heap and still supports Remove of an arbitrary element. Consumed or dead
// states are not removed: stages skip them when scanning States.
func (i *Interface) Insert(s *State) {
	pos := sort.Search(len(i.states), func(j int) bool {
		return !i.states[j].Priority().Less(s.Priority())
	})
	i.states = append(i.states, nil)
	copy(i.states[pos+1:], i.states[pos:])
	i.states[pos] = s
}

// Remove deletes s from the interface, returning true if it was present.
func (i *Interface) Remove(s *State) bool {
	for idx, st := range i.states {
		if st == s {
			i.states = append(i.states[:idx], i.states[idx+1:]...)
			return true
		}
	}
	return false
}

// Peek returns the highest-priority (first) state without removing it, or
// nil if the interface is empty.
func (i *Interface) Peek() *State {
	if len(i.states) == 0 {
		return nil
	}
	return i.states[0]
}

// States returns the queued states in priority order. The slice shares the
// interface's own storage (it is not a copy), so a later Insert or Remove
// may change it; callers must not mutate the result.
func (i *Interface) States() []*State {
	return i.states
}
