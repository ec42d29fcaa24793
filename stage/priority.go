package stage

// Priority orders InterfaceStates within an Interface per spec.md §4.1:
// Depth is the number of backward-linked states reachable from the
// terminal end (how many stages in the opposite direction produced this
// state); Cost is the accumulated best cost of one direction's best
// solution chain reaching it.
//
// Ordering: deeper states sort first (states closer to a terminal boundary
// are preferred so partial chains are driven to completion before new
// branches start), and within equal depth, lower cost sorts first.
type Priority struct {
	Depth int
	Cost  float64
}

// Less reports whether p sorts before other: deeper first, then cheaper.
// Tie-breaking beyond (Depth, Cost) is source-unspecified per spec.md §9 —
// within an Interface, ties are broken by insertion order, latest first:
// Interface.Insert places a new state before the first element that does
// not sort strictly before it, i.e. ahead of any equal-priority states.
func (p Priority) Less(other Priority) bool {
	if p.Depth != other.Depth {
		return p.Depth > other.Depth // deeper (bigger) wins
	}
	return p.Cost < other.Cost
}

// Sum returns the lexicographic (depth, cost) sum of two priorities, used by
// the Connector to rank pending (from, to) pairs by combined priority
// (spec.md §4.4).
func (p Priority) Sum(other Priority) Priority {
	return Priority{Depth: p.Depth + other.Depth, Cost: p.Cost + other.Cost}
}
