package stage

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// SerialContainer composes an ordered chain of child stages into a single
// Stage (spec.md §4.6): it exposes its leftmost child's Starts and its
// rightmost child's Ends as its own boundary, and wires every adjacent pair
// of children together with a shared *Interface at Init time. Its own
// ComputeNext delegates to whichever child stage currently holds the
// globally best pending priority among its children.
type SerialContainer struct {
	base
	children []Stage
	pruner   DeadChecker
}

// NewSerialContainer constructs an empty SerialContainer. Children are
// added in left-to-right order with Add before Init is called.
func NewSerialContainer(name string, opts ...Option) *SerialContainer {
	c := &SerialContainer{base: newBase(name)}
	for _, opt := range opts {
		opt(&c.base)
	}
	return c
}

// Add appends a child stage to the end of the chain. Must be called before
// Init.
func (c *SerialContainer) Add(child Stage) {
	c.children = append(c.children, child)
}

// Children returns the ordered child stages.
func (c *SerialContainer) Children() []Stage {
	out := make([]Stage, len(c.children))
	copy(out, c.children)
	return out
}

// Init wires every adjacent pair of children with a shared *Interface
// (spec.md §4.5), exposes the chain's own boundary (the first child's
// Starts and the last child's Ends), wires a pruner into every
// pruning-aware child if this container itself has one, and then
// initializes each child in order (spec.md §3's top-down Init lifecycle).
func (c *SerialContainer) Init(ctx context.Context, model RobotModel) error {
	if len(c.children) == 0 {
		return NewConfigurationError("container " + c.name + " has no children")
	}

	// A boundary handed down by a parent is wired before the adjacent pairs,
	// so a first/last Generator (whose starts and ends alias) shares it with
	// its inner neighbor instead of being re-pointed away from it afterwards.
	last := c.children[len(c.children)-1]
	if c.starts != nil {
		c.children[0].SetStarts(c.starts)
	}
	if c.ends != nil {
		last.SetEnds(c.ends)
	}

	for i := 0; i < len(c.children)-1; i++ {
		left, right := c.children[i], c.children[i+1]
		shared := left.Ends()
		if shared == nil {
			shared = right.Starts()
			if shared == nil {
				shared = NewInterface(Forward)
			}
			left.SetEnds(shared)
		}
		right.SetStarts(shared)
	}

	if c.starts == nil {
		c.starts = c.children[0].Starts()
		if c.starts == nil {
			c.starts = NewInterface(Backward)
			c.children[0].SetStarts(c.starts)
		}
	}

	if c.ends == nil {
		c.ends = last.Ends()
		if c.ends == nil {
			c.ends = NewInterface(Forward)
			last.SetEnds(c.ends)
		}
	}

	if c.pruner != nil {
		c.wirePruner(c.pruner)
	}

	for _, child := range c.children {
		if err := child.Init(ctx, model); err != nil {
			return WrapError(ErrorTypeInitFailure, "container "+c.name+": child "+child.Name()+" failed to init", err)
		}
	}
	return nil
}

// SetPruner wires dc into this container and cascades it to every child
// that implements pruneAware, keeping container boundaries transparent to
// pruning (spec.md §4.8: "container boundaries must be transparent to
// pruning").
func (c *SerialContainer) SetPruner(dc DeadChecker) {
	c.pruner = dc
	c.wirePruner(dc)
}

func (c *SerialContainer) wirePruner(dc DeadChecker) {
	for _, child := range c.children {
		if pa, ok := child.(pruneAware); ok {
			pa.SetPruner(dc)
		}
	}
}

// scheduleWeight breaks a Priority tie between two candidate stages
// (spec.md §9: "tie-breaking ... is source-unspecified; an implementation
// MAY choose any deterministic rule"). Lower weight is scheduled first.
// Connectors are weighted behind Generators/Propagators: a Connector's
// attempt is the most expensive operation a stage performs (it may invoke
// one PlanFunc per configured group) and, unlike a Propagator, failing it
// does not by itself retire an InterfaceState the way a one-sided
// propagation failure can — so when a cheaper single-sided computation is
// equally ranked and might prune the very state the Connector would have
// paired against, it runs first. A SerialContainer's weight is whatever
// its own currently-best child would carry, so the rule applies uniformly
// across container boundaries (spec.md §4.8, "container boundaries are
// transparent to pruning").
func scheduleWeight(s Stage) int {
	switch v := s.(type) {
	case *Connector:
		return 1
	case *SerialContainer:
		child, _, ok := v.bestChild()
		if !ok {
			return 1
		}
		return scheduleWeight(child)
	default:
		return 0
	}
}

// bestChild returns the child with the lowest-priority (best) pending work
// item, or nil if no child can compute. Priority ties are broken by
// scheduleWeight, then toward the child later in the chain: a stage closer
// to the pipeline's forward boundary represents work that is further along
// a partial chain, and driving it to completion before starting
// equally-ranked work further back lets a dead-end surface (and prune its
// backward neighbors) before those neighbors are ever invoked.
func (c *SerialContainer) bestChild() (Stage, Priority, bool) {
	var best Stage
	var bestPriority Priority
	found := false
	for i := len(c.children) - 1; i >= 0; i-- {
		child := c.children[i]
		p, ok := child.NextPriority()
		if !ok {
			continue
		}
		switch {
		case !found:
			best, bestPriority, found = child, p, true
		case p.Less(bestPriority):
			best, bestPriority = child, p
		case !bestPriority.Less(p) && scheduleWeight(child) < scheduleWeight(best):
			// Exact tie in (depth, cost): prefer the lower schedule weight.
			best, bestPriority = child, p
		}
	}
	return best, bestPriority, found
}

// CanCompute reports whether any child has pending work.
func (c *SerialContainer) CanCompute() bool {
	_, _, ok := c.bestChild()
	return ok
}

// NextPriority reports the best pending priority among all children.
func (c *SerialContainer) NextPriority() (Priority, bool) {
	_, p, ok := c.bestChild()
	return p, ok
}

// ComputeNext delegates to whichever child currently holds the globally
// best pending priority. The raw solutions the child produced are returned
// unchanged — Container adds no wrapping at compute time — so a caller
// driving the whole tree (package pipeline) sees every solution as it is
// created and can track its endpoint states for pruning. End-to-end chains that
// completely span this container's own boundary are assembled lazily by
// Solutions, not threaded through ComputeNext (spec.md §4.6).
func (c *SerialContainer) ComputeNext(ctx context.Context) ([]Solution, error) {
	child, _, ok := c.bestChild()
	if !ok {
		return nil, nil
	}

	_, span := c.startSpan(ctx, "stage.container.compute")
	defer span.End()
	span.SetAttributes(
		attribute.String("stage.name", c.name),
		attribute.String("stage.child", child.Name()),
	)

	c.numCalls++
	sols, err := child.ComputeNext(ctx)
	if err != nil {
		return nil, WrapError(ErrorTypeInternal, "container "+c.name+": child "+child.Name()+" compute failed", err)
	}
	return sols, nil
}

// Solutions enumerates every completed end-to-end chain spanning this
// container's own boundary, wrapped as a WrappedSolution so a parent
// container or Pipeline can treat this whole container as a single stage
// (spec.md §3, §4.6). A chain is complete once its first state's Incoming
// is empty relative to the container's starts side and its last state sits
// in the container's ends interface with a solution reaching it; assembling
// the interior chain itself is delegated to walkChains.
func (c *SerialContainer) Solutions() []Solution {
	if c.ends == nil {
		return nil
	}
	var out []Solution
	for _, end := range c.ends.States() {
		for _, chain := range walkChains(end, c.starts) {
			if len(chain) == 0 {
				// end sits directly at (or before) the container's own
				// starts boundary with nothing joining it: not a chain
				// spanning the container, so nothing to report here.
				continue
			}
			// Always route through NewSequenceSolution, even for a single
			// edge: its cost formula also folds in both endpoints' own
			// SpawnCost, which a bare chain[0] would otherwise drop.
			inner := NewSequenceSolution(chain)
			out = append(out, NewWrappedSolution(inner, inner.Start(), inner.End()))
		}
	}
	return out
}

// walkChains recursively collects every ordered chain of Forward solutions
// ending at end and terminating once a state with no further Forward
// Incoming solutions is reached, or (if starts is non-nil) once the chain
// reaches a state that belongs to starts.
func walkChains(end *State, starts *Interface) [][]Solution {
	incoming := end.Incoming(Forward)
	if len(incoming) == 0 || isBoundaryState(end, starts) {
		return [][]Solution{{}}
	}
	var out [][]Solution
	for _, sol := range incoming {
		for _, prefix := range walkChains(sol.Start(), starts) {
			chain := append(append([]Solution{}, prefix...), sol)
			out = append(out, chain)
		}
	}
	return out
}

func isBoundaryState(st *State, iface *Interface) bool {
	if iface == nil {
		return false
	}
	for _, s := range iface.States() {
		if s == st {
			return true
		}
	}
	return false
}

// SetProperty resolves name into the container's typed properties.
func (c *SerialContainer) SetProperty(name string, value any) error {
	if handled, err := c.setCommonProperty(name, value); handled {
		return err
	}
	return NewError(ErrorTypeInvalidParameter, "unknown container property "+name)
}
