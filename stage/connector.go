package stage

import (
	"context"
	"math"
	"sort"

	"github.com/weavemotion/pipeline/internal/id"
	"go.opentelemetry.io/otel/attribute"
)

// PlanFunc attempts to connect two scenes belonging to the same planning
// group and returns the resulting trajectory, its cost, and a comment
// (spec.md §4.4). A +Inf cost indicates the pair could not be connected
// within that group.
type PlanFunc func(ctx context.Context, from, to Scene) (trajectory Trajectory, cost float64, comment string)

// Connector is the stage variant that bridges a Starts state and an Ends
// state, invoking one PlanFunc per configured planning group and merging
// the per-group results into a single joining solution according to
// MergeMode (spec.md §4.4: "compute(from, to) produces a SolutionSequence
// joining them — possibly a single trajectory").
type Connector struct {
	base
	props ConnectorProperties

	// planners maps a planning-group name to the function that attempts to
	// connect two scenes within that group. A connector with exactly one
	// group behaves the same under either merge mode.
	planners map[string]PlanFunc

	attempted map[[2]id.ID]bool
	succeeded map[id.ID]bool // start/end IDs that have at least one successful pair
	pruner    DeadChecker
}

// NewConnector constructs a Connector with the given named planners. The
// merge mode defaults to MergeParallel; use SetProperty("merge_mode", ...)
// to switch to MergeSequential.
func NewConnector(name string, planners map[string]PlanFunc, opts ...Option) *Connector {
	c := &Connector{
		base:      newBase(name),
		planners:  planners,
		attempted: make(map[[2]id.ID]bool),
		succeeded: make(map[id.ID]bool),
	}
	c.props.MergeMode = MergeParallel
	for _, opt := range opts {
		opt(&c.base)
	}
	return c
}

// Init validates that the connector has both boundary interfaces and at
// least one registered planner.
func (c *Connector) Init(ctx context.Context, model RobotModel) error {
	if c.starts == nil || c.ends == nil {
		return NewConfigurationError("connector " + c.name + " is missing starts or ends interface")
	}
	if len(c.planners) == 0 {
		return NewConfigurationError("connector " + c.name + " has no planners configured")
	}
	return nil
}

// SetPruner wires the Pruner this connector consults before attempting a
// pair whose start or end side has been marked dead.
func (c *Connector) SetPruner(dc DeadChecker) { c.pruner = dc }

// pendingPair is one not-yet-attempted (start, end) combination ranked by
// the sum of its endpoints' priorities (spec.md §4.4: "ranked by minimum
// combined (from.priority, to.priority) by lexicographic sum").
type pendingPair struct {
	start, end *State
	priority   Priority
}

func (c *Connector) pendingPairs() []pendingPair {
	var pairs []pendingPair
	for _, s := range c.starts.States() {
		if c.pruner != nil && c.pruner.IsDead(s.ID(), Both) {
			continue
		}
		for _, e := range c.ends.States() {
			if c.pruner != nil && c.pruner.IsDead(e.ID(), Both) {
				continue
			}
			key := [2]id.ID{s.ID(), e.ID()}
			if c.attempted[key] {
				continue
			}
			pairs = append(pairs, pendingPair{start: s, end: e, priority: s.Priority().Sum(e.Priority())})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].priority.Less(pairs[j].priority)
	})
	return pairs
}

// CanCompute reports whether any unattempted (start, end) pair remains.
func (c *Connector) CanCompute() bool {
	return len(c.pendingPairs()) > 0
}

// NextPriority reports the priority of the best pending pair.
func (c *Connector) NextPriority() (Priority, bool) {
	pairs := c.pendingPairs()
	if len(pairs) == 0 {
		return Priority{}, false
	}
	return pairs[0].priority, true
}

// ComputeNext attempts exactly one (start, end) pair: it runs every
// configured group's planner against the pair's scenes, merges the results
// per MergeMode into a single joining Solution, and records it. A failure
// on this pair never removes or marks dead any other pending pair (spec.md
// §4.4/§4.8: "a connector failure on one pair must not kill sibling
// pairs") — only once every pair touching one endpoint has failed does
// that endpoint get reported to the Pruner.
func (c *Connector) ComputeNext(ctx context.Context) ([]Solution, error) {
	pairs := c.pendingPairs()
	if len(pairs) == 0 {
		return nil, nil
	}
	pair := pairs[0]
	c.attempted[[2]id.ID{pair.start.ID(), pair.end.ID()}] = true

	ctx, span := c.startSpan(ctx, "stage.connector.compute")
	defer span.End()
	span.SetAttributes(attribute.String("stage.name", c.name))

	c.numCalls++

	groupNames := make([]string, 0, len(c.planners))
	for g := range c.planners {
		groupNames = append(groupNames, g)
	}
	sort.Strings(groupNames)

	var traj Trajectory
	var cost float64
	var comment string
	if c.props.MergeMode == MergeSequential {
		traj, cost, comment = c.mergeSequential(ctx, pair, groupNames)
	} else {
		traj, cost, comment = c.mergeParallel(ctx, pair, groupNames)
	}

	sol := c.record(NewAtomicSolution(traj, pair.start, pair.end, cost, comment)).(*AtomicSolution)
	// Both endpoints are linked under Forward, mirroring how a forward
	// Propagator links its from/successor pair: pair.end is reached FROM
	// pair.start across this join, so walkChains (which only ever follows
	// Incoming(Forward)) can discover this solution when assembling an
	// end-to-end chain, and the Pruner's Forward cascade can walk back
	// through it from pair.end to pair.start (spec.md §4.4, §4.8).
	pair.start.linkOutgoing(Forward, sol)
	pair.end.linkIncoming(Forward, sol)

	if sol.IsFailure() {
		c.reportIfExhausted(pair)
	} else {
		c.succeeded[pair.start.ID()] = true
		c.succeeded[pair.end.ID()] = true
	}
	return []Solution{sol}, nil
}

// mergeParallel runs every group's planner independently: a group that
// fails to connect does not block the others, and the merged cost is the
// sum of whichever groups succeeded. Only when every group fails does the
// merged result fail (spec.md §4.4, PARALLEL merge mode).
func (c *Connector) mergeParallel(ctx context.Context, pair pendingPair, groups []string) (Trajectory, float64, string) {
	var total float64
	var anySucceeded bool
	var lastComment string
	for _, g := range groups {
		_, cost, comment := c.planners[g](ctx, pair.start.Scene(), pair.end.Scene())
		if math.IsInf(cost, 1) {
			lastComment = comment
			continue
		}
		anySucceeded = true
		total += cost
		lastComment = comment
	}
	if !anySucceeded {
		return nil, math.Inf(1), lastComment
	}
	return pair.end.Scene(), total, lastComment
}

// mergeSequential requires every group to connect; any group failing
// collapses the whole pair's merged result to +Inf (spec.md §4.4,
// SEQUENTIAL merge mode: "the resulting trajectory must be consistent
// across all groups").
func (c *Connector) mergeSequential(ctx context.Context, pair pendingPair, groups []string) (Trajectory, float64, string) {
	var total float64
	for _, g := range groups {
		_, cost, comment := c.planners[g](ctx, pair.start.Scene(), pair.end.Scene())
		if math.IsInf(cost, 1) {
			return nil, math.Inf(1), comment
		}
		total += cost
	}
	return pair.end.Scene(), total, ""
}

// reportIfExhausted marks pair's start dead-forward and/or end dead-backward
// once every candidate on that side has been attempted without success,
// without disturbing any sibling pair that is still pending or already
// succeeded (spec.md §4.4/§4.8).
func (c *Connector) reportIfExhausted(pair pendingPair) {
	if c.pruner == nil {
		return
	}
	remaining := c.pendingPairs()

	startHasHope := c.succeeded[pair.start.ID()]
	endHasHope := c.succeeded[pair.end.ID()]
	for _, p := range remaining {
		if p.start.ID() == pair.start.ID() {
			startHasHope = true
		}
		if p.end.ID() == pair.end.ID() {
			endHasHope = true
		}
	}
	if !startHasHope {
		c.pruner.MarkDead(pair.start.ID(), Forward)
	}
	if !endHasHope {
		c.pruner.MarkDead(pair.end.ID(), Backward)
	}
}

// SetProperty resolves name into the connector's typed properties.
func (c *Connector) SetProperty(name string, value any) error {
	if handled, err := c.setCommonProperty(name, value); handled {
		return err
	}
	switch name {
	case "merge_mode":
		mm, ok := value.(MergeMode)
		if !ok {
			return NewError(ErrorTypeInvalidParameter, "merge_mode must be a stage.MergeMode").
				WithContext("stage", c.name).WithContext("value", value)
		}
		c.props.MergeMode = mm
		return nil
	default:
		return NewError(ErrorTypeInvalidParameter, "unknown connector property "+name)
	}
}
