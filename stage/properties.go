package stage

import "time"

// MergeMode controls how a Connector combines per-group sub-trajectories
// (spec.md §4.4).
type MergeMode string

const (
	// MergeParallel runs each group's sub-trajectory independently.
	MergeParallel MergeMode = "PARALLEL"
	// MergeSequential requires the resulting trajectory to be consistent
	// across all groups; a merge failure yields cost +Inf.
	MergeSequential MergeMode = "SEQUENTIAL"
)

// CommonProperties holds the properties every stage kind recognizes per
// spec.md §6 ("Any stage: timeout, cost_term").
type CommonProperties struct {
	// Timeout bounds how long this stage's Compute is allowed to run.
	// Zero means no stage-local timeout (only the Pipeline-wide deadline
	// applies).
	Timeout time.Duration
	// CostTerm optionally overrides a stage's self-reported solution cost.
	CostTerm CostTerm
}

// GeneratorProperties holds Generator-specific configuration. Generators
// currently recognize only the common properties; the type exists so
// SetProperty has a typed destination to resolve into, per spec.md §9's
// "typed configuration record per stage variant, not a string-keyed
// dynamic map."
type GeneratorProperties struct {
	CommonProperties
}

// PropagatorProperties holds Propagator-specific configuration.
type PropagatorProperties struct {
	CommonProperties
}

// ConnectorProperties holds Connector-specific configuration
// (spec.md §6: merge_mode, cost_term).
type ConnectorProperties struct {
	CommonProperties
	// MergeMode selects PARALLEL or SEQUENTIAL merging. Defaults to
	// MergeParallel.
	MergeMode MergeMode
}

// ContainerProperties holds SerialContainer-specific configuration.
type ContainerProperties struct {
	CommonProperties
}
