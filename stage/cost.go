package stage

// CostTerm is the pluggable cost callable referenced by spec.md §6's
// `cost_term` property (the Go counterpart of the original implementation's
// CostTerm overloaded per solution variant, see SPEC_FULL.md's
// "SUPPLEMENTED FEATURES"). It receives the solution just produced and
// returns a possibly-adjusted cost plus an optional comment explaining the
// adjustment. A nil CostTerm leaves a stage's self-reported cost untouched.
type CostTerm func(Solution) (cost float64, comment string)
