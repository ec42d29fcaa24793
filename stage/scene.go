package stage

// Scene is the opaque, immutable state value threaded between stages. The
// geometric/kinematic representation of a scene is an external collaborator
// (spec.md §1, "Out of scope") — the core only ever calls Diff on it and
// compares references; it never inspects scene contents. Production callers
// supply their own implementation (a planning-scene snapshot, a robot
// state, ...); stagetest and the demo CLI use a trivial in-memory Scene.
//
// spec.md §3 describes scenes as "reference-counted, shared across many
// states." In Go that sharing is just a pointer/interface value held by
// multiple InterfaceStates; the garbage collector — not manual reference
// counting — reclaims a Scene once the last InterfaceState referencing it is
// dropped along with its owning Pipeline (spec.md §9).
type Scene interface {
	// Diff returns a new Scene derived from the receiver. The core never
	// inspects the delta; it exists purely so a Propagator can describe the
	// transform it intends to apply.
	Diff(delta any) Scene
}
