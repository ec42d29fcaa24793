package stage

import "testing"

func TestPriorityLessDepthDominates(t *testing.T) {
	deep := Priority{Depth: 3, Cost: 100}
	shallow := Priority{Depth: 1, Cost: 0}
	if !deep.Less(shallow) {
		t.Fatalf("expected deeper priority %+v to sort before shallower %+v", deep, shallow)
	}
	if shallow.Less(deep) {
		t.Fatalf("shallower priority %+v must not sort before deeper %+v", shallow, deep)
	}
}

func TestPriorityLessCostTieBreak(t *testing.T) {
	cheap := Priority{Depth: 1, Cost: 1}
	expensive := Priority{Depth: 1, Cost: 2}
	if !cheap.Less(expensive) {
		t.Fatalf("expected cheaper priority to sort first at equal depth")
	}
	if expensive.Less(cheap) {
		t.Fatalf("more expensive priority must not sort before cheaper one")
	}
}

func TestPriorityEqualNeitherLess(t *testing.T) {
	a := Priority{Depth: 2, Cost: 5}
	b := Priority{Depth: 2, Cost: 5}
	if a.Less(b) || b.Less(a) {
		t.Fatalf("equal priorities must compare as neither-less")
	}
}

func TestPrioritySum(t *testing.T) {
	a := Priority{Depth: 1, Cost: 2}
	b := Priority{Depth: 3, Cost: 4}
	got := a.Sum(b)
	want := Priority{Depth: 4, Cost: 6}
	if got != want {
		t.Fatalf("Sum() = %+v, want %+v", got, want)
	}
}
