package stage

import (
	"testing"

	"github.com/weavemotion/pipeline/internal/id"
)

func TestInterfaceInsertKeepsPriorityOrder(t *testing.T) {
	iface := NewInterface(Forward)
	owner := id.New()

	deep := NewState(nil, Priority{Depth: 2, Cost: 5}, owner)
	shallowCheap := NewState(nil, Priority{Depth: 0, Cost: 1}, owner)
	shallowExpensive := NewState(nil, Priority{Depth: 0, Cost: 9}, owner)

	iface.Insert(shallowExpensive)
	iface.Insert(deep)
	iface.Insert(shallowCheap)

	got := iface.States()
	if len(got) != 3 {
		t.Fatalf("expected 3 states, got %d", len(got))
	}
	if got[0] != deep {
		t.Fatalf("expected deepest state first, got %+v", got[0].Priority())
	}
	if got[1] != shallowCheap || got[2] != shallowExpensive {
		t.Fatalf("expected cheaper-before-expensive among equal depth, got order %+v %+v",
			got[1].Priority(), got[2].Priority())
	}
}

func TestInterfaceRemove(t *testing.T) {
	iface := NewInterface(Backward)
	owner := id.New()
	a := NewState(nil, Priority{Depth: 0, Cost: 0}, owner)
	b := NewState(nil, Priority{Depth: 0, Cost: 1}, owner)
	iface.Insert(a)
	iface.Insert(b)

	if !iface.Remove(a) {
		t.Fatalf("expected Remove to report true for a present state")
	}
	if iface.Remove(a) {
		t.Fatalf("expected Remove to report false once already removed")
	}
	if iface.Len() != 1 || iface.Peek() != b {
		t.Fatalf("expected only b to remain, got len=%d peek=%+v", iface.Len(), iface.Peek())
	}
}

func TestInterfacePeekEmpty(t *testing.T) {
	iface := NewInterface(Both)
	if iface.Peek() != nil {
		t.Fatalf("expected nil Peek on empty interface")
	}
}
