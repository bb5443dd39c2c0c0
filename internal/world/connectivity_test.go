package world

import (
	"errors"
	"testing"
)

func TestComponents(t *testing.T) {
	a, b, c := loc("a", 0, 0), loc("b", 1, 0), loc("c", 2, 0)
	d, e := loc("d", 10, 0), loc("e", 11, 0)
	link(a, b)
	link(d, e)
	link(b, c)

	comps := Components([]*Location{a, d, b, e, c})
	if len(comps) != 2 {
		t.Fatalf("got %d components, want 2", len(comps))
	}
	if !sameNames(comps[0], "a", "b", "c") || !sameNames(comps[1], "d", "e") {
		t.Errorf("components = %v / %v", names(comps[0]), names(comps[1]))
	}

	if err := CheckConnectivity([]*Location{a, b, c, d, e}); !errors.Is(err, ErrDisconnectedGraph) {
		t.Errorf("CheckConnectivity = %v, want ErrDisconnectedGraph", err)
	}
	if err := CheckConnectivity([]*Location{a, b, c}); err != nil {
		t.Errorf("connected subgraph reported %v", err)
	}
}

func TestKeepLargestComponent(t *testing.T) {
	a, b := loc("a", 0, 0), loc("b", 1, 0)
	c, d, e := loc("c", 10, 0), loc("d", 11, 0), loc("e", 12, 0)
	ab := link(a, b)
	cd := link(c, d)
	de := link(d, e)

	locs, conns, dropped := keepLargestComponent([]*Location{a, b, c, d, e}, []*Connection{ab, cd, de})
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if !sameNames(locs, "c", "d", "e") {
		t.Errorf("kept %v", names(locs))
	}
	if len(conns) != 2 || conns[0] != cd || conns[1] != de {
		t.Errorf("kept %d connections", len(conns))
	}
}

func TestKeepLargestComponentTiePrefersEarliest(t *testing.T) {
	a, b := loc("a", 0, 0), loc("b", 1, 0)
	c, d := loc("c", 10, 0), loc("d", 11, 0)
	ab := link(a, b)
	cd := link(c, d)

	locs, conns, _ := keepLargestComponent([]*Location{c, a, b, d}, []*Connection{ab, cd})
	if !sameNames(locs, "c", "d") {
		t.Errorf("kept %v, want [c d]", names(locs))
	}
	if len(conns) != 1 || conns[0] != cd {
		t.Errorf("kept wrong connections")
	}
}
