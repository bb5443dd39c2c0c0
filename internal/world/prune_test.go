package world

import "testing"

func loc(name string, x, y float64) *Location {
	return &Location{Name: name, Position: Point{X: x, Y: y}}
}

func link(a, b *Location) *Connection {
	c := &Connection{Locations: [2]*Location{a, b}}
	a.Connections = append(a.Connections, c)
	b.Connections = append(b.Connections, c)
	return c
}

func names(locations []*Location) []string {
	out := make([]string, len(locations))
	for i, l := range locations {
		out[i] = l.Name
	}
	return out
}

func sameNames(got []*Location, want ...string) bool {
	g := names(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestPruneMergesShortEdge(t *testing.T) {
	a := loc("a", 0, 0)
	b := loc("b", 10, 0)
	c := loc("c", 100, 0)
	d := loc("d", 100, 100)
	e := loc("e", 500, 500)

	ab := link(a, b)
	ac := link(a, c)
	bc := link(b, c)
	cd := link(c, d)

	locs, conns := pruneGraph([]*Location{a, b, c, d, e}, []*Connection{ab, ac, bc, cd}, 20)

	if !sameNames(locs, "b", "c", "d") {
		t.Fatalf("locations = %v, want [b c d]", names(locs))
	}
	if len(conns) != 2 || conns[0] != ac || conns[1] != cd {
		t.Fatalf("connections = %v, want [ac cd]", conns)
	}
	if ac.Locations[0] != b || ac.Locations[1] != c {
		t.Errorf("ac not rewritten to b-c: %s-%s", ac.Locations[0].Name, ac.Locations[1].Name)
	}
	if len(b.Connections) != 1 || b.Connections[0] != ac {
		t.Errorf("b membership = %v", b.Connections)
	}
	if len(c.Connections) != 2 || c.ConnectionTo(b) != ac || c.ConnectionTo(d) != cd {
		t.Errorf("c membership = %v", c.Connections)
	}
}

func TestPruneRepeatsUntilNoShortEdges(t *testing.T) {
	a := loc("a", 0, 0)
	b := loc("b", 15, 0)
	c := loc("c", 30, 0)

	ab := link(a, b)
	bc := link(b, c)
	ac := link(a, c)

	locs, conns := pruneGraph([]*Location{a, b, c}, []*Connection{ab, bc, ac}, 20)

	if !sameNames(locs, "a", "c") {
		t.Fatalf("locations = %v, want [a c]", names(locs))
	}
	if len(conns) != 1 || conns[0] != ab {
		t.Fatalf("want only ab to survive, got %d connections", len(conns))
	}
	if !ab.Connects(a, c) {
		t.Errorf("ab should now join a and c")
	}
	if ab.Length() <= 20 {
		t.Errorf("surviving edge is short: %v", ab.Length())
	}
}

func TestPruneCollapsesTriangle(t *testing.T) {
	a := loc("a", 0, 0)
	b := loc("b", 5, 0)
	c := loc("c", 0, 5)
	far := loc("far", 200, 0)

	ab := link(a, b)
	bc := link(b, c)
	ca := link(c, a)
	bf := link(b, far)

	locs, conns := pruneGraph([]*Location{a, b, c, far}, []*Connection{ab, bc, ca, bf}, 20)

	if len(locs) != 2 || len(conns) != 1 || conns[0] != bf {
		t.Fatalf("locations %v, %d connections", names(locs), len(conns))
	}
	if bf.Locations[0] == bf.Locations[1] {
		t.Error("surviving edge became a self loop")
	}
	if bf.Locations[1] != far {
		t.Errorf("far endpoint changed to %s", bf.Locations[1].Name)
	}
}

func TestPruneKeepsLongEdgesUntouched(t *testing.T) {
	a := loc("a", 0, 0)
	b := loc("b", 100, 0)
	c := loc("c", 100, 100)
	ab := link(a, b)
	bc := link(b, c)

	locs, conns := pruneGraph([]*Location{a, b, c}, []*Connection{ab, bc}, 20)
	if len(locs) != 3 || len(conns) != 2 {
		t.Fatalf("got %d locations, %d connections", len(locs), len(conns))
	}
	if conns[0] != ab || conns[1] != bc {
		t.Error("connection order changed")
	}
}

func TestUnionFind(t *testing.T) {
	u := newUnionFind(4)
	u.union(0, 1)
	u.union(1, 2)
	if u.find(0) != 2 || u.find(1) != 2 {
		t.Errorf("find(0)=%d find(1)=%d, want 2", u.find(0), u.find(1))
	}
	if u.find(3) != 3 {
		t.Errorf("find(3) = %d", u.find(3))
	}
}
