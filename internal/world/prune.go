package world

// pruneGraph enforces the minimum edge length and removes the debris:
//
//  1. Short-edge merge. Walking the connection list from the back, any
//     connection whose resolved endpoints are at most minDist apart is removed
//     and its first endpoint is merged into its second. Endpoints resolve
//     through a union-find table, so every other connection that referenced
//     the merged location now sees the surviving one. The walk repeats until
//     a pass removes nothing, since merges can shorten edges already visited.
//  2. Every surviving connection is rewritten to its canonical endpoints and
//     location membership is rebuilt.
//  3. Locations with no connections are dropped.
//  4. Later duplicates of an already-seen endpoint pair are dropped.
//
// Order of locations and connections is preserved throughout.
func pruneGraph(locations []*Location, connections []*Connection, minDist float64) ([]*Location, []*Connection) {
	index := make(map[*Location]int, len(locations))
	for i, l := range locations {
		index[l] = i
	}
	uf := newUnionFind(len(locations))

	alive := append([]*Connection(nil), connections...)
	for {
		removed := false
		for i := len(alive) - 1; i >= 0; i-- {
			c := alive[i]
			a := uf.find(index[c.Locations[0]])
			b := uf.find(index[c.Locations[1]])
			if a != b && locations[a].Position.Distance(locations[b].Position) > minDist {
				continue
			}
			alive = append(alive[:i], alive[i+1:]...)
			if a != b {
				uf.union(a, b)
			}
			removed = true
		}
		if !removed {
			break
		}
	}

	for _, c := range alive {
		c.Locations[0] = locations[uf.find(index[c.Locations[0]])]
		c.Locations[1] = locations[uf.find(index[c.Locations[1]])]
	}
	rebuildMembership(locations, alive)

	kept := locations[:0:0]
	for _, l := range locations {
		if len(l.Connections) > 0 {
			kept = append(kept, l)
		}
	}

	type pair struct{ a, b *Location }
	seen := make(map[pair]bool, len(alive))
	deduped := alive[:0:0]
	for _, c := range alive {
		a, b := c.Locations[0], c.Locations[1]
		if index[a] > index[b] {
			a, b = b, a
		}
		key := pair{a, b}
		if seen[key] {
			detach(c)
			continue
		}
		seen[key] = true
		deduped = append(deduped, c)
	}

	return kept, deduped
}

// rebuildMembership recomputes every location's incident connections.
func rebuildMembership(locations []*Location, connections []*Connection) {
	for _, l := range locations {
		l.Connections = nil
	}
	for _, c := range connections {
		c.Locations[0].Connections = append(c.Locations[0].Connections, c)
		c.Locations[1].Connections = append(c.Locations[1].Connections, c)
	}
}

// detach removes c from both endpoints' connection lists.
func detach(c *Connection) {
	for _, l := range c.Locations {
		for i, other := range l.Connections {
			if other == c {
				l.Connections = append(l.Connections[:i], l.Connections[i+1:]...)
				break
			}
		}
	}
}

// unionFind maps each location index to its canonical survivor.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// union merges the set rooted at from into the set rooted at to.
func (u *unionFind) union(from, to int) {
	u.parent[u.find(from)] = u.find(to)
}
