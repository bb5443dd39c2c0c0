package world

import (
	"github.com/talgya/campaign-map/internal/catalog"
	"github.com/talgya/campaign-map/internal/rng"
)

// graphBuilder turns raw Voronoi edges into locations and connections,
// reusing a location whenever an edge endpoint lands exactly on one.
type graphBuilder struct {
	cfg    GenConfig
	cat    *catalog.Catalog
	r      *rng.Server
	center Point
	radius float64

	locations   []*Location
	byPosition  map[Point]*Location
	connections []*Connection
}

func buildGraph(edges []Edge, cfg GenConfig, cat *catalog.Catalog, r *rng.Server) ([]*Location, []*Connection) {
	b := &graphBuilder{
		cfg:        cfg,
		cat:        cat,
		r:          r,
		center:     cfg.Center(),
		radius:     cfg.HabitableRadius(),
		byPosition: make(map[Point]*Location),
	}
	for _, e := range edges {
		b.addEdge(e)
	}
	return b.locations, b.connections
}

func (b *graphBuilder) addEdge(e Edge) {
	if e.P1 == e.P2 {
		return
	}
	if e.P1.Distance(b.center) >= b.radius || e.P2.Distance(b.center) >= b.radius {
		return
	}

	var ends [2]*Location
	if l := b.byPosition[e.P1]; l != nil {
		ends[0] = l
	}
	if l := b.byPosition[e.P2]; l != nil {
		if ends[0] == nil {
			ends[0] = l
		} else {
			ends[1] = l
		}
	}

	points := [2]Point{e.P1, e.P2}
	for i := 0; i < 2; i++ {
		if ends[i] != nil {
			continue
		}
		// One draw per new endpoint; if the pick collides with the other
		// resolved endpoint take the remaining point instead.
		k := b.r.Intn(2)
		pos := points[k]
		if other := ends[1-i]; other != nil && other.Position == pos {
			pos = points[1-k]
		}
		ends[i] = b.newLocation(pos)
	}

	c := &Connection{Locations: ends}
	c.Difficulty = connectionDifficulty(c, b.cfg, b.r)
	b.connections = append(b.connections, c)
}

// newLocation draws the type, then the name, for a location at pos.
func (b *graphBuilder) newLocation(pos Point) *Location {
	zone := b.cfg.ZoneOf(pos)
	lt := b.cat.PickLocationType(b.r, zone)
	l := &Location{
		Name:     b.cat.GenerateName(b.r, lt),
		Position: pos,
		Zone:     zone,
		Type:     lt,
	}
	b.locations = append(b.locations, l)
	b.byPosition[pos] = l
	return l
}
