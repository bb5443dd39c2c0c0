package world

import (
	"math"

	"github.com/pzsz/voronoi"
)

// Edge is one Voronoi diagram edge. Endpoints shared between edges are
// bit-identical because the sweep creates each vertex once.
type Edge struct {
	P1, P2 Point
}

// BuildEdges computes the Voronoi diagram of sites clipped to
// [0,width]x[0,height] and returns its edges. Degenerate edges are kept;
// callers skip them.
func BuildEdges(sites []Point, width, height float64) []Edge {
	if len(sites) < 2 {
		return nil
	}

	vs := make([]voronoi.Vertex, len(sites))
	for i, s := range sites {
		vs[i] = voronoi.Vertex{X: s.X, Y: s.Y}
	}

	diagram := voronoi.ComputeDiagram(vs, voronoi.NewBBox(0, width, 0, height), false)

	edges := make([]Edge, 0, len(diagram.Edges))
	for _, e := range diagram.Edges {
		a := Point{X: e.Va.X, Y: e.Va.Y}
		b := Point{X: e.Vb.X, Y: e.Vb.Y}
		if !finite(a) || !finite(b) {
			continue
		}
		edges = append(edges, Edge{P1: a, P2: b})
	}
	return edges
}

func finite(p Point) bool {
	return !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0) && !math.IsNaN(p.X) && !math.IsNaN(p.Y)
}
