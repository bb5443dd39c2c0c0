package world

import (
	"log/slog"

	"github.com/talgya/campaign-map/internal/catalog"
)

// chooseStartLocation returns the start-typed location farthest from the
// center, keeping the first one found on ties. If no location has the start
// type, the farthest location of any type is converted to it.
func chooseStartLocation(locations []*Location, cfg GenConfig, cat *catalog.Catalog) *Location {
	center := cfg.Center()
	startType := cat.LocationType(cat.StartType)

	var best, farthest *Location
	bestDist, farthestDist := -1.0, -1.0
	for _, l := range locations {
		d := l.Position.DistanceSquared(center)
		if d > farthestDist {
			farthest, farthestDist = l, d
		}
		if l.Type == startType && d > bestDist {
			best, bestDist = l, d
		}
	}

	if best == nil {
		slog.Warn("no start-type location generated, converting farthest location",
			"start_type", cat.StartType, "location", farthest.Name, "was", farthest.TypeName())
		farthest.Type = startType
		best = farthest
	}
	return best
}
