package world

import (
	"fmt"

	"github.com/talgya/campaign-map/internal/catalog"
	"github.com/talgya/campaign-map/internal/rng"
)

// connectionDifficulty is 100 at the map center falling to 0 at the map
// radius, jittered by one draw in [-10,10) and clamped to [0,100].
func connectionDifficulty(c *Connection, cfg GenConfig, r *rng.Server) float64 {
	dist := c.CenterPosition().Distance(cfg.Center())
	base := (1 - dist/cfg.MapRadius()) * 100
	return clamp(base+r.Range(-10, 10), 0, 100)
}

// assignDifficulties redraws every connection's difficulty in list order.
func assignDifficulties(connections []*Connection, cfg GenConfig, r *rng.Server) {
	for _, c := range connections {
		c.Difficulty = connectionDifficulty(c, cfg, r)
	}
}

// assignBiomes walks zone rings from the center outward. Pass i covers the
// disc of radius HabitableRadius*(i+1)/zones and picks from biomes allowed in
// zone (zones - i); a connection is claimed by the first pass in which either
// endpoint lies inside the disc, and the final pass claims the rest.
func assignBiomes(connections []*Connection, cfg GenConfig, cat *catalog.Catalog, r *rng.Server) error {
	zones := cfg.DifficultyZones
	center := cfg.Center()

	for i := 0; i < zones; i++ {
		zone := zones - i
		zoneRadius := cfg.HabitableRadius() * float64(i+1) / float64(zones)
		last := i == zones-1

		for _, c := range connections {
			if c.Biome != nil {
				continue
			}
			if !last &&
				c.Locations[0].Position.Distance(center) >= zoneRadius &&
				c.Locations[1].Position.Distance(center) >= zoneRadius {
				continue
			}
			c.Biome = cat.PickBiome(r, zone)
			if c.Biome == nil {
				return fmt.Errorf("%w: no biome allowed in zone %d", ErrUnclassifiedConnection, zone)
			}
		}
	}

	for i, c := range connections {
		if c.Biome == nil {
			return fmt.Errorf("%w: connection %d", ErrUnclassifiedConnection, i)
		}
	}
	return nil
}
