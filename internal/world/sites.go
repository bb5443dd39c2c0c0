package world

import "github.com/talgya/campaign-map/internal/rng"

// SampleSites walks a lattice with step SiteInterval over the map square and
// keeps lattice points inside the habitable disc where a draw from
// [SitePlacementMinVal, 1) falls below noise*SitePlacementProbability.
// The walk is x-outer, y-inner; points outside the disc consume no draw.
func SampleSites(noise *NoiseField, cfg GenConfig, r *rng.Server) []Point {
	center := cfg.Center()
	radius := cfg.HabitableRadius()
	radiusSq := radius * radius

	var sites []Point
	for i := 0; ; i++ {
		x := float64(i) * cfg.SiteInterval
		if x >= cfg.Size {
			break
		}
		for j := 0; ; j++ {
			y := float64(j) * cfg.SiteInterval
			if y >= cfg.Size {
				break
			}
			p := Point{X: x, Y: y}
			if p.DistanceSquared(center) > radiusSq {
				continue
			}
			u := r.Range(cfg.SitePlacementMinVal, 1)
			if u < noise.Sample(p, cfg.Size)*cfg.SitePlacementProbability {
				sites = append(sites, p)
			}
		}
	}
	return sites
}
