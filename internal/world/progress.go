package world

import (
	"log/slog"

	"github.com/talgya/campaign-map/internal/catalog"
)

// ProgressWorld advances location type changes by one round.
//
// For each discovered location, a type change is eligible when no neighbor
// has a disallowed type and, if any are listed, at least one neighbor has a
// required type. The location's timer counts consecutive rounds with at least
// one eligible change and resets to zero otherwise. Changes whose required
// duration the timer has reached are ready; one roll against their summed
// probability decides whether one fires, and a weighted pick chooses which.
// At most one change fires per location per call, and firing resets the timer.
//
// Each round draws from its own stream keyed by the map seed and the round
// number, so a map restored from a save rolls the same changes as one that
// was played without interruption.
func (m *Map) ProgressWorld() {
	r := m.rng.ForRound(m.round)
	m.round++

	for _, loc := range m.locations {
		if !loc.Discovered || loc.Type == nil {
			continue
		}

		var eligible []*catalog.TypeChange
		for i := range loc.Type.CanChangeTo {
			tc := &loc.Type.CanChangeTo[i]
			if loc.HasAdjacentType(tc.DisallowedAdjacent) {
				continue
			}
			if len(tc.RequiredAdjacent) > 0 && !loc.HasAdjacentType(tc.RequiredAdjacent) {
				continue
			}
			eligible = append(eligible, tc)
		}
		if len(eligible) == 0 {
			loc.TypeChangeTimer = 0
			continue
		}
		loc.TypeChangeTimer++

		var ready []*catalog.TypeChange
		var weights []float64
		total := 0.0
		for _, tc := range eligible {
			if loc.TypeChangeTimer >= tc.RequiredDuration {
				ready = append(ready, tc)
				weights = append(weights, tc.Probability)
				total += tc.Probability
			}
		}
		if len(ready) == 0 {
			continue
		}

		if r.Float64() >= total {
			continue
		}
		pick := r.PickWeighted(weights)
		if pick < 0 {
			continue
		}
		m.changeLocationType(loc, ready[pick])
	}
}

func (m *Map) changeLocationType(loc *Location, tc *catalog.TypeChange) {
	next := m.catalog.LocationType(tc.ChangeTo)
	if next == nil {
		slog.Error("type change target missing from catalog", "location", loc.Name, "target", tc.ChangeTo)
		return
	}

	prev := loc.Type
	loc.Type = next
	loc.TypeChangeTimer = 0
	slog.Info("location type changed", "location", loc.Name, "from", prev.Identifier, "to", next.Identifier)

	if m.OnLocationTypeChanged != nil {
		m.OnLocationTypeChanged(loc, prev)
	}
}
