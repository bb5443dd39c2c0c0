package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/talgya/campaign-map/internal/catalog"
	"github.com/talgya/campaign-map/internal/rng"
)

var propertySeeds = []string{"alpha", "bravo", "charlie", "delta", "echo"}

func generate(t *testing.T, seed string, cfg GenConfig) *Map {
	t.Helper()
	m, err := Generate(context.Background(), seed, cfg, catalog.MustDefault(), nil)
	if err != nil {
		t.Fatalf("Generate(%q): %v", seed, err)
	}
	return m
}

// fingerprint renders everything generation decides, so two maps with equal
// fingerprints are the same map.
func fingerprint(m *Map) string {
	var sb strings.Builder
	for _, l := range m.Locations() {
		fmt.Fprintf(&sb, "L %s %v %s %d\n", l.Name, l.Position, l.TypeName(), l.Zone)
	}
	for _, c := range m.Connections() {
		fmt.Fprintf(&sb, "C %d %d %v %s\n",
			m.LocationIndex(c.Locations[0]), m.LocationIndex(c.Locations[1]),
			c.Difficulty, c.BiomeName())
	}
	fmt.Fprintf(&sb, "start %d\n", m.LocationIndex(m.CurrentLocation()))
	return sb.String()
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := SmallTestConfig()
	for _, seed := range propertySeeds {
		a := fingerprint(generate(t, seed, cfg))
		b := fingerprint(generate(t, seed, cfg))
		if a != b {
			t.Errorf("seed %q: two runs differ", seed)
		}
	}

	if fingerprint(generate(t, "alpha", cfg)) == fingerprint(generate(t, "bravo", cfg)) {
		t.Error("different seeds produced identical maps")
	}
}

// tinyConfig is a 4000-unit, three-zone map whose 1200-unit lattice holds
// eight in-disc points. Pulling the edge toward 1 from almost the center
// keeps every lattice cell above 0.5, so all eight sites are accepted and
// the only Voronoi cell inside the habitable disc is the square around
// (2400,2400).
func tinyConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Size = 4000
	cfg.DifficultyZones = 3
	cfg.SiteInterval = 1200
	cfg.SitePlacementMinVal = 0
	cfg.SitePlacementProbability = 2
	cfg.EdgeDarkenRadius = 0.01
	cfg.EdgeDarkenValue = 1
	return cfg
}

func TestTinyMapReproducible(t *testing.T) {
	const seed = "test-seed-1"
	cfg := tinyConfig()

	streams := rng.New(seed)
	noise := GenerateNoise(cfg, int64(rng.HashSeed(seed)), streams.Server)
	if sites := SampleSites(noise, cfg, streams.Server); len(sites) != 8 {
		t.Fatalf("accepted %d sites, want all 8 lattice points", len(sites))
	}

	m, err := Generate(context.Background(), seed, cfg, catalog.MustDefault(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(m.Locations()) != 4 || len(m.Connections()) != 4 {
		t.Fatalf("got %d locations, %d connections; want 4, 4", len(m.Locations()), len(m.Connections()))
	}
	checkGraph(t, m, cfg)

	wantZone := map[Point]int{
		{X: 1800, Y: 1800}: 3,
		{X: 1800, Y: 3000}: 2,
		{X: 3000, Y: 1800}: 2,
		{X: 3000, Y: 3000}: 1,
	}
	at := func(l *Location) Point {
		for p := range wantZone {
			if l.Position.Distance(p) < 1e-6 {
				return p
			}
		}
		t.Fatalf("unexpected location at %v", l.Position)
		return Point{}
	}
	seen := make(map[Point]bool)
	for _, l := range m.Locations() {
		p := at(l)
		if seen[p] {
			t.Errorf("two locations at %v", p)
		}
		seen[p] = true
		if l.Zone != wantZone[p] {
			t.Errorf("location at %v in zone %d, want %d", p, l.Zone, wantZone[p])
		}
		if len(l.Connections) != 2 {
			t.Errorf("location at %v has %d connections, want 2", p, len(l.Connections))
		}
	}

	// The two sides touching the inner corner take zone 3 biomes; the outer
	// two are first reached by the zone 2 ring.
	inner := Point{X: 1800, Y: 1800}
	for i, c := range m.Connections() {
		if math.Abs(c.Length()-1200) > 1e-6 {
			t.Errorf("connection %d length %v, want 1200", i, c.Length())
		}
		zone, lo, hi := 2, 36.14, 56.15
		if at(c.Locations[0]) == inner || at(c.Locations[1]) == inner {
			zone, lo, hi = 3, 67.63, 87.65
		}
		if !c.Biome.AllowedIn(zone) {
			t.Errorf("connection %d biome %s not allowed in zone %d", i, c.BiomeName(), zone)
		}
		if c.Difficulty < lo || c.Difficulty > hi {
			t.Errorf("connection %d difficulty %v outside [%v,%v]", i, c.Difficulty, lo, hi)
		}
	}

	first := fingerprint(m)
	for i := 0; i < 3; i++ {
		again, err := Generate(context.Background(), seed, cfg, catalog.MustDefault(), nil)
		if err != nil {
			t.Fatalf("run %d: %v", i+2, err)
		}
		if got := fingerprint(again); got != first {
			t.Fatalf("run %d differs:\n%s\nvs\n%s", i+2, got, first)
		}
	}
}

func TestGeneratedGraphProperties(t *testing.T) {
	tests := []struct {
		name  string
		cfg   GenConfig
		seeds int
		long  bool
	}{
		{"small", SmallTestConfig(), 50, false},
		{"default", DefaultGenConfig(), 50, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.long && testing.Short() {
				t.Skip("full-size maps skipped in short mode")
			}
			var locations, dropped, lossy int
			for i := 0; i < tt.seeds; i++ {
				seed := fmt.Sprintf("seed-%d", i)
				m := generate(t, seed, tt.cfg)
				checkGraph(t, m, tt.cfg)

				locations += len(m.Locations())
				dropped += m.DroppedLocations
				if m.DroppedLocations > 0 {
					lossy++
				}
				if m.DroppedLocations >= len(m.Locations()) {
					t.Errorf("%s: dropped %d locations but kept only %d", seed, m.DroppedLocations, len(m.Locations()))
				}
			}
			t.Logf("%d seeds: %d locations kept, %d dropped across %d maps", tt.seeds, locations, dropped, lossy)
		})
	}
}

func checkGraph(t *testing.T, m *Map, cfg GenConfig) {
	t.Helper()

	if len(m.Locations()) == 0 || len(m.Connections()) == 0 {
		t.Fatal("empty graph")
	}

	reached := map[*Location]bool{m.CurrentLocation(): true}
	queue := []*Location{m.CurrentLocation()}
	for len(queue) > 0 {
		l := queue[0]
		queue = queue[1:]
		for _, c := range l.Connections {
			if next := c.OtherLocation(l); !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}
	if len(reached) != len(m.Locations()) {
		t.Errorf("reached %d of %d locations from start", len(reached), len(m.Locations()))
	}

	type pair struct{ a, b *Location }
	seen := make(map[pair]bool)
	for i, c := range m.Connections() {
		a, b := c.Locations[0], c.Locations[1]
		if a == b {
			t.Errorf("connection %d is a self loop", i)
		}
		if c.Length() <= cfg.MinConnectionDistance-1e-9 {
			t.Errorf("connection %d length %v <= %v", i, c.Length(), cfg.MinConnectionDistance)
		}
		if m.LocationIndex(a) > m.LocationIndex(b) {
			a, b = b, a
		}
		if seen[pair{a, b}] {
			t.Errorf("connection %d duplicates an earlier pair", i)
		}
		seen[pair{a, b}] = true

		if c.Biome == nil {
			t.Errorf("connection %d has no biome", i)
		}
		if c.Difficulty < 0 || c.Difficulty > 100 {
			t.Errorf("connection %d difficulty %v out of [0,100]", i, c.Difficulty)
		}
		if a.ConnectionTo(b) != c {
			t.Errorf("connection %d missing from endpoint membership", i)
		}
	}

	for _, l := range m.Locations() {
		if len(l.Connections) == 0 {
			t.Errorf("orphan location %s", l.Name)
		}
	}
}

func TestStartLocation(t *testing.T) {
	cfg := SmallTestConfig()
	cat := catalog.MustDefault()
	for _, seed := range propertySeeds {
		m := generate(t, seed, cfg)
		start := m.CurrentLocation()
		if !start.Discovered {
			t.Errorf("seed %q: start not discovered", seed)
		}
		if !strings.EqualFold(start.TypeName(), cat.StartType) {
			t.Errorf("seed %q: start type %q", seed, start.TypeName())
		}
		d := start.Position.DistanceSquared(cfg.Center())
		for _, l := range m.Locations() {
			if l.Type == start.Type && l.Position.DistanceSquared(cfg.Center()) > d {
				t.Errorf("seed %q: %s is farther than start %s", seed, l.Name, start.Name)
			}
			if l != start && l.Discovered {
				t.Errorf("seed %q: %s discovered before play", seed, l.Name)
			}
		}
	}
}

type countingFactory struct {
	calls []*Connection
}

type stubLevel string

func (s stubLevel) Seed() string { return string(s) }

func (f *countingFactory) CreateRandom(c *Connection) Level {
	f.calls = append(f.calls, c)
	return stubLevel(fmt.Sprint(len(f.calls)))
}

func TestGenerateCreatesOneLevelPerConnection(t *testing.T) {
	f := &countingFactory{}
	m, err := Generate(context.Background(), "alpha", SmallTestConfig(), catalog.MustDefault(), f)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.calls) != len(m.Connections()) {
		t.Fatalf("factory called %d times for %d connections", len(f.calls), len(m.Connections()))
	}
	for i, c := range m.Connections() {
		if f.calls[i] != c {
			t.Errorf("call %d out of connection order", i)
		}
		if c.Level == nil {
			t.Errorf("connection %d has no level", i)
		}
	}
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	cat := catalog.MustDefault()

	cfg := SmallTestConfig()
	cfg.Size = 0
	if _, err := Generate(ctx, "x", cfg, cat, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero size: got %v", err)
	}

	cfg = SmallTestConfig()
	cfg.DifficultyZones = 0
	if _, err := Generate(ctx, "x", cfg, cat, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero zones: got %v", err)
	}

	if _, err := Generate(ctx, "x", SmallTestConfig(), nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil catalog: got %v", err)
	}

	// The default catalog has no biome for zone 7.
	cfg = SmallTestConfig()
	cfg.DifficultyZones = 7
	_, err := Generate(ctx, "x", cfg, cat, nil)
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, catalog.ErrInvalidCatalog) {
		t.Errorf("uncovered zone: got %v", err)
	}
}

func TestZoneOf(t *testing.T) {
	cfg := SmallTestConfig()
	if z := cfg.ZoneOf(cfg.Center()); z != cfg.DifficultyZones {
		t.Errorf("center zone = %d, want %d", z, cfg.DifficultyZones)
	}
	rim := Point{X: cfg.Center().X + cfg.HabitableRadius() - 1, Y: cfg.Center().Y}
	if z := cfg.ZoneOf(rim); z != 1 {
		t.Errorf("rim zone = %d, want 1", z)
	}
	if z := cfg.ZoneOf(Point{}); z != 1 {
		t.Errorf("corner zone = %d, want 1", z)
	}
}
