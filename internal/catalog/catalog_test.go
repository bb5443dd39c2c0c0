package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/talgya/campaign-map/internal/rng"
)

func TestDefaultCatalogValid(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	for zones := 1; zones <= 5; zones++ {
		if err := c.Validate(zones); err != nil {
			t.Errorf("Validate(%d): %v", zones, err)
		}
	}
	if c.LocationType("CITY") == nil {
		t.Error("lookup should be case-insensitive")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no start type", `
location_types: [{identifier: a, default_commonness: 1}]
biomes: [{identifier: b, allowed_zones: [1]}]`},
		{"unknown start type", `
start_type: nope
location_types: [{identifier: a, default_commonness: 1}]
biomes: [{identifier: b, allowed_zones: [1]}]`},
		{"zone without biome", `
start_type: a
location_types: [{identifier: a, default_commonness: 1}]
biomes: [{identifier: b, allowed_zones: [2]}]`},
		{"unknown change target", `
start_type: a
location_types:
  - identifier: a
    default_commonness: 1
    can_change_to: [{change_to: ghost, probability: 1}]
biomes: [{identifier: b, allowed_zones: [1]}]`},
		{"duplicate type", `
start_type: a
location_types: [{identifier: a, default_commonness: 1}, {identifier: A}]
biomes: [{identifier: b, allowed_zones: [1]}]`},
		{"nothing placeable", `
start_type: a
location_types: [{identifier: a, default_commonness: 0}]
biomes: [{identifier: b, allowed_zones: [1]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if err := c.Validate(1); !errors.Is(err, ErrInvalidCatalog) {
				t.Fatalf("Validate() = %v, want ErrInvalidCatalog", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.yaml")
	data := []byte(`
start_type: town
location_types:
  - identifier: town
    default_commonness: 1
    commonness: {3: 0}
biomes:
  - identifier: reef
    allowed_zones: [1, 2]
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	town := c.LocationType("town")
	if town.CommonnessIn(1) != 1 || town.CommonnessIn(3) != 0 {
		t.Errorf("commonness override not applied: zone1=%v zone3=%v", town.CommonnessIn(1), town.CommonnessIn(3))
	}
	if err := c.Validate(3); err == nil {
		t.Error("zone 3 has neither biome nor placeable type, expected error")
	}
}

func TestPickBiomeRespectsZones(t *testing.T) {
	c := MustDefault()
	r := rng.New("biomes").Server
	for zone := 1; zone <= 5; zone++ {
		for i := 0; i < 50; i++ {
			b := c.PickBiome(r, zone)
			if b == nil {
				t.Fatalf("zone %d: no biome picked", zone)
			}
			if !b.AllowedIn(zone) {
				t.Fatalf("zone %d: picked %s which is not allowed there", zone, b.Identifier)
			}
		}
	}
	if b := c.PickBiome(r, 99); b != nil {
		t.Errorf("zone 99 should have no biome, got %s", b.Identifier)
	}
}

func TestPickLocationTypeSkipsZeroCommonness(t *testing.T) {
	c := MustDefault()
	r := rng.New("types").Server
	for i := 0; i < 500; i++ {
		lt := c.PickLocationType(r, 1)
		if lt.Identifier == "mine" || lt.Identifier == "research" {
			t.Fatalf("picked %s in zone 1 where its commonness is zero", lt.Identifier)
		}
	}
}

func TestGenerateNameDeterministic(t *testing.T) {
	c := MustDefault()
	a := rng.New("names").Server
	b := rng.New("names").Server
	outpost := c.LocationType("outpost")
	for i := 0; i < 20; i++ {
		na, nb := c.GenerateName(a, outpost), c.GenerateName(b, outpost)
		if na != nb || na == "" {
			t.Fatalf("names diverged or empty: %q vs %q", na, nb)
		}
	}
	city := c.LocationType("city")
	name := c.GenerateName(a, city)
	found := false
	for _, n := range city.Names {
		if n == name {
			found = true
		}
	}
	if !found {
		t.Errorf("city name %q not from its pool", name)
	}
}
