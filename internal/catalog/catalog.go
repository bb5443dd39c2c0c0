// Package catalog holds the content registries map generation reads from:
// biomes (which difficulty zones they may appear in) and location types
// (how common they are per zone and which types they may turn into).
// Catalogs are plain values built once at startup and passed by reference.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/campaign-map/internal/rng"
)

//go:embed default.yaml
var defaultFS embed.FS

// ErrInvalidCatalog is returned when a catalog cannot support generation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Biome tags a connection with the terrain content its level may use.
type Biome struct {
	Identifier   string  `yaml:"identifier"`
	Name         string  `yaml:"name"`
	AllowedZones []int   `yaml:"allowed_zones"`
	Commonness   float64 `yaml:"commonness"` // 0 means 1
}

// AllowedIn reports whether the biome may appear in the given zone.
func (b *Biome) AllowedIn(zone int) bool {
	for _, z := range b.AllowedZones {
		if z == zone {
			return true
		}
	}
	return false
}

func (b *Biome) weight() float64 {
	if b.Commonness <= 0 {
		return 1
	}
	return b.Commonness
}

// TypeChange is a rule letting a location turn into another type once it has
// been eligible for RequiredDuration consecutive rounds.
type TypeChange struct {
	ChangeTo           string   `yaml:"change_to"`
	Probability        float64  `yaml:"probability"`
	RequiredDuration   int      `yaml:"required_duration"`
	RequiredAdjacent   []string `yaml:"required_adjacent"`
	DisallowedAdjacent []string `yaml:"disallowed_adjacent"`
}

// LocationType describes one kind of location.
type LocationType struct {
	Identifier        string          `yaml:"identifier"`
	Names             []string        `yaml:"names"`
	DefaultCommonness float64         `yaml:"default_commonness"`
	Commonness        map[int]float64 `yaml:"commonness"` // zone -> weight, overrides default
	CanChangeTo       []TypeChange    `yaml:"can_change_to"`
}

// CommonnessIn returns the placement weight of the type in a zone.
func (t *LocationType) CommonnessIn(zone int) float64 {
	if w, ok := t.Commonness[zone]; ok {
		return w
	}
	return t.DefaultCommonness
}

// Catalog is the complete content registry.
type Catalog struct {
	StartType     string         `yaml:"start_type"`
	Biomes        []Biome        `yaml:"biomes"`
	LocationTypes []LocationType `yaml:"location_types"`
	NamePrefixes  []string       `yaml:"name_prefixes"`
	NameSuffixes  []string       `yaml:"name_suffixes"`
}

// Parse decodes a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &c, nil
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	data, err := defaultFS.ReadFile("default.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}
	return Parse(data)
}

// MustDefault returns the embedded catalog, panicking if it is malformed.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks the catalog can classify a map with the given zone count.
func (c *Catalog) Validate(zones int) error {
	if c.StartType == "" {
		return fmt.Errorf("%w: start_type is empty", ErrInvalidCatalog)
	}
	if c.LocationType(c.StartType) == nil {
		return fmt.Errorf("%w: start type %q is not defined", ErrInvalidCatalog, c.StartType)
	}

	seen := make(map[string]bool, len(c.LocationTypes))
	for _, lt := range c.LocationTypes {
		key := strings.ToLower(lt.Identifier)
		if key == "" {
			return fmt.Errorf("%w: location type without identifier", ErrInvalidCatalog)
		}
		if seen[key] {
			return fmt.Errorf("%w: duplicate location type %q", ErrInvalidCatalog, lt.Identifier)
		}
		seen[key] = true
		for _, tc := range lt.CanChangeTo {
			if c.LocationType(tc.ChangeTo) == nil {
				return fmt.Errorf("%w: %s changes to unknown type %q", ErrInvalidCatalog, lt.Identifier, tc.ChangeTo)
			}
			if tc.Probability < 0 || tc.RequiredDuration < 0 {
				return fmt.Errorf("%w: %s -> %s has negative probability or duration", ErrInvalidCatalog, lt.Identifier, tc.ChangeTo)
			}
		}
	}

	for zone := 1; zone <= zones; zone++ {
		if len(c.BiomesForZone(zone)) == 0 {
			return fmt.Errorf("%w: no biome allowed in zone %d", ErrInvalidCatalog, zone)
		}
		placeable := false
		for i := range c.LocationTypes {
			if c.LocationTypes[i].CommonnessIn(zone) > 0 {
				placeable = true
				break
			}
		}
		if !placeable {
			return fmt.Errorf("%w: no location type placeable in zone %d", ErrInvalidCatalog, zone)
		}
	}
	return nil
}

// LocationType returns the type with the given identifier (case-insensitive), or nil.
func (c *Catalog) LocationType(identifier string) *LocationType {
	for i := range c.LocationTypes {
		if strings.EqualFold(c.LocationTypes[i].Identifier, identifier) {
			return &c.LocationTypes[i]
		}
	}
	return nil
}

// Biome returns the biome with the given identifier, or nil.
func (c *Catalog) Biome(identifier string) *Biome {
	for i := range c.Biomes {
		if strings.EqualFold(c.Biomes[i].Identifier, identifier) {
			return &c.Biomes[i]
		}
	}
	return nil
}

// BiomesForZone returns the biomes allowed in a zone, in catalog order.
func (c *Catalog) BiomesForZone(zone int) []*Biome {
	var out []*Biome
	for i := range c.Biomes {
		if c.Biomes[i].AllowedIn(zone) {
			out = append(out, &c.Biomes[i])
		}
	}
	return out
}

// PickBiome draws one biome allowed in zone, weighted by commonness.
// Returns nil without drawing if no biome is allowed.
func (c *Catalog) PickBiome(r *rng.Server, zone int) *Biome {
	allowed := c.BiomesForZone(zone)
	if len(allowed) == 0 {
		return nil
	}
	weights := make([]float64, len(allowed))
	for i, b := range allowed {
		weights[i] = b.weight()
	}
	return allowed[r.PickWeighted(weights)]
}

// PickLocationType draws a type for a new location in zone, weighted by
// per-zone commonness. Returns nil without drawing if nothing is placeable.
func (c *Catalog) PickLocationType(r *rng.Server, zone int) *LocationType {
	weights := make([]float64, len(c.LocationTypes))
	placeable := false
	for i := range c.LocationTypes {
		weights[i] = c.LocationTypes[i].CommonnessIn(zone)
		if weights[i] > 0 {
			placeable = true
		}
	}
	if !placeable {
		return nil
	}
	return &c.LocationTypes[r.PickWeighted(weights)]
}

// fallback syllables when a catalog provides neither type names nor its own syllables.
var (
	defaultPrefixes = []string{
		"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
		"Silver", "Red", "White", "Dark", "Bright", "High", "Low",
		"Old", "New", "Far", "Deep", "Long", "Broad", "Gold", "Frost",
	}
	defaultSuffixes = []string{
		"haven", "ford", "hollow", "wick", "bridge", "gate", "keep",
		"stead", "dale", "crest", "vale", "port", "reach", "helm",
	}
)

// GenerateName picks a name for a location of type t. Draws once from the
// type's name pool, or twice (prefix, suffix) when the pool is empty.
func (c *Catalog) GenerateName(r *rng.Server, t *LocationType) string {
	if t != nil && len(t.Names) > 0 {
		return t.Names[r.Intn(len(t.Names))]
	}
	prefixes, suffixes := c.NamePrefixes, c.NameSuffixes
	if len(prefixes) == 0 {
		prefixes = defaultPrefixes
	}
	if len(suffixes) == 0 {
		suffixes = defaultSuffixes
	}
	prefix := prefixes[r.Intn(len(prefixes))]
	return prefix + suffixes[r.Intn(len(suffixes))]
}
