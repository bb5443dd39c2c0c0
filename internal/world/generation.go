// Campaign map generation: noise field, Voronoi sites, graph construction,
// pruning and zone classification, run in a fixed order against one synced
// random stream so every peer holding the seed builds the same graph.
package world

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/talgya/campaign-map/internal/catalog"
	"github.com/talgya/campaign-map/internal/rng"
	"github.com/talgya/campaign-map/internal/telemetry"
)

// Generation errors.
var (
	ErrInvalidConfig          = errors.New("invalid generation config")
	ErrEmptyGraph             = errors.New("generation produced no locations")
	ErrUnclassifiedConnection = errors.New("connection left without a biome")
	ErrDisconnectedGraph      = errors.New("location graph is disconnected")
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Size float64 `yaml:"size" json:"size"` // World units per side

	NoiseResolution  int     `yaml:"noise_resolution" json:"noise_resolution"`
	NoiseOctaves     int     `yaml:"noise_octaves" json:"noise_octaves"`
	NoisePersistence float64 `yaml:"noise_persistence" json:"noise_persistence"`
	NoiseFrequency   float64 `yaml:"noise_frequency" json:"noise_frequency"`

	// Radial shaping of the noise field. Radii are fractions of the field radius.
	CenterDarkenRadius         float64 `yaml:"center_darken_radius" json:"center_darken_radius"`
	CenterDarkenStrength       float64 `yaml:"center_darken_strength" json:"center_darken_strength"`
	CenterDarkenWaveFrequency  float64 `yaml:"center_darken_wave_frequency" json:"center_darken_wave_frequency"`
	CenterDarkenWavePhaseNoise float64 `yaml:"center_darken_wave_phase_noise" json:"center_darken_wave_phase_noise"`
	EdgeDarkenRadius           float64 `yaml:"edge_darken_radius" json:"edge_darken_radius"`
	EdgeDarkenValue            float64 `yaml:"edge_darken_value" json:"edge_darken_value"`

	SiteInterval             float64 `yaml:"site_interval" json:"site_interval"`     // Lattice step in world units
	LocationRadius           float64 `yaml:"location_radius" json:"location_radius"` // Habitable disc as a fraction of Size/2
	SitePlacementMinVal      float64 `yaml:"site_placement_min_val" json:"site_placement_min_val"`
	SitePlacementProbability float64 `yaml:"site_placement_probability" json:"site_placement_probability"`

	MinConnectionDistance float64 `yaml:"min_connection_distance" json:"min_connection_distance"`
	DifficultyZones       int     `yaml:"difficulty_zones" json:"difficulty_zones"`
}

// DefaultGenConfig returns the parameters used for regular campaigns.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Size:                       6000,
		NoiseResolution:            64,
		NoiseOctaves:               4,
		NoisePersistence:           0.5,
		NoiseFrequency:             4,
		CenterDarkenRadius:         0.35,
		CenterDarkenStrength:       0.9,
		CenterDarkenWaveFrequency:  5,
		CenterDarkenWavePhaseNoise: 3,
		EdgeDarkenRadius:           0.8,
		EdgeDarkenValue:            0,
		SiteInterval:               200,
		LocationRadius:             0.9,
		SitePlacementMinVal:        0.1,
		SitePlacementProbability:   1.0,
		MinConnectionDistance:      120,
		DifficultyZones:            4,
	}
}

// SmallTestConfig returns a small map for rapid iteration and tests.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Size = 2000
	cfg.NoiseResolution = 32
	cfg.SiteInterval = 100
	cfg.MinConnectionDistance = 40
	cfg.DifficultyZones = 3
	return cfg
}

// Validate rejects parameters that would divide by zero or loop forever.
func (c GenConfig) Validate() error {
	switch {
	case c.Size <= 0:
		return fmt.Errorf("%w: size must be positive, got %v", ErrInvalidConfig, c.Size)
	case c.NoiseResolution <= 0:
		return fmt.Errorf("%w: noise_resolution must be positive, got %d", ErrInvalidConfig, c.NoiseResolution)
	case c.NoiseOctaves <= 0:
		return fmt.Errorf("%w: noise_octaves must be positive, got %d", ErrInvalidConfig, c.NoiseOctaves)
	case c.NoisePersistence <= 0 || c.NoisePersistence > 1:
		return fmt.Errorf("%w: noise_persistence must be in (0,1], got %v", ErrInvalidConfig, c.NoisePersistence)
	case c.NoiseFrequency <= 0:
		return fmt.Errorf("%w: noise_frequency must be positive, got %v", ErrInvalidConfig, c.NoiseFrequency)
	case c.SiteInterval <= 0:
		return fmt.Errorf("%w: site_interval must be positive, got %v", ErrInvalidConfig, c.SiteInterval)
	case c.LocationRadius <= 0 || c.LocationRadius > 1:
		return fmt.Errorf("%w: location_radius must be in (0,1], got %v", ErrInvalidConfig, c.LocationRadius)
	case c.SitePlacementMinVal < 0 || c.SitePlacementMinVal >= 1:
		return fmt.Errorf("%w: site_placement_min_val must be in [0,1), got %v", ErrInvalidConfig, c.SitePlacementMinVal)
	case c.SitePlacementProbability <= 0:
		return fmt.Errorf("%w: site_placement_probability must be positive, got %v", ErrInvalidConfig, c.SitePlacementProbability)
	case c.MinConnectionDistance < 0:
		return fmt.Errorf("%w: min_connection_distance must not be negative, got %v", ErrInvalidConfig, c.MinConnectionDistance)
	case c.DifficultyZones < 1:
		return fmt.Errorf("%w: difficulty_zones must be at least 1, got %d", ErrInvalidConfig, c.DifficultyZones)
	case c.CenterDarkenRadius < 0 || c.CenterDarkenStrength < 0 || c.CenterDarkenStrength > 1:
		return fmt.Errorf("%w: center darkening radius/strength out of range", ErrInvalidConfig)
	case c.EdgeDarkenRadius <= 0 || c.EdgeDarkenRadius > 1:
		return fmt.Errorf("%w: edge_darken_radius must be in (0,1], got %v", ErrInvalidConfig, c.EdgeDarkenRadius)
	}
	return nil
}

// Center returns the map center in world units.
func (c GenConfig) Center() Point {
	return Point{X: c.Size / 2, Y: c.Size / 2}
}

// MapRadius is half the map size.
func (c GenConfig) MapRadius() float64 {
	return c.Size / 2
}

// HabitableRadius is the radius of the disc locations may occupy.
func (c GenConfig) HabitableRadius() float64 {
	return c.Size / 2 * c.LocationRadius
}

// ZoneOf returns the difficulty zone for a position: the highest zone at the
// center, zone 1 at the rim of the habitable disc.
func (c GenConfig) ZoneOf(p Point) int {
	zoneRadius := c.HabitableRadius() / float64(c.DifficultyZones)
	dist := p.Distance(c.Center())
	return clampInt(c.DifficultyZones-int(dist/zoneRadius), 1, c.DifficultyZones)
}

// Generate builds a complete campaign map from seed.
// levels may be nil, in which case connections are left without a Level.
func Generate(ctx context.Context, seed string, cfg GenConfig, cat *catalog.Catalog, levels LevelFactory) (*Map, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("%w: no catalog", ErrInvalidConfig)
	}
	if err := cat.Validate(cfg.DifficultyZones); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	tracer := telemetry.Tracer("world")
	ctx, span := tracer.Start(ctx, "map.generate")
	defer span.End()

	streams := rng.New(seed)
	r := streams.Server

	_, noiseSpan := tracer.Start(ctx, "map.generate.noise")
	noise := GenerateNoise(cfg, int64(rng.HashSeed(seed)), r)
	noiseSpan.End()

	_, graphSpan := tracer.Start(ctx, "map.generate.graph")
	sites := SampleSites(noise, cfg, r)
	edges := BuildEdges(sites, cfg.Size, cfg.Size)
	locations, connections := buildGraph(edges, cfg, cat, r)
	built := len(connections)

	locations, connections = pruneGraph(locations, connections, cfg.MinConnectionDistance)
	locations, connections, dropped := keepLargestComponent(locations, connections)
	if dropped > 0 {
		slog.Warn("dropped disconnected locations", "seed", seed, "dropped", dropped, "kept", len(locations))
	}
	graphSpan.SetAttributes(
		attribute.Int("map.sites", len(sites)),
		attribute.Int("map.edges", len(edges)),
		attribute.Int("map.connections_built", built),
		attribute.Int("map.locations_dropped", dropped),
	)
	graphSpan.End()

	if len(locations) == 0 || len(connections) == 0 {
		return nil, fmt.Errorf("%w (seed %q, %d sites)", ErrEmptyGraph, seed, len(sites))
	}

	_, classifySpan := tracer.Start(ctx, "map.generate.classify")
	// Pruning moved endpoints, so midpoints and difficulties must be redone.
	assignDifficulties(connections, cfg, r)
	err := assignBiomes(connections, cfg, cat, r)
	classifySpan.End()
	if err != nil {
		return nil, err
	}

	m := &Map{
		Seed:             seed,
		Config:           cfg,
		DroppedLocations: dropped,
		locations:        locations,
		connections:      connections,
		rng:              streams,
		catalog:          cat,
	}
	m.current = chooseStartLocation(locations, cfg, cat)
	m.current.Discovered = true

	if levels != nil {
		for _, c := range connections {
			c.Level = levels.CreateRandom(c)
		}
	}

	span.SetAttributes(
		attribute.String("map.seed", seed),
		attribute.Int("map.locations", len(locations)),
		attribute.Int("map.connections", len(connections)),
	)
	slog.Debug("map generated",
		"seed", seed,
		"sites", len(sites),
		"edges", len(edges),
		"locations", len(locations),
		"connections", len(connections),
		"start", m.current.Name,
	)
	return m, nil
}
