// Package level builds the per-connection level descriptors the campaign map
// hands to the terrain generator.
package level

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/talgya/campaign-map/internal/world"
)

// Level sizes in world units, scaled by difficulty.
const (
	MinWidth  = 80000
	MaxWidth  = 200000
	MinHeight = 40000
	MaxHeight = 60000
)

// Level describes the terrain for one connection. The seed is derived from
// the endpoint positions alone, so it needs no random draws and is identical
// on every peer.
type Level struct {
	seed       string
	Difficulty float64
	Biome      string
	Width      float64
	Height     float64
}

// Seed returns the terrain seed.
func (l *Level) Seed() string {
	return l.seed
}

func (l *Level) String() string {
	return fmt.Sprintf("Level(%s, %s, difficulty %.1f)", l.seed, l.Biome, l.Difficulty)
}

// Factory creates levels for a map generated from MapSeed.
type Factory struct {
	MapSeed string
}

// NewFactory returns a factory salting level seeds with the map seed.
func NewFactory(mapSeed string) *Factory {
	return &Factory{MapSeed: mapSeed}
}

// CreateRandom implements world.LevelFactory.
func (f *Factory) CreateRandom(c *world.Connection) world.Level {
	a, b := c.Locations[0].Position, c.Locations[1].Position
	key := f.MapSeed + "|" + formatPoint(a) + "|" + formatPoint(b)
	t := c.Difficulty / 100

	return &Level{
		seed:       strconv.FormatUint(xxhash.Sum64String(key), 16),
		Difficulty: c.Difficulty,
		Biome:      c.BiomeName(),
		Width:      MinWidth + (MaxWidth-MinWidth)*t,
		Height:     MinHeight + (MaxHeight-MinHeight)*t,
	}
}

func formatPoint(p world.Point) string {
	return strconv.FormatFloat(p.X, 'g', -1, 64) + "," + strconv.FormatFloat(p.Y, 'g', -1, 64)
}
