package world

import (
	"fmt"
	"strings"

	"github.com/talgya/campaign-map/internal/catalog"
)

// Location is a node of the campaign graph.
type Location struct {
	Name            string
	Position        Point
	Zone            int // 1 = outer ring, DifficultyZones = center
	Type            *catalog.LocationType
	Discovered      bool
	TypeChangeTimer int // Consecutive rounds with an eligible type change

	Connections []*Connection
}

// ConnectionTo returns the connection between l and other, or nil.
func (l *Location) ConnectionTo(other *Location) *Connection {
	for _, c := range l.Connections {
		if c.OtherLocation(l) == other {
			return c
		}
	}
	return nil
}

// HasAdjacentType reports whether any neighbor is one of the given types.
func (l *Location) HasAdjacentType(identifiers []string) bool {
	for _, c := range l.Connections {
		other := c.OtherLocation(l)
		if other == nil || other.Type == nil {
			continue
		}
		for _, id := range identifiers {
			if strings.EqualFold(other.Type.Identifier, id) {
				return true
			}
		}
	}
	return false
}

// TypeName returns the identifier of the location's type, or "".
func (l *Location) TypeName() string {
	if l.Type == nil {
		return ""
	}
	return l.Type.Identifier
}

func (l *Location) String() string {
	return fmt.Sprintf("%s (%s, zone %d)", l.Name, l.TypeName(), l.Zone)
}

// Connection is an undirected edge between two distinct locations.
type Connection struct {
	Locations         [2]*Location
	Difficulty        float64 // 0..100
	Biome             *catalog.Biome
	Passed            bool
	MissionsCompleted int
	Level             Level
}

// OtherLocation returns the endpoint that is not l, or nil if l is not an endpoint.
func (c *Connection) OtherLocation(l *Location) *Location {
	switch l {
	case c.Locations[0]:
		return c.Locations[1]
	case c.Locations[1]:
		return c.Locations[0]
	}
	return nil
}

// Connects reports whether c joins a and b in either direction.
func (c *Connection) Connects(a, b *Location) bool {
	return (c.Locations[0] == a && c.Locations[1] == b) ||
		(c.Locations[0] == b && c.Locations[1] == a)
}

// CenterPosition is the midpoint of the two endpoints.
func (c *Connection) CenterPosition() Point {
	return Midpoint(c.Locations[0].Position, c.Locations[1].Position)
}

// Length is the distance between the endpoints.
func (c *Connection) Length() float64 {
	return c.Locations[0].Position.Distance(c.Locations[1].Position)
}

// BiomeName returns the biome identifier, or "".
func (c *Connection) BiomeName() string {
	if c.Biome == nil {
		return ""
	}
	return c.Biome.Identifier
}

// Level is the terrain generated for a connection. Its contents are owned by
// the level generator; the map only needs a stable seed for it.
type Level interface {
	Seed() string
}

// LevelFactory builds the Level for a finalized connection. Generate calls it
// exactly once per connection, in connection order, after classification.
type LevelFactory interface {
	CreateRandom(c *Connection) Level
}
