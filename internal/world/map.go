package world

import (
	"errors"
	"fmt"

	"github.com/talgya/campaign-map/internal/catalog"
	"github.com/talgya/campaign-map/internal/rng"
)

// Selection and progression errors.
var (
	ErrLocationNotFound        = errors.New("location not found")
	ErrLocationIndexOutOfRange = errors.New("location index out of bounds")
	ErrNoSelection             = errors.New("no connection selected")
)

// Map is the campaign graph plus the player's position on it.
// It is not safe for concurrent use; callers serialize access.
type Map struct {
	Seed   string
	Config GenConfig

	// DroppedLocations counts locations discarded during generation because
	// they were cut off from the largest component.
	DroppedLocations int

	locations   []*Location
	connections []*Connection

	current            *Location
	selectedLocation   *Location
	selectedConnection *Connection

	// Number of ProgressWorld rounds played, which selects the next round's stream.
	round int

	rng     *rng.Set
	catalog *catalog.Catalog

	// Notification hooks, nil when unused.
	OnLocationSelected    func(loc *Location, conn *Connection)
	OnLocationChanged     func(prev, next *Location)
	OnLocationTypeChanged func(loc *Location, prev *catalog.LocationType)
}

// Round returns how many progression rounds the map has played.
func (m *Map) Round() int {
	return m.round
}

// Locations returns all locations in generation order. Callers must not modify the slice.
func (m *Map) Locations() []*Location {
	return m.locations
}

// Connections returns all connections in generation order. Callers must not modify the slice.
func (m *Map) Connections() []*Connection {
	return m.connections
}

// CurrentLocation is where the player is.
func (m *Map) CurrentLocation() *Location {
	return m.current
}

// SelectedLocation is the player's chosen destination, or nil.
func (m *Map) SelectedLocation() *Location {
	return m.selectedLocation
}

// SelectedConnection joins the current and selected locations, or is nil.
func (m *Map) SelectedConnection() *Connection {
	return m.selectedConnection
}

// Catalog returns the content catalog the map was generated with.
func (m *Map) Catalog() *catalog.Catalog {
	return m.catalog
}

// LocationIndex returns the index of l, or -1.
func (m *Map) LocationIndex(l *Location) int {
	for i, loc := range m.locations {
		if loc == l {
			return i
		}
	}
	return -1
}

// ConnectionIndex returns the index of c, or -1.
func (m *Map) ConnectionIndex(c *Connection) int {
	for i, conn := range m.connections {
		if conn == c {
			return i
		}
	}
	return -1
}

// Location returns the location at index i.
func (m *Map) Location(i int) (*Location, error) {
	if i < 0 || i >= len(m.locations) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrLocationIndexOutOfRange, i, len(m.locations))
	}
	return m.locations[i], nil
}

// SelectLocation makes l the destination. The selected connection is the one
// joining the current location and l, or nil when they are not adjacent.
// Selecting a location that is not on this map changes nothing.
func (m *Map) SelectLocation(l *Location) error {
	if l == nil || m.LocationIndex(l) < 0 {
		return ErrLocationNotFound
	}

	m.selectedLocation = l
	m.selectedConnection = m.current.ConnectionTo(l)

	if m.OnLocationSelected != nil {
		m.OnLocationSelected(m.selectedLocation, m.selectedConnection)
	}
	return nil
}

// SelectLocationIndex selects the location at index i.
func (m *Map) SelectLocationIndex(i int) error {
	l, err := m.Location(i)
	if err != nil {
		return err
	}
	return m.SelectLocation(l)
}

// SelectRandomLocation picks a neighbor of the current location from the
// unsynced stream, favouring undiscovered ones if asked. Meant for local
// automation only; peers must exchange the resulting index.
func (m *Map) SelectRandomLocation(preferUndiscovered bool) (*Location, error) {
	var neighbors, undiscovered []*Location
	for _, c := range m.current.Connections {
		other := c.OtherLocation(m.current)
		neighbors = append(neighbors, other)
		if !other.Discovered {
			undiscovered = append(undiscovered, other)
		}
	}
	if len(neighbors) == 0 {
		return nil, ErrLocationNotFound
	}

	pool := neighbors
	if preferUndiscovered && len(undiscovered) > 0 {
		pool = undiscovered
	}
	l := pool[m.rng.Unsynced.Intn(len(pool))]
	return l, m.SelectLocation(l)
}

// ClearSelection drops the selected location and connection.
func (m *Map) ClearSelection() {
	m.selectedLocation = nil
	m.selectedConnection = nil
}

// MoveToNextLocation travels the selected connection: it is marked passed,
// the selected location becomes current and discovered, and the selection
// is cleared.
func (m *Map) MoveToNextLocation() error {
	if m.selectedConnection == nil {
		return ErrNoSelection
	}

	prev := m.current
	m.selectedConnection.Passed = true
	m.current = m.selectedLocation
	m.current.Discovered = true
	m.ClearSelection()

	if m.OnLocationChanged != nil {
		m.OnLocationChanged(prev, m.current)
	}
	return nil
}

// SetLocation jumps straight to the location at index i, marking it
// discovered. Used when a peer receives the outcome of a move rather than
// replaying it.
func (m *Map) SetLocation(i int) error {
	l, err := m.Location(i)
	if err != nil {
		return err
	}

	prev := m.current
	m.current = l
	m.current.Discovered = true
	m.ClearSelection()

	if prev != l && m.OnLocationChanged != nil {
		m.OnLocationChanged(prev, l)
	}
	return nil
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(seed=%q, locations=%d, connections=%d)", m.Seed, len(m.locations), len(m.connections))
}
