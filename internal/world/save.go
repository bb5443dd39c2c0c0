package world

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/talgya/campaign-map/internal/catalog"
)

// SaveVersion is the current sparse save format, "major.minor". Loads accept
// any minor revision of the same major.
const SaveVersion = "1.1"

const saveMajor = 1

// Save/load errors.
var (
	ErrIncompatibleSave = errors.New("incompatible save")
	ErrCorruptSave      = errors.New("corrupt save")
)

// SaveState is the mutable part of a map. Everything else is regenerated
// from Seed and Size. ConfigHash identifies the generation parameters and
// catalog the graph was built with; saves from before 1.1 leave it empty.
type SaveState struct {
	Version         string            `json:"version"`
	Seed            string            `json:"seed"`
	Size            float64           `json:"size"`
	ConfigHash      string            `json:"config_hash,omitempty"`
	Round           int               `json:"round,omitempty"`
	CurrentLocation int               `json:"current_location"`
	Locations       []LocationState   `json:"locations"`
	Connections     []ConnectionState `json:"connections"`
}

// LocationState is saved for discovered locations only.
type LocationState struct {
	Index           int    `json:"index"`
	Type            string `json:"type"`
	TypeChangeTimer int    `json:"type_change_timer,omitempty"`
}

// ConnectionState is saved for passed connections only.
type ConnectionState struct {
	Index             int `json:"index"`
	MissionsCompleted int `json:"missions_completed"`
}

// ConfigHash fingerprints everything besides the seed that decides the
// generated graph. A save only applies to a map regenerated with the same hash.
func ConfigHash(cfg GenConfig, cat *catalog.Catalog) string {
	h := xxhash.New()
	enc := json.NewEncoder(h)
	// Both values are plain data; encoding cannot fail.
	_ = enc.Encode(cfg)
	_ = enc.Encode(cat)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Save captures the map's mutable state.
func (m *Map) Save() SaveState {
	st := SaveState{
		Version:         SaveVersion,
		Seed:            m.Seed,
		Size:            m.Config.Size,
		ConfigHash:      ConfigHash(m.Config, m.catalog),
		Round:           m.round,
		CurrentLocation: m.LocationIndex(m.current),
	}
	for i, l := range m.locations {
		if !l.Discovered {
			continue
		}
		st.Locations = append(st.Locations, LocationState{
			Index:           i,
			Type:            l.TypeName(),
			TypeChangeTimer: l.TypeChangeTimer,
		})
	}
	for i, c := range m.connections {
		if !c.Passed {
			continue
		}
		st.Connections = append(st.Connections, ConnectionState{
			Index:             i,
			MissionsCompleted: c.MissionsCompleted,
		})
	}
	return st
}

// Load regenerates the map from the saved seed and size (other parameters
// come from cfg) and applies the saved state. A save whose config hash does
// not match cfg and cat is rejected with ErrIncompatibleSave. Nothing is
// returned unless the whole state applies cleanly.
func Load(ctx context.Context, st SaveState, cfg GenConfig, cat *catalog.Catalog, levels LevelFactory) (*Map, error) {
	if err := checkSaveVersion(st.Version); err != nil {
		return nil, err
	}
	if st.Seed == "" {
		return nil, fmt.Errorf("%w: missing seed", ErrCorruptSave)
	}
	if st.Size > 0 {
		cfg.Size = st.Size
	}
	if st.ConfigHash != "" {
		if h := ConfigHash(cfg, cat); h != st.ConfigHash {
			return nil, fmt.Errorf("%w: saved with generation config %s, loading with %s", ErrIncompatibleSave, st.ConfigHash, h)
		}
	}

	m, err := Generate(ctx, st.Seed, cfg, cat, levels)
	if err != nil {
		return nil, fmt.Errorf("regenerate map: %w", err)
	}
	if err := m.applyState(st); err != nil {
		return nil, err
	}
	return m, nil
}

// applyState validates every reference in st before mutating anything.
func (m *Map) applyState(st SaveState) error {
	if st.CurrentLocation < 0 || st.CurrentLocation >= len(m.locations) {
		return fmt.Errorf("%w: current location %d out of range", ErrCorruptSave, st.CurrentLocation)
	}
	if st.Round < 0 {
		return fmt.Errorf("%w: negative round %d", ErrCorruptSave, st.Round)
	}
	types := make([]*catalog.LocationType, len(st.Locations))
	for i, ls := range st.Locations {
		if ls.Index < 0 || ls.Index >= len(m.locations) {
			return fmt.Errorf("%w: location %d out of range", ErrCorruptSave, ls.Index)
		}
		types[i] = m.catalog.LocationType(ls.Type)
		if types[i] == nil {
			return fmt.Errorf("%w: unknown location type %q", ErrCorruptSave, ls.Type)
		}
	}
	for _, cs := range st.Connections {
		if cs.Index < 0 || cs.Index >= len(m.connections) {
			return fmt.Errorf("%w: connection %d out of range", ErrCorruptSave, cs.Index)
		}
	}

	for _, l := range m.locations {
		l.Discovered = false
	}
	for i, ls := range st.Locations {
		l := m.locations[ls.Index]
		l.Discovered = true
		l.Type = types[i]
		l.TypeChangeTimer = ls.TypeChangeTimer
	}
	for _, cs := range st.Connections {
		c := m.connections[cs.Index]
		c.Passed = true
		c.MissionsCompleted = cs.MissionsCompleted
	}

	m.round = st.Round
	m.current = m.locations[st.CurrentLocation]
	m.current.Discovered = true
	m.ClearSelection()
	return nil
}

func checkSaveVersion(v string) error {
	var major, minor int
	if _, err := fmt.Sscanf(v, "%d.%d", &major, &minor); err != nil {
		return fmt.Errorf("%w: unreadable version %q", ErrIncompatibleSave, v)
	}
	if major != saveMajor {
		return fmt.Errorf("%w: version %s, this build reads %d.x", ErrIncompatibleSave, v, saveMajor)
	}
	return nil
}
