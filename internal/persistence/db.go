// Package persistence provides SQLite-based campaign save storage.
// Only the sparse mutable state of a map is stored; the graph itself is
// regenerated from the saved seed.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/campaign-map/internal/world"
)

// ErrNotFound is returned when a campaign id has no saved state.
var ErrNotFound = errors.New("campaign not found")

// LastCampaignKey is the world_meta key holding the most recently saved
// campaign id.
const LastCampaignKey = "last_campaign"

// DB wraps a SQLite connection for campaign persistence.
type DB struct {
	conn *sqlx.DB
}

// CampaignSummary is one row of the campaign listing.
type CampaignSummary struct {
	ID              string  `db:"id" json:"id"`
	Seed            string  `db:"seed" json:"seed"`
	Size            float64 `db:"size" json:"size"`
	Version         string  `db:"version" json:"version"`
	ConfigHash      string  `db:"config_hash" json:"config_hash"`
	Round           int     `db:"round" json:"round"`
	CurrentLocation int     `db:"current_location" json:"current_location"`
	SavedUnix       int64   `db:"saved_at" json:"saved_at"`
}

// locationRow and connectionRow are the scan targets for the child tables.
type locationRow struct {
	Index           int    `db:"idx"`
	Type            string `db:"type"`
	TypeChangeTimer int    `db:"type_change_timer"`
}

type connectionRow struct {
	Index             int `db:"idx"`
	MissionsCompleted int `db:"missions_completed"`
}

const summaryColumns = "id, seed, size, version, config_hash, round, current_location, saved_at"

// SavedAt returns the save time.
func (c CampaignSummary) SavedAt() time.Time {
	return time.Unix(c.SavedUnix, 0)
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS campaigns (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		size REAL NOT NULL,
		version TEXT NOT NULL,
		config_hash TEXT NOT NULL DEFAULT '',
		round INTEGER NOT NULL DEFAULT 0,
		current_location INTEGER NOT NULL,
		saved_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS campaign_locations (
		campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		type TEXT NOT NULL,
		type_change_timer INTEGER NOT NULL,
		PRIMARY KEY (campaign_id, idx)
	);

	CREATE TABLE IF NOT EXISTS campaign_connections (
		campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		missions_completed INTEGER NOT NULL,
		PRIMARY KEY (campaign_id, idx)
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_campaigns_saved_at ON campaigns(saved_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return err
	}
	return db.addMissingColumns("campaigns", map[string]string{
		"config_hash": "TEXT NOT NULL DEFAULT ''",
		"round":       "INTEGER NOT NULL DEFAULT 0",
	})
}

// addMissingColumns upgrades tables created before a column existed.
func (db *DB) addMissingColumns(table string, columns map[string]string) error {
	var have []string
	if err := db.conn.Select(&have, "SELECT name FROM pragma_table_info(?)", table); err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	present := make(map[string]bool, len(have))
	for _, name := range have {
		present[name] = true
	}
	for name, def := range columns {
		if present[name] {
			continue
		}
		if _, err := db.conn.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, name, def)); err != nil {
			return fmt.Errorf("add %s.%s: %w", table, name, err)
		}
		slog.Info("added column", "table", table, "column", name)
	}
	return nil
}

// SaveCampaign writes st under id, replacing any earlier save with that id.
// An empty id allocates a new one. Returns the id used.
func (db *DB) SaveCampaign(id string, st world.SaveState) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM campaigns WHERE id = ?", id); err != nil {
		return "", err
	}
	if _, err := tx.Exec("DELETE FROM campaign_locations WHERE campaign_id = ?", id); err != nil {
		return "", err
	}
	if _, err := tx.Exec("DELETE FROM campaign_connections WHERE campaign_id = ?", id); err != nil {
		return "", err
	}

	_, err = tx.Exec(`INSERT INTO campaigns
		(id, seed, size, version, config_hash, round, current_location, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, st.Seed, st.Size, st.Version, st.ConfigHash, st.Round, st.CurrentLocation, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert campaign %s: %w", id, err)
	}

	locStmt, err := tx.Preparex(`INSERT INTO campaign_locations
		(campaign_id, idx, type, type_change_timer) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer locStmt.Close()
	for _, l := range st.Locations {
		if _, err := locStmt.Exec(id, l.Index, l.Type, l.TypeChangeTimer); err != nil {
			return "", fmt.Errorf("insert location %d: %w", l.Index, err)
		}
	}

	connStmt, err := tx.Preparex(`INSERT INTO campaign_connections
		(campaign_id, idx, missions_completed) VALUES (?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer connStmt.Close()
	for _, c := range st.Connections {
		if _, err := connStmt.Exec(id, c.Index, c.MissionsCompleted); err != nil {
			return "", fmt.Errorf("insert connection %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	slog.Info("campaign saved", "id", id, "seed", st.Seed,
		"discovered", len(st.Locations), "passed", len(st.Connections))
	return id, nil
}

// LoadCampaign reads the saved state for id.
func (db *DB) LoadCampaign(id string) (world.SaveState, error) {
	var st world.SaveState

	var row CampaignSummary
	err := db.conn.Get(&row, "SELECT "+summaryColumns+" FROM campaigns WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return st, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return st, fmt.Errorf("load campaign %s: %w", id, err)
	}

	st.Version = row.Version
	st.Seed = row.Seed
	st.Size = row.Size
	st.ConfigHash = row.ConfigHash
	st.Round = row.Round
	st.CurrentLocation = row.CurrentLocation

	var locs []locationRow
	err = db.conn.Select(&locs, `SELECT idx, type, type_change_timer
		FROM campaign_locations WHERE campaign_id = ? ORDER BY idx`, id)
	if err != nil {
		return st, fmt.Errorf("load locations: %w", err)
	}
	for _, l := range locs {
		st.Locations = append(st.Locations, world.LocationState{
			Index:           l.Index,
			Type:            l.Type,
			TypeChangeTimer: l.TypeChangeTimer,
		})
	}

	var conns []connectionRow
	err = db.conn.Select(&conns, `SELECT idx, missions_completed
		FROM campaign_connections WHERE campaign_id = ? ORDER BY idx`, id)
	if err != nil {
		return st, fmt.Errorf("load connections: %w", err)
	}
	for _, c := range conns {
		st.Connections = append(st.Connections, world.ConnectionState{
			Index:             c.Index,
			MissionsCompleted: c.MissionsCompleted,
		})
	}
	return st, nil
}

// ListCampaigns returns all saves, newest first.
func (db *DB) ListCampaigns() ([]CampaignSummary, error) {
	var out []CampaignSummary
	err := db.conn.Select(&out, "SELECT "+summaryColumns+" FROM campaigns ORDER BY saved_at DESC")
	return out, err
}

// DeleteCampaign removes a save and its rows.
func (db *DB) DeleteCampaign(id string) error {
	res, err := db.conn.Exec("DELETE FROM campaigns WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// SaveMeta stores a key-value pair in metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
