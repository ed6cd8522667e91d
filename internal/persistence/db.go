// Package persistence saves and restores worlds as compressed snapshot
// files and archives the event feed and daily statistics in SQLite.
package persistence

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	_ "modernc.org/sqlite"

	"github.com/talgya/homestead/internal/engine"
)

// DB wraps a SQLite connection for the event and statistics archive.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Columns follow the json names of the archived structs.
	conn.Mapper = reflectx.NewMapperFunc("json", strings.ToLower)

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
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		category TEXT NOT NULL,
		agent INTEGER NOT NULL DEFAULT 0,
		other INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_stats (
		day INTEGER PRIMARY KEY,
		tick INTEGER NOT NULL,
		season TEXT NOT NULL,
		population INTEGER NOT NULL,
		births INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		discoveries INTEGER NOT NULL,
		crafted INTEGER NOT NULL,
		structures INTEGER NOT NULL,
		trades INTEGER NOT NULL,
		lessons INTEGER NOT NULL,
		helps INTEGER NOT NULL,
		known_recipes INTEGER NOT NULL,
		bonds INTEGER NOT NULL,
		nodes INTEGER NOT NULL,
		food_stock REAL NOT NULL,
		avg_hunger REAL NOT NULL,
		avg_thirst REAL NOT NULL,
		avg_energy REAL NOT NULL,
		avg_social REAL NOT NULL,
		avg_health REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_agent ON events(agent);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveEvents appends events to the archive. Events already archived are
// skipped.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(`INSERT OR IGNORE INTO events
		(id, tick, kind, category, agent, other, description)
		VALUES (:id, :tick, :kind, :category, :agent, :other, :description)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(e); err != nil {
			return fmt.Errorf("archive event %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N archived events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT id, tick, kind, category, agent, other, description FROM events ORDER BY tick DESC, id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// AgentEvents returns the most recent N archived events involving an agent.
func (db *DB) AgentEvents(agent uint64, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		`SELECT id, tick, kind, category, agent, other, description FROM events
		 WHERE agent = ? OR other = ? ORDER BY tick DESC, id DESC LIMIT ?`,
		agent, agent, limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in world metadata.
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

// SaveDailyStats records one day's statistics, replacing any earlier row
// for the same day.
func (db *DB) SaveDailyStats(st engine.Stats) error {
	_, err := db.conn.NamedExec(`INSERT OR REPLACE INTO daily_stats
		(day, tick, season, population, births, deaths, discoveries, crafted,
		 structures, trades, lessons, helps, known_recipes, bonds, nodes, food_stock,
		 avg_hunger, avg_thirst, avg_energy, avg_social, avg_health)
		VALUES (:day, :tick, :season, :population, :births, :deaths, :discoveries, :crafted,
		 :structures, :trades, :lessons, :helps, :known_recipes, :bonds, :nodes, :food_stock,
		 :avg_hunger, :avg_thirst, :avg_energy, :avg_social, :avg_health)`, st)
	return err
}

// StatsHistory returns up to limit days of statistics, oldest first.
func (db *DB) StatsHistory(limit int) ([]engine.Stats, error) {
	var rows []engine.Stats
	err := db.conn.Select(&rows, `SELECT * FROM (
		SELECT * FROM daily_stats ORDER BY day DESC LIMIT ?
	) ORDER BY day ASC`, limit)
	return rows, err
}
