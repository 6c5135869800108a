// Package snapshot provides the durable local fallback for changelogs.
//
// The store keeps the last successfully-loaded (or locally-appended)
// full event array per list, keyed by list id — plus the partition date
// for dated lists. It is written after every load and local append, and
// read only when a remote fetch fails, so the store can degrade to the
// best-known view instead of failing the caller.
//
// Storage is an embedded SQLite database (pure-Go driver, WAL mode) so
// concurrent CLI invocations and a running daemon can share one file.
package snapshot

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/everlist/everlist/internal/changelog"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the snapshot database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens the snapshot database at path.
//
// The caller MUST call Close() when done.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping snapshot database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	// WAL keeps readers unblocked while the daemon writes.
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    key        TEXT PRIMARY KEY,
    events     TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create snapshot schema: %w", err)
	}
	return nil
}

// Key builds the snapshot key for a list. date is empty for perpetual
// lists and the partition date for dated ones.
func Key(listID, date string) string {
	if date == "" {
		return listID
	}
	return listID + "@" + date
}

// Save stores the full event array under key, replacing any previous
// snapshot.
func (db *DB) Save(key string, events []changelog.Event) error {
	data, err := changelog.EncodeEvents(events)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = db.conn.Exec(
		`INSERT INTO snapshots (key, events, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET events=excluded.events, updated_at=excluded.updated_at`,
		key, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to write snapshot %q: %w", key, err)
	}
	return nil
}

// Load returns the stored event array for key. A missing snapshot is an
// error: callers treat it as "no fallback available".
func (db *DB) Load(key string) ([]changelog.Event, error) {
	var data string
	err := db.conn.QueryRow(`SELECT events FROM snapshots WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no snapshot for %q", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %q: %w", key, err)
	}
	events, err := changelog.DecodeEvents([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %q: %w", key, err)
	}
	return events, nil
}

// Close closes the database connection after checkpointing the WAL.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	_, _ = db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot database: %w", err)
	}
	db.conn = nil
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
