// Package store keeps named object-graph snapshots in a SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/ember/vm"
	"github.com/chazu/ember/vm/snapshot"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("ember.store")

// ErrSnapshotNotFound indicates the requested snapshot doesn't exist
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Entry describes a stored snapshot.
type Entry struct {
	Name    string
	Size    int
	SavedAt time.Time
}

// Store handles SQLite storage for snapshots
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		saved_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened store %s", path)
	return &Store{db: db, path: path}, nil
}

// DefaultPath returns $EMBER_STORE, or ~/.ember/snapshots.db.
func DefaultPath() (string, error) {
	if p := os.Getenv("EMBER_STORE"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	return filepath.Join(home, ".ember", "snapshots.db"), nil
}

// Path returns the database path.
func (st *Store) Path() string { return st.path }

// Close closes the database connection
func (st *Store) Close() error {
	if st.db != nil {
		return st.db.Close()
	}
	return nil
}

// Save stores encoded snapshot data under name, replacing any previous
// snapshot with that name.
func (st *Store) Save(name string, data []byte) error {
	if name == "" {
		return fmt.Errorf("saving snapshot: empty name")
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	_, err := st.db.Exec(
		"INSERT OR REPLACE INTO snapshots (name, data, saved_at) VALUES (?, ?, ?)",
		name, data, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	log.Debugf("saved %s (%d bytes)", name, len(data))
	return nil
}

// Load returns the encoded snapshot stored under name.
func (st *Store) Load(name string) ([]byte, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	var data []byte
	err := st.db.QueryRow("SELECT data FROM snapshots WHERE name = ?", name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	return data, nil
}

// SaveValue captures v from s and stores it under name.
func (st *Store) SaveValue(s *vm.State, name string, v vm.Value) error {
	data, err := snapshot.Marshal(s, v)
	if err != nil {
		return err
	}
	return st.Save(name, data)
}

// LoadValue restores the snapshot stored under name into s.
func (st *Store) LoadValue(s *vm.State, name string) (vm.Value, error) {
	data, err := st.Load(name)
	if err != nil {
		return vm.Nil, err
	}
	return snapshot.Decode(s, data)
}

// List returns all stored snapshots ordered by name.
func (st *Store) List() ([]Entry, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	rows, err := st.db.Query("SELECT name, length(data), saved_at FROM snapshots ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var savedAt int64
		if err := rows.Scan(&e.Name, &e.Size, &savedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		e.SavedAt = time.Unix(0, savedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the snapshot stored under name.
func (st *Store) Delete(name string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	res, err := st.db.Exec("DELETE FROM snapshots WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	if n == 0 {
		return ErrSnapshotNotFound
	}
	log.Debugf("deleted %s", name)
	return nil
}
