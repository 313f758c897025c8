package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"apitester/internal/model"
)

// HistoryLimit is the number of history entries kept; older ones are dropped
const HistoryLimit = 10

// ErrNotFound is returned when a history entry or collection does not exist
var ErrNotFound = errors.New("not found")

// SessionStore holds history, collections and variables for one session.
// It is backed by an in-memory SQLite database: nothing survives Close.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore opens a fresh, empty session
func NewSessionStore() (*SessionStore, error) {
	// a private shared-cache name keeps sessions apart; one connection keeps
	// the database alive for the store's lifetime
	dsn := fmt.Sprintf("file:session-%s?mode=memory&cache=shared", uuid.NewString())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	s := &SessionStore{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close discards the session
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// initSchema creates the session tables
func (s *SessionStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		entry TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collections (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		description TEXT DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS folders (
		id TEXT PRIMARY KEY,
		collection_id TEXT NOT NULL,
		parent_id TEXT,
		name TEXT NOT NULL,
		description TEXT DEFAULT '',
		position INTEGER NOT NULL,
		FOREIGN KEY (collection_id) REFERENCES collections(id) ON DELETE CASCADE,
		FOREIGN KEY (parent_id) REFERENCES folders(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(collection_id, parent_id, position);

	CREATE TABLE IF NOT EXISTS saved_requests (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		collection_id TEXT NOT NULL,
		folder_id TEXT,
		position INTEGER NOT NULL,
		request TEXT NOT NULL,
		FOREIGN KEY (collection_id) REFERENCES collections(id) ON DELETE CASCADE,
		FOREIGN KEY (folder_id) REFERENCES folders(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_saved_requests_folder ON saved_requests(collection_id, folder_id, position);

	CREATE TABLE IF NOT EXISTS variables (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// History Operations
// =============================================================================

// AddToHistory records an entry as the newest and drops anything past
// HistoryLimit
func (s *SessionStore) AddToHistory(entry model.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()[:8]
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT OR REPLACE INTO history (id, entry) VALUES (?, ?)", entry.ID, string(data)); err != nil {
		return err
	}

	_, err = tx.Exec(`
		DELETE FROM history
		WHERE seq NOT IN (
			SELECT seq FROM history ORDER BY seq DESC LIMIT ?
		)`, HistoryLimit)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// LoadHistory returns the history, newest first
func (s *SessionStore) LoadHistory() ([]model.HistoryEntry, error) {
	rows, err := s.db.Query("SELECT entry FROM history ORDER BY seq DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var entry model.HistoryEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// GetHistoryEntry finds an entry by ID
func (s *SessionStore) GetHistoryEntry(id string) (*model.HistoryEntry, error) {
	var data string
	err := s.db.QueryRow("SELECT entry FROM history WHERE id = ?", id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("history entry %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var entry model.HistoryEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ClearHistory clears all history
func (s *SessionStore) ClearHistory() error {
	_, err := s.db.Exec("DELETE FROM history")
	return err
}

// =============================================================================
// Variable Operations
// =============================================================================

// SetVariable creates or replaces a session variable
func (s *SessionStore) SetVariable(name, value string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("variable name is required")
	}
	_, err := s.db.Exec("INSERT OR REPLACE INTO variables (name, value) VALUES (?, ?)", name, value)
	return err
}

// UnsetVariable removes a session variable
func (s *SessionStore) UnsetVariable(name string) error {
	res, err := s.db.Exec("DELETE FROM variables WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("variable %q: %w", name, ErrNotFound)
	}
	return nil
}

// Variables returns all session variables
func (s *SessionStore) Variables() (map[string]string, error) {
	rows, err := s.db.Query("SELECT name, value FROM variables")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vars := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		vars[name] = value
	}
	return vars, rows.Err()
}
