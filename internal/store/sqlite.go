package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS entries (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

// SQLite keeps entries in memory and writes staged changes to a SQLite
// database in one transaction per Save.
type SQLite struct {
	entries
	db *sql.DB

	pendingMu sync.Mutex
	pending   map[string]bool // true = upsert, false = delete
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path and loads every
// entry.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &SQLite{
		entries: entries{data: make(map[string][]byte)},
		db:      db,
		pending: make(map[string]bool),
	}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) load() error {
	rows, err := s.db.Query(`SELECT key, value FROM entries`)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	defer func() { _ = rows.Close() }()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}
		s.data[key] = value
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLite) Get(key string, dest any) (bool, error) {
	return s.get(key, dest)
}

// Insert implements Store.
func (s *SQLite) Insert(key string, value any) error {
	if _, err := s.put(key, value); err != nil {
		return err
	}
	s.mark(key, true)
	return nil
}

// Delete implements Store.
func (s *SQLite) Delete(key string) error {
	s.remove(key)
	s.mark(key, false)
	return nil
}

// Save writes every staged change.
func (s *SQLite) Save() error {
	s.pendingMu.Lock()
	pending := s.pending
	s.pending = make(map[string]bool)
	s.pendingMu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		s.restore(pending)
		return fmt.Errorf("begin save: %w", err)
	}
	for key, upsert := range pending {
		if upsert {
			s.mu.Lock()
			value, ok := s.data[key]
			s.mu.Unlock()
			if !ok {
				continue
			}
			_, err = tx.Exec(`INSERT INTO entries (key, value) VALUES (?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
		} else {
			_, err = tx.Exec(`DELETE FROM entries WHERE key = ?`, key)
		}
		if err != nil {
			_ = tx.Rollback()
			s.restore(pending)
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		s.restore(pending)
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) mark(key string, upsert bool) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pending[key] = upsert
}

// restore re-stages changes from a failed save unless newer ones exist.
func (s *SQLite) restore(failed map[string]bool) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for key, upsert := range failed {
		if _, newer := s.pending[key]; !newer {
			s.pending[key] = upsert
		}
	}
}
