package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteKV is the durable blob store, one row per named blob. The
// bibliographic cache document lives here so it survives across sessions.
type SQLiteKV struct {
	db *sql.DB
}

// OpenSQLiteKV opens (creating if needed) the blob database at path.
func OpenSQLiteKV(path string) (*SQLiteKV, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	ddl := `CREATE TABLE IF NOT EXISTS blobs (
  name TEXT PRIMARY KEY,
  value TEXT,
  updated_at TEXT
)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating blobs table: %w", err)
	}

	return &SQLiteKV{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}

// Get reads the named blob.
func (s *SQLiteKV) Get(name string) ([]byte, error) {
	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM blobs WHERE name = ?", name).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob %q: %w", name, err)
	}
	return []byte(value.String), nil
}

// Set replaces the named blob.
func (s *SQLiteKV) Set(name string, data []byte) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO blobs (name, value, updated_at) VALUES (?, ?, ?)`,
		name, string(data), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing blob %q: %w", name, err)
	}
	return nil
}

// UpdatedAt returns the last write time of the named blob, or the zero time
// if it has never been written.
func (s *SQLiteKV) UpdatedAt(name string) (time.Time, error) {
	var ts sql.NullString
	err := s.db.QueryRow("SELECT updated_at FROM blobs WHERE name = ?", name).Scan(&ts)
	if err == sql.ErrNoRows || !ts.Valid {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, ts.String)
}
