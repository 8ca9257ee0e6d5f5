package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS draft_backups (
    key TEXT PRIMARY KEY,
    post_id TEXT,
    site_id TEXT,
    payload BLOB NOT NULL,
    fingerprint TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS preferences (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

type SQLite struct {
	path string
	conn *sql.DB
}

// NewSQLite opens nothing until InitDB. ":memory:" keeps the state in memory
// for the life of the process.
func NewSQLite(path string) *SQLite {
	return &SQLite{path: path}
}

func (s *SQLite) InitDB() error {
	dsn := s.path
	if dsn != ":memory:" {
		dsn = "file:" + s.path + "?_foreign_keys=on&_busy_timeout=5000"
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}
	if s.path == ":memory:" {
		// Every connection would get its own empty database.
		conn.SetMaxOpenConns(1)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return fmt.Errorf("creating schema: %w", err)
	}

	s.conn = conn
	dbLogger.Debug().Str("path", s.path).Msg("Local state initialized")
	return nil
}

func (s *SQLite) Get() *sql.DB {
	return s.conn
}

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *SQLite) Query(query string, args ...any) (*sql.Rows, error) {
	dbLogger.Trace().Str("query", query).Msg("Query")
	return s.conn.Query(query, args...)
}

func (s *SQLite) QueryRow(query string, args ...any) *sql.Row {
	dbLogger.Trace().Str("query", query).Msg("QueryRow")
	return s.conn.QueryRow(query, args...)
}

func (s *SQLite) Exec(query string, args ...any) (sql.Result, error) {
	dbLogger.Trace().Str("query", query).Msg("Exec")
	return s.conn.Exec(query, args...)
}
