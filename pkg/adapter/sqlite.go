package adapter

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements SessionStore on a local SQLite file. Rows are keyed by
// (session, key) so several sessions can share one database.
type SQLiteStore struct {
	db      *sql.DB
	session string
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath and
// returns a store scoped to session
func NewSQLiteStore(dbPath, session string) (*SQLiteStore, error) {
	if session == "" {
		return nil, goerr.New("session is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("path", dbPath))
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", dbPath))
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to ping database", goerr.V("path", dbPath))
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS session_entries (
		session TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (session, key)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to create schema")
	}

	return &SQLiteStore{db: db, session: session}, nil
}

// Close releases the underlying database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_entries WHERE session = ? AND key = ?`, s.session, key)

	var value []byte
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrKeyNotFound, "no row in sqlite store",
				goerr.V("session", s.session), goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to query session entry",
			goerr.V("session", s.session), goerr.V("key", key))
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	const query = `
	INSERT INTO session_entries (session, key, value, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(session, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, s.session, key, value, time.Now().UnixMilli()); err != nil {
		return goerr.Wrap(err, "failed to upsert session entry",
			goerr.V("session", s.session), goerr.V("key", key))
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_entries WHERE session = ? AND key = ?`, s.session, key); err != nil {
		return goerr.Wrap(err, "failed to delete session entry",
			goerr.V("session", s.session), goerr.V("key", key))
	}
	return nil
}
