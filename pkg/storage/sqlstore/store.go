// Package sqlstore keeps records as rows of a single key/value table in
// SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"stall/pkg/storage"
)

// Dialect carries the driver name and the statements that differ between databases.
type Dialect struct {
	Name   string
	Driver string
	schema string
	upsert string
	get    string
	remove string
}

// SQLite uses the pure Go modernc driver, so the binary needs no cgo.
var SQLite = Dialect{
	Name:   "sqlite",
	Driver: "sqlite",
	schema: `CREATE TABLE IF NOT EXISTS records (
		kind TEXT PRIMARY KEY,
		body BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	upsert: `INSERT INTO records (kind, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (kind) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
	get:    `SELECT body FROM records WHERE kind = ?`,
	remove: `DELETE FROM records WHERE kind = ?`,
}

// Postgres targets a shared database through lib/pq.
var Postgres = Dialect{
	Name:   "postgres",
	Driver: "postgres",
	schema: `CREATE TABLE IF NOT EXISTS records (
		kind TEXT PRIMARY KEY,
		body BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	upsert: `INSERT INTO records (kind, body, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (kind) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
	get:    `SELECT body FROM records WHERE kind = $1`,
	remove: `DELETE FROM records WHERE kind = $1`,
}

// DialectByName resolves the --store flag.
func DialectByName(name string) (Dialect, error) {
	switch name {
	case SQLite.Name:
		return SQLite, nil
	case Postgres.Name:
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql dialect %q", name)
	}
}

// Store is a storage.Backend over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects, pings and migrates.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	s := New(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle without touching the schema.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Migrate creates the records table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		return fmt.Errorf("migrate %s: %w", s.dialect.Name, err)
	}
	return nil
}

// Put upserts the record row.
func (s *Store) Put(ctx context.Context, kind storage.Kind, data []byte) error {
	_, err := s.db.ExecContext(ctx, s.dialect.upsert, string(kind), data, time.Now().UTC())
	return err
}

// Get reads the record body.
func (s *Store) Get(ctx context.Context, kind storage.Kind) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, s.dialect.get, string(kind)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Remove deletes the record row.
func (s *Store) Remove(ctx context.Context, kind storage.Kind) error {
	result, err := s.db.ExecContext(ctx, s.dialect.remove, string(kind))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
