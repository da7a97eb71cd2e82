// Package sqlstore stores offers in a relational table with a unique code
// column, over database/sql.
//
// Two dialects are linked: SQLite (modernc.org/sqlite, pure Go) and PostgreSQL
// (github.com/lib/pq).
package sqlstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	Name     string
	Driver   string
	BlobType string
	// Placeholder returns the bind parameter for the n-th (1-based) argument.
	Placeholder func(n int) string
	// SingleWriter limits the pool to one connection.
	SingleWriter bool
}

var (
	SQLite = Dialect{
		Name:         "sqlite",
		Driver:       "sqlite",
		BlobType:     "BLOB",
		Placeholder:  func(int) string { return "?" },
		SingleWriter: true,
	}
	Postgres = Dialect{
		Name:        "postgres",
		Driver:      "postgres",
		BlobType:    "BYTEA",
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}
)

// Store is a storage.Store over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect

	insertSQL string
	selectSQL string
}

var _ storage.Store = (*Store)(nil)

// New wraps an open database. When migrate is set the offers table is created
// if it does not exist.
func New(ctx context.Context, db *sql.DB, d Dialect, migrate bool) (*Store, error) {
	s := &Store{
		db:      db,
		dialect: d,
		insertSQL: fmt.Sprintf(
			"INSERT INTO offers (code, payload) VALUES (%s, %s) ON CONFLICT (code) DO NOTHING",
			d.Placeholder(1), d.Placeholder(2)),
		selectSQL: fmt.Sprintf("SELECT payload FROM offers WHERE code = %s", d.Placeholder(1)),
	}
	if migrate {
		if err := s.migrate(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Open opens dsn with the dialect's driver.
func Open(ctx context.Context, d Dialect, dsn string, migrate bool) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("sqlstore: dsn is required")
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", d.Name, err)
	}
	if d.SingleWriter {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", d.Name, err)
	}
	s, err := New(ctx, db, d, migrate)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS offers (
		code %[1]s PRIMARY KEY,
		payload %[1]s NOT NULL
	)`, s.dialect.BlobType)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, code offer.Code, payload []byte) error {
	if err := storage.CheckCode(code); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.insertSQL, []byte(code), payload)
	if err != nil {
		return fmt.Errorf("sqlstore: insert: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return nil
	}

	// The code was already taken: idempotent if the bytes match.
	existing, found, err := s.Get(ctx, code)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("sqlstore: insert of %s affected no rows and no record exists", code)
	}
	if !bytes.Equal(existing, payload) {
		return storage.ErrCollision
	}
	return nil
}

func (s *Store) Get(ctx context.Context, code offer.Code) ([]byte, bool, error) {
	if err := storage.CheckCode(code); err != nil {
		return nil, false, err
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, s.selectSQL, []byte(code)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlstore: select: %w", err)
	}
	return payload, true, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }
