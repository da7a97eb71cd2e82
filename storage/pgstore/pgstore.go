// Package pgstore stores offers in PostgreSQL through a pgx connection pool.
package pgstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
)

const (
	createTableSQL = `
	CREATE TABLE IF NOT EXISTS offers (
		code BYTEA PRIMARY KEY,
		payload BYTEA NOT NULL
	)`
	insertSQL = `INSERT INTO offers (code, payload) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`
	selectSQL = `SELECT payload FROM offers WHERE code = $1`
)

// querier is the part of *pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db querier
}

var _ storage.Store = (*Store)(nil)

type Config struct {
	DSN      string
	MinConns int32
	MaxConns int32
	Migrate  bool
}

// Connect creates a pool, pings it and optionally applies the schema.
func Connect(ctx context.Context, cfg Config) (*Store, *pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("parse connection string: %w", err)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	s := New(pool)
	if cfg.Migrate {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return s, pool, nil
}

func New(pool *pgxpool.Pool) *Store { return &Store{db: pool} }

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, code offer.Code, payload []byte) error {
	if err := storage.CheckCode(code); err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, insertSQL, []byte(code), payload)
	if err != nil {
		return fmt.Errorf("pgstore: insert: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	existing, found, err := s.Get(ctx, code)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("pgstore: insert of %s affected no rows and no record exists", code)
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
	err := s.db.QueryRow(ctx, selectSQL, []byte(code)).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pgstore: select: %w", err)
	}
	return payload, true, nil
}
