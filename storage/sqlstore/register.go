package sqlstore

import (
	"context"

	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "sqlite",
		Description: "SQLite table via modernc.org/sqlite (settings: path, migrate)",
		Usage:       registry.UsageAny,
		Open: func(ctx context.Context, s registry.Settings, log *zap.Logger) (storage.Store, func() error, error) {
			path, err := s.Required("path")
			if err != nil {
				return nil, nil, err
			}
			return open(ctx, SQLite, path, s, log)
		},
	})
	registry.MustRegister(registry.Backend{
		Name:        "postgres",
		Description: "PostgreSQL table via lib/pq (settings: dsn, migrate, max_open_conns)",
		Usage:       registry.UsageAny,
		Open: func(ctx context.Context, s registry.Settings, log *zap.Logger) (storage.Store, func() error, error) {
			dsn, err := s.Required("dsn")
			if err != nil {
				return nil, nil, err
			}
			return open(ctx, Postgres, dsn, s, log)
		},
	})
}

func open(ctx context.Context, d Dialect, dsn string, s registry.Settings, log *zap.Logger) (storage.Store, func() error, error) {
	migrate, err := s.Bool("migrate", true)
	if err != nil {
		return nil, nil, err
	}
	maxConns, err := s.Int("max_open_conns", 0)
	if err != nil {
		return nil, nil, err
	}
	st, err := Open(ctx, d, dsn, migrate)
	if err != nil {
		return nil, nil, err
	}
	if maxConns > 0 && !d.SingleWriter {
		st.db.SetMaxOpenConns(maxConns)
	}
	log.Info("sql store opened", zap.String("dialect", d.Name), zap.Bool("migrate", migrate))
	return st, st.Close, nil
}
