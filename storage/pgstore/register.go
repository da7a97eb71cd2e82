package pgstore

import (
	"context"

	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "pgx",
		Description: "PostgreSQL table via a pgx pool (settings: dsn, migrate, min_conns, max_conns)",
		Usage:       registry.UsageAny,
		Open: func(ctx context.Context, s registry.Settings, log *zap.Logger) (storage.Store, func() error, error) {
			dsn, err := s.Required("dsn")
			if err != nil {
				return nil, nil, err
			}
			migrate, err := s.Bool("migrate", true)
			if err != nil {
				return nil, nil, err
			}
			minConns, err := s.Int("min_conns", 0)
			if err != nil {
				return nil, nil, err
			}
			maxConns, err := s.Int("max_conns", 0)
			if err != nil {
				return nil, nil, err
			}
			st, pool, err := Connect(ctx, Config{
				DSN:      dsn,
				MinConns: int32(minConns),
				MaxConns: int32(maxConns),
				Migrate:  migrate,
			})
			if err != nil {
				return nil, nil, err
			}
			log.Info("pgx pool connected", zap.Int32("max_conns", pool.Config().MaxConns))
			return st, func() error { pool.Close(); return nil }, nil
		},
	})
}
