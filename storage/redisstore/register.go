package redisstore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "redis",
		Description: "Redis keys via SETNX (settings: addr, password, db, pool_size, prefix, timeout)",
		Usage:       registry.UsageAny,
		Open: func(ctx context.Context, s registry.Settings, log *zap.Logger) (storage.Store, func() error, error) {
			addr, err := s.Required("addr")
			if err != nil {
				return nil, nil, err
			}
			db, err := s.Int("db", 0)
			if err != nil {
				return nil, nil, err
			}
			pool, err := s.Int("pool_size", 0)
			if err != nil {
				return nil, nil, err
			}
			timeout, err := s.Duration("timeout", 3*time.Second)
			if err != nil {
				return nil, nil, err
			}
			st, closeFn, err := Open(ctx, Config{
				Addr:         addr,
				Password:     s.String("password", ""),
				DB:           db,
				PoolSize:     pool,
				Prefix:       s.String("prefix", DefaultPrefix),
				DialTimeout:  timeout,
				ReadTimeout:  timeout,
				WriteTimeout: timeout,
			})
			if err != nil {
				return nil, nil, err
			}
			log.Info("redis store connected", zap.String("addr", addr), zap.Int("db", db))
			return st, closeFn, nil
		},
	})
}
