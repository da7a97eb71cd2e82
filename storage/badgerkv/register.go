package badgerkv

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "badger",
		Description: "Embedded BadgerDB store (settings: dir, in_memory, sync_writes, zstd_level, gc_interval)",
		Usage:       registry.UsageAny,
		Open:        openFromSettings,
	})
}

func openFromSettings(_ context.Context, s registry.Settings, log *zap.Logger) (storage.Store, func() error, error) {
	inMemory, err := s.Bool("in_memory", false)
	if err != nil {
		return nil, nil, err
	}
	syncWrites, err := s.Bool("sync_writes", true)
	if err != nil {
		return nil, nil, err
	}
	level, err := s.Int("zstd_level", 0)
	if err != nil {
		return nil, nil, err
	}
	gcEvery, err := s.Duration("gc_interval", 10*time.Minute)
	if err != nil {
		return nil, nil, err
	}
	st, err := Open(Options{
		Dir:        s.String("dir", ""),
		InMemory:   inMemory,
		SyncWrites: syncWrites,
		ZSTDLevel:  level,
		GCInterval: gcEvery,
		Logger:     log,
	})
	if err != nil {
		return nil, nil, err
	}
	return st, st.Close, nil
}
