package localfs

import (
	"context"

	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "localfs",
		Description: "Local filesystem, one read-only file per code (settings: dir)",
		Usage:       registry.UsageAny,
		Open: func(_ context.Context, s registry.Settings, _ *zap.Logger) (storage.Store, func() error, error) {
			dir, err := s.Required("dir")
			if err != nil {
				return nil, nil, err
			}
			st, err := New(dir)
			if err != nil {
				return nil, nil, err
			}
			return st, nil, nil
		},
	})
}
