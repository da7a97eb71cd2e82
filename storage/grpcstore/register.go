package grpcstore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "grpc",
		Description: "Remote store daemon (offer-codes store-serve) (settings: target, timeout, max_msg_bytes, hash_alg, code_width)",
		Usage:       registry.UsageServer,
		Open: func(_ context.Context, s registry.Settings, log *zap.Logger) (storage.Store, func() error, error) {
			target, err := s.Required("target")
			if err != nil {
				return nil, nil, err
			}
			timeout, err := s.Duration("timeout", 5*time.Second)
			if err != nil {
				return nil, nil, err
			}
			maxMsg, err := s.Int("max_msg_bytes", 0)
			if err != nil {
				return nil, nil, err
			}
			width, err := s.Int("code_width", offer.DefaultCodeWidth)
			if err != nil {
				return nil, nil, err
			}
			scheme, err := offer.NewScheme(s.String("hash_alg", string(offer.SHA256)), width)
			if err != nil {
				return nil, nil, err
			}
			client, err := Dial(target, DialOptions{MaxMsgBytes: maxMsg, Scheme: scheme})
			if err != nil {
				return nil, nil, err
			}
			client.Timeout = timeout
			log.Info("grpc store client created", zap.String("target", target))
			return client, client.Close, nil
		},
	})
}
