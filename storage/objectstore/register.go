package objectstore

import (
	"context"

	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "s3",
		Description: "S3 objects with If-None-Match create (settings: bucket, region, endpoint, prefix)",
		Usage:       registry.UsageAny,
		Open: func(ctx context.Context, s registry.Settings, log *zap.Logger) (storage.Store, func() error, error) {
			bucket, err := s.Required("bucket")
			if err != nil {
				return nil, nil, err
			}
			st, err := NewS3(ctx, S3Config{
				Bucket:   bucket,
				Region:   s.String("region", "us-east-1"),
				Endpoint: s.String("endpoint", ""),
				Prefix:   s.String("prefix", "offers/"),
			})
			if err != nil {
				return nil, nil, err
			}
			log.Info("s3 store configured", zap.String("bucket", bucket))
			return st, nil, nil
		},
	})
	registry.MustRegister(registry.Backend{
		Name:        "gcs",
		Description: "GCS objects with DoesNotExist precondition (settings: bucket, prefix)",
		Usage:       registry.UsageAny,
		Open: func(ctx context.Context, s registry.Settings, log *zap.Logger) (storage.Store, func() error, error) {
			bucket, err := s.Required("bucket")
			if err != nil {
				return nil, nil, err
			}
			st, closeFn, err := NewGCS(ctx, GCSConfig{Bucket: bucket, Prefix: s.String("prefix", "offers/")})
			if err != nil {
				return nil, nil, err
			}
			log.Info("gcs store configured", zap.String("bucket", bucket))
			return st, closeFn, nil
		},
	})
}
