package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSConfig configures the GCS backend. Credentials come from ADC.
type GCSConfig struct {
	Bucket string
	Prefix string
}

type gcsBucket struct {
	client *gcs.Client
	bucket string
}

// NewGCS creates a GCS-backed store. The returned close function closes the
// client.
func NewGCS(ctx context.Context, cfg GCSConfig) (*Store, func() error, error) {
	if cfg.Bucket == "" {
		return nil, nil, errors.New("objectstore: gcs bucket is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("objectstore: create GCS client: %w", err)
	}
	return &Store{b: &gcsBucket{client: client, bucket: cfg.Bucket}, prefix: cfg.Prefix}, client.Close, nil
}

func (b *gcsBucket) CreateIfAbsent(ctx context.Context, key string, payload []byte) error {
	obj := b.client.Bucket(b.bucket).Object(key).If(gcs.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return classifyGCS(err)
	}
	return classifyGCS(w.Close())
}

func classifyGCS(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusPreconditionFailed {
		return errExists
	}
	return err
}

func (b *gcsBucket) Read(ctx context.Context, key string) ([]byte, bool, error) {
	r, err := b.client.Bucket(b.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
