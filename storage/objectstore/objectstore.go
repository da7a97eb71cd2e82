// Package objectstore stores offers as immutable objects in a bucket (S3 or
// GCS). Insert-if-absent relies on the provider's conditional create.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
)

// errExists is returned by a bucket when the create precondition failed.
var errExists = errors.New("object already exists")

// bucket is one provider's conditional object API.
type bucket interface {
	// CreateIfAbsent writes the object only if the key is free; errExists
	// otherwise.
	CreateIfAbsent(ctx context.Context, key string, payload []byte) error
	// Read returns (nil, false, nil) when the key is absent.
	Read(ctx context.Context, key string) ([]byte, bool, error)
}

// Store maps codes to object keys "<prefix><hex code>".
type Store struct {
	b      bucket
	prefix string
}

var _ storage.Store = (*Store)(nil)

func (s *Store) key(code offer.Code) string { return s.prefix + code.String() }

func (s *Store) Put(ctx context.Context, code offer.Code, payload []byte) error {
	if err := storage.CheckCode(code); err != nil {
		return err
	}
	k := s.key(code)
	err := s.b.CreateIfAbsent(ctx, k, payload)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errExists) {
		return fmt.Errorf("objectstore: create %s: %w", k, err)
	}
	existing, found, err := s.b.Read(ctx, k)
	if err != nil {
		return fmt.Errorf("objectstore: read %s: %w", k, err)
	}
	if !found {
		// A concurrent conditional create is still in flight.
		return fmt.Errorf("objectstore: %s precondition failed but object is not readable yet", k)
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
	b, found, err := s.b.Read(ctx, s.key(code))
	if err != nil {
		return nil, false, fmt.Errorf("objectstore: read: %w", err)
	}
	return b, found, nil
}
