// Package memstore is an in-process storage backend for tests and development.
package memstore

import (
	"bytes"
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "memory",
		Description: "In-process map; contents are lost on exit",
		Usage:       registry.UsageAny,
		Open: func(context.Context, registry.Settings, *zap.Logger) (storage.Store, func() error, error) {
			return New(), nil, nil
		},
	})
}

// Store keeps records in a map guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	records map[string][]byte
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{records: make(map[string][]byte)}
}

func (s *Store) Put(_ context.Context, code offer.Code, payload []byte) error {
	if err := storage.CheckCode(code); err != nil {
		return err
	}
	key := string(code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[key]; ok {
		if bytes.Equal(existing, payload) {
			return nil
		}
		return storage.ErrCollision
	}
	s.records[key] = append([]byte(nil), payload...)
	return nil
}

func (s *Store) Get(_ context.Context, code offer.Code) ([]byte, bool, error) {
	if err := storage.CheckCode(code); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.records[string(code)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
