package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Chia-Network/offer-codes/offer"
)

// NamedStore associates a Store with a stable backend name for error reporting.
type NamedStore struct {
	Name  string
	Store Store
}

// ReplicatingStore writes to all configured backends.
//
// Reads fall back in order. A write succeeds only when every backend accepted
// it; a collision on any backend is reported as ErrCollision. Every backend is
// checked for an existing record before any of them is written.
type ReplicatingStore struct {
	Backends []NamedStore
}

var _ Store = ReplicatingStore{}

func (r ReplicatingStore) Put(ctx context.Context, code offer.Code, payload []byte) error {
	if len(r.Backends) == 0 {
		return fmt.Errorf("storage: ReplicatingStore has no backends")
	}
	for _, b := range r.Backends {
		if b.Store == nil {
			return fmt.Errorf("storage: nil store for backend %q", b.Name)
		}
		existing, found, err := b.Store.Get(ctx, code)
		if err != nil {
			return fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
		if found && !bytes.Equal(existing, payload) {
			return fmt.Errorf("storage: backend %q: %w", b.Name, ErrCollision)
		}
	}
	for _, b := range r.Backends {
		if err := b.Store.Put(ctx, code, payload); err != nil {
			return fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
	}
	return nil
}

func (r ReplicatingStore) Get(ctx context.Context, code offer.Code) ([]byte, bool, error) {
	for _, b := range r.Backends {
		if b.Store == nil {
			continue
		}
		out, found, err := b.Store.Get(ctx, code)
		if err != nil {
			return nil, false, fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
		if found {
			return out, true, nil
		}
	}
	return nil, false, nil
}
