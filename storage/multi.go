package storage

import (
	"bytes"
	"context"
	"errors"

	"github.com/Chia-Network/offer-codes/offer"
)

// MultiStore provides deterministic, ordered fallback across multiple stores.
//
// Read order is the slice order in Stores; callers MUST supply a fixed order.
//
// Put writes only to the first store, after checking the fallback stores so a
// record that already exists further down is never shadowed by different bytes.
type MultiStore struct {
	Stores []Store
}

var _ Store = MultiStore{}

func (m MultiStore) Put(ctx context.Context, code offer.Code, payload []byte) error {
	if len(m.Stores) == 0 {
		return errors.New("storage: MultiStore has no stores")
	}
	for _, s := range m.Stores[1:] {
		existing, found, err := s.Get(ctx, code)
		if err != nil {
			return err
		}
		if found {
			if !bytes.Equal(existing, payload) {
				return ErrCollision
			}
			return nil
		}
	}
	return m.Stores[0].Put(ctx, code, payload)
}

func (m MultiStore) Get(ctx context.Context, code offer.Code) ([]byte, bool, error) {
	for _, s := range m.Stores {
		b, found, err := s.Get(ctx, code)
		if err != nil {
			return nil, false, err
		}
		if found {
			return b, true, nil
		}
	}
	return nil, false, nil
}
