package storage

import (
	"context"

	"github.com/Chia-Network/offer-codes/offer"
)

// Store is a content-addressed offer store keyed by code.
//
// Contract:
// - Put MUST be insert-if-absent: an existing record is never overwritten.
// - Put of bytes equal to the stored record MUST succeed (idempotent).
// - Put of different bytes under an existing code MUST return ErrCollision.
// - Get MUST return (nil, false, nil) when the code is absent.
// - Records are immutable; there is no delete.
//
// Callers are responsible for deriving code from payload.
type Store interface {
	Put(ctx context.Context, code offer.Code, payload []byte) error
	Get(ctx context.Context, code offer.Code) (payload []byte, found bool, err error)
}

// CheckCode rejects codes no backend may store.
func CheckCode(code offer.Code) error {
	if len(code) == 0 || len(code) > offer.MaxCodeWidth {
		return ErrInvalidCode
	}
	return nil
}
