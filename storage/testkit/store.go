// Package testkit holds the conformance suite every storage backend runs.
package testkit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
)

// Scheme is the code scheme the suite derives codes with. Codes are two bytes
// wide so that genuinely colliding payloads can be found by search; a backend
// that derives codes itself (the gRPC daemon) must be configured with it.
var Scheme = offer.Scheme{Alg: offer.SHA256, Deriver: mustDeriver(2)}

func mustDeriver(width int) offer.Deriver {
	d, err := offer.NewDeriver(width)
	if err != nil {
		panic(err)
	}
	return d
}

// collidingPayload returns a payload different from p with the same code.
func collidingPayload(t *testing.T, p []byte) []byte {
	t.Helper()
	want := Scheme.Code(p)
	for i := 0; i < 1<<24; i++ {
		candidate := []byte(fmt.Sprintf("colliding writer #%d", i))
		if !bytes.Equal(candidate, p) && Scheme.Code(candidate).Equal(want) {
			return candidate
		}
	}
	t.Fatalf("no colliding payload found for code %s", want)
	return nil
}

// NewStore constructs a fresh, empty Store for a test.
// The returned Store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Store

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	scheme := Scheme
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := []byte("hello, offer storage")
		code := scheme.Code(want)

		if err := s.Put(ctx, code, want); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, found, err := s.Get(ctx, code)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !found {
			t.Fatalf("Get: record not found after Put")
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
		if !scheme.Code(got).Equal(code) {
			t.Fatalf("Get returned bytes not matching requested code")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := []byte("same bytes")
		code := scheme.Code(b)

		if err := s.Put(ctx, code, b); err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		if err := s.Put(ctx, code, append([]byte(nil), b...)); err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		got, found, err := s.Get(ctx, code)
		if err != nil || !found || !bytes.Equal(got, b) {
			t.Fatalf("Get after repeated Put: found=%v err=%v", found, err)
		}
	})

	t.Run("CollisionKeepsFirst", func(t *testing.T) {
		s := newStore(t)
		first := []byte("first writer")
		code := scheme.Code(first)

		if err := s.Put(ctx, code, first); err != nil {
			t.Fatalf("Put(first) failed: %v", err)
		}
		second := collidingPayload(t, first)
		err := s.Put(ctx, code, second)
		if !errors.Is(err, storage.ErrCollision) {
			t.Fatalf("Put(second): got err=%v want ErrCollision", err)
		}
		got, found, err := s.Get(ctx, code)
		if err != nil || !found {
			t.Fatalf("Get: found=%v err=%v", found, err)
		}
		if !bytes.Equal(got, first) {
			t.Fatalf("collision overwrote the stored record")
		}
	})

	t.Run("AbsentIsNotAnError", func(t *testing.T) {
		s := newStore(t)
		code := scheme.Code([]byte("never stored"))

		got, found, err := s.Get(ctx, code)
		if err != nil {
			t.Fatalf("Get missing: got err=%v want nil", err)
		}
		if found || got != nil {
			t.Fatalf("Get missing: found=%v len=%d", found, len(got))
		}
	})

	t.Run("DistinctCodesIsolated", func(t *testing.T) {
		s := newStore(t)
		var payloads [][]byte
		used := map[string]bool{}
		for i := 0; len(payloads) < 8; i++ {
			p := []byte(fmt.Sprintf("offer #%d", i))
			code := scheme.Code(p)
			if used[code.String()] {
				continue
			}
			used[code.String()] = true
			payloads = append(payloads, p)
			if err := s.Put(ctx, code, p); err != nil {
				t.Fatalf("Put(%d) failed: %v", len(payloads)-1, err)
			}
		}
		for i, p := range payloads {
			got, found, err := s.Get(ctx, scheme.Code(p))
			if err != nil || !found {
				t.Fatalf("Get(%d): found=%v err=%v", i, found, err)
			}
			if !bytes.Equal(got, p) {
				t.Fatalf("Get(%d) returned another record", i)
			}
		}
	})

	t.Run("ConcurrentIdenticalPuts", func(t *testing.T) {
		s := newStore(t)
		b := []byte("raced offer")
		code := scheme.Code(b)

		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.Put(ctx, code, b)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent Put failed: %v", err)
			}
		}
		got, found, err := s.Get(ctx, code)
		if err != nil || !found || !bytes.Equal(got, b) {
			t.Fatalf("Get after concurrent Put: found=%v err=%v", found, err)
		}
	})

	t.Run("RejectEmptyCode", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put(ctx, nil, []byte("x")); !errors.Is(err, storage.ErrInvalidCode) {
			t.Fatalf("Put with empty code: got err=%v want ErrInvalidCode", err)
		}
		if _, _, err := s.Get(ctx, offer.Code{}); !errors.Is(err, storage.ErrInvalidCode) {
			t.Fatalf("Get with empty code: got err=%v want ErrInvalidCode", err)
		}
	})
}
