package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/memstore"
	"github.com/Chia-Network/offer-codes/storage/testkit"
)

type failingStore struct{ err error }

func (f failingStore) Put(context.Context, offer.Code, []byte) error { return f.err }
func (f failingStore) Get(context.Context, offer.Code) ([]byte, bool, error) {
	return nil, false, f.err
}

type countingStore struct {
	storage.Store
	gets int
}

func (c *countingStore) Get(ctx context.Context, code offer.Code) ([]byte, bool, error) {
	c.gets++
	return c.Store.Get(ctx, code)
}

func TestMultiStoreConformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		return storage.MultiStore{Stores: []storage.Store{memstore.New(), memstore.New()}}
	})
}

func TestReplicatingStoreConformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		return storage.ReplicatingStore{Backends: []storage.NamedStore{
			{Name: "a", Store: memstore.New()},
			{Name: "b", Store: memstore.New()},
		}}
	})
}

func TestCachedStoreConformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		c, err := storage.NewCachedStore(context.Background(), memstore.New(), storage.CacheConfig{LifeWindow: time.Minute})
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	})
}

func TestMultiStoreWritesFirstReadsInOrder(t *testing.T) {
	ctx := context.Background()
	scheme := offer.DefaultScheme()
	primary, secondary := memstore.New(), memstore.New()
	m := storage.MultiStore{Stores: []storage.Store{primary, secondary}}

	a := []byte("only in secondary")
	require.NoError(t, secondary.Put(ctx, scheme.Code(a), a))

	got, found, err := m.Get(ctx, scheme.Code(a))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, a, got)

	b := []byte("written through multi")
	require.NoError(t, m.Put(ctx, scheme.Code(b), b))
	require.Equal(t, 1, primary.Len())
	require.Equal(t, 1, secondary.Len())

	require.Error(t, storage.MultiStore{}.Put(ctx, scheme.Code(b), b))
}

func TestReplicatingStoreWritesAll(t *testing.T) {
	ctx := context.Background()
	scheme := offer.DefaultScheme()
	a, b := memstore.New(), memstore.New()
	r := storage.ReplicatingStore{Backends: []storage.NamedStore{{Name: "a", Store: a}, {Name: "b", Store: b}}}

	p := []byte("replicated")
	require.NoError(t, r.Put(ctx, scheme.Code(p), p))
	require.Equal(t, 1, a.Len())
	require.Equal(t, 1, b.Len())

	boom := errors.New("boom")
	broken := storage.ReplicatingStore{Backends: []storage.NamedStore{{Name: "a", Store: a}, {Name: "bad", Store: failingStore{err: boom}}}}
	err := broken.Put(ctx, scheme.Code(p), p)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), `"bad"`)

	require.Error(t, storage.ReplicatingStore{}.Put(ctx, scheme.Code(p), p))
}

func TestCachedStoreServesHitsFromCache(t *testing.T) {
	ctx := context.Background()
	scheme := offer.DefaultScheme()
	inner := &countingStore{Store: memstore.New()}
	c, err := storage.NewCachedStore(ctx, inner, storage.CacheConfig{})
	require.NoError(t, err)
	defer c.Close()

	missing := scheme.Code([]byte("missing"))
	for i := 0; i < 2; i++ {
		_, found, err := c.Get(ctx, missing)
		require.NoError(t, err)
		require.False(t, found)
	}
	require.Equal(t, 2, inner.gets, "absent records are not cached")

	p := []byte("cached offer")
	require.NoError(t, inner.Store.Put(ctx, scheme.Code(p), p))
	for i := 0; i < 3; i++ {
		got, found, err := c.Get(ctx, scheme.Code(p))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, p, got)
	}
	require.Equal(t, 3, inner.gets)
}

func TestCachedStorePropagatesErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	c, err := storage.NewCachedStore(ctx, failingStore{err: boom}, storage.CacheConfig{})
	require.NoError(t, err)
	defer c.Close()

	code := offer.DefaultScheme().Code([]byte("x"))
	_, _, err = c.Get(ctx, code)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, c.Put(ctx, code, []byte("x")), boom)

	_, err = storage.NewCachedStore(ctx, nil, storage.CacheConfig{})
	require.Error(t, err)
}

func TestMultiStorePutKeepsFallbackRecord(t *testing.T) {
	ctx := context.Background()
	primary, legacy := memstore.New(), memstore.New()
	m := storage.MultiStore{Stores: []storage.Store{primary, legacy}}
	code := offer.Code{0xaa}

	first := []byte("first writer")
	require.NoError(t, legacy.Put(ctx, code, first))

	require.ErrorIs(t, m.Put(ctx, code, []byte("second writer")), storage.ErrCollision)
	require.Equal(t, 0, primary.Len())

	got, found, err := m.Get(ctx, code)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, first, got)

	require.NoError(t, m.Put(ctx, code, first))
	require.Equal(t, 0, primary.Len(), "identical bytes already present downstream")

	boom := errors.New("boom")
	broken := storage.MultiStore{Stores: []storage.Store{primary, failingStore{err: boom}}}
	require.ErrorIs(t, broken.Put(ctx, code, first), boom)
}

func TestReplicatingStorePutChecksAllBeforeWriting(t *testing.T) {
	ctx := context.Background()
	a, b := memstore.New(), memstore.New()
	r := storage.ReplicatingStore{Backends: []storage.NamedStore{{Name: "a", Store: a}, {Name: "b", Store: b}}}
	code := offer.Code{0xaa}

	first := []byte("first writer")
	require.NoError(t, b.Put(ctx, code, first))

	err := r.Put(ctx, code, []byte("second writer"))
	require.ErrorIs(t, err, storage.ErrCollision)
	require.Contains(t, err.Error(), `"b"`)
	require.Equal(t, 0, a.Len(), "no backend written on collision")

	got, found, err := r.Get(ctx, code)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, first, got)

	require.NoError(t, r.Put(ctx, code, first))
	require.Equal(t, 1, a.Len())
}
