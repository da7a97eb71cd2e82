package badgerkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/registry"
	"github.com/Chia-Network/offer-codes/storage/testkit"
)

func TestConformanceInMemory(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		s, err := Open(Options{InMemory: true, Logger: zaptest.NewLogger(t)})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestConformanceOnDisk(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		s, err := Open(Options{Dir: t.TempDir(), ZSTDLevel: 3})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := []byte("durable offer")
	code := offer.DefaultScheme().Code(p)

	s, err := Open(Options{Dir: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, code, p))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, _, err = s.Get(ctx, code)
	require.ErrorIs(t, err, storage.ErrClosed)

	s, err = Open(Options{Dir: dir})
	require.NoError(t, err)
	defer s.Close()
	got, found, err := s.Get(ctx, code)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, p, got)

	n, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestRegistrySettings(t *testing.T) {
	_, _, err := registry.Open(context.Background(), "badger", registry.UsageServer, registry.Settings{}, nil)
	require.Error(t, err, "dir is required on disk")

	s, closeFn, err := registry.Open(context.Background(), "badger", registry.UsageServer,
		registry.Settings{"in_memory": "true"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, s)
	require.NoError(t, closeFn())

	_, _, err = registry.Open(context.Background(), "badger", registry.UsageServer,
		registry.Settings{"in_memory": "maybe"}, nil)
	require.Error(t, err)
}
