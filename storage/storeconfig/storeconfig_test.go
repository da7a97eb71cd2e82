package storeconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
	_ "github.com/Chia-Network/offer-codes/storage/memstore"
	"github.com/Chia-Network/offer-codes/storage/registry"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "no backends", cfg: Config{}, wantErr: true},
		{name: "missing name", cfg: Config{Backends: []BackendConfig{{}}}, wantErr: true},
		{name: "duplicate id", cfg: Config{Backends: []BackendConfig{{Name: "memory"}, {Name: "memory"}}}, wantErr: true},
		{name: "distinct ids", cfg: Config{Backends: []BackendConfig{{Name: "memory"}, {Name: "memory", ID: "second"}}}},
		{name: "bad policy", cfg: Config{WritePolicy: "some", Backends: []BackendConfig{{Name: "memory"}}}, wantErr: true},
		{name: "negative cache", cfg: Config{Backends: []BackendConfig{{Name: "memory"}}, Cache: CacheConfig{MaxSizeMB: -1}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestOpenComposes(t *testing.T) {
	ctx := context.Background()
	backends := []BackendConfig{{Name: "memory"}, {Name: "memory", ID: "replica"}}

	s, closeFn, err := Config{Backends: backends[:1]}.Open(ctx, registry.UsageServer, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, closeFn())
	require.NotNil(t, s)

	s, closeFn, err = Config{Backends: backends}.Open(ctx, registry.UsageServer, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.IsType(t, storage.MultiStore{}, s)
	require.NoError(t, closeFn())

	s, closeFn, err = Config{WritePolicy: "all", Backends: backends}.Open(ctx, registry.UsageServer, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.IsType(t, storage.ReplicatingStore{}, s)
	require.NoError(t, closeFn())

	s, closeFn, err = Config{Backends: backends, Cache: CacheConfig{Enabled: true}}.Open(ctx, registry.UsageServer, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.IsType(t, &storage.CachedStore{}, s)

	p := []byte("through config")
	code := offer.DefaultScheme().Code(p)
	require.NoError(t, s.Put(ctx, code, p))
	got, found, err := s.Get(ctx, code)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, p, got)
	require.NoError(t, closeFn())
}

func TestOpenUnknownBackend(t *testing.T) {
	_, _, err := Config{Backends: []BackendConfig{{Name: "memory"}, {Name: "nope"}}}.Open(context.Background(), registry.UsageServer, zaptest.NewLogger(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), `"nope"`)
}
