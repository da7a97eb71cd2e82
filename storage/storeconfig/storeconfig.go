// Package storeconfig opens one or more registered backends from configuration.
//
// Callers still need to link desired backend plugins via blank imports.
package storeconfig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/registry"
)

// Config describes how to open the store.
//
// WritePolicy values:
// - "first" (default): write only to the first backend; reads fall back in order
// - "all": write to all backends; reads fall back in order
//
// Example:
//
//	write_policy: all
//	backends:
//	  - name: badger
//	    settings: {dir: /var/lib/offer-codes}
//	  - name: postgres
//	    id: replica
//	    settings: {dsn: "postgres://..."}
//	cache:
//	  enabled: true
type Config struct {
	WritePolicy string          `yaml:"write_policy,omitempty" json:"write_policy,omitempty"`
	Backends    []BackendConfig `yaml:"backends" json:"backends"`
	Cache       CacheConfig     `yaml:"cache,omitempty" json:"cache,omitempty"`
}

type BackendConfig struct {
	// Name is the registry backend name to open (e.g. "badger", "sqlite", "grpc").
	Name string `yaml:"name" json:"name"`
	// ID is an optional stable alias used in errors. If empty, Name is used.
	ID       string            `yaml:"id,omitempty" json:"id,omitempty"`
	Settings map[string]string `yaml:"settings,omitempty" json:"settings,omitempty"`
}

type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	LifeWindow time.Duration `yaml:"life_window,omitempty" json:"life_window,omitempty"`
	MaxSizeMB  int           `yaml:"max_size_mb,omitempty" json:"max_size_mb,omitempty"`
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("storeconfig: at least one backend is required")
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return errors.New("storeconfig: backend name is required")
		}
		id := b.id()
		if _, ok := seen[id]; ok {
			return fmt.Errorf("storeconfig: duplicate backend id %q", id)
		}
		seen[id] = struct{}{}
	}
	if c.Cache.LifeWindow < 0 || c.Cache.MaxSizeMB < 0 {
		return errors.New("storeconfig: cache sizes must not be negative")
	}
	switch c.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return fmt.Errorf("storeconfig: invalid write_policy %q", c.WritePolicy)
	}
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

// Open opens every backend in order and composes them per WritePolicy. The
// returned close function releases all of them, last opened first.
func (c Config) Open(ctx context.Context, usage registry.Usage, log *zap.Logger) (storage.Store, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	named := make([]storage.NamedStore, 0, len(c.Backends))
	closers := make([]func() error, 0, len(c.Backends)+1)
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	for _, b := range c.Backends {
		s, closeFn, err := registry.Open(ctx, b.Name, usage, registry.Settings(b.Settings), log)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("storeconfig: open %q: %w", b.id(), err)
		}
		named = append(named, storage.NamedStore{Name: b.id(), Store: s})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	var out storage.Store
	switch {
	case len(named) == 1:
		out = named[0].Store
	case c.WritePolicy == "all":
		out = storage.ReplicatingStore{Backends: named}
	default:
		stores := make([]storage.Store, 0, len(named))
		for _, n := range named {
			stores = append(stores, n.Store)
		}
		out = storage.MultiStore{Stores: stores}
	}

	if c.Cache.Enabled {
		cached, err := storage.NewCachedStore(ctx, out, storage.CacheConfig{
			LifeWindow: c.Cache.LifeWindow,
			MaxSizeMB:  c.Cache.MaxSizeMB,
		})
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		closers = append(closers, cached.Close)
		out = cached
	}
	return out, closeAll, nil
}
