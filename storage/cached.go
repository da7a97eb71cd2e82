package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/golang/snappy"

	"github.com/Chia-Network/offer-codes/offer"
)

// CacheConfig sizes the read-through cache in front of a Store.
type CacheConfig struct {
	// LifeWindow is how long an entry stays cached; zero means 10 minutes.
	LifeWindow time.Duration
	// MaxSizeMB is a hard cap on cache memory; zero means unbounded.
	MaxSizeMB int
}

// CachedStore caches present records of an inner Store in memory.
//
// Entries are snappy-compressed. Only found records are cached, so an offer
// stored through another process is visible on the next Get.
type CachedStore struct {
	inner Store
	cache *bigcache.BigCache
}

var _ Store = (*CachedStore)(nil)

func NewCachedStore(ctx context.Context, inner Store, cfg CacheConfig) (*CachedStore, error) {
	if inner == nil {
		return nil, errors.New("storage: CachedStore needs an inner store")
	}
	life := cfg.LifeWindow
	if life <= 0 {
		life = 10 * time.Minute
	}
	bc := bigcache.DefaultConfig(life)
	bc.HardMaxCacheSize = cfg.MaxSizeMB
	bc.Verbose = false
	cache, err := bigcache.New(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("storage: create cache: %w", err)
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

func (c *CachedStore) Put(ctx context.Context, code offer.Code, payload []byte) error {
	if err := c.inner.Put(ctx, code, payload); err != nil {
		return err
	}
	c.remember(code, payload)
	return nil
}

func (c *CachedStore) Get(ctx context.Context, code offer.Code) ([]byte, bool, error) {
	if entry, err := c.cache.Get(code.String()); err == nil {
		if payload, derr := snappy.Decode(nil, entry); derr == nil {
			return payload, true, nil
		}
		// Undecodable entry: fall through to the inner store.
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, fmt.Errorf("storage: cache: %w", err)
	}

	payload, found, err := c.inner.Get(ctx, code)
	if err != nil || !found {
		return nil, found, err
	}
	c.remember(code, payload)
	return payload, true, nil
}

func (c *CachedStore) remember(code offer.Code, payload []byte) {
	// A full cache only costs a later miss.
	_ = c.cache.Set(code.String(), snappy.Encode(nil, payload))
}

// Close releases the cache. The inner store is not closed.
func (c *CachedStore) Close() error { return c.cache.Close() }
