// Package redisstore stores offers in Redis. Insert-if-absent is SETNX.
package redisstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
)

// DefaultPrefix namespaces offer keys within a shared Redis database.
const DefaultPrefix = "offers:"

// kv is the slice of Redis the store needs.
type kv interface {
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	Prefix       string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Store struct {
	kv     kv
	prefix string
}

var _ storage.Store = (*Store)(nil)

// Open connects to Redis and pings it. The returned close function closes the
// client.
func Open(ctx context.Context, cfg Config) (*Store, func() error, error) {
	if cfg.Addr == "" {
		return nil, nil, errors.New("redisstore: address cannot be empty")
	}
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redisstore: connect: %w", err)
	}
	return newStore(goRedis{client}, cfg.Prefix), client.Close, nil
}

func newStore(c kv, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{kv: c, prefix: prefix}
}

func (s *Store) key(code offer.Code) string { return s.prefix + code.String() }

func (s *Store) Put(ctx context.Context, code offer.Code, payload []byte) error {
	if err := storage.CheckCode(code); err != nil {
		return err
	}
	k := s.key(code)
	created, err := s.kv.SetNX(ctx, k, payload)
	if err != nil {
		return fmt.Errorf("redisstore: setnx: %w", err)
	}
	if created {
		return nil
	}
	existing, found, err := s.kv.Get(ctx, k)
	if err != nil {
		return fmt.Errorf("redisstore: get: %w", err)
	}
	if !found {
		return fmt.Errorf("redisstore: key %s vanished after SETNX", k)
	}
	if !bytes.Equal(existing, payload) {
		return storage.ErrCollision
	}
	return nil
}

func (s *Store) Get(ctx context.Context, code offer.Code) ([]byte, bool, error) {
	if err := storage.CheckCode(code); err != nil {
		return nil, false, err
	}
	b, found, err := s.kv.Get(ctx, s.key(code))
	if err != nil {
		return nil, false, fmt.Errorf("redisstore: get: %w", err)
	}
	return b, found, nil
}

type goRedis struct {
	client *redis.Client
}

func (g goRedis) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	return g.client.SetNX(ctx, key, value, 0).Result()
}

func (g goRedis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := g.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}
