// Package badgerkv stores offers in an embedded BadgerDB ordered key-value store.
//
// Records live under the key prefix "offers/" followed by the raw code bytes.
package badgerkv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
)

// Prefix is the partition every offer key starts with.
var Prefix = []byte("offers/")

const maxConflictRetries = 8

type Options struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir        string
	InMemory   bool
	SyncWrites bool
	// ZSTDLevel is the table compression level; zero keeps Badger's default.
	ZSTDLevel int
	// GCInterval is the value-log GC period; zero disables GC.
	GCInterval     time.Duration
	GCDiscardRatio float64
	Logger         *zap.Logger
}

// Store is a storage.Store backed by BadgerDB.
type Store struct {
	db  *badgerdb.DB
	log *zap.Logger

	mu     sync.RWMutex
	closed bool
	stop   context.CancelFunc
	wg     sync.WaitGroup
}

var _ storage.Store = (*Store)(nil)

// Open opens (creating if needed) a Badger store.
func Open(o Options) (*Store, error) {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var opts badgerdb.Options
	if o.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if o.Dir == "" {
			return nil, errors.New("badgerkv: dir is required")
		}
		if err := os.MkdirAll(o.Dir, 0o700); err != nil {
			return nil, fmt.Errorf("badgerkv: create dir: %w", err)
		}
		opts = badgerdb.DefaultOptions(o.Dir)
	}
	opts = opts.
		WithSyncWrites(o.SyncWrites).
		WithCompression(options.ZSTD).
		WithLogger(badgerLogger{log.Sugar()})
	if o.ZSTDLevel > 0 {
		opts = opts.WithZSTDCompressionLevel(o.ZSTDLevel)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerkv: open: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{db: db, log: log, stop: cancel}
	if o.GCInterval > 0 && !o.InMemory {
		ratio := o.GCDiscardRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.5
		}
		s.wg.Add(1)
		go s.gcLoop(ctx, o.GCInterval, ratio)
	}
	return s, nil
}

func key(code offer.Code) []byte {
	k := make([]byte, 0, len(Prefix)+len(code))
	k = append(k, Prefix...)
	return append(k, code...)
}

func (s *Store) Put(_ context.Context, code offer.Code, payload []byte) error {
	if err := storage.CheckCode(code); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}

	k := key(code)
	for attempt := 0; ; attempt++ {
		err := s.db.Update(func(txn *badgerdb.Txn) error {
			item, err := txn.Get(k)
			switch {
			case err == nil:
				return item.Value(func(existing []byte) error {
					if bytes.Equal(existing, payload) {
						return nil
					}
					return storage.ErrCollision
				})
			case errors.Is(err, badgerdb.ErrKeyNotFound):
				return txn.Set(k, payload)
			default:
				return err
			}
		})
		// A concurrent writer committed the same key first; re-read and compare.
		if errors.Is(err, badgerdb.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		if err != nil && !errors.Is(err, storage.ErrCollision) {
			return fmt.Errorf("badgerkv: put: %w", err)
		}
		return err
	}
}

func (s *Store) Get(_ context.Context, code offer.Code) ([]byte, bool, error) {
	if err := storage.CheckCode(code); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, storage.ErrClosed
	}

	var out []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key(code))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badgerkv: get: %w", err)
	}
	return out, true, nil
}

// Count returns the number of stored offers.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, storage.ErrClosed
	}
	n := 0
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = Prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.stop()
	s.wg.Wait()
	return s.db.Close()
}

func (s *Store) gcLoop(ctx context.Context, every time.Duration, ratio float64) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runGC(ratio)
		}
	}
}

// runGC rewrites value-log files until Badger reports nothing left to reclaim.
func (s *Store) runGC(ratio float64) {
	for {
		err := s.db.RunValueLogGC(ratio)
		if err == nil {
			continue
		}
		if !errors.Is(err, badgerdb.ErrNoRewrite) && !errors.Is(err, badgerdb.ErrRejected) {
			s.log.Warn("value log gc failed", zap.Error(err))
		}
		return
	}
}

type badgerLogger struct{ s *zap.SugaredLogger }

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf(f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.s.Debugf(f, v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.s.Debugf(f, v...) }
