// Package localfs stores offers as files, one per code.
package localfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
)

// Store keeps each record at <root>/<first hex byte>/<code hex>.
//
// Records are immutable once linked into place; a record file is never
// visible half-written.
type Store struct {
	root string
}

var _ storage.Store = (*Store)(nil)

// New constructs a filesystem store rooted at root. The directory will be
// created if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(ctx context.Context, code offer.Code, payload []byte) error {
	if err := storage.CheckCode(code); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.pathFor(code)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o444); err != nil {
		return err
	}

	// Link fails if the name exists, so the first writer wins atomically.
	if err := os.Link(tmpName, path); err != nil {
		if !os.IsExist(err) {
			return err
		}
		existing, rerr := os.ReadFile(path)
		if rerr != nil {
			return fmt.Errorf("localfs: read existing %s: %w", code, rerr)
		}
		if !bytes.Equal(existing, payload) {
			return storage.ErrCollision
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, code offer.Code) ([]byte, bool, error) {
	if err := storage.CheckCode(code); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(s.pathFor(code))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) pathFor(code offer.Code) string {
	h := code.String()
	return filepath.Join(s.root, h[:2], h)
}
