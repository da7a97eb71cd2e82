package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore keeps Ed25519 signing seeds in a local directory, one hex-encoded
// seed per file (<dir>/<name>.key, mode 0600).
//
// It exists for the CLI signer; the server never reads it.
type KeyStore struct {
	Directory string
}

func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".offer-codes", "keys"), nil
}

// OpenKeyStore uses DefaultDirectory when directory is empty. Nothing is
// created until a key is written.
func OpenKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) keyPath(name string) string {
	return filepath.Join(ks.Directory, name+".key")
}

func CheckKeyName(name string) error {
	if name == "" {
		return errors.New("key name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in key name", char)
	}
	return nil
}

// Init writes seed under name and returns its public key. An existing key is
// only replaced when overwrite is set.
func (ks *KeyStore) Init(name string, seed []byte, overwrite bool) (PublicKey, string, error) {
	if err := CheckKeyName(name); err != nil {
		return PublicKey{}, "", err
	}
	pk, err := PublicKeyFromSeed(seed)
	if err != nil {
		return PublicKey{}, "", err
	}
	path := ks.keyPath(name)
	if err := writeSeed(path, seed, overwrite); err != nil {
		return PublicKey{}, "", err
	}
	return pk, path, nil
}

// Export returns the public key for a stored seed.
func (ks *KeyStore) Export(name string) (PublicKey, error) {
	if err := CheckKeyName(name); err != nil {
		return PublicKey{}, err
	}
	seed, err := readSeed(ks.keyPath(name))
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKeyFromSeed(seed)
}

// LoadSeed resolves a signer in priority order: explicit hex, key file, then
// a named key in the store.
func (ks *KeyStore) LoadSeed(seedHex, name, keyFile string) ([]byte, error) {
	switch {
	case seedHex != "":
		return ParseSeedHex(seedHex)
	case keyFile != "":
		return readSeed(keyFile)
	case name != "":
		if err := CheckKeyName(name); err != nil {
			return nil, err
		}
		return readSeed(ks.keyPath(name))
	default:
		return nil, errors.New("no signer provided")
	}
}

// List returns the names of stored keys, sorted.
func (ks *KeyStore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".key") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".key"))
	}
	sort.Strings(names)
	return names, nil
}

func writeSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func readSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}
