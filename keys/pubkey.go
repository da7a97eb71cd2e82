package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Alg names a signature scheme.
type Alg string

const (
	Ed25519    Alg = "ed25519"
	Dilithium3 Alg = "dilithium3"
)

// PublicKey is the trust anchor a Gate verifies against.
type PublicKey struct {
	Alg Alg
	Key []byte
}

// String renders the key as "<alg>:<base64>", the form ParsePublicKey accepts.
func (pk PublicKey) String() string {
	return string(pk.Alg) + ":" + base64.StdEncoding.EncodeToString(pk.Key)
}

// ParsePublicKey accepts:
//   - ed25519:<base64>
//   - dilithium3:<base64>
//   - bare hex, where the decoded length selects the scheme
func ParsePublicKey(s string) (PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PublicKey{}, fmt.Errorf("empty public key")
	}

	alg, enc, ok := strings.Cut(s, ":")
	if !ok {
		raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return PublicKey{}, fmt.Errorf("public key is neither <alg>:<base64> nor hex: %w", err)
		}
		switch len(raw) {
		case ed25519.PublicKeySize:
			return newPublicKey(Ed25519, raw)
		case mode3.PublicKeySize:
			return newPublicKey(Dilithium3, raw)
		default:
			return PublicKey{}, fmt.Errorf("hex public key has unsupported length %d", len(raw))
		}
	}

	raw, err := decodeBase64(enc)
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid public key base64: %w", err)
	}
	return newPublicKey(Alg(alg), raw)
}

func newPublicKey(alg Alg, raw []byte) (PublicKey, error) {
	switch alg {
	case Ed25519:
		if len(raw) != ed25519.PublicKeySize {
			return PublicKey{}, fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
		}
	case Dilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(raw); err != nil {
			return PublicKey{}, fmt.Errorf("invalid dilithium3 public key: %w", err)
		}
	default:
		return PublicKey{}, fmt.Errorf("unsupported public key algorithm %q", string(alg))
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return PublicKey{Alg: alg, Key: out}, nil
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
