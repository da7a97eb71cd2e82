package offer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// HashAlg names the algorithm that produces the content hash of a payload.
type HashAlg string

const (
	SHA256   HashAlg = "sha256"
	SHA3_256 HashAlg = "sha3-256"
)

// ParseHashAlg returns the HashAlg for s. The empty string selects SHA256.
func ParseHashAlg(s string) (HashAlg, error) {
	switch HashAlg(s) {
	case "", SHA256:
		return SHA256, nil
	case SHA3_256:
		return SHA3_256, nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %q", s)
	}
}

// Hash is the content hash of a canonical offer payload.
type Hash struct {
	Alg    HashAlg
	Digest []byte
}

func (h Hash) String() string { return string(h.Alg) + ":" + hex.EncodeToString(h.Digest) }

// Sum hashes payload. It panics on a HashAlg that did not come from
// ParseHashAlg or one of the constants.
func (a HashAlg) Sum(payload []byte) Hash {
	switch a {
	case SHA256:
		s := sha256.Sum256(payload)
		return Hash{Alg: a, Digest: s[:]}
	case SHA3_256:
		s := sha3.Sum256(payload)
		return Hash{Alg: a, Digest: s[:]}
	default:
		panic(fmt.Sprintf("offer: unsupported hash algorithm %q", string(a)))
	}
}

// Deriver truncates a content hash to a fixed-width Code.
type Deriver struct {
	width int
}

// NewDeriver returns a Deriver producing codes of width bytes.
func NewDeriver(width int) (Deriver, error) {
	if width < 1 || width > MaxCodeWidth {
		return Deriver{}, fmt.Errorf("code width must be between 1 and %d, got %d", MaxCodeWidth, width)
	}
	return Deriver{width: width}, nil
}

func (d Deriver) Width() int { return d.width }

// Derive returns the first Width bytes of h's digest as a fresh Code.
func (d Deriver) Derive(h Hash) Code {
	out := make(Code, d.width)
	copy(out, h.Digest[:d.width])
	return out
}

// Scheme binds the hash algorithm and code width a deployment runs with.
// Backends that verify stored bytes against their code use it to recompute
// the code from a payload.
type Scheme struct {
	Alg     HashAlg
	Deriver Deriver
}

// NewScheme validates alg and width.
func NewScheme(alg string, width int) (Scheme, error) {
	a, err := ParseHashAlg(alg)
	if err != nil {
		return Scheme{}, err
	}
	d, err := NewDeriver(width)
	if err != nil {
		return Scheme{}, err
	}
	return Scheme{Alg: a, Deriver: d}, nil
}

// DefaultScheme is sha256 truncated to DefaultCodeWidth bytes.
func DefaultScheme() Scheme {
	return Scheme{Alg: SHA256, Deriver: Deriver{width: DefaultCodeWidth}}
}

func (s Scheme) Hash(payload []byte) Hash { return s.Alg.Sum(payload) }

func (s Scheme) Code(payload []byte) Code { return s.Deriver.Derive(s.Hash(payload)) }

func (s Scheme) Width() int { return s.Deriver.Width() }

// ParseCode parses s and checks it against the scheme's width.
func (s Scheme) ParseCode(str string) (Code, error) { return ParseCode(str, s.Width()) }
