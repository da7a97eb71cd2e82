package keys

import (
	"crypto/ed25519"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Verify reports whether signature is a valid signature by pk over hash.
//
// Malformed signatures and keys yield false; Verify never panics.
func Verify(signature []byte, pk PublicKey, hash []byte) bool {
	switch pk.Alg {
	case Ed25519:
		if len(pk.Key) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(pk.Key), hash, signature)
	case Dilithium3:
		if len(signature) != mode3.SignatureSize {
			return false
		}
		var key mode3.PublicKey
		if err := key.UnmarshalBinary(pk.Key); err != nil {
			return false
		}
		return mode3.Verify(&key, hash, signature)
	default:
		return false
	}
}

// Gate is a verifier bound to one public key for the life of the process.
type Gate struct {
	pk PublicKey
}

// NewGate copies pk, so later changes to the caller's slice cannot move the
// trust anchor.
func NewGate(pk PublicKey) (*Gate, error) {
	checked, err := newPublicKey(pk.Alg, pk.Key)
	if err != nil {
		return nil, err
	}
	return &Gate{pk: checked}, nil
}

// Verify checks signature over hash against the gate's key.
func (g *Gate) Verify(signature, hash []byte) bool {
	return Verify(signature, g.pk, hash)
}

// Alg is the scheme of the trusted key; it is safe to log.
func (g *Gate) Alg() Alg { return g.pk.Alg }
