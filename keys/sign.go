package keys

import (
	"crypto/ed25519"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// SignEd25519 signs a content hash.
func SignEd25519(hash []byte, privateKey ed25519.PrivateKey) []byte {
	return ed25519.Sign(privateKey, hash)
}

// SignDilithium3 signs a content hash with a post-quantum key.
func SignDilithium3(hash []byte, privateKey *mode3.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("missing private key")
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(privateKey, hash, sig)
	return sig, nil
}

// GenerateDilithium3Keypair returns a new Dilithium3 keypair.
func GenerateDilithium3Keypair(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}

// Dilithium3PublicKey wraps a circl key as a PublicKey.
func Dilithium3PublicKey(pk *mode3.PublicKey) (PublicKey, error) {
	raw, err := pk.MarshalBinary()
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKey{Alg: Dilithium3, Key: raw}, nil
}
