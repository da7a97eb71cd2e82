// Package cidutil renders offer content hashes as CIDv1 strings.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/Chia-Network/offer-codes/offer"
)

func multihashCode(alg offer.HashAlg) (uint64, error) {
	switch alg {
	case offer.SHA256:
		return multihash.SHA2_256, nil
	case offer.SHA3_256:
		return multihash.SHA3_256, nil
	default:
		return 0, fmt.Errorf("cidutil: no multihash code for %q", string(alg))
	}
}

// PayloadCID returns the CIDv1 (raw codec) naming the payload h was computed over.
func PayloadCID(h offer.Hash) (cid.Cid, error) {
	code, err := multihashCode(h.Alg)
	if err != nil {
		return cid.Undef, err
	}
	mh, err := multihash.Encode(h.Digest, code)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// PayloadCIDString is PayloadCID rendered in its default (base32) form.
func PayloadCIDString(h offer.Hash) (string, error) {
	c, err := PayloadCID(h)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// Parse decodes a CID string back into the content hash it carries.
func Parse(s string) (offer.Hash, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return offer.Hash{}, fmt.Errorf("cidutil: %w", err)
	}
	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return offer.Hash{}, fmt.Errorf("cidutil: %w", err)
	}
	var alg offer.HashAlg
	switch decoded.Code {
	case multihash.SHA2_256:
		alg = offer.SHA256
	case multihash.SHA3_256:
		alg = offer.SHA3_256
	default:
		return offer.Hash{}, fmt.Errorf("cidutil: unsupported multihash %s", decoded.Name)
	}
	return offer.Hash{Alg: alg, Digest: decoded.Digest}, nil
}
