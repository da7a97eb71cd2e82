// Package codec implements the external text form of an offer.
//
// An offer is rendered as bech32m with human-readable part "offer". The data
// part is a version byte followed by the snappy-compressed canonical payload.
package codec

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/golang/snappy"

	"github.com/Chia-Network/offer-codes/offer"
)

const (
	// HRP is the human-readable prefix of every offer text.
	HRP = "offer"
	// Version is the only data layout this codec reads and writes.
	Version byte = 1
	// DefaultMaxPayload bounds the decompressed payload size.
	DefaultMaxPayload = 8 << 20
)

var (
	ErrWrongPrefix    = errors.New("codec: wrong human-readable prefix")
	ErrNonCanonical   = errors.New("codec: text is not canonical bech32m")
	ErrUnknownVersion = errors.New("codec: unknown data version")
	ErrEmptyPayload   = errors.New("codec: empty payload")
	ErrTooLarge       = errors.New("codec: payload too large")
)

// Offer is the default offer.Codec.
type Offer struct {
	// MaxPayload caps the decompressed payload; zero means DefaultMaxPayload.
	MaxPayload int
}

var _ offer.Codec = Offer{}

// New returns an Offer codec with the default limits.
func New() Offer { return Offer{} }

func (c Offer) maxPayload() int {
	if c.MaxPayload > 0 {
		return c.MaxPayload
	}
	return DefaultMaxPayload
}

// Decode parses offer text into its canonical payload.
//
// Only the exact text Encode would produce is accepted: lowercase, bech32m
// checksum, prefix "offer".
func (c Offer) Decode(text string) ([]byte, error) {
	hrp, data5, err := bech32.DecodeNoLimit(text)
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}
	if hrp != HRP {
		return nil, fmt.Errorf("%w: %q", ErrWrongPrefix, hrp)
	}
	// DecodeNoLimit accepts upper case and the original bech32 checksum.
	if again, err := bech32.EncodeM(hrp, data5); err != nil || again != text {
		return nil, ErrNonCanonical
	}

	data, err := bech32.ConvertBits(data5, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	if data[0] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, data[0])
	}

	compressed := data[1:]
	n, err := snappy.DecodedLen(compressed)
	if err != nil {
		return nil, fmt.Errorf("codec: corrupt compression: %w", err)
	}
	if n > c.maxPayload() {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, n, c.maxPayload())
	}
	if n == 0 {
		return nil, ErrEmptyPayload
	}
	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("codec: corrupt compression: %w", err)
	}
	return payload, nil
}

// Encode renders payload as offer text.
func (c Offer) Encode(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", ErrEmptyPayload
	}
	if len(payload) > c.maxPayload() {
		return "", fmt.Errorf("%w: %d > %d", ErrTooLarge, len(payload), c.maxPayload())
	}
	data := make([]byte, 0, 1+snappy.MaxEncodedLen(len(payload)))
	data = append(data, Version)
	data = append(data, snappy.Encode(nil, payload)...)

	data5, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("codec: %w", err)
	}
	text, err := bech32.EncodeM(HRP, data5)
	if err != nil {
		return "", fmt.Errorf("codec: %w", err)
	}
	return text, nil
}
