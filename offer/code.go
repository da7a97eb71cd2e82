package offer

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// DefaultCodeWidth is the code width of the deployed service.
	DefaultCodeWidth = 12
	// MaxCodeWidth is the digest size of every supported hash algorithm.
	MaxCodeWidth = 32
)

// Code is the fixed-width identifier under which an offer is stored and fetched.
//
// The text form is lowercase hex.
type Code []byte

func (c Code) String() string { return hex.EncodeToString(c) }

// Width returns the number of bytes in c.
func (c Code) Width() int { return len(c) }

func (c Code) Equal(other Code) bool { return bytes.Equal(c, other) }

// Valid reports whether c has exactly width bytes.
func (c Code) Valid(width int) bool { return width > 0 && len(c) == width }

func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts any width up to MaxCodeWidth; callers enforce their
// configured width with Valid.
func (c *Code) UnmarshalText(text []byte) error {
	parsed, err := parseCodeHex(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCode decodes a hex code (optionally 0x-prefixed) and checks its width.
func ParseCode(s string, width int) (Code, error) {
	c, err := parseCodeHex(s)
	if err != nil {
		return nil, err
	}
	if !c.Valid(width) {
		return nil, fmt.Errorf("code must be %d bytes, got %d", width, len(c))
	}
	return c, nil
}

func parseCodeHex(s string) (Code, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, fmt.Errorf("empty code")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid code hex: %w", err)
	}
	if len(b) > MaxCodeWidth {
		return nil, fmt.Errorf("code exceeds %d bytes", MaxCodeWidth)
	}
	return Code(b), nil
}
