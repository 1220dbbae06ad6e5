// Package types defines core primitive types for the NFB ledger.
package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HashSize is the length of a BLAKE3-256 digest.
const HashSize = 32

// Hash is a 256-bit digest, used for request signing digests.
type Hash [HashSize]byte

func (h Hash) IsZero() bool { return h == Hash{} }

// String returns the digest as lowercase hex without a prefix.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// MarshalText implements encoding.TextMarshaler; JSON gets a hex string.
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText accepts hex with or without 0x. Empty text yields the zero hash.
func (h *Hash) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*h = Hash{}
		return nil
	}
	parsed, err := HexToHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash parses a 64-character hex digest, optionally 0x-prefixed.
func HexToHash(s string) (Hash, error) {
	var h Hash
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 2*HashSize {
		return h, fmt.Errorf("hash must be %d hex characters, got %d", 2*HashSize, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	return h, nil
}
