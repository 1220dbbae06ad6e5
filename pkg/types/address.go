package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// AddressSize is the length of an address in bytes.
const AddressSize = 20

// Bech32 prefixes for each network.
const (
	MainnetHRP = "nfb"
	TestnetHRP = "tnfb"
)

// activeHRP selects the prefix used when formatting addresses. It is set
// once at startup and read thereafter.
var activeHRP = MainnetHRP

// SetAddressHRP selects the prefix used by Address.String.
func SetAddressHRP(hrp string) { activeHRP = hrp }

// GetAddressHRP returns the prefix used by Address.String.
func GetAddressHRP() string { return activeHRP }

// Address identifies an account or a collaborator (registry, payment token,
// resolver, purchase handler). Accounts derive it from a public key;
// collaborators derive it from a name.
type Address [AddressSize]byte

// ZeroAddress is the null address. Minting or selling to it is rejected.
var ZeroAddress Address

func (a Address) IsZero() bool { return a == ZeroAddress }

// String formats the address as bech32 under the active prefix.
func (a Address) String() string {
	s, err := Bech32Encode(activeHRP, a[:])
	if err != nil {
		return "0x" + a.Hex()
	}
	return s
}

// Hex returns the address as 40 hex characters without a prefix.
func (a Address) Hex() string { return hex.EncodeToString(a[:]) }

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte { return append([]byte(nil), a[:]...) }

// MarshalText implements encoding.TextMarshaler. JSON values and map keys
// both use the bech32 form.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText accepts any form ParseAddress does. Empty text decodes to
// the zero address.
func (a *Address) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = ZeroAddress
		return nil
	}
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

var errEmptyAddress = errors.New("empty address")

// ParseAddress parses a bech32 address under either network prefix, or
// 40 hex characters with an optional 0x prefix.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, errEmptyAddress
	}
	if h := strings.TrimPrefix(s, "0x"); len(h) == 2*AddressSize && isHex(h) {
		return HexToAddress(h)
	}

	hrp, data, err := Bech32Decode(s)
	switch {
	case err != nil:
		return Address{}, fmt.Errorf("invalid bech32 address: %w", err)
	case !KnownHRP(hrp):
		return Address{}, fmt.Errorf("unknown address prefix %q", hrp)
	case len(data) != AddressSize:
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(data))
	}
	var a Address
	copy(a[:], data)
	return a, nil
}

// HexToAddress decodes exactly 40 hex characters.
func HexToAddress(s string) (Address, error) {
	var a Address
	if len(s) != 2*AddressSize {
		return a, fmt.Errorf("address must be %d hex characters, got %d", 2*AddressSize, len(s))
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return Address{}, fmt.Errorf("invalid hex: %w", err)
	}
	return a, nil
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
