package types

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Bech32Encode encodes a human-readable part and 8-bit data into a bech32
// string (BIP-173).
func Bech32Encode(hrp string, data []byte) (string, error) {
	if err := checkHRP(hrp); err != nil {
		return "", err
	}
	s, err := bech32.EncodeFromBase256(hrp, data)
	if err != nil {
		return "", fmt.Errorf("bech32: %w", err)
	}
	return s, nil
}

// Bech32Decode decodes a bech32 string into its human-readable part and
// 8-bit data. Mixed-case input is rejected.
func Bech32Decode(s string) (string, []byte, error) {
	if s == "" {
		return "", nil, fmt.Errorf("bech32: empty string")
	}
	hrp, data, err := bech32.DecodeToBase256(s)
	if err != nil {
		return "", nil, fmt.Errorf("bech32: %w", err)
	}
	return hrp, data, nil
}

// KnownHRP reports whether hrp is one of the ledger's address prefixes.
func KnownHRP(hrp string) bool {
	return hrp == MainnetHRP || hrp == TestnetHRP
}

func checkHRP(hrp string) error {
	if hrp == "" {
		return fmt.Errorf("bech32: empty HRP")
	}
	for _, c := range hrp {
		if c < 33 || c > 126 {
			return fmt.Errorf("bech32: invalid HRP character %q", c)
		}
	}
	return nil
}
