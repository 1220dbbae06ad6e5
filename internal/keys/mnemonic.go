// Package keys manages operator signing keys: BIP-39 mnemonics, BIP-32
// derivation and passphrase-sealed key files on disk.
package keys

import (
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

const (
	// MnemonicEntropyBits yields 24-word mnemonics.
	MnemonicEntropyBits = 256

	// SeedSize is the BIP-39 seed length in bytes.
	SeedSize = 64
)

// ErrInvalidMnemonic is returned for a mnemonic with unknown words or a bad checksum.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// NewMnemonic creates a fresh 24-word mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	m, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return m, nil
}

// ValidMnemonic reports whether m has valid words and checksum.
func ValidMnemonic(m string) bool {
	return bip39.IsMnemonicValid(m)
}

// SeedFromMnemonic derives the 64-byte BIP-39 seed.
func SeedFromMnemonic(m, passphrase string) ([]byte, error) {
	if !ValidMnemonic(m) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(m, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}
