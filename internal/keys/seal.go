package keys

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltSize is the length of the random Argon2id salt.
const SaltSize = 32

// Sealed layout: salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | ciphertext.
const sealHeaderSize = SaltSize + 4 + 4 + 1

// ErrBadPassphrase is returned when a sealed blob cannot be opened.
var ErrBadPassphrase = errors.New("wrong passphrase or corrupted key file")

// Params holds the Argon2id cost parameters stored alongside each sealed blob.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns the cost parameters used for new key files.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
	}
}

func (p Params) key(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Seal encrypts plaintext under passphrase with Argon2id and XChaCha20-Poly1305.
func Seal(plaintext, passphrase []byte, p Params) ([]byte, error) {
	out := make([]byte, sealHeaderSize+chacha20poly1305.NonceSizeX, sealHeaderSize+chacha20poly1305.NonceSizeX+len(plaintext)+chacha20poly1305.Overhead)
	salt := out[:SaltSize]
	nonce := out[sealHeaderSize:]
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	binary.LittleEndian.PutUint32(out[SaltSize:], p.Memory)
	binary.LittleEndian.PutUint32(out[SaltSize+4:], p.Iterations)
	out[SaltSize+8] = p.Parallelism

	key := p.key(passphrase, salt)
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return aead.Seal(out, nonce, plaintext, out[:sealHeaderSize]), nil
}

// Open reverses Seal. The header is authenticated as associated data, so
// tampering with the stored cost parameters also fails with ErrBadPassphrase.
func Open(sealed, passphrase []byte) ([]byte, error) {
	minSize := sealHeaderSize + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	if len(sealed) < minSize {
		return nil, fmt.Errorf("sealed data too short: %d bytes, need at least %d", len(sealed), minSize)
	}
	p := Params{
		Memory:      binary.LittleEndian.Uint32(sealed[SaltSize:]),
		Iterations:  binary.LittleEndian.Uint32(sealed[SaltSize+4:]),
		Parallelism: sealed[SaltSize+8],
	}
	if p.Iterations == 0 || p.Parallelism == 0 {
		return nil, ErrBadPassphrase
	}
	nonce := sealed[sealHeaderSize : sealHeaderSize+chacha20poly1305.NonceSizeX]

	key := p.key(passphrase, sealed[:SaltSize])
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, sealed[sealHeaderSize+chacha20poly1305.NonceSizeX:], sealed[:sealHeaderSize])
	if err != nil {
		return nil, ErrBadPassphrase
	}
	return plaintext, nil
}
