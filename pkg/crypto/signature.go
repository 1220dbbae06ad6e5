package crypto

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/nfb-ledger/pkg/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// Sizes of the values exchanged by Sign and VerifySignature.
const (
	DigestSize    = types.HashSize
	PubKeySize    = 33
	SignatureSize = 64
	secretSize    = 32
)

var ErrDigestSize = errors.New("digest must be 32 bytes")

// Signer authenticates ledger requests: it signs 32-byte digests with
// BIP-340 style Schnorr over secp256k1 and exposes the compressed key.
type Signer interface {
	Sign(digest []byte) ([]byte, error)
	PublicKey() []byte
}

// PrivateKey is a secp256k1 secret scalar. It implements Signer.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

var _ Signer = (*PrivateKey)(nil)

// GenerateKey returns a fresh random key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes wraps a 32-byte secret.
func PrivateKeyFromBytes(secret []byte) (*PrivateKey, error) {
	if len(secret) != secretSize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", secretSize, len(secret))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(secret)}, nil
}

func (pk *PrivateKey) Sign(digest []byte) ([]byte, error) {
	if len(digest) != DigestSize {
		return nil, fmt.Errorf("%w: got %d", ErrDigestSize, len(digest))
	}
	sig, err := schnorr.Sign(pk.key, digest)
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

func (pk *PrivateKey) PublicKey() []byte { return pk.key.PubKey().SerializeCompressed() }

// Address is the account this key controls.
func (pk *PrivateKey) Address() types.Address { return AddressFromPubKey(pk.PublicKey()) }

// Serialize returns the 32-byte secret. Callers own the copy.
func (pk *PrivateKey) Serialize() []byte { return pk.key.Serialize() }

// Zero clears the secret from memory. The key is unusable afterwards.
func (pk *PrivateKey) Zero() { pk.key.Zero() }

// VerifySignature reports whether sig is a valid signature of digest by the
// compressed public key pub. Malformed inputs verify as false.
func VerifySignature(digest, sig, pub []byte) bool {
	if len(digest) != DigestSize || len(sig) != SignatureSize || len(pub) != PubKeySize {
		return false
	}
	pubKey, err := secp256k1.ParsePubKey(pub)
	if err != nil {
		return false
	}
	s, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false
	}
	return s.Verify(digest, pubKey)
}
