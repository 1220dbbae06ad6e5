package keys

import (
	"fmt"

	"github.com/Klingon-tech/nfb-ledger/pkg/crypto"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
	"github.com/tyler-smith/go-bip32"
)

// Operator keys live at m/44'/7323'/account'/0/index.
const (
	PurposeBIP44 = bip32.FirstHardenedChild + 44
	CoinTypeNFB  = bip32.FirstHardenedChild + 7323
)

// Key is a BIP-32 extended key.
type Key struct {
	k *bip32.Key
}

// MasterKey builds the root key from a BIP-39 seed.
func MasterKey(seed []byte) (*Key, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	m, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &Key{k: m}, nil
}

// Child derives one level down. Hardened indices include bip32.FirstHardenedChild.
func (k *Key) Child(index uint32) (*Key, error) {
	c, err := k.k.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &Key{k: c}, nil
}

// Operator derives the operator key for (account, index).
func (k *Key) Operator(account, index uint32) (*Key, error) {
	cur := k
	for _, i := range []uint32{PurposeBIP44, CoinTypeNFB, bip32.FirstHardenedChild + account, 0, index} {
		next, err := cur.Child(i)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Private reports whether k holds private key material.
func (k *Key) Private() bool { return k.k.IsPrivate }

// Depth is 0 for the master key.
func (k *Key) Depth() uint8 { return k.k.Depth }

// PublicKey returns the 33-byte compressed public key.
func (k *Key) PublicKey() []byte { return k.k.PublicKey().Key }

// Address is the ledger account controlled by this key.
func (k *Key) Address() types.Address { return crypto.AddressFromPubKey(k.PublicKey()) }

// Public drops the private half.
func (k *Key) Public() *Key { return &Key{k: k.k.PublicKey()} }

// Signer returns a request signer for this key.
func (k *Key) Signer() (*crypto.PrivateKey, error) {
	if !k.k.IsPrivate {
		return nil, fmt.Errorf("public-only key cannot sign")
	}
	raw := k.k.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return crypto.PrivateKeyFromBytes(raw)
}
