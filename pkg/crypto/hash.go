// Package crypto provides the hashing and signing primitives used to
// identify and authenticate ledger callers.
package crypto

import (
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// HashParts hashes the concatenation of the given byte slices, each
// length-prefixed so that ("ab","c") and ("a","bc") never collide.
func HashParts(parts ...[]byte) types.Hash {
	h := blake3.New()
	var lenBuf [4]byte
	for _, p := range parts {
		n := len(p)
		lenBuf[0] = byte(n >> 24)
		lenBuf[1] = byte(n >> 16)
		lenBuf[2] = byte(n >> 8)
		lenBuf[3] = byte(n)
		h.Write(lenBuf[:])
		h.Write(p)
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// AddressFromPubKey derives an account address from a compressed public key.
// Address = BLAKE3(compressed_pubkey)[:20].
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}

// DeriveAddress derives a collaborator address (registry, payment token,
// resolver, handler) from a domain and a name.
// Address = BLAKE3(len|domain || len|name)[:20].
func DeriveAddress(domain, name string) types.Address {
	h := HashParts([]byte(domain), []byte(name))
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}
