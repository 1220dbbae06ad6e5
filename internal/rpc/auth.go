package rpc

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/nfb-ledger/pkg/crypto"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

// authField is the params member carrying the request signature.
const authField = "auth"

var (
	ErrAuthRequired     = errors.New("signed request required")
	ErrInvalidSignature = errors.New("invalid request signature")
)

// Auth authenticates a mutating call. Signature is a Schnorr signature
// over Digest(method, canonical params, nonce) by PubKey.
type Auth struct {
	PubKey    string `json:"pubkey"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"`
}

// Digest is the hash a caller signs:
// BLAKE3(method || 0x00 || canonical params || nonce as little-endian uint64).
func Digest(method string, canonical []byte, nonce uint64) types.Hash {
	buf := make([]byte, 0, len(method)+1+len(canonical)+8)
	buf = append(buf, method...)
	buf = append(buf, 0)
	buf = append(buf, canonical...)
	buf = binary.LittleEndian.AppendUint64(buf, nonce)
	return crypto.Hash(buf)
}

// splitParams separates the auth member from raw params and returns the
// canonical encoding of the rest: a JSON object with sorted keys.
func splitParams(raw json.RawMessage) ([]byte, *Auth, error) {
	fields := map[string]json.RawMessage{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, nil, fmt.Errorf("params must be an object: %w", err)
		}
	}
	var auth *Auth
	if a, ok := fields[authField]; ok {
		auth = new(Auth)
		if err := json.Unmarshal(a, auth); err != nil {
			return nil, nil, fmt.Errorf("invalid auth: %w", err)
		}
		delete(fields, authField)
	}
	canonical, err := json.Marshal(fields)
	if err != nil {
		return nil, nil, fmt.Errorf("canonical params: %w", err)
	}
	return canonical, auth, nil
}

// SignParams encodes params and attaches an auth member signed by signer.
// The result is ready to be sent as the params of method.
func SignParams(method string, params interface{}, nonce uint64, signer crypto.Signer) (json.RawMessage, error) {
	raw := []byte("{}")
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		raw = b
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("params must be an object: %w", err)
	}
	delete(fields, authField)
	canonical, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("canonical params: %w", err)
	}

	digest := Digest(method, canonical, nonce)
	sig, err := signer.Sign(digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	auth, err := json.Marshal(Auth{
		PubKey:    hex.EncodeToString(signer.PublicKey()),
		Nonce:     nonce,
		Signature: hex.EncodeToString(sig),
	})
	if err != nil {
		return nil, err
	}
	fields[authField] = auth
	return json.Marshal(fields)
}

// authenticate verifies the auth member of req and returns the caller
// address and the nonce to spend.
func authenticate(req *Request) (types.Address, uint64, error) {
	canonical, auth, err := splitParams(req.Params)
	if err != nil {
		return types.Address{}, 0, err
	}
	if auth == nil {
		return types.Address{}, 0, ErrAuthRequired
	}
	pub, err := hex.DecodeString(auth.PubKey)
	if err != nil {
		return types.Address{}, 0, fmt.Errorf("pubkey: %w", ErrInvalidSignature)
	}
	sig, err := hex.DecodeString(auth.Signature)
	if err != nil {
		return types.Address{}, 0, fmt.Errorf("signature: %w", ErrInvalidSignature)
	}
	digest := Digest(req.Method, canonical, auth.Nonce)
	if !crypto.VerifySignature(digest[:], sig, pub) {
		return types.Address{}, 0, ErrInvalidSignature
	}
	return crypto.AddressFromPubKey(pub), auth.Nonce, nil
}
