package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestPrivateKeyFromBytes(t *testing.T) {
	original, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	restored, err := PrivateKeyFromBytes(original.Serialize())
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}
	if !bytes.Equal(original.PublicKey(), restored.PublicKey()) {
		t.Error("restored key should have same public key")
	}

	for _, n := range []int{0, 31, 33} {
		if _, err := PrivateKeyFromBytes(make([]byte, n)); err == nil {
			t.Errorf("PrivateKeyFromBytes(%d bytes) expected error", n)
		}
	}
}

func TestSign_Verify(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	hash := Hash([]byte("series_set"))

	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if !VerifySignature(hash[:], sig, key.PublicKey()) {
		t.Error("valid signature rejected")
	}

	other := Hash([]byte("series_freeze"))
	if VerifySignature(other[:], sig, key.PublicKey()) {
		t.Error("signature verified against the wrong hash")
	}

	otherKey, _ := GenerateKey()
	if VerifySignature(hash[:], sig, otherKey.PublicKey()) {
		t.Error("signature verified against the wrong key")
	}

	corrupted := append([]byte(nil), sig...)
	corrupted[10] ^= 0xFF
	if VerifySignature(hash[:], corrupted, key.PublicKey()) {
		t.Error("corrupted signature verified")
	}
}

func TestSign_InvalidHashLength(t *testing.T) {
	key, _ := GenerateKey()
	if _, err := key.Sign([]byte("short")); !errors.Is(err, ErrDigestSize) {
		t.Errorf("Sign(short) err = %v, want ErrDigestSize", err)
	}
}

func TestVerify_InvalidInputs(t *testing.T) {
	hash := Hash([]byte("x"))
	if VerifySignature(hash[:], []byte{0x01}, []byte{0x02}) {
		t.Error("garbage inputs verified")
	}
}
