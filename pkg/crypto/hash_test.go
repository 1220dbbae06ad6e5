package crypto

import (
	"testing"
)

func TestHash_Deterministic(t *testing.T) {
	a := Hash([]byte("nfb"))
	b := Hash([]byte("nfb"))
	if a != b {
		t.Error("Hash is not deterministic")
	}
	if a == Hash([]byte("nfc")) {
		t.Error("different inputs produced the same hash")
	}
}

func TestHashParts_LengthPrefixed(t *testing.T) {
	a := HashParts([]byte("ab"), []byte("c"))
	b := HashParts([]byte("a"), []byte("bc"))
	if a == b {
		t.Error("HashParts must distinguish part boundaries")
	}
}

func TestAddressFromPubKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := AddressFromPubKey(key.PublicKey())
	h := Hash(key.PublicKey())
	for i := range addr {
		if addr[i] != h[i] {
			t.Fatalf("address byte %d = %x, want %x", i, addr[i], h[i])
		}
	}
	if key.Address() != addr {
		t.Error("PrivateKey.Address() disagrees with AddressFromPubKey")
	}
}

func TestDeriveAddress(t *testing.T) {
	a := DeriveAddress("paytoken", "USDX")
	if a.IsZero() {
		t.Fatal("derived address is zero")
	}
	if a != DeriveAddress("paytoken", "USDX") {
		t.Error("DeriveAddress is not deterministic")
	}
	if a == DeriveAddress("handler", "USDX") {
		t.Error("domain must separate derived addresses")
	}
}
