// derive_ref.go prints ledger references.
//
// Usage:
//
//	go run scripts/derive_ref.go ref <domain> <name>   Address of a named reference
//	go run scripts/derive_ref.go key <keyfile>         Pubkey and address of a hex key file
//	go run scripts/derive_ref.go builtin               Well-known node references
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/nfb-ledger/internal/ledger"
	"github.com/Klingon-tech/nfb-ledger/internal/node"
	"github.com/Klingon-tech/nfb-ledger/internal/sales"
	"github.com/Klingon-tech/nfb-ledger/pkg/crypto"
)

func main() {
	if len(os.Args) < 2 {
		fail("usage: derive_ref <ref|key|builtin> ...")
	}
	switch os.Args[1] {
	case "ref":
		if len(os.Args) != 4 {
			fail("usage: derive_ref ref <domain> <name>")
		}
		fmt.Println(crypto.DeriveAddress(os.Args[2], os.Args[3]).String())
	case "key":
		if len(os.Args) != 3 {
			fail("usage: derive_ref key <keyfile>")
		}
		data, err := os.ReadFile(os.Args[2])
		if err != nil {
			fail(err.Error())
		}
		keyBytes, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			fail(err.Error())
		}
		key, err := crypto.PrivateKeyFromBytes(keyBytes)
		if err != nil {
			fail(err.Error())
		}
		defer key.Zero()
		fmt.Printf("pubkey=%s\n", hex.EncodeToString(key.PublicKey()))
		fmt.Printf("address=%s\n", key.Address().String())
	case "builtin":
		fmt.Printf("registry=%s\n", ledger.RegistryRef)
		fmt.Printf("engine=%s\n", sales.EngineAccount)
		fmt.Printf("resolver.series-name=%s\n", node.SeriesNameResolverRef)
		fmt.Printf("resolver.image=%s\n", node.ImageResolverRef)
		fmt.Printf("handler.walletcap=%s\n", node.WalletCapRef)
		fmt.Printf("handler.purchase-log=%s\n", node.PurchaseLogRef)
	default:
		fail("unknown mode " + os.Args[1])
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
