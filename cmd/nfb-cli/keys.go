package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/Klingon-tech/nfb-ledger/internal/keys"
)

func cmdKeys(e *env, args []string) {
	if len(args) < 1 {
		fatal("Usage: nfb-cli keys <create|import|list|address|derive|remove>")
	}
	switch args[0] {
	case "create":
		cmdKeysCreate(e, args[1:])
	case "import":
		cmdKeysImport(e, args[1:])
	case "list":
		cmdKeysList(e)
	case "address":
		cmdKeysAddress(e, args[1:])
	case "derive":
		cmdKeysDerive(e, args[1:])
	case "remove":
		cmdKeysRemove(e, args[1:])
	default:
		fatal("unknown keys command: %s", args[0])
	}
}

func openKeystore(e *env) *keys.Keystore {
	ks, err := keys.NewKeystore(e.ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	return ks
}

// newPassphrase prompts twice and returns the confirmed passphrase.
func newPassphrase() []byte {
	pass, err := readPassword("Enter passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	confirm, err := readPassword("Confirm passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	if string(pass) != string(confirm) {
		fatal("passphrases do not match")
	}
	wipe(confirm)
	if len(pass) == 0 {
		fatal("passphrase must not be empty")
	}
	return pass
}

func storeSeed(e *env, name, mnemonic string) {
	seed, err := keys.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	defer wipe(seed)

	pass := newPassphrase()
	defer wipe(pass)

	entry, err := openKeystore(e).Create(name, seed, pass, keys.DefaultParams())
	if err != nil {
		fatal("create key set: %v", err)
	}
	fmt.Printf("\nKey set created: %s\n", name)
	fmt.Printf("Address: %s\n", entry.Address)
}

func cmdKeysCreate(e *env, args []string) {
	fs := flag.NewFlagSet("keys create", flag.ExitOnError)
	name := fs.String("name", "", "Key set name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: nfb-cli keys create --name <name>")
	}

	mnemonic, err := keys.NewMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}
	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	storeSeed(e, *name, mnemonic)
}

func cmdKeysImport(e *env, args []string) {
	fs := flag.NewFlagSet("keys import", flag.ExitOnError)
	name := fs.String("name", "", "Key set name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: nfb-cli keys import --name <name> --mnemonic \"...\"")
	}
	m := strings.Join(strings.Fields(*mnemonic), " ")
	if !keys.ValidMnemonic(m) {
		fatal("invalid mnemonic")
	}
	storeSeed(e, *name, m)
}

func cmdKeysList(e *env) {
	names, err := openKeystore(e).List()
	if err != nil {
		fatal("list key sets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No key sets found.")
		return
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

func cmdKeysAddress(e *env, args []string) {
	fs := flag.NewFlagSet("keys address", flag.ExitOnError)
	name := fs.String("name", "", "Key set name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: nfb-cli keys address --name <name>")
	}
	entries, err := openKeystore(e).Entries(*name)
	if err != nil {
		fatal("read %s: %v", *name, err)
	}
	for _, en := range entries {
		fmt.Printf("  [%d] %-12s %s\n", en.Index, en.Label, en.Address)
	}
}

func cmdKeysDerive(e *env, args []string) {
	fs := flag.NewFlagSet("keys derive", flag.ExitOnError)
	name := fs.String("name", "", "Key set name")
	label := fs.String("label", "", "Label for the new address")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: nfb-cli keys derive --name <name> [--label <label>]")
	}
	pass, err := readPassword(fmt.Sprintf("Passphrase for %q: ", *name))
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	defer wipe(pass)

	entry, err := openKeystore(e).Derive(*name, pass, *label)
	if err != nil {
		fatal("derive: %v", err)
	}
	fmt.Printf("[%d] %s\n", entry.Index, entry.Address)
}

func cmdKeysRemove(e *env, args []string) {
	fs := flag.NewFlagSet("keys remove", flag.ExitOnError)
	name := fs.String("name", "", "Key set name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: nfb-cli keys remove --name <name>")
	}
	if err := openKeystore(e).Remove(*name); err != nil {
		fatal("remove %s: %v", *name, err)
	}
	fmt.Printf("Removed %s\n", *name)
}
