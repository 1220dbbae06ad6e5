// nfb-cli is a command-line client for interacting with an nfbd node.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/Klingon-tech/nfb-ledger/config"
	"github.com/Klingon-tech/nfb-ledger/internal/keys"
	"github.com/Klingon-tech/nfb-ledger/internal/rpcclient"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
	"golang.org/x/term"
)

// env carries the global settings shared by every command.
type env struct {
	rpcURL string
	ksDir  string
	client *rpcclient.Client
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	rpcURL := ""
	dataDir := config.DefaultDataDir()
	network := string(config.Mainnet)

	// Scan for --rpc, --datadir and --network before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		case args[0] == "--testnet":
			network = string(config.Testnet)
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	cfg := config.Default(config.NetworkType(network))
	cfg.DataDir = dataDir
	if network == string(config.Testnet) {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}
	if rpcURL == "" {
		rpcURL = cfg.RPCEndpoint()
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	e := &env{
		rpcURL: rpcURL,
		ksDir:  cfg.KeystoreDir(),
		client: rpcclient.New(rpcURL),
	}
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(e)
	case "nonce":
		cmdNonce(e, cmdArgs)
	case "events":
		cmdEvents(e, cmdArgs)
	case "keys":
		cmdKeys(e, cmdArgs)
	case "series":
		cmdSeries(e, cmdArgs)
	case "edition":
		cmdEdition(e, cmdArgs)
	case "nfb":
		cmdNFB(e, cmdArgs)
	case "sale":
		cmdSale(e, cmdArgs)
	case "role":
		cmdRole(e, cmdArgs)
	case "paytoken":
		cmdPayToken(e, cmdArgs)
	case "bank":
		cmdBank(e, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: nfb-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8745)
  --datadir <path>    Data directory (default: ~/.nfb)
  --network <net>     mainnet (default) or testnet
  --testnet           Shorthand for --network testnet

Signed commands take --key <name> [--index <n>] and prompt for the
keystore passphrase.

Commands:
  status                          Show ledger summary
  nonce <address>                 Show the last request nonce of an account
  events [--from n] [--limit n] [--kind k]
                                  List ledger events

  keys create --name <n>          Create a key set from a new mnemonic
  keys import --name <n> --mnemonic "..."
                                  Import a key set from a mnemonic
  keys list                       List key sets
  keys address --name <n>         List derived addresses
  keys derive --name <n> [--label l]
                                  Derive the next operator address
  keys remove --name <n>          Delete a key set

  series set --series n --name s [--description d]
  series freeze --series n
  series get <series>
  series list

  edition set --series n --edition n --from t --until t [--name s]
  edition resolver --series n --edition n --resolver <addr>
  edition get <series> <edition>
  edition list <series>

  nfb mint --to <addr> --series n --edition n [--count n]
  nfb burn <id>
  nfb transfer --to <addr> --id n [--from <addr>]
  nfb approve --to <addr> --id n
  nfb approve-all --operator <addr> [--approved=false]
  nfb owner <id>
  nfb balance <addr>
  nfb tokens <addr>
  nfb uri <id>
  nfb decode <id>

  sale set --series n --edition n --supply n --price n [--max-per-tx n] [--nfb <addr>]
  sale payment-token --series n --edition n --token <addr> --price n [--surcharge n]
  sale enforce --series n --edition n
  sale handler --series n --edition n --handler <addr>
  sale get <series> <edition>
  sale list
  sale quote --series n --edition n --quantity n [--token <addr>]
  sale buy --series n --edition n --quantity n --value n [--to <addr>] [--token <addr>] [--referral c]
  sale withdraw-native
  sale withdraw-tokens --token <addr>

  role grant --role r --account <addr>
  role revoke --role r --account <addr>
  role list <role|address>

  paytoken issue --symbol s --name n [--decimals n]
  paytoken mint --token <addr> --to <addr> --amount n
  paytoken approve --token <addr> --spender <addr> --amount n
  paytoken transfer --token <addr> --to <addr> --amount n
  paytoken balance --token <addr> --owner <addr>
  paytoken list

  bank balance <addr>
  bank transfer --to <addr> --amount n
`)
}

// ── Signing ─────────────────────────────────────────────────────────────

// signerFlags are shared by every state-changing command.
type signerFlags struct {
	key   *string
	index *uint
}

func addSignerFlags(fs *flag.FlagSet) *signerFlags {
	return &signerFlags{
		key:   fs.String("key", "", "Key set name"),
		index: fs.Uint("index", 0, "Derived address index"),
	}
}

// signed unlocks the selected key and returns a client that signs with it.
func (e *env) signed(sf *signerFlags) *rpcclient.Client {
	if *sf.key == "" {
		fatal("--key is required for this command")
	}
	ks, err := keys.NewKeystore(e.ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	pass, err := readPassword(fmt.Sprintf("Passphrase for %q: ", *sf.key))
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	signer, err := ks.Signer(*sf.key, pass, uint32(*sf.index))
	wipe(pass)
	if err != nil {
		fatal("unlock %s: %v", *sf.key, err)
	}
	e.client.SetSigner(signer)
	return e.client
}

// callSigned sends a signed request and prints the result.
func (e *env) callSigned(sf *signerFlags, method string, params interface{}) {
	var raw json.RawMessage
	if err := e.signed(sf).CallSigned(method, params, &raw); err != nil {
		fatal("%s: %v", method, err)
	}
	printJSON(raw)
}

// call sends an unsigned query and prints the result.
func (e *env) call(method string, params interface{}) {
	var raw json.RawMessage
	if err := e.client.Call(method, params, &raw); err != nil {
		fatal("%s: %v", method, err)
	}
	printJSON(raw)
}

// ── Helpers ─────────────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func printJSON(raw json.RawMessage) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(string(out))
}

func parseAddress(s, what string) types.Address {
	a, err := types.ParseAddress(s)
	if err != nil {
		fatal("invalid %s %q: %v", what, s, err)
	}
	return a
}

// optionalAddress parses s, or returns the zero address when s is empty.
func optionalAddress(s, what string) types.Address {
	if s == "" {
		return types.Address{}
	}
	return parseAddress(s, what)
}

func parseUint(s, what string) uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		fatal("invalid %s %q: %v", what, s, err)
	}
	return n
}

// positional returns args[i] or exits with the usage line.
func positional(args []string, i int, usageLine string) string {
	if len(args) <= i {
		fatal("Usage: nfb-cli %s", usageLine)
	}
	return args[i]
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
