package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Version is the daemon version string.
const Version = "0.1.0"

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// RPC
	RPC          bool
	RPCAddr      string
	RPCPort      int
	RPCAllowed   string
	RPCCORS      string
	RPCRateLimit float64

	// Ledger
	Backend string
	Admins  string
	Alloc   string
	Genesis string

	// Metadata
	MetaName  string
	MetaImage string

	// Hooks
	WalletCap uint64

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set bool/uint flags (for true/false/zero overrides).
	SetRPC          bool
	SetLogJSON      bool
	SetWalletCap    bool
	SetRPCRateLimit bool
}

// ParseFlags parses command-line flags from os.Args.
func ParseFlags() *Flags {
	f, err := ParseArgs(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return f
}

// ParseArgs parses command-line flags from args.
func ParseArgs(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("nfbd", flag.ContinueOnError)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	testnet := fs.Bool("testnet", false, "Use testnet (shorthand for --network=testnet)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// RPC
	fs.BoolVar(&f.RPC, "rpc", true, "Enable RPC server")
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "RPC listen address")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "RPC listen port")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "Allowed IPs for RPC")
	fs.StringVar(&f.RPCCORS, "rpc-cors", "", "Allowed CORS origins for RPC (comma-separated)")
	fs.Float64Var(&f.RPCRateLimit, "rpc-ratelimit", 0, "RPC requests per second per client IP (0 disables)")

	// Ledger
	fs.StringVar(&f.Backend, "backend", "", "Storage backend (badger or memory)")
	fs.StringVar(&f.Admins, "admins", "", "Genesis admin addresses (comma-separated)")
	fs.StringVar(&f.Alloc, "alloc", "", "Genesis native balances (comma-separated addr:amount)")
	fs.StringVar(&f.Genesis, "genesis", "", "Genesis JSON file")

	// Metadata
	fs.StringVar(&f.MetaName, "metadata-name", "", "Token name used by the image resolver")
	fs.StringVar(&f.MetaImage, "metadata-image", "", "Image URI used by the image resolver")

	// Hooks
	fs.Uint64Var(&f.WalletCap, "wallet-cap", 0, "Max units of one edition per recipient (0 disables)")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() {
		printUsage()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *testnet {
		f.Network = string(Testnet)
	}
	f.SetRPC = isFlagSet(fs, "rpc")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.SetWalletCap = isFlagSet(fs, "wallet-cap")
	f.SetRPCRateLimit = isFlagSet(fs, "rpc-ratelimit")

	f.Args = fs.Args()

	// A positional argument stops the parser; flags after it are silently lost.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}

	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// RPC
	if f.SetRPC {
		cfg.RPC.Enabled = f.RPC
	}
	if f.RPCAddr != "" {
		cfg.RPC.Addr = f.RPCAddr
	}
	if f.RPCPort != 0 {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}
	if f.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(f.RPCCORS)
	}
	if f.SetRPCRateLimit {
		cfg.RPC.RateLimit = f.RPCRateLimit
	}

	// Ledger
	if f.Backend != "" {
		cfg.Ledger.Backend = strings.ToLower(f.Backend)
	}
	if f.Admins != "" {
		cfg.Ledger.Admins = parseStringList(f.Admins)
	}
	if f.Alloc != "" {
		cfg.Ledger.Alloc = parseStringList(f.Alloc)
	}
	if f.Genesis != "" {
		cfg.Ledger.Genesis = f.Genesis
	}

	// Metadata
	if f.MetaName != "" {
		cfg.Metadata.Name = f.MetaName
	}
	if f.MetaImage != "" {
		cfg.Metadata.Image = f.MetaImage
	}

	// Hooks
	if f.SetWalletCap {
		cfg.Hooks.WalletCap = f.WalletCap
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	usage := `NFB Ledger - token issuance ledger for series, editions and sales

Usage:
  nfbd [options]
  nfbd --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --network       Network type: mainnet (default) or testnet
  --testnet       Shorthand for --network=testnet
  --datadir       Data directory (default: ~/.nfb)
  --config, -c    Config file path (default: <datadir>/nfb.conf)

RPC Options:
  --rpc           Enable RPC server (default: true)
  --rpc-addr      RPC listen address (default: 127.0.0.1)
  --rpc-port      RPC port (mainnet: 8745, testnet: 8845)
  --rpc-allowed   Allowed IPs for RPC (comma-separated)
  --rpc-cors      Allowed CORS origins for RPC (comma-separated)
  --rpc-ratelimit Requests per second per client IP (default: 0, off)

Ledger Options:
  --backend       Storage backend: badger (default) or memory
  --admins        Genesis admin addresses (comma-separated)
  --alloc         Genesis native balances (comma-separated addr:amount)
  --genesis       Genesis JSON file

Metadata Options:
  --metadata-name   Token name used by the image resolver (default: NFB)
  --metadata-image  Image URI used by the image resolver

Hook Options:
  --wallet-cap    Max units of one edition a recipient may buy (0 disables)

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: stdout)
  --log-json      Output logs as JSON

Examples:
  # Start a mainnet ledger
  nfbd

  # Start a throwaway testnet ledger with one admin
  nfbd --testnet --backend=memory --admins=<address>

Note:
  Genesis settings are applied once, when the ledger is empty. Data
  directories are created automatically on first start.
`
	fmt.Print(usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("nfbd version " + Version)
		os.Exit(0)
	}

	cfg, err := Resolve(flags)
	if err != nil {
		return nil, nil, err
	}
	return cfg, flags, nil
}

// Resolve builds a validated Config from defaults, the config file and flags.
func Resolve(flags *Flags) (*Config, error) {
	network := Mainnet
	if strings.ToLower(flags.Network) == string(Testnet) {
		network = Testnet
	}

	cfg := Default(network)
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.LedgerDir(),
		cfg.KeystoreDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
