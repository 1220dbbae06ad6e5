package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile reads a .conf file of "key = value" lines. Blank lines and
// lines starting with # are skipped, values may be quoted, and a "[name]"
// line prefixes the keys that follow it with "name.". A missing file yields
// an empty map.
func LoadFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values := make(map[string]string)
	section := ""
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || line[0] == '#':
			continue
		case line[0] == '[' && line[len(line)-1] == ']':
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", n)
		}
		key = strings.TrimSpace(key)
		if section != "" {
			key = section + "." + key
		}
		values[key] = unquote(strings.TrimSpace(value))
	}
	return values, sc.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a node config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.Port = port
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)
	case "rpc.ratelimit":
		r, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid rate: %w", err)
		}
		cfg.RPC.RateLimit = r
	case "rpc.burst":
		b, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid burst: %w", err)
		}
		cfg.RPC.Burst = b

	// Ledger
	case "ledger.backend":
		cfg.Ledger.Backend = strings.ToLower(value)
	case "ledger.admins":
		cfg.Ledger.Admins = parseStringList(value)
	case "ledger.alloc":
		cfg.Ledger.Alloc = parseStringList(value)
	case "ledger.genesis":
		cfg.Ledger.Genesis = value
	case "ledger.maxmint":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid mint limit: %w", err)
		}
		cfg.Ledger.MaxMint = n

	// Metadata
	case "metadata.name":
		cfg.Metadata.Name = value
	case "metadata.image":
		cfg.Metadata.Image = value
	case "metadata.editionname":
		cfg.Metadata.EditionName = parseBool(value)

	// Hooks
	case "hooks.walletcap":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Hooks.WalletCap = n

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	content := `# NFB Ledger Node Configuration

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.nfb)
# datadir = ~/.nfb

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = ` + defaultRPCPort(network) + `
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000
# rpc.ratelimit = 20
# rpc.burst = 40

# ============================================================================
# Ledger
# ============================================================================

# Storage backend: badger (persistent) or memory
ledger.backend = badger

# Genesis is applied once, when the ledger is empty.
# Admin addresses (comma-separated) get the admin and manager roles.
# ledger.admins = nfb1...

# Native balances (comma-separated addr:amount)
# ledger.alloc = nfb1...:1000000

# JSON genesis file, merged with the keys above
# ledger.genesis = genesis.json

# Most tokens one mint or purchase may create (0 = no cap)
# ledger.maxmint = 10000

# ============================================================================
# Metadata
# ============================================================================

metadata.name = NFB
# metadata.image = ipfs://...
metadata.editionname = true

# ============================================================================
# Hooks
# ============================================================================

# Max units of one edition a recipient may buy (0 = disabled)
# hooks.walletcap = 0

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
