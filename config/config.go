// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Genesis: admins and native allocations, applied once to an empty ledger
//   - Node settings: runtime configuration, can change between restarts
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config holds node runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// RPC server
	RPC RPCConfig

	// Ledger storage and genesis
	Ledger LedgerConfig

	// Metadata resolvers registered at startup
	Metadata MetadataConfig

	// Purchase hooks registered at startup
	Hooks HooksConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds RPC server settings. RateLimit is requests per second
// per client IP; zero disables limiting.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
	RateLimit   float64  `conf:"rpc.ratelimit"`
	Burst       int      `conf:"rpc.burst"`
}

// LedgerConfig holds storage and genesis settings.
type LedgerConfig struct {
	Backend string   `conf:"ledger.backend"` // badger or memory
	Admins  []string `conf:"ledger.admins"`  // Addresses granted admin and manager
	Alloc   []string `conf:"ledger.alloc"`   // addr:amount native balances
	Genesis string   `conf:"ledger.genesis"` // Optional JSON genesis file
	MaxMint uint64   `conf:"ledger.maxmint"` // Tokens per mint or purchase, 0 = no cap
}

// MetadataConfig configures the shared-image resolver.
type MetadataConfig struct {
	Name        string `conf:"metadata.name"`
	Image       string `conf:"metadata.image"`
	EditionName bool   `conf:"metadata.editionname"`
}

// HooksConfig configures purchase hooks.
type HooksConfig struct {
	WalletCap uint64 `conf:"hooks.walletcap"` // 0 disables the hook
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.nfb
//	macOS:   ~/Library/Application Support/NFB
//	Windows: %APPDATA%\NFB
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nfb"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "NFB")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "NFB")
		}
		return filepath.Join(home, "AppData", "Roaming", "NFB")
	default:
		return filepath.Join(home, ".nfb")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// LedgerDir returns the badger database directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.NetworkDataDir(), "ledger")
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "nfb.conf")
}

// RPCEndpoint returns the HTTP URL of the configured RPC server.
func (c *Config) RPCEndpoint() string {
	return "http://" + c.RPC.ListenAddr()
}

// ListenAddr returns host:port for the RPC listener.
func (r RPCConfig) ListenAddr() string {
	return joinHostPort(r.Addr, r.Port)
}
