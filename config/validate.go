package config

import (
	"fmt"
	"strings"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	if cfg.RPC.RateLimit < 0 || cfg.RPC.Burst < 0 {
		return fmt.Errorf("rpc.ratelimit and rpc.burst must not be negative")
	}

	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = BackendBadger
	}
	switch cfg.Ledger.Backend {
	case BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("ledger.backend must be %q or %q", BackendBadger, BackendMemory)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}

	g, err := cfg.Genesis()
	if err != nil {
		return err
	}
	if _, err := g.Addresses(); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	if _, err := g.Balances(); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}

	return nil
}
