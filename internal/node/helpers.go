package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/nfb-ledger/config"
	"github.com/Klingon-tech/nfb-ledger/internal/ledger"
	"github.com/Klingon-tech/nfb-ledger/internal/storage"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// openStorage opens the configured backend.
func openStorage(cfg *config.Config) (storage.DB, error) {
	switch cfg.Ledger.Backend {
	case config.BackendMemory:
		return storage.NewMemory(), nil
	case config.BackendBadger, "":
		dir := expandHome(cfg.LedgerDir())
		db, err := storage.NewBadger(dir)
		if err != nil {
			return nil, fmt.Errorf("open database at %s: %w", dir, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

// buildGenesis converts the configured genesis into ledger terms.
func buildGenesis(cfg *config.Config) (ledger.Genesis, error) {
	if cfg.Ledger.Genesis != "" {
		cfg.Ledger.Genesis = expandHome(cfg.Ledger.Genesis)
	}
	g, err := cfg.Genesis()
	if err != nil {
		return ledger.Genesis{}, err
	}
	admins, err := g.Addresses()
	if err != nil {
		return ledger.Genesis{}, err
	}
	alloc, err := g.Balances()
	if err != nil {
		return ledger.Genesis{}, err
	}
	return ledger.Genesis{Admins: admins, Alloc: alloc}, nil
}
