package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

// Genesis seeds an empty ledger. It is ignored once a ledger exists.
type Genesis struct {
	// Admins get the admin and manager roles.
	Admins []string `json:"admins"`

	// Initial allocations (address -> native balance)
	Alloc map[string]uint64 `json:"alloc"`
}

// LoadGenesis reads a genesis file from disk.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	return &g, nil
}

// Save writes the genesis as indented JSON.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal genesis: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Addresses parses the admin list.
func (g *Genesis) Addresses() ([]types.Address, error) {
	out := make([]types.Address, 0, len(g.Admins))
	seen := make(map[types.Address]struct{}, len(g.Admins))
	for i, s := range g.Admins {
		a, err := types.ParseAddress(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("admins[%d]: %w", i, err)
		}
		if a.IsZero() {
			return nil, fmt.Errorf("admins[%d] is the zero address", i)
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}

// Balances parses the allocation map. Amounts for the same address
// written in different encodings are summed.
func (g *Genesis) Balances() (map[types.Address]uint64, error) {
	keys := make([]string, 0, len(g.Alloc))
	for k := range g.Alloc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[types.Address]uint64, len(g.Alloc))
	for _, k := range keys {
		a, err := types.ParseAddress(k)
		if err != nil {
			return nil, fmt.Errorf("alloc %q: %w", k, err)
		}
		if a.IsZero() {
			return nil, fmt.Errorf("alloc to the zero address")
		}
		sum := out[a] + g.Alloc[k]
		if sum < out[a] {
			return nil, fmt.Errorf("alloc %q overflows", k)
		}
		out[a] = sum
	}
	return out, nil
}

// Genesis merges the genesis file (if any) with ledger.admins and ledger.alloc.
func (c *Config) Genesis() (*Genesis, error) {
	g := &Genesis{Alloc: make(map[string]uint64)}
	if c.Ledger.Genesis != "" {
		loaded, err := LoadGenesis(c.Ledger.Genesis)
		if err != nil {
			return nil, err
		}
		g.Admins = append(g.Admins, loaded.Admins...)
		for k, v := range loaded.Alloc {
			g.Alloc[k] = v
		}
	}
	g.Admins = append(g.Admins, c.Ledger.Admins...)
	for i, entry := range c.Ledger.Alloc {
		addr, amt, err := parseAllocEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("ledger.alloc[%d]: %w", i, err)
		}
		sum := g.Alloc[addr] + amt
		if sum < amt {
			return nil, fmt.Errorf("ledger.alloc[%d]: amount overflows", i)
		}
		g.Alloc[addr] = sum
	}
	return g, nil
}

// parseAllocEntry splits "addr:amount". The last colon separates the
// amount so hex addresses with a 0x prefix are accepted.
func parseAllocEntry(s string) (string, uint64, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return "", 0, fmt.Errorf("expected addr:amount, got %q", s)
	}
	addr := strings.TrimSpace(s[:i])
	amt, err := strconv.ParseUint(strings.TrimSpace(s[i+1:]), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("amount: %w", err)
	}
	return addr, amt, nil
}
