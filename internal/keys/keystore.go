package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	klog "github.com/Klingon-tech/nfb-ledger/internal/log"
	"github.com/Klingon-tech/nfb-ledger/pkg/crypto"
	"github.com/rs/zerolog"
)

const (
	fileExt     = ".key"
	fileVersion = 1
)

var (
	ErrKeyExists   = errors.New("key file already exists")
	ErrKeyNotFound = errors.New("key file not found")
	ErrInvalidName = errors.New("invalid key name")
)

// Entry records one derived operator key.
type Entry struct {
	Index   uint32 `json:"index"`
	Label   string `json:"label,omitempty"`
	Address string `json:"address"`
}

type keyFile struct {
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	Account    uint32    `json:"account"`
	SealedSeed []byte    `json:"sealed_seed"`
	Entries    []Entry   `json:"entries"`
}

// Keystore stores passphrase-sealed seeds, one file per name, under a directory.
type Keystore struct {
	dir    string
	logger zerolog.Logger
}

// NewKeystore opens (creating if needed) the keystore directory.
func NewKeystore(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{dir: dir, logger: klog.Keys}, nil
}

// Dir returns the keystore directory.
func (ks *Keystore) Dir() string { return ks.dir }

func (ks *Keystore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(ks.dir, name+fileExt), nil
}

// Create seals seed under passphrase and writes it as name. The first
// operator key (index 0) is recorded immediately.
func (ks *Keystore) Create(name string, seed, passphrase []byte, p Params) (Entry, error) {
	path, err := ks.path(name)
	if err != nil {
		return Entry{}, err
	}
	if _, err := os.Stat(path); err == nil {
		return Entry{}, fmt.Errorf("%w: %s", ErrKeyExists, name)
	}
	master, err := MasterKey(seed)
	if err != nil {
		return Entry{}, err
	}
	first, err := master.Operator(0, 0)
	if err != nil {
		return Entry{}, err
	}
	sealed, err := Seal(seed, passphrase, p)
	if err != nil {
		return Entry{}, fmt.Errorf("seal seed: %w", err)
	}
	e := Entry{Index: 0, Label: "default", Address: first.Address().String()}
	kf := &keyFile{
		Version:    fileVersion,
		CreatedAt:  time.Now().UTC(),
		SealedSeed: sealed,
		Entries:    []Entry{e},
	}
	if err := writeKeyFile(path, kf); err != nil {
		return Entry{}, err
	}
	ks.logger.Debug().Str("name", name).Str("address", e.Address).Msg("Key set created")
	return e, nil
}

// Unlock opens name and returns its master key.
func (ks *Keystore) Unlock(name string, passphrase []byte) (*Key, error) {
	_, kf, err := ks.load(name)
	if err != nil {
		return nil, err
	}
	seed, err := Open(kf.SealedSeed, passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlock %s: %w", name, err)
	}
	defer wipe(seed)
	return MasterKey(seed)
}

// Signer unlocks name and returns the signer for operator index.
func (ks *Keystore) Signer(name string, passphrase []byte, index uint32) (*crypto.PrivateKey, error) {
	_, kf, err := ks.load(name)
	if err != nil {
		return nil, err
	}
	master, err := ks.Unlock(name, passphrase)
	if err != nil {
		return nil, err
	}
	k, err := master.Operator(kf.Account, index)
	if err != nil {
		return nil, err
	}
	return k.Signer()
}

// Derive records the next operator key under label.
func (ks *Keystore) Derive(name string, passphrase []byte, label string) (Entry, error) {
	path, kf, err := ks.load(name)
	if err != nil {
		return Entry{}, err
	}
	master, err := ks.Unlock(name, passphrase)
	if err != nil {
		return Entry{}, err
	}
	var next uint32
	for _, e := range kf.Entries {
		if e.Index >= next {
			next = e.Index + 1
		}
	}
	k, err := master.Operator(kf.Account, next)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Index: next, Label: label, Address: k.Address().String()}
	kf.Entries = append(kf.Entries, e)
	if err := writeKeyFile(path, kf); err != nil {
		return Entry{}, err
	}
	ks.logger.Debug().Str("name", name).Uint32("index", next).Msg("Operator key derived")
	return e, nil
}

// Entries lists the operator keys recorded for name.
func (ks *Keystore) Entries(name string) ([]Entry, error) {
	_, kf, err := ks.load(name)
	if err != nil {
		return nil, err
	}
	return kf.Entries, nil
}

// List returns the names of all key files, sorted.
func (ks *Keystore) List() ([]string, error) {
	des, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var names []string
	for _, de := range des {
		if de.IsDir() || filepath.Ext(de.Name()) != fileExt {
			continue
		}
		names = append(names, strings.TrimSuffix(de.Name(), fileExt))
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes the key file for name.
func (ks *Keystore) Remove(name string) error {
	path, err := ks.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrKeyNotFound, name)
		}
		return fmt.Errorf("remove key file: %w", err)
	}
	ks.logger.Debug().Str("name", name).Msg("Key set removed")
	return nil
}

func (ks *Keystore) load(name string) (string, *keyFile, error) {
	path, err := ks.path(name)
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
		}
		return "", nil, fmt.Errorf("read key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return "", nil, fmt.Errorf("parse key file: %w", err)
	}
	if kf.Version != fileVersion {
		return "", nil, fmt.Errorf("unsupported key file version: %d", kf.Version)
	}
	return path, &kf, nil
}

func writeKeyFile(path string, kf *keyFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key file: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}
