// Package access stores role membership and per-account request nonces.
package access

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Klingon-tech/nfb-ledger/internal/events"
	"github.com/Klingon-tech/nfb-ledger/internal/storage"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

// Role names a capability attached to an account.
type Role string

// Roles.
const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleMinter     Role = "minter"
	RoleWithdrawer Role = "withdrawer"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleManager, RoleMinter, RoleWithdrawer}

// Access errors.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnknownRole      = errors.New("unknown role")
	ErrStaleNonce       = errors.New("stale nonce")
	ErrZeroAccount      = errors.New("zero account")
)

// Checker verifies that an account holds a role.
type Checker interface {
	Require(account types.Address, role Role) error
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

var (
	prefixRole  = []byte("r/") // r/<role>/<addr(20)> -> 1
	prefixNonce = []byte("n/") // n/<addr(20)> -> nonce(8)
)

// Store persists role membership and nonces.
type Store struct {
	db     storage.DB
	events events.Emitter
}

// NewStore creates an access store. ev may be nil.
func NewStore(db storage.DB, ev events.Emitter) *Store {
	return &Store{db: db, events: ev}
}

// HasRole reports whether account holds role.
func (s *Store) HasRole(account types.Address, role Role) (bool, error) {
	return s.db.Has(roleKey(role, account))
}

// Require returns ErrPermissionDenied unless account holds role.
func (s *Store) Require(account types.Address, role Role) error {
	ok, err := s.HasRole(account, role)
	if err != nil {
		return fmt.Errorf("role lookup: %w", err)
	}
	if !ok {
		return fmt.Errorf("account %s is missing role %s: %w", account, role, ErrPermissionDenied)
	}
	return nil
}

// Bootstrap grants roles without a caller check. Used for genesis admins.
func (s *Store) Bootstrap(account types.Address, roles ...Role) error {
	if account.IsZero() {
		return ErrZeroAccount
	}
	for _, r := range roles {
		if err := s.db.Put(roleKey(r, account), []byte{1}); err != nil {
			return fmt.Errorf("role put: %w", err)
		}
	}
	return nil
}

// Grant gives role to account. The caller must be an admin.
func (s *Store) Grant(caller, account types.Address, role Role) error {
	if err := s.Require(caller, RoleAdmin); err != nil {
		return err
	}
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	if account.IsZero() {
		return ErrZeroAccount
	}
	if err := s.db.Put(roleKey(role, account), []byte{1}); err != nil {
		return fmt.Errorf("role put: %w", err)
	}
	return s.emit(events.KindRoleGranted, role, account, caller)
}

// Revoke removes role from account. The caller must be an admin.
func (s *Store) Revoke(caller, account types.Address, role Role) error {
	if err := s.Require(caller, RoleAdmin); err != nil {
		return err
	}
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	if err := s.db.Delete(roleKey(role, account)); err != nil {
		return fmt.Errorf("role delete: %w", err)
	}
	return s.emit(events.KindRoleRevoked, role, account, caller)
}

// Members returns every account holding role, in address order.
func (s *Store) Members(role Role) ([]types.Address, error) {
	prefix := rolePrefix(role)
	members := []types.Address{}
	err := s.db.ForEach(prefix, func(key, _ []byte) error {
		if len(key) != len(prefix)+types.AddressSize {
			return nil
		}
		var a types.Address
		copy(a[:], key[len(prefix):])
		members = append(members, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

// RolesOf returns the roles account holds.
func (s *Store) RolesOf(account types.Address) ([]Role, error) {
	roles := []Role{}
	for _, r := range Roles {
		ok, err := s.HasRole(account, r)
		if err != nil {
			return nil, err
		}
		if ok {
			roles = append(roles, r)
		}
	}
	return roles, nil
}

// Nonce returns the last nonce used by account, zero if none.
func (s *Store) Nonce(account types.Address) (uint64, error) {
	data, err := s.db.Get(nonceKey(account))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("nonce get: %w", err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("nonce get: corrupt value of %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// UseNonce records nonce for account. It must exceed the last one.
func (s *Store) UseNonce(account types.Address, nonce uint64) error {
	last, err := s.Nonce(account)
	if err != nil {
		return err
	}
	if nonce <= last {
		return fmt.Errorf("nonce %d for %s, last used %d: %w", nonce, account, last, ErrStaleNonce)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	return s.db.Put(nonceKey(account), buf[:])
}

type roleEvent struct {
	Role    Role          `json:"role"`
	Account types.Address `json:"account"`
	Caller  types.Address `json:"caller"`
}

func (s *Store) emit(kind string, role Role, account, caller types.Address) error {
	if s.events == nil {
		return nil
	}
	return s.events.Emit(kind, roleEvent{Role: role, Account: account, Caller: caller})
}

func rolePrefix(role Role) []byte {
	p := make([]byte, 0, len(prefixRole)+len(role)+1)
	p = append(p, prefixRole...)
	p = append(p, role...)
	return append(p, '/')
}

func roleKey(role Role, account types.Address) []byte {
	return append(rolePrefix(role), account[:]...)
}

func nonceKey(account types.Address) []byte {
	key := make([]byte, len(prefixNonce)+types.AddressSize)
	copy(key, prefixNonce)
	copy(key[len(prefixNonce):], account[:])
	return key
}

// Static is a fixed role table for running the core without a store.
type Static map[types.Address][]Role

// Require implements Checker.
func (s Static) Require(account types.Address, role Role) error {
	for _, r := range s[account] {
		if r == role {
			return nil
		}
	}
	return fmt.Errorf("account %s is missing role %s: %w", account, role, ErrPermissionDenied)
}
