package paytoken

import (
	"encoding/binary"
	"fmt"

	"github.com/Klingon-tech/nfb-ledger/pkg/amount"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

// Token is a Ledger bound to one token reference.
type Token struct {
	l   *Ledger
	ref types.Address
}

// Token returns a handle on an issued token.
func (l *Ledger) Token(ref types.Address) (*Token, error) {
	if _, err := l.Info(ref); err != nil {
		return nil, err
	}
	return &Token{l: l, ref: ref}, nil
}

// Ref returns the token reference.
func (t *Token) Ref() types.Address { return t.ref }

// BalanceOf returns owner's balance.
func (t *Token) BalanceOf(owner types.Address) (uint64, error) {
	return t.l.BalanceOf(t.ref, owner)
}

// Transfer moves amt from one account to another.
func (t *Token) Transfer(from, to types.Address, amt uint64) error {
	return t.l.Transfer(t.ref, from, to, amt)
}

// TransferFrom moves amt from owner to to using spender's allowance.
func (t *Token) TransferFrom(spender, from, to types.Address, amt uint64) error {
	return t.l.TransferFrom(t.ref, spender, from, to, amt)
}

// Bank is the native currency view of a Ledger.
type Bank struct {
	l *Ledger
}

// NewBank returns the native currency bank kept in l.
func NewBank(l *Ledger) *Bank {
	return &Bank{l: l}
}

// BalanceOf returns owner's native balance.
func (b *Bank) BalanceOf(owner types.Address) (uint64, error) {
	return b.l.BalanceOf(NativeRef, owner)
}

// Transfer moves native currency between accounts.
func (b *Bank) Transfer(from, to types.Address, amt uint64) error {
	return b.l.Transfer(NativeRef, from, to, amt)
}

// Allocate credits genesis funds. It bypasses issuance checks.
func (b *Bank) Allocate(to types.Address, amt uint64) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	return b.l.credit(NativeRef, to, amt)
}

// Supply sums every native balance.
func (b *Bank) Supply() (uint64, error) {
	prefix := balanceKey(NativeRef, types.Address{})[:len(prefixBalance)+types.AddressSize]
	var total uint64
	err := b.l.db.ForEach(prefix, func(_, value []byte) error {
		if len(value) != 8 {
			return nil
		}
		var err error
		total, err = amount.Add(total, binary.BigEndian.Uint64(value))
		if err != nil {
			return fmt.Errorf("native supply: %w", err)
		}
		return nil
	})
	return total, err
}
