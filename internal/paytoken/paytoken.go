// Package paytoken keeps fungible balances and allowances: the native
// currency bank and the alternate payment tokens accepted by sales.
package paytoken

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"

	"github.com/Klingon-tech/nfb-ledger/internal/events"
	"github.com/Klingon-tech/nfb-ledger/internal/storage"
	"github.com/Klingon-tech/nfb-ledger/pkg/amount"
	"github.com/Klingon-tech/nfb-ledger/pkg/crypto"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

// Ledger errors.
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrTokenNotFound         = errors.New("payment token not found")
	ErrTokenExists           = errors.New("payment token already exists")
	ErrInvalidSymbol         = errors.New("invalid token symbol")
	ErrZeroAddress           = errors.New("zero address")
	ErrNotIssuer             = errors.New("caller is not the token issuer")
)

// Unlimited is an allowance that TransferFrom never decrements.
const Unlimited = math.MaxUint64

// NativeRef is the reference under which the native currency is kept.
var NativeRef = crypto.DeriveAddress("paytoken", "native")

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,12}$`)

var (
	prefixInfo      = []byte("i/") // i/<ref(20)> -> Info JSON
	prefixBalance   = []byte("b/") // b/<ref(20)><owner(20)> -> amount(8)
	prefixAllowance = []byte("a/") // a/<ref(20)><owner(20)><spender(20)> -> amount(8)
)

// Info describes an issued payment token.
type Info struct {
	Ref      types.Address `json:"ref"`
	Symbol   string        `json:"symbol"`
	Name     string        `json:"name"`
	Decimals uint8         `json:"decimals"`
	Supply   uint64        `json:"supply"`
	Issuer   types.Address `json:"issuer"`
}

// RefForSymbol returns the reference a token with symbol is issued under.
func RefForSymbol(symbol string) types.Address {
	return crypto.DeriveAddress("paytoken", symbol)
}

// Ledger stores token metadata, balances and allowances.
type Ledger struct {
	db     storage.DB
	events events.Emitter
}

// NewLedger creates a ledger over db. ev may be nil.
func NewLedger(db storage.DB, ev events.Emitter) *Ledger {
	return &Ledger{db: db, events: ev}
}

func (l *Ledger) emit(kind string, data any) error {
	if l.events == nil {
		return nil
	}
	return l.events.Emit(kind, data)
}

// Issue registers a new token with zero supply.
func (l *Ledger) Issue(issuer types.Address, symbol, name string, decimals uint8) (*Info, error) {
	if !symbolPattern.MatchString(symbol) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	if issuer.IsZero() {
		return nil, ErrZeroAddress
	}
	ref := RefForSymbol(symbol)
	exists, err := l.db.Has(infoKey(ref))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", symbol, ErrTokenExists)
	}
	info := &Info{Ref: ref, Symbol: symbol, Name: name, Decimals: decimals, Issuer: issuer}
	if err := l.putInfo(info); err != nil {
		return nil, err
	}
	return info, l.emit(events.KindTokenIssued, info)
}

// Info returns the metadata of an issued token.
func (l *Ledger) Info(ref types.Address) (*Info, error) {
	data, err := l.db.Get(infoKey(ref))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", ref, ErrTokenNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("token info: %w", err)
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("token info unmarshal: %w", err)
	}
	return &info, nil
}

// List returns every issued token in reference order.
func (l *Ledger) List() ([]Info, error) {
	out := []Info{}
	err := l.db.ForEach(prefixInfo, func(_, value []byte) error {
		var info Info
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("token info unmarshal: %w", err)
		}
		out = append(out, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Ledger) putInfo(info *Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("token info marshal: %w", err)
	}
	return l.db.Put(infoKey(info.Ref), data)
}

// Mint creates amt new units of ref for to. Only the issuer may mint.
func (l *Ledger) Mint(caller, ref, to types.Address, amt uint64) error {
	info, err := l.Info(ref)
	if err != nil {
		return err
	}
	if caller != info.Issuer {
		return fmt.Errorf("%s minting %s: %w", caller, info.Symbol, ErrNotIssuer)
	}
	if info.Supply, err = amount.Add(info.Supply, amt); err != nil {
		return fmt.Errorf("%s supply: %w", info.Symbol, err)
	}
	if err := l.credit(ref, to, amt); err != nil {
		return err
	}
	if err := l.putInfo(info); err != nil {
		return err
	}
	return l.emit(events.KindTokenMinted, map[string]any{"ref": ref, "to": to, "amount": amt})
}

// BalanceOf returns owner's balance of ref.
func (l *Ledger) BalanceOf(ref, owner types.Address) (uint64, error) {
	return l.getU64(balanceKey(ref, owner))
}

// Allowance returns how much spender may move from owner's ref balance.
func (l *Ledger) Allowance(ref, owner, spender types.Address) (uint64, error) {
	return l.getU64(allowanceKey(ref, owner, spender))
}

// Approve sets spender's allowance over owner's ref balance.
func (l *Ledger) Approve(ref, owner, spender types.Address, amt uint64) error {
	if _, err := l.Info(ref); err != nil {
		return err
	}
	if owner.IsZero() || spender.IsZero() {
		return ErrZeroAddress
	}
	if err := l.putU64(allowanceKey(ref, owner, spender), amt); err != nil {
		return err
	}
	return l.emit(events.KindTokenApproval, map[string]any{
		"ref": ref, "owner": owner, "spender": spender, "amount": amt,
	})
}

// Transfer moves amt of ref from one account to another.
func (l *Ledger) Transfer(ref, from, to types.Address, amt uint64) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	if err := l.debit(ref, from, amt); err != nil {
		return err
	}
	if err := l.credit(ref, to, amt); err != nil {
		return err
	}
	return l.emit(events.KindTokenTransfer, map[string]any{
		"ref": ref, "from": from, "to": to, "amount": amt,
	})
}

// TransferFrom moves amt of ref from owner to to on behalf of spender,
// consuming spender's allowance.
func (l *Ledger) TransferFrom(ref, spender, from, to types.Address, amt uint64) error {
	allowed, err := l.Allowance(ref, from, spender)
	if err != nil {
		return err
	}
	if allowed < amt {
		return fmt.Errorf("allowance %d, need %d: %w", allowed, amt, ErrInsufficientAllowance)
	}
	if err := l.Transfer(ref, from, to, amt); err != nil {
		return err
	}
	if allowed == Unlimited {
		return nil
	}
	return l.putU64(allowanceKey(ref, from, spender), allowed-amt)
}

func (l *Ledger) debit(ref, owner types.Address, amt uint64) error {
	bal, err := l.BalanceOf(ref, owner)
	if err != nil {
		return err
	}
	if bal < amt {
		return fmt.Errorf("balance %d, need %d: %w", bal, amt, ErrInsufficientBalance)
	}
	return l.putU64(balanceKey(ref, owner), bal-amt)
}

func (l *Ledger) credit(ref, owner types.Address, amt uint64) error {
	bal, err := l.BalanceOf(ref, owner)
	if err != nil {
		return err
	}
	if bal, err = amount.Add(bal, amt); err != nil {
		return fmt.Errorf("credit %s: %w", owner, err)
	}
	return l.putU64(balanceKey(ref, owner), bal)
}

func (l *Ledger) getU64(key []byte) (uint64, error) {
	data, err := l.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt amount of %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func (l *Ledger) putU64(key []byte, v uint64) error {
	if v == 0 {
		return l.db.Delete(key)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return l.db.Put(key, buf[:])
}

func infoKey(ref types.Address) []byte {
	return append(append([]byte{}, prefixInfo...), ref[:]...)
}

func balanceKey(ref, owner types.Address) []byte {
	key := append(append([]byte{}, prefixBalance...), ref[:]...)
	return append(key, owner[:]...)
}

func allowanceKey(ref, owner, spender types.Address) []byte {
	key := append(append([]byte{}, prefixAllowance...), ref[:]...)
	key = append(key, owner[:]...)
	return append(key, spender[:]...)
}
