package paytoken

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/nfb-ledger/internal/events"
	"github.com/Klingon-tech/nfb-ledger/internal/storage"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

var (
	issuer = types.Address{0x15}
	alice  = types.Address{0xA1}
	bob    = types.Address{0xB0}
	engine = types.Address{0xE9}
)

func issued(t *testing.T) (*Ledger, types.Address) {
	t.Helper()
	l := NewLedger(storage.NewMemory(), &events.Recorder{})
	info, err := l.Issue(issuer, "USDX", "Test Dollar", 6)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := l.Mint(issuer, info.Ref, alice, 1_000); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return l, info.Ref
}

func TestIssue(t *testing.T) {
	l, ref := issued(t)

	if ref != RefForSymbol("USDX") {
		t.Error("ref is not derived from symbol")
	}
	info, err := l.Info(ref)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Supply != 1_000 || info.Decimals != 6 || info.Issuer != issuer {
		t.Errorf("info = %+v", info)
	}

	if _, err := l.Issue(issuer, "USDX", "again", 6); !errors.Is(err, ErrTokenExists) {
		t.Errorf("duplicate err = %v, want ErrTokenExists", err)
	}
	for _, sym := range []string{"", "x", "lower", "WAY_TOO_LONG_SYMBOL"} {
		if _, err := l.Issue(issuer, sym, "", 0); !errors.Is(err, ErrInvalidSymbol) {
			t.Errorf("Issue(%q) err = %v, want ErrInvalidSymbol", sym, err)
		}
	}
	list, _ := l.List()
	if len(list) != 1 || list[0].Symbol != "USDX" {
		t.Errorf("List = %+v", list)
	}
}

func TestMint_OnlyIssuer(t *testing.T) {
	l, ref := issued(t)
	if err := l.Mint(alice, ref, alice, 1); !errors.Is(err, ErrNotIssuer) {
		t.Errorf("err = %v, want ErrNotIssuer", err)
	}
	if err := l.Mint(issuer, RefForSymbol("NOPE"), alice, 1); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("err = %v, want ErrTokenNotFound", err)
	}
}

func TestTransfer(t *testing.T) {
	l, ref := issued(t)

	if err := l.Transfer(ref, alice, bob, 400); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if bal, _ := l.BalanceOf(ref, alice); bal != 600 {
		t.Errorf("alice = %d, want 600", bal)
	}
	if bal, _ := l.BalanceOf(ref, bob); bal != 400 {
		t.Errorf("bob = %d, want 400", bal)
	}
	if err := l.Transfer(ref, bob, alice, 401); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}
	if err := l.Transfer(ref, alice, types.ZeroAddress, 1); !errors.Is(err, ErrZeroAddress) {
		t.Errorf("err = %v, want ErrZeroAddress", err)
	}
}

func TestTransferFrom(t *testing.T) {
	l, ref := issued(t)

	err := l.TransferFrom(ref, engine, alice, engine, 100)
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("no allowance err = %v, want ErrInsufficientAllowance", err)
	}

	if err := l.Approve(ref, alice, engine, 150); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := l.TransferFrom(ref, engine, alice, engine, 100); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if left, _ := l.Allowance(ref, alice, engine); left != 50 {
		t.Errorf("allowance = %d, want 50", left)
	}
	if err := l.TransferFrom(ref, engine, alice, engine, 51); !errors.Is(err, ErrInsufficientAllowance) {
		t.Errorf("err = %v, want ErrInsufficientAllowance", err)
	}

	l.Approve(ref, bob, engine, 10)
	if err := l.TransferFrom(ref, engine, bob, engine, 10); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}
	if left, _ := l.Allowance(ref, bob, engine); left != 10 {
		t.Errorf("failed transfer consumed allowance: %d", left)
	}
}

func TestTransferFrom_Unlimited(t *testing.T) {
	l, ref := issued(t)
	l.Approve(ref, alice, engine, Unlimited)
	if err := l.TransferFrom(ref, engine, alice, engine, 999); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if left, _ := l.Allowance(ref, alice, engine); left != Unlimited {
		t.Errorf("unlimited allowance decremented to %d", left)
	}
}

func TestTokenHandle(t *testing.T) {
	l, ref := issued(t)
	tok, err := l.Token(ref)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if err := tok.Transfer(alice, bob, 5); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if bal, _ := tok.BalanceOf(bob); bal != 5 {
		t.Errorf("bob = %d", bal)
	}
	if _, err := l.Token(RefForSymbol("NONE")); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("err = %v, want ErrTokenNotFound", err)
	}
}

func TestBank(t *testing.T) {
	l := NewLedger(storage.NewMemory(), nil)
	bank := NewBank(l)

	if err := bank.Allocate(alice, 500); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	bank.Allocate(bob, 250)
	if err := bank.Transfer(alice, engine, 200); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if bal, _ := bank.BalanceOf(engine); bal != 200 {
		t.Errorf("engine = %d, want 200", bal)
	}
	if err := bank.Transfer(bob, engine, 251); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}
	supply, err := bank.Supply()
	if err != nil || supply != 750 {
		t.Errorf("Supply = %d, %v; want 750", supply, err)
	}
}
