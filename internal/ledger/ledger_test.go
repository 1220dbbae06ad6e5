package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Klingon-tech/nfb-ledger/internal/access"
	"github.com/Klingon-tech/nfb-ledger/internal/events"
	"github.com/Klingon-tech/nfb-ledger/internal/hooks"
	"github.com/Klingon-tech/nfb-ledger/internal/metadata"
	"github.com/Klingon-tech/nfb-ledger/internal/registry"
	"github.com/Klingon-tech/nfb-ledger/internal/sales"
	"github.com/Klingon-tech/nfb-ledger/internal/storage"
	"github.com/Klingon-tech/nfb-ledger/pkg/crypto"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

const price = 500

var (
	admin      = types.Address{0xAD}
	withdrawer = types.Address{0x3D}
	buyer      = types.Address{0xB1}
	recipient  = types.Address{0xC1}
	capRef     = crypto.DeriveAddress("handler", "walletcap")
	imageRef   = crypto.DeriveAddress("resolver", "image")
)

func newLedger(t *testing.T, db storage.DB) *Ledger {
	t.Helper()
	l, err := New(db, Genesis{
		Admins: []types.Address{admin},
		Alloc:  map[types.Address]uint64{buyer: 100_000},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.SetClock(func() time.Time { return time.Unix(1_500, 0) })
	return l
}

// setupSale opens series 1 edition 1 for sale at price with supply 10.
func setupSale(t *testing.T, l *Ledger) {
	t.Helper()
	err := l.Update("setup", func(st *State) error {
		if err := st.Access.Grant(admin, withdrawer, access.RoleWithdrawer); err != nil {
			return err
		}
		if err := st.Registry.SetSeries(admin, 1, "Genesis", "First series"); err != nil {
			return err
		}
		if err := st.Registry.SetEdition(admin, 1, 1, 1_000, 2_000, "Dawn"); err != nil {
			return err
		}
		return st.Sales.SetSaleConfig(admin, 1, 1, RegistryRef, 10, price, 5)
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func purchase(l *Ledger, qty, value uint64) (*sales.Receipt, error) {
	var receipt *sales.Receipt
	err := l.Update("purchase", func(st *State) error {
		var err error
		receipt, err = st.Sales.Purchase(context.Background(), sales.PurchaseRequest{
			Buyer: buyer, SeriesID: 1, EditionID: 1, Quantity: qty, Recipient: recipient, Value: value,
		})
		return err
	})
	return receipt, err
}

type snapshot struct {
	sold, minted, owned, buyerNative, engineNative, events uint64
}

func takeSnapshot(t *testing.T, l *Ledger) snapshot {
	t.Helper()
	var s snapshot
	err := l.View(func(st *State) error {
		s.sold, _ = st.Sales.Sold(1, 1)
		ed, err := st.Registry.Edition(1, 1)
		if err != nil {
			return err
		}
		s.minted = ed.MintedCount
		s.owned, _ = st.Registry.BalanceOf(recipient)
		s.buyerNative, _ = st.Bank.BalanceOf(buyer)
		s.engineNative, _ = st.Bank.BalanceOf(sales.EngineAccount)
		s.events, _ = st.Events.Head()
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	return s
}

func TestGenesis(t *testing.T) {
	db := storage.NewMemory()
	l := newLedger(t, db)

	err := l.View(func(st *State) error {
		for _, r := range []access.Role{access.RoleAdmin, access.RoleManager} {
			if ok, _ := st.Access.HasRole(admin, r); !ok {
				t.Errorf("admin lacks %s", r)
			}
		}
		if ok, _ := st.Access.HasRole(sales.EngineAccount, access.RoleMinter); !ok {
			t.Error("engine account lacks minter role")
		}
		if bal, _ := st.Bank.BalanceOf(buyer); bal != 100_000 {
			t.Errorf("buyer alloc = %d", bal)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// A second open must not re-apply the allocation.
	l2, err := New(db, Genesis{Alloc: map[types.Address]uint64{buyer: 100_000}})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	l2.View(func(st *State) error {
		if bal, _ := st.Bank.BalanceOf(buyer); bal != 100_000 {
			t.Errorf("buyer balance after reopen = %d", bal)
		}
		return nil
	})
}

func TestUpdate_DiscardOnError(t *testing.T) {
	l := newLedger(t, storage.NewMemory())
	boom := errors.New("boom")

	err := l.Update("fail", func(st *State) error {
		if err := st.Registry.SetSeries(admin, 9, "x", "y"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	l.View(func(st *State) error {
		if _, err := st.Registry.Series(9); !errors.Is(err, registry.ErrSeriesNotFound) {
			t.Errorf("series survived failed op: %v", err)
		}
		return nil
	})
}

func TestView_DropsWrites(t *testing.T) {
	l := newLedger(t, storage.NewMemory())
	l.View(func(st *State) error {
		return st.Registry.SetSeries(admin, 4, "x", "y")
	})
	l.View(func(st *State) error {
		if _, err := st.Registry.Series(4); !errors.Is(err, registry.ErrSeriesNotFound) {
			t.Errorf("view write persisted: %v", err)
		}
		return nil
	})
}

func TestPurchase_EndToEnd(t *testing.T) {
	l := newLedger(t, storage.NewMemory())
	setupSale(t, l)

	receipt, err := purchase(l, 3, 3*price)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if len(receipt.TokenIDs) != 3 {
		t.Fatalf("minted %d", len(receipt.TokenIDs))
	}
	s := takeSnapshot(t, l)
	if s.sold != 3 || s.minted != 3 || s.owned != 3 || s.engineNative != 3*price || s.buyerNative != 100_000-3*price {
		t.Errorf("snapshot = %+v", s)
	}

	var w *sales.Withdrawal
	err = l.Update("withdraw", func(st *State) error {
		w, err = st.Sales.WithdrawNative(withdrawer)
		return err
	})
	if err != nil || w.Amount != 3*price {
		t.Fatalf("withdraw = %+v, %v", w, err)
	}
	err = l.Update("withdraw", func(st *State) error {
		_, err := st.Sales.WithdrawNative(withdrawer)
		return err
	})
	if !errors.Is(err, sales.ErrNothingToWithdraw) {
		t.Errorf("second withdraw err = %v", err)
	}

	var evs []events.Event
	l.View(func(st *State) error {
		evs, err = st.Events.List(0, 0, events.KindWithdrawn)
		return err
	})
	if len(evs) != 1 {
		t.Errorf("withdrawn events = %d, want 1", len(evs))
	}
}

func TestPurchase_HandlerFailureRollsBack(t *testing.T) {
	l := newLedger(t, storage.NewMemory())
	setupSale(t, l)
	l.RegisterHandler(capRef, &hooks.WalletCap{Limit: 4})
	if err := l.Update("handler", func(st *State) error {
		return st.Sales.SetCustomHandler(admin, 1, 1, capRef)
	}); err != nil {
		t.Fatalf("SetCustomHandler: %v", err)
	}

	if _, err := purchase(l, 3, 3*price); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	before := takeSnapshot(t, l)

	if _, err := purchase(l, 2, 2*price); !errors.Is(err, hooks.ErrWalletCapExceeded) {
		t.Fatalf("err = %v, want ErrWalletCapExceeded", err)
	}
	if after := takeSnapshot(t, l); after != before {
		t.Errorf("failed purchase changed state:\nbefore %+v\nafter  %+v", before, after)
	}

	if _, err := purchase(l, 1, price); err != nil {
		t.Errorf("purchase within cap: %v", err)
	}
}

func TestPurchase_RejectedLeavesNoTrace(t *testing.T) {
	l := newLedger(t, storage.NewMemory())
	setupSale(t, l)
	before := takeSnapshot(t, l)

	if _, err := purchase(l, 1, price+1); !errors.Is(err, sales.ErrInvalidPaymentAmount) {
		t.Fatalf("err = %v", err)
	}
	if _, err := purchase(l, 6, 6*price); !errors.Is(err, sales.ErrTooManyUnits) {
		t.Fatalf("err = %v", err)
	}
	if after := takeSnapshot(t, l); after != before {
		t.Errorf("state changed: %+v -> %+v", before, after)
	}
}

func TestTokenURI_RegisteredResolver(t *testing.T) {
	l := newLedger(t, storage.NewMemory())
	setupSale(t, l)
	l.RegisterResolver(imageRef, &metadata.ImageResolver{Name: "Badge", Image: "https://img/x.png"})

	receipt, err := purchase(l, 1, price)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if err := l.Update("resolver", func(st *State) error {
		return st.Registry.SetTokenURIResolver(admin, 1, 1, imageRef)
	}); err != nil {
		t.Fatalf("SetTokenURIResolver: %v", err)
	}

	var uri string
	l.View(func(st *State) error {
		uri, err = st.Registry.TokenURI(receipt.TokenIDs[0])
		return err
	})
	if err != nil {
		t.Fatalf("TokenURI: %v", err)
	}
	doc, err := metadata.Decode(uri)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Description != "First series" || doc.Image != "https://img/x.png" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestBadgerPersistence(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	l := newLedger(t, db)
	setupSale(t, l)
	if _, err := purchase(l, 2, 2*price); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	db.Close()

	db2, err := storage.NewBadger(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()
	l2 := newLedger(t, db2)
	s := takeSnapshot(t, l2)
	if s.sold != 2 || s.owned != 2 || s.buyerNative != 100_000-2*price {
		t.Errorf("after reopen = %+v", s)
	}
}

func TestInfo(t *testing.T) {
	l := newLedger(t, storage.NewMemory())
	setupSale(t, l)
	purchase(l, 1, price)

	var info *Info
	l.View(func(st *State) error {
		var err error
		info, err = st.Info()
		return err
	})
	if info == nil {
		t.Fatal("no info")
	}
	if info.Series != 1 || info.SaleConfigs != 1 || info.NativeSupply != 100_000 || info.EngineNative != price {
		t.Errorf("info = %+v", info)
	}
	if info.RegistryRef != RegistryRef || info.Time != 1_500 {
		t.Errorf("info = %+v", info)
	}
}
