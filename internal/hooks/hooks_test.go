package hooks

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	klog "github.com/Klingon-tech/nfb-ledger/internal/log"
	"github.com/Klingon-tech/nfb-ledger/internal/sales"
	"github.com/Klingon-tech/nfb-ledger/internal/storage"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

var holder = types.Address{0xC1}

func purchase(db storage.DB, qty uint64) *sales.PurchaseContext {
	return &sales.PurchaseContext{
		Receipt: sales.Receipt{SeriesID: 1, EditionID: 2, Quantity: qty, Recipient: holder},
		DB:      db,
	}
}

func TestWalletCap(t *testing.T) {
	db := storage.NewMemory()
	wc := &WalletCap{Limit: 3}
	ctx := context.Background()

	if err := wc.OnPurchase(ctx, purchase(db, 2)); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if err := wc.OnPurchase(ctx, purchase(db, 2)); !errors.Is(err, ErrWalletCapExceeded) {
		t.Fatalf("err = %v, want ErrWalletCapExceeded", err)
	}
	if err := wc.OnPurchase(ctx, purchase(db, 1)); err != nil {
		t.Fatalf("purchase up to cap: %v", err)
	}
	n, err := Purchased(db, 1, 2, holder)
	if err != nil || n != 3 {
		t.Errorf("Purchased = %d, %v; want 3", n, err)
	}

	other := purchase(db, 3)
	other.EditionID = 3
	if err := wc.OnPurchase(ctx, other); err != nil {
		t.Errorf("cap must be per edition: %v", err)
	}
}

func TestPurchaseLog(t *testing.T) {
	var buf bytes.Buffer
	p := &PurchaseLog{Logger: klog.NewJSONLogger(&buf, "info")}
	pc := purchase(storage.NewMemory(), 1)
	pc.ReferralCode = "ref-42"
	if err := p.OnPurchase(context.Background(), pc); err != nil {
		t.Fatalf("OnPurchase: %v", err)
	}
	if !strings.Contains(buf.String(), `"referral":"ref-42"`) {
		t.Errorf("log = %s", buf.String())
	}
}
