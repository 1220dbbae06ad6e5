// Package hooks provides built-in custom purchase handlers.
package hooks

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	klog "github.com/Klingon-tech/nfb-ledger/internal/log"
	"github.com/Klingon-tech/nfb-ledger/internal/sales"
	"github.com/Klingon-tech/nfb-ledger/internal/storage"
	"github.com/Klingon-tech/nfb-ledger/pkg/amount"
	"github.com/Klingon-tech/nfb-ledger/pkg/tokenid"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
	"github.com/rs/zerolog"
)

// ErrWalletCapExceeded is returned when a recipient would hold more
// purchased units of an edition than the cap allows.
var ErrWalletCapExceeded = errors.New("wallet cap exceeded")

var prefixCap = []byte("hook/cap/") // hook/cap/<join(series,edition)(8)><recipient(20)> -> units(8)

// WalletCap limits how many units of an edition one recipient can buy.
type WalletCap struct {
	Limit uint64
}

// OnPurchase implements sales.CustomHandler.
func (w *WalletCap) OnPurchase(_ context.Context, pc *sales.PurchaseContext) error {
	key, err := capKey(pc.SeriesID, pc.EditionID, pc.Recipient)
	if err != nil {
		return err
	}
	held, err := getUint64(pc.DB, key)
	if err != nil {
		return err
	}
	total, err := amount.Add(held, pc.Quantity)
	if err != nil || total > w.Limit {
		return fmt.Errorf("%s would hold %d of %d/%d, cap %d: %w",
			pc.Recipient, held+pc.Quantity, pc.SeriesID, pc.EditionID, w.Limit, ErrWalletCapExceeded)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], total)
	return pc.DB.Put(key, buf[:])
}

// Purchased returns how many units of an edition recipient bought under a cap.
func Purchased(db storage.DB, seriesID, editionID uint64, recipient types.Address) (uint64, error) {
	key, err := capKey(seriesID, editionID, recipient)
	if err != nil {
		return 0, err
	}
	return getUint64(db, key)
}

func capKey(seriesID, editionID uint64, recipient types.Address) ([]byte, error) {
	packed, err := tokenid.JoinSeriesAndEdition(seriesID, editionID)
	if err != nil {
		return nil, err
	}
	key := make([]byte, 0, len(prefixCap)+8+types.AddressSize)
	key = append(key, prefixCap...)
	key = binary.BigEndian.AppendUint64(key, packed)
	return append(key, recipient[:]...), nil
}

func getUint64(db storage.DB, key []byte) (uint64, error) {
	data, err := db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt counter of %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// PurchaseLog logs every purchase it sees.
type PurchaseLog struct {
	Logger zerolog.Logger
}

// NewPurchaseLog returns a PurchaseLog writing to the hooks component logger.
func NewPurchaseLog() *PurchaseLog {
	return &PurchaseLog{Logger: klog.WithComponent("hooks")}
}

// OnPurchase implements sales.CustomHandler.
func (p *PurchaseLog) OnPurchase(_ context.Context, pc *sales.PurchaseContext) error {
	p.Logger.Info().
		Uint64("series", pc.SeriesID).
		Uint64("edition", pc.EditionID).
		Uint64("quantity", pc.Quantity).
		Str("buyer", pc.Buyer.String()).
		Str("recipient", pc.Recipient.String()).
		Str("referral", pc.ReferralCode).
		Uint64("sold", pc.Config.Sold).
		Msg("Purchase recorded")
	return nil
}
