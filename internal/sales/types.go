// Package sales sells registry tokens for native currency or an alternate
// payment token under per-edition pricing, supply and payment policy.
package sales

import (
	"context"
	"errors"

	"github.com/Klingon-tech/nfb-ledger/internal/storage"
	"github.com/Klingon-tech/nfb-ledger/pkg/crypto"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

// Sales errors.
var (
	ErrSaleNotConfigured    = errors.New("sale not configured")
	ErrInvalidRecipient     = errors.New("invalid recipient")
	ErrZeroQuantity         = errors.New("quantity is zero")
	ErrTooManyUnits         = errors.New("too many nfbs")
	ErrSoldOut              = errors.New("sold out")
	ErrTokenPaymentRequired = errors.New("token payment required")
	ErrPaymentTokenMismatch = errors.New("payment token not accepted")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrNothingToWithdraw    = errors.New("nothing to withdraw")
	ErrArithmeticOverflow   = errors.New("arithmetic overflow")
	ErrInvalidNFBRef        = errors.New("invalid nfb reference")
	ErrCollaboratorNotFound = errors.New("collaborator not found")
)

// EngineAccount holds the funds collected by sales until withdrawn.
var EngineAccount = crypto.DeriveAddress("sales", "engine")

// TokenPayment is the alternate-currency price of a sale.
type TokenPayment struct {
	Token           types.Address `json:"token"`
	TokenPrice      uint64        `json:"tokenPrice"`
	NativeSurcharge uint64        `json:"nativeSurcharge"`
}

// SaleConfig is the pricing, supply and payment policy of one edition.
type SaleConfig struct {
	SeriesID            uint64        `json:"seriesId"`
	EditionID           uint64        `json:"editionId"`
	NFBRef              types.Address `json:"nfbRef"`
	MaxSupplyForSale    uint64        `json:"maxSupplyForSale"`
	NativePrice         uint64        `json:"nativePrice"`
	MaxUnitsPerTx       uint64        `json:"maxUnitsPerTx"`
	Sold                uint64        `json:"sold"`
	Payment             *TokenPayment `json:"payment,omitempty"`
	EnforceTokenPayment bool          `json:"enforceTokenPayment"`
	CustomHandler       types.Address `json:"customHandler"`
}

// Remaining returns how many units are still for sale.
func (c *SaleConfig) Remaining() uint64 {
	if c.Sold >= c.MaxSupplyForSale {
		return 0
	}
	return c.MaxSupplyForSale - c.Sold
}

// PurchaseRequest is the input of Purchase. A zero PaymentToken pays in
// native currency only.
type PurchaseRequest struct {
	Buyer        types.Address `json:"buyer"`
	SeriesID     uint64        `json:"seriesId"`
	EditionID    uint64        `json:"editionId"`
	Quantity     uint64        `json:"quantity"`
	Recipient    types.Address `json:"recipient"`
	PaymentToken types.Address `json:"paymentToken"`
	ReferralCode string        `json:"referralCode"`
	Value        uint64        `json:"value"`
}

// Quote is the exact payment a purchase requires.
type Quote struct {
	Native       uint64        `json:"native"`
	Token        uint64        `json:"token"`
	PaymentToken types.Address `json:"paymentToken"`
}

// Receipt records a completed purchase.
type Receipt struct {
	Buyer        types.Address `json:"buyer"`
	Recipient    types.Address `json:"recipient"`
	SeriesID     uint64        `json:"seriesId"`
	EditionID    uint64        `json:"editionId"`
	Quantity     uint64        `json:"quantity"`
	TokenIDs     []uint64      `json:"tokenIds"`
	NativePaid   uint64        `json:"nativePaid"`
	TokenPaid    uint64        `json:"tokenPaid"`
	PaymentToken types.Address `json:"paymentToken"`
	ReferralCode string        `json:"referralCode"`
}

// Withdrawal records funds moved out of the engine account.
type Withdrawal struct {
	To     types.Address `json:"to"`
	Token  types.Address `json:"token"`
	Amount uint64        `json:"amount"`
}

// Minter mints tokens on behalf of the engine.
type Minter interface {
	Mint(caller, recipient types.Address, count, seriesID, editionID uint64) ([]uint64, error)
}

// PaymentToken is a fungible token the engine can collect and pay out.
type PaymentToken interface {
	TransferFrom(spender, from, to types.Address, amount uint64) error
	Transfer(from, to types.Address, amount uint64) error
	BalanceOf(owner types.Address) (uint64, error)
}

// NativeBank moves native currency.
type NativeBank interface {
	Transfer(from, to types.Address, amount uint64) error
	BalanceOf(owner types.Address) (uint64, error)
}

// PurchaseContext is what a custom handler sees. DB is the store of the
// running operation; handler state written there commits or rolls back
// with the purchase.
type PurchaseContext struct {
	Receipt
	Config SaleConfig
	DB     storage.DB
}

// CustomHandler runs after minting inside the purchase. Returning an error
// aborts the whole purchase.
type CustomHandler interface {
	OnPurchase(ctx context.Context, pc *PurchaseContext) error
}

// Directory resolves collaborator references.
type Directory interface {
	Minter(ref types.Address) (Minter, error)
	PaymentToken(ref types.Address) (PaymentToken, error)
	CustomHandler(ref types.Address) (CustomHandler, error)
}
