package sales

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/nfb-ledger/internal/access"
	"github.com/Klingon-tech/nfb-ledger/internal/events"
	klog "github.com/Klingon-tech/nfb-ledger/internal/log"
	"github.com/Klingon-tech/nfb-ledger/internal/storage"
	"github.com/Klingon-tech/nfb-ledger/pkg/amount"
	"github.com/Klingon-tech/nfb-ledger/pkg/tokenid"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
	"github.com/rs/zerolog"
)

// variantConfig is the variant slot of the sale configuration record.
const variantConfig = 0

var prefixConfig = []byte("c/") // c/<join3(series,edition,0)(8)> -> SaleConfig JSON

// Engine runs sales. It takes no locks; callers serialize operations.
type Engine struct {
	db     storage.DB
	acl    access.Checker
	bank   NativeBank
	dir    Directory
	events events.Emitter
	logger zerolog.Logger
}

// New creates a sales engine. ev may be nil.
func New(db storage.DB, acl access.Checker, bank NativeBank, dir Directory, ev events.Emitter) *Engine {
	return &Engine{
		db:     db,
		acl:    acl,
		bank:   bank,
		dir:    dir,
		events: ev,
		logger: klog.Sales,
	}
}

// Address returns the account that collects sale proceeds.
func (e *Engine) Address() types.Address {
	return EngineAccount
}

func (e *Engine) emit(kind string, data any) error {
	if e.events == nil {
		return nil
	}
	return e.events.Emit(kind, data)
}

func configKey(seriesID, editionID uint64) ([]byte, error) {
	packed, err := tokenid.JoinSeriesEditionAndVariant(seriesID, editionID, variantConfig)
	if err != nil {
		return nil, err
	}
	key := make([]byte, len(prefixConfig)+8)
	copy(key, prefixConfig)
	binary.BigEndian.PutUint64(key[len(prefixConfig):], packed)
	return key, nil
}

func (e *Engine) load(seriesID, editionID uint64) (*SaleConfig, bool, error) {
	key, err := configKey(seriesID, editionID)
	if err != nil {
		return nil, false, err
	}
	data, err := e.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return &SaleConfig{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sale config get: %w", err)
	}
	var cfg SaleConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, false, fmt.Errorf("sale config unmarshal: %w", err)
	}
	return &cfg, true, nil
}

func (e *Engine) save(cfg *SaleConfig) error {
	key, err := configKey(cfg.SeriesID, cfg.EditionID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("sale config marshal: %w", err)
	}
	if err := e.db.Put(key, data); err != nil {
		return fmt.Errorf("sale config put: %w", err)
	}
	return nil
}

func (e *Engine) configured(seriesID, editionID uint64) (*SaleConfig, error) {
	cfg, ok, err := e.load(seriesID, editionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("edition %d/%d: %w", seriesID, editionID, ErrSaleNotConfigured)
	}
	return cfg, nil
}

// SetSaleConfig creates or overwrites the price and supply policy of an
// edition. Sold, the payment token, the enforce flag and the custom handler
// of an existing configuration are kept.
func (e *Engine) SetSaleConfig(caller types.Address, seriesID, editionID uint64, nfbRef types.Address, maxSupply, nativePrice, maxUnitsPerTx uint64) error {
	if err := e.acl.Require(caller, access.RoleManager); err != nil {
		return err
	}
	if nfbRef.IsZero() {
		return ErrInvalidNFBRef
	}
	cfg, _, err := e.load(seriesID, editionID)
	if err != nil {
		return err
	}
	cfg.SeriesID = seriesID
	cfg.EditionID = editionID
	cfg.NFBRef = nfbRef
	cfg.MaxSupplyForSale = maxSupply
	cfg.NativePrice = nativePrice
	cfg.MaxUnitsPerTx = maxUnitsPerTx
	if err := e.save(cfg); err != nil {
		return err
	}
	return e.emit(events.KindSaleSet, cfg)
}

// SetPaymentToken attaches an alternate-currency price. A zero surcharge
// allows token-only payment.
func (e *Engine) SetPaymentToken(caller types.Address, seriesID, editionID uint64, tokenRef types.Address, tokenPrice, nativeSurcharge uint64) error {
	if err := e.acl.Require(caller, access.RoleManager); err != nil {
		return err
	}
	cfg, err := e.configured(seriesID, editionID)
	if err != nil {
		return err
	}
	if tokenRef.IsZero() {
		cfg.Payment = nil
	} else {
		cfg.Payment = &TokenPayment{Token: tokenRef, TokenPrice: tokenPrice, NativeSurcharge: nativeSurcharge}
	}
	if err := e.save(cfg); err != nil {
		return err
	}
	return e.emit(events.KindPaymentTokenSet, cfg)
}

// ToggleEnforceTokenPayment flips whether buyers must pay with the token.
func (e *Engine) ToggleEnforceTokenPayment(caller types.Address, seriesID, editionID uint64) (bool, error) {
	if err := e.acl.Require(caller, access.RoleManager); err != nil {
		return false, err
	}
	cfg, err := e.configured(seriesID, editionID)
	if err != nil {
		return false, err
	}
	cfg.EnforceTokenPayment = !cfg.EnforceTokenPayment
	if err := e.save(cfg); err != nil {
		return false, err
	}
	return cfg.EnforceTokenPayment, e.emit(events.KindEnforceToggled, map[string]any{
		"seriesId": seriesID, "editionId": editionID, "enforceTokenPayment": cfg.EnforceTokenPayment,
	})
}

// SetCustomHandler registers a post-purchase hook. The zero address clears it.
func (e *Engine) SetCustomHandler(caller types.Address, seriesID, editionID uint64, handlerRef types.Address) error {
	if err := e.acl.Require(caller, access.RoleManager); err != nil {
		return err
	}
	cfg, err := e.configured(seriesID, editionID)
	if err != nil {
		return err
	}
	cfg.CustomHandler = handlerRef
	if err := e.save(cfg); err != nil {
		return err
	}
	return e.emit(events.KindHandlerSet, map[string]any{
		"seriesId": seriesID, "editionId": editionID, "customHandler": handlerRef,
	})
}

// SaleConfig returns the configuration of an edition.
func (e *Engine) SaleConfig(seriesID, editionID uint64) (*SaleConfig, error) {
	return e.configured(seriesID, editionID)
}

// Sold returns how many units of an edition have been sold.
func (e *Engine) Sold(seriesID, editionID uint64) (uint64, error) {
	cfg, err := e.configured(seriesID, editionID)
	if err != nil {
		return 0, err
	}
	return cfg.Sold, nil
}

// ListSaleConfigs returns every configuration in (series, edition) order.
func (e *Engine) ListSaleConfigs() ([]SaleConfig, error) {
	out := []SaleConfig{}
	err := e.db.ForEach(prefixConfig, func(_, value []byte) error {
		var cfg SaleConfig
		if err := json.Unmarshal(value, &cfg); err != nil {
			return fmt.Errorf("sale config unmarshal: %w", err)
		}
		out = append(out, cfg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// quote resolves the payment method and computes the exact amounts.
func quote(cfg *SaleConfig, quantity uint64, token types.Address) (*Quote, error) {
	if token.IsZero() {
		if cfg.EnforceTokenPayment {
			return nil, ErrTokenPaymentRequired
		}
		native, err := amount.Mul(cfg.NativePrice, quantity)
		if err != nil {
			return nil, fmt.Errorf("native price: %w", ErrArithmeticOverflow)
		}
		return &Quote{Native: native}, nil
	}
	if cfg.Payment == nil || cfg.Payment.Token != token {
		return nil, fmt.Errorf("token %s: %w", token, ErrPaymentTokenMismatch)
	}
	tok, err := amount.Mul(cfg.Payment.TokenPrice, quantity)
	if err != nil {
		return nil, fmt.Errorf("token price: %w", ErrArithmeticOverflow)
	}
	native, err := amount.Mul(cfg.Payment.NativeSurcharge, quantity)
	if err != nil {
		return nil, fmt.Errorf("native surcharge: %w", ErrArithmeticOverflow)
	}
	return &Quote{Native: native, Token: tok, PaymentToken: token}, nil
}

// Quote returns the exact amounts a purchase of quantity units would take.
func (e *Engine) Quote(seriesID, editionID, quantity uint64, token types.Address) (*Quote, error) {
	cfg, err := e.configured(seriesID, editionID)
	if err != nil {
		return nil, err
	}
	return quote(cfg, quantity, token)
}

// Purchase sells req.Quantity units to req.Recipient. Supply is reserved
// and persisted before any collaborator runs, so a reentrant purchase sees
// the advanced Sold count. Any error leaves the caller to discard the
// operation's writes.
func (e *Engine) Purchase(ctx context.Context, req PurchaseRequest) (*Receipt, error) {
	if req.Recipient.IsZero() {
		return nil, ErrInvalidRecipient
	}
	cfg, err := e.configured(req.SeriesID, req.EditionID)
	if err != nil {
		return nil, err
	}
	if req.Quantity == 0 {
		return nil, ErrZeroQuantity
	}
	if req.Quantity > cfg.MaxUnitsPerTx {
		return nil, fmt.Errorf("quantity %d exceeds %d per purchase: %w", req.Quantity, cfg.MaxUnitsPerTx, ErrTooManyUnits)
	}
	sold, err := amount.Add(cfg.Sold, req.Quantity)
	if err != nil || sold > cfg.MaxSupplyForSale {
		return nil, fmt.Errorf("%d of %d sold, %d requested: %w", cfg.Sold, cfg.MaxSupplyForSale, req.Quantity, ErrSoldOut)
	}
	q, err := quote(cfg, req.Quantity, req.PaymentToken)
	if err != nil {
		return nil, err
	}
	if req.Value != q.Native {
		return nil, fmt.Errorf("sent %d, required %d: %w", req.Value, q.Native, ErrInvalidPaymentAmount)
	}

	cfg.Sold = sold
	if err := e.save(cfg); err != nil {
		return nil, err
	}

	if q.Native > 0 {
		if err := e.bank.Transfer(req.Buyer, EngineAccount, q.Native); err != nil {
			return nil, err
		}
	}
	if !q.PaymentToken.IsZero() {
		tok, err := e.dir.PaymentToken(q.PaymentToken)
		if err != nil {
			return nil, err
		}
		if err := tok.TransferFrom(EngineAccount, req.Buyer, EngineAccount, q.Token); err != nil {
			return nil, err
		}
	}

	minter, err := e.dir.Minter(cfg.NFBRef)
	if err != nil {
		return nil, err
	}
	ids, err := minter.Mint(EngineAccount, req.Recipient, req.Quantity, req.SeriesID, req.EditionID)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		Buyer:        req.Buyer,
		Recipient:    req.Recipient,
		SeriesID:     req.SeriesID,
		EditionID:    req.EditionID,
		Quantity:     req.Quantity,
		TokenIDs:     ids,
		NativePaid:   q.Native,
		TokenPaid:    q.Token,
		PaymentToken: q.PaymentToken,
		ReferralCode: req.ReferralCode,
	}

	if !cfg.CustomHandler.IsZero() {
		h, err := e.dir.CustomHandler(cfg.CustomHandler)
		if err != nil {
			return nil, err
		}
		pc := &PurchaseContext{Receipt: *receipt, Config: *cfg, DB: e.db}
		if err := h.OnPurchase(ctx, pc); err != nil {
			return nil, err
		}
	}

	if err := e.emit(events.KindPurchased, receipt); err != nil {
		return nil, err
	}
	e.logger.Info().
		Uint64("series", req.SeriesID).
		Uint64("edition", req.EditionID).
		Uint64("quantity", req.Quantity).
		Uint64("native", q.Native).
		Uint64("token", q.Token).
		Str("buyer", req.Buyer.String()).
		Msg("Purchase")
	return receipt, nil
}

// WithdrawNative pays the engine's whole native balance to the caller.
func (e *Engine) WithdrawNative(caller types.Address) (*Withdrawal, error) {
	if err := e.acl.Require(caller, access.RoleWithdrawer); err != nil {
		return nil, err
	}
	bal, err := e.bank.BalanceOf(EngineAccount)
	if err != nil {
		return nil, err
	}
	if bal == 0 {
		return nil, ErrNothingToWithdraw
	}
	if err := e.bank.Transfer(EngineAccount, caller, bal); err != nil {
		return nil, err
	}
	w := &Withdrawal{To: caller, Amount: bal}
	return w, e.emit(events.KindWithdrawn, w)
}

// WithdrawTokens pays the engine's whole balance of tokenRef to the caller.
func (e *Engine) WithdrawTokens(caller, tokenRef types.Address) (*Withdrawal, error) {
	if err := e.acl.Require(caller, access.RoleWithdrawer); err != nil {
		return nil, err
	}
	tok, err := e.dir.PaymentToken(tokenRef)
	if err != nil {
		return nil, err
	}
	bal, err := tok.BalanceOf(EngineAccount)
	if err != nil {
		return nil, err
	}
	if bal == 0 {
		return nil, ErrNothingToWithdraw
	}
	if err := tok.Transfer(EngineAccount, caller, bal); err != nil {
		return nil, err
	}
	w := &Withdrawal{To: caller, Token: tokenRef, Amount: bal}
	return w, e.emit(events.KindWithdrawn, w)
}
