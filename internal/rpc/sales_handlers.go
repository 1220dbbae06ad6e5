package rpc

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/nfb-ledger/internal/ledger"
	"github.com/Klingon-tech/nfb-ledger/internal/registry"
	"github.com/Klingon-tech/nfb-ledger/internal/sales"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

// ── Sale configuration ──────────────────────────────────────────────────

func saleResult(cfg *sales.SaleConfig) *SaleResult {
	return &SaleResult{SaleConfig: *cfg, Remaining: cfg.Remaining()}
}

func (s *Server) handleSaleSet(req *Request) (interface{}, *Error) {
	var p SaleSetParam
	limit := s.ledger.MintLimit()
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		ref := p.NFBRef
		if ref.IsZero() {
			ref = ledger.RegistryRef
		}
		if err := st.Sales.SetSaleConfig(caller, p.Series, p.Edition, ref, p.MaxSupplyForSale, p.NativePrice, p.MaxUnitsPerTx); err != nil {
			return nil, err
		}
		if limit > 0 && p.MaxUnitsPerTx > limit {
			return nil, fmt.Errorf("max units per purchase %d over %d: %w", p.MaxUnitsPerTx, limit, registry.ErrMintLimit)
		}
		cfg, err := st.Sales.SaleConfig(p.Series, p.Edition)
		if err != nil {
			return nil, err
		}
		return saleResult(cfg), nil
	})
}

func (s *Server) handleSaleSetPaymentToken(req *Request) (interface{}, *Error) {
	var p SalePaymentTokenParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		if err := st.Sales.SetPaymentToken(caller, p.Series, p.Edition, p.Token, p.TokenPrice, p.NativeSurcharge); err != nil {
			return nil, err
		}
		cfg, err := st.Sales.SaleConfig(p.Series, p.Edition)
		if err != nil {
			return nil, err
		}
		return saleResult(cfg), nil
	})
}

func (s *Server) handleSaleToggleEnforceTokenPayment(req *Request) (interface{}, *Error) {
	var p EditionParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		enforced, err := st.Sales.ToggleEnforceTokenPayment(caller, p.Series, p.Edition)
		if err != nil {
			return nil, err
		}
		return &ToggleResult{EnforceTokenPayment: enforced}, nil
	})
}

func (s *Server) handleSaleSetCustomHandler(req *Request) (interface{}, *Error) {
	var p SaleHandlerParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		if err := st.Sales.SetCustomHandler(caller, p.Series, p.Edition, p.Handler); err != nil {
			return nil, err
		}
		cfg, err := st.Sales.SaleConfig(p.Series, p.Edition)
		if err != nil {
			return nil, err
		}
		return saleResult(cfg), nil
	})
}

// ── Sale queries ────────────────────────────────────────────────────────

func (s *Server) handleSaleGet(req *Request) (interface{}, *Error) {
	var p EditionParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		cfg, err := st.Sales.SaleConfig(p.Series, p.Edition)
		if err != nil {
			return nil, err
		}
		return saleResult(cfg), nil
	})
}

func (s *Server) handleSaleList(req *Request) (interface{}, *Error) {
	return s.view(func(st *ledger.State) (interface{}, error) {
		cfgs, err := st.Sales.ListSaleConfigs()
		if err != nil {
			return nil, err
		}
		out := make([]*SaleResult, len(cfgs))
		for i := range cfgs {
			out[i] = saleResult(&cfgs[i])
		}
		return out, nil
	})
}

func (s *Server) handleSaleQuote(req *Request) (interface{}, *Error) {
	var p QuoteParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		return st.Sales.Quote(p.Series, p.Edition, p.Quantity, p.PaymentToken)
	})
}

// ── Purchase and withdrawal ─────────────────────────────────────────────

func (s *Server) handleSalePurchase(ctx context.Context, req *Request) (interface{}, *Error) {
	var p PurchaseParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		return st.Sales.Purchase(ctx, sales.PurchaseRequest{
			Buyer:        caller,
			SeriesID:     p.Series,
			EditionID:    p.Edition,
			Quantity:     p.Quantity,
			Recipient:    p.Recipient,
			PaymentToken: p.PaymentToken,
			ReferralCode: p.ReferralCode,
			Value:        p.Value,
		})
	})
}

func (s *Server) handleSaleWithdrawNative(req *Request) (interface{}, *Error) {
	return s.update(req, nil, func(st *ledger.State, caller types.Address) (interface{}, error) {
		return st.Sales.WithdrawNative(caller)
	})
}

func (s *Server) handleSaleWithdrawTokens(req *Request) (interface{}, *Error) {
	var p WithdrawTokensParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		return st.Sales.WithdrawTokens(caller, p.Token)
	})
}
