package rpc

import (
	"encoding/json"

	"github.com/Klingon-tech/nfb-ledger/internal/access"
	"github.com/Klingon-tech/nfb-ledger/internal/ledger"
	"github.com/Klingon-tech/nfb-ledger/internal/registry"
	"github.com/Klingon-tech/nfb-ledger/internal/sales"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeNotFound         = -32000
	CodePermissionDenied = -32001
	CodeRejected         = -32002
	CodeRateLimited      = -32005
)

// Request is a JSON-RPC 2.0 request. Params are kept raw so signed
// requests can be verified over the exact bytes received.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object. Data carries the error kind
// (e.g. "SoldOut") for ledger rejections.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// SeriesParam is used by series_get, series_freeze and edition_list.
type SeriesParam struct {
	Series uint64 `json:"series"`
}

// SeriesSetParam is used by series_set.
type SeriesSetParam struct {
	Series      uint64 `json:"series"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// EditionParam addresses one edition.
type EditionParam struct {
	Series  uint64 `json:"series"`
	Edition uint64 `json:"edition"`
}

// EditionSetParam is used by edition_set.
type EditionSetParam struct {
	Series         uint64 `json:"series"`
	Edition        uint64 `json:"edition"`
	AvailableFrom  uint64 `json:"availableFrom"`
	AvailableUntil uint64 `json:"availableUntil"`
	Name           string `json:"name"`
}

// EditionResolverParam is used by edition_setResolver.
type EditionResolverParam struct {
	Series   uint64        `json:"series"`
	Edition  uint64        `json:"edition"`
	Resolver types.Address `json:"resolver"`
}

// TokenIDParam addresses one minted token.
type TokenIDParam struct {
	ID uint64 `json:"id"`
}

// OwnerParam is used by nfb_balanceOf and nfb_tokensOf.
type OwnerParam struct {
	Owner types.Address `json:"owner"`
}

// MintParam is used by nfb_mint.
type MintParam struct {
	Recipient types.Address `json:"recipient"`
	Count     uint64        `json:"count"`
	Series    uint64        `json:"series"`
	Edition   uint64        `json:"edition"`
}

// TransferParam is used by nfb_transfer. A zero From means the caller.
type TransferParam struct {
	From types.Address `json:"from"`
	To   types.Address `json:"to"`
	ID   uint64        `json:"id"`
}

// ApproveParam is used by nfb_approve.
type ApproveParam struct {
	To types.Address `json:"to"`
	ID uint64        `json:"id"`
}

// ApprovalForAllParam is used by nfb_setApprovalForAll.
type ApprovalForAllParam struct {
	Operator types.Address `json:"operator"`
	Approved bool          `json:"approved"`
}

// SaleSetParam is used by sale_set. A zero NFBRef selects this ledger's registry.
type SaleSetParam struct {
	Series           uint64        `json:"series"`
	Edition          uint64        `json:"edition"`
	NFBRef           types.Address `json:"nfbRef"`
	MaxSupplyForSale uint64        `json:"maxSupplyForSale"`
	NativePrice      uint64        `json:"nativePrice"`
	MaxUnitsPerTx    uint64        `json:"maxUnitsPerTx"`
}

// SalePaymentTokenParam is used by sale_setPaymentToken.
type SalePaymentTokenParam struct {
	Series          uint64        `json:"series"`
	Edition         uint64        `json:"edition"`
	Token           types.Address `json:"token"`
	TokenPrice      uint64        `json:"tokenPrice"`
	NativeSurcharge uint64        `json:"nativeSurcharge"`
}

// SaleHandlerParam is used by sale_setCustomHandler.
type SaleHandlerParam struct {
	Series  uint64        `json:"series"`
	Edition uint64        `json:"edition"`
	Handler types.Address `json:"handler"`
}

// QuoteParam is used by sale_quote.
type QuoteParam struct {
	Series       uint64        `json:"series"`
	Edition      uint64        `json:"edition"`
	Quantity     uint64        `json:"quantity"`
	PaymentToken types.Address `json:"paymentToken"`
}

// PurchaseParam is used by sale_purchase. The buyer is the signing caller
// and Value is the native amount they send.
type PurchaseParam struct {
	Series       uint64        `json:"series"`
	Edition      uint64        `json:"edition"`
	Quantity     uint64        `json:"quantity"`
	Recipient    types.Address `json:"recipient"`
	PaymentToken types.Address `json:"paymentToken"`
	ReferralCode string        `json:"referralCode"`
	Value        uint64        `json:"value"`
}

// WithdrawTokensParam is used by sale_withdrawTokens.
type WithdrawTokensParam struct {
	Token types.Address `json:"token"`
}

// RoleParam is used by role_grant and role_revoke.
type RoleParam struct {
	Role    string        `json:"role"`
	Account types.Address `json:"account"`
}

// RoleListParam is used by role_list. Account takes precedence over Role.
type RoleListParam struct {
	Role    string        `json:"role,omitempty"`
	Account types.Address `json:"account"`
}

// AccountParam names one account.
type AccountParam struct {
	Account types.Address `json:"account"`
}

// PayTokenIssueParam is used by paytoken_issue.
type PayTokenIssueParam struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// PayTokenAmountParam is used by paytoken_mint and paytoken_transfer.
type PayTokenAmountParam struct {
	Token  types.Address `json:"token"`
	To     types.Address `json:"to"`
	Amount uint64        `json:"amount"`
}

// PayTokenApproveParam is used by paytoken_approve.
type PayTokenApproveParam struct {
	Token   types.Address `json:"token"`
	Spender types.Address `json:"spender"`
	Amount  uint64        `json:"amount"`
}

// PayTokenBalanceParam is used by paytoken_balance.
type PayTokenBalanceParam struct {
	Token types.Address `json:"token"`
	Owner types.Address `json:"owner"`
}

// BankTransferParam is used by bank_transfer.
type BankTransferParam struct {
	To     types.Address `json:"to"`
	Amount uint64        `json:"amount"`
}

// EventsParam is used by events_list.
type EventsParam struct {
	From  uint64 `json:"from"`
	Limit int    `json:"limit"`
	Kind  string `json:"kind,omitempty"`
}

// ── Result types ────────────────────────────────────────────────────────

// OKResult acknowledges a state change with no other output.
type OKResult struct {
	OK bool `json:"ok"`
}

// EditionResult is an edition with its availability at the ledger clock.
type EditionResult struct {
	registry.Edition
	Availability string `json:"availability"`
}

// MintResult is returned by nfb_mint.
type MintResult struct {
	TokenIDs []uint64 `json:"tokenIds"`
}

// OwnerResult is returned by nfb_ownerOf.
type OwnerResult struct {
	ID       uint64        `json:"id"`
	Owner    types.Address `json:"owner"`
	Approved types.Address `json:"approved"`
}

// CountResult carries a balance or count.
type CountResult struct {
	Account types.Address `json:"account"`
	Balance uint64        `json:"balance"`
}

// TokensResult is returned by nfb_tokensOf.
type TokensResult struct {
	Owner    types.Address `json:"owner"`
	TokenIDs []uint64      `json:"tokenIds"`
}

// TokenURIResult is returned by nfb_tokenURI.
type TokenURIResult struct {
	ID  uint64 `json:"id"`
	URI string `json:"uri"`
}

// DecodeResult is returned by nfb_decode.
type DecodeResult struct {
	ID       uint64 `json:"id"`
	Series   uint64 `json:"series"`
	Edition  uint64 `json:"edition"`
	Sequence uint64 `json:"sequence"`
	Label    string `json:"label"`
}

// SaleResult is a sale config with the units still for sale.
type SaleResult struct {
	sales.SaleConfig
	Remaining uint64 `json:"remaining"`
}

// ToggleResult is returned by sale_toggleEnforceTokenPayment.
type ToggleResult struct {
	EnforceTokenPayment bool `json:"enforceTokenPayment"`
}

// RoleListResult is returned by role_list.
type RoleListResult struct {
	Role    access.Role     `json:"role,omitempty"`
	Members []types.Address `json:"members,omitempty"`
	Account types.Address   `json:"account"`
	Roles   []access.Role   `json:"roles,omitempty"`
}

// NonceResult is returned by account_getNonce.
type NonceResult struct {
	Account types.Address `json:"account"`
	Nonce   uint64        `json:"nonce"`
}

// LedgerInfoResult is returned by ledger_getInfo.
type LedgerInfoResult struct {
	ledger.Info
	Network string `json:"network,omitempty"`
}
