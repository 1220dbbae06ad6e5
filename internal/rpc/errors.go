package rpc

import (
	"errors"

	"github.com/Klingon-tech/nfb-ledger/internal/access"
	"github.com/Klingon-tech/nfb-ledger/internal/hooks"
	"github.com/Klingon-tech/nfb-ledger/internal/paytoken"
	"github.com/Klingon-tech/nfb-ledger/internal/registry"
	"github.com/Klingon-tech/nfb-ledger/internal/sales"
	"github.com/Klingon-tech/nfb-ledger/pkg/amount"
	"github.com/Klingon-tech/nfb-ledger/pkg/tokenid"
)

type errorKind struct {
	err  error
	code int
	kind string
}

// errorKinds maps ledger sentinels to RPC codes. First match wins.
var errorKinds = []errorKind{
	{ErrAuthRequired, CodePermissionDenied, "AuthRequired"},
	{ErrInvalidSignature, CodePermissionDenied, "InvalidSignature"},
	{access.ErrPermissionDenied, CodePermissionDenied, "PermissionDenied"},
	{access.ErrStaleNonce, CodePermissionDenied, "StaleNonce"},
	{paytoken.ErrNotIssuer, CodePermissionDenied, "NotIssuer"},

	{registry.ErrSeriesNotFound, CodeNotFound, "SeriesNotFound"},
	{registry.ErrEditionNotFound, CodeNotFound, "EditionNotFound"},
	{registry.ErrTokenNotFound, CodeNotFound, "TokenNotFound"},
	{registry.ErrResolverNotSet, CodeNotFound, "ResolverNotSet"},
	{paytoken.ErrTokenNotFound, CodeNotFound, "PaymentTokenNotFound"},
	{sales.ErrSaleNotConfigured, CodeNotFound, "SaleNotConfigured"},
	{sales.ErrCollaboratorNotFound, CodeNotFound, "CollaboratorNotFound"},

	{registry.ErrSeriesFrozen, CodeRejected, "SeriesFrozen"},
	{registry.ErrEditionUnavailable, CodeRejected, "EditionUnavailable"},
	{registry.ErrInvalidWindow, CodeRejected, "InvalidWindow"},
	{registry.ErrInvalidRecipient, CodeRejected, "InvalidRecipient"},
	{registry.ErrZeroCount, CodeRejected, "ZeroCount"},
	{registry.ErrMintLimit, CodeRejected, "MintLimitExceeded"},
	{registry.ErrWrongOwner, CodeRejected, "WrongOwner"},
	{registry.ErrApproveToCaller, CodeRejected, "ApproveToCaller"},
	{registry.ErrApprovalToOwner, CodeRejected, "ApprovalToOwner"},
	{sales.ErrInvalidRecipient, CodeRejected, "InvalidRecipient"},
	{sales.ErrZeroQuantity, CodeRejected, "ZeroQuantity"},
	{sales.ErrTooManyUnits, CodeRejected, "TooManyUnits"},
	{sales.ErrSoldOut, CodeRejected, "SoldOut"},
	{sales.ErrTokenPaymentRequired, CodeRejected, "TokenPaymentRequired"},
	{sales.ErrPaymentTokenMismatch, CodeRejected, "PaymentTokenMismatch"},
	{sales.ErrInvalidPaymentAmount, CodeRejected, "InvalidPaymentAmount"},
	{sales.ErrNothingToWithdraw, CodeRejected, "NothingToWithdraw"},
	{sales.ErrArithmeticOverflow, CodeRejected, "ArithmeticOverflow"},
	{sales.ErrInvalidNFBRef, CodeRejected, "InvalidNFBRef"},
	{amount.ErrOverflow, CodeRejected, "ArithmeticOverflow"},
	{amount.ErrUnderflow, CodeRejected, "ArithmeticOverflow"},
	{paytoken.ErrInsufficientBalance, CodeRejected, "InsufficientBalance"},
	{paytoken.ErrInsufficientAllowance, CodeRejected, "InsufficientAllowance"},
	{paytoken.ErrTokenExists, CodeRejected, "PaymentTokenExists"},
	{paytoken.ErrInvalidSymbol, CodeRejected, "InvalidSymbol"},
	{paytoken.ErrZeroAddress, CodeRejected, "ZeroAddress"},
	{access.ErrZeroAccount, CodeRejected, "ZeroAccount"},
	{access.ErrUnknownRole, CodeInvalidParams, "UnknownRole"},
	{tokenid.ErrFieldOutOfRange, CodeRejected, "FieldOutOfRange"},
	{hooks.ErrWalletCapExceeded, CodeRejected, "WalletCapExceeded"},
}

// ledgerError converts an operation error into an RPC error. Errors that
// match no known kind are reported as internal.
func ledgerError(err error) *Error {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return &Error{Code: k.code, Message: err.Error(), Data: k.kind}
		}
	}
	return &Error{Code: CodeInternalError, Message: err.Error()}
}
