// Package registry owns series, editions and tokens: it enforces
// availability windows and freeze semantics, assigns sequence numbers and
// records ownership.
package registry

import (
	"errors"

	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

// Registry errors.
var (
	ErrSeriesNotFound     = errors.New("series not found")
	ErrSeriesFrozen       = errors.New("series already frozen")
	ErrEditionNotFound    = errors.New("edition not found")
	ErrEditionUnavailable = errors.New("series or edition is not available")
	ErrInvalidWindow      = errors.New("available from is after available until")
	ErrTokenNotFound      = errors.New("non-existent token")
	ErrInvalidRecipient   = errors.New("invalid recipient")
	ErrZeroCount          = errors.New("mint count is zero")
	ErrMintLimit          = errors.New("mint count exceeds per-call limit")
	ErrResolverNotSet     = errors.New("token uri resolver not set")
	ErrWrongOwner         = errors.New("transfer from incorrect owner")
	ErrApproveToCaller    = errors.New("approve to caller")
	ErrApprovalToOwner    = errors.New("approval to current owner")
)

// Series is a named, freezable collection of editions.
type Series struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Frozen      bool   `json:"frozen"`
}

// Edition is a time-windowed sub-collection of a series. AvailableFrom and
// AvailableUntil are unix seconds; minting is open on [from, until).
type Edition struct {
	SeriesID       uint64        `json:"seriesId"`
	EditionID      uint64        `json:"editionId"`
	AvailableFrom  uint64        `json:"availableFrom"`
	AvailableUntil uint64        `json:"availableUntil"`
	Name           string        `json:"name"`
	MintedCount    uint64        `json:"mintedCount"`
	Resolver       types.Address `json:"resolver"`
}

// Token is one minted unit.
type Token struct {
	ID        uint64        `json:"id"`
	SeriesID  uint64        `json:"seriesId"`
	EditionID uint64        `json:"editionId"`
	Sequence  uint64        `json:"sequence"`
	Owner     types.Address `json:"owner"`
	Approved  types.Address `json:"approved"`
}

// Availability is the computed state of an edition's window.
type Availability int

// Availability states.
const (
	Pending Availability = iota
	Available
	Expired
)

func (a Availability) String() string {
	switch a {
	case Pending:
		return "pending"
	case Available:
		return "available"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// AvailabilityAt returns the state of e at unix time now.
func (e *Edition) AvailabilityAt(now uint64) Availability {
	switch {
	case now < e.AvailableFrom:
		return Pending
	case now >= e.AvailableUntil:
		return Expired
	default:
		return Available
	}
}

// ResolveRequest carries what a resolver needs to render token metadata.
type ResolveRequest struct {
	TokenID           uint64
	SeriesID          uint64
	EditionID         uint64
	Sequence          uint64
	SeriesName        string
	SeriesDescription string
	EditionName       string
}

// Resolver renders the metadata URI of a token.
type Resolver interface {
	Resolve(req ResolveRequest) (string, error)
}

// ResolverDirectory looks up a resolver by its address.
type ResolverDirectory interface {
	Resolver(ref types.Address) (Resolver, error)
}
