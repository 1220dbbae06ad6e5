package registry

import (
	"fmt"
	"time"

	"github.com/Klingon-tech/nfb-ledger/internal/access"
	"github.com/Klingon-tech/nfb-ledger/internal/events"
	klog "github.com/Klingon-tech/nfb-ledger/internal/log"
	"github.com/Klingon-tech/nfb-ledger/internal/storage"
	"github.com/Klingon-tech/nfb-ledger/pkg/amount"
	"github.com/Klingon-tech/nfb-ledger/pkg/tokenid"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
	"github.com/rs/zerolog"
)

// Registry manages series, editions and tokens on top of a DB.
// It takes no locks; callers serialize operations.
type Registry struct {
	st        store
	acl       access.Checker
	events    events.Emitter
	resolvers ResolverDirectory
	clock     func() time.Time
	maxMint   uint64
	logger    zerolog.Logger
}

// New creates a registry over db. ev may be nil.
func New(db storage.DB, acl access.Checker, ev events.Emitter) *Registry {
	return &Registry{
		st:     store{db: db},
		acl:    acl,
		events: ev,
		clock:  time.Now,
		logger: klog.Registry,
	}
}

// SetClock replaces the time source used for availability checks.
func (r *Registry) SetClock(clock func() time.Time) {
	r.clock = clock
}

// SetMintLimit caps the tokens a single Mint may create. Zero means no cap.
func (r *Registry) SetMintLimit(n uint64) {
	r.maxMint = n
}

// SetResolvers sets the directory used by TokenURI.
func (r *Registry) SetResolvers(dir ResolverDirectory) {
	r.resolvers = dir
}

func (r *Registry) now() uint64 {
	t := r.clock().Unix()
	if t < 0 {
		return 0
	}
	return uint64(t)
}

func (r *Registry) emit(kind string, data any) error {
	if r.events == nil {
		return nil
	}
	return r.events.Emit(kind, data)
}

// SetSeries creates a series or overwrites its name and description.
func (r *Registry) SetSeries(caller types.Address, id uint64, name, description string) error {
	if err := r.acl.Require(caller, access.RoleManager); err != nil {
		return err
	}
	if _, err := tokenid.JoinSeriesAndEdition(id, 0); err != nil {
		return err
	}
	sr, _, err := r.st.series(id)
	if err != nil {
		return err
	}
	if sr.Frozen {
		return fmt.Errorf("series %d: %w", id, ErrSeriesFrozen)
	}
	sr.ID = id
	sr.Name = name
	sr.Description = description
	if err := r.st.putSeries(sr); err != nil {
		return fmt.Errorf("series put: %w", err)
	}
	return r.emit(events.KindSeriesSet, sr)
}

// FreezeSeries makes a series and its editions immutable. One way.
func (r *Registry) FreezeSeries(caller types.Address, id uint64) error {
	if err := r.acl.Require(caller, access.RoleManager); err != nil {
		return err
	}
	sr, ok, err := r.st.series(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("series %d: %w", id, ErrSeriesNotFound)
	}
	if sr.Frozen {
		return fmt.Errorf("series %d: %w", id, ErrSeriesFrozen)
	}
	sr.Frozen = true
	if err := r.st.putSeries(sr); err != nil {
		return fmt.Errorf("series put: %w", err)
	}
	return r.emit(events.KindSeriesFrozen, map[string]uint64{"seriesId": id})
}

// openSeries loads a series that exists and is not frozen.
func (r *Registry) openSeries(id uint64) (*Series, error) {
	sr, ok, err := r.st.series(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("series %d: %w", id, ErrSeriesNotFound)
	}
	if sr.Frozen {
		return nil, fmt.Errorf("series %d: %w", id, ErrSeriesFrozen)
	}
	return sr, nil
}

// SetEdition creates an edition or overwrites its window and name. The
// minted count and resolver binding of an existing edition are kept.
func (r *Registry) SetEdition(caller types.Address, seriesID, editionID, from, until uint64, name string) error {
	if err := r.acl.Require(caller, access.RoleManager); err != nil {
		return err
	}
	if _, err := r.openSeries(seriesID); err != nil {
		return err
	}
	if from > until {
		return fmt.Errorf("edition %d/%d window [%d, %d): %w", seriesID, editionID, from, until, ErrInvalidWindow)
	}
	ed, _, err := r.st.edition(seriesID, editionID)
	if err != nil {
		return err
	}
	ed.SeriesID = seriesID
	ed.EditionID = editionID
	ed.AvailableFrom = from
	ed.AvailableUntil = until
	ed.Name = name
	if err := r.st.putEdition(ed); err != nil {
		return fmt.Errorf("edition put: %w", err)
	}
	return r.emit(events.KindEditionSet, ed)
}

// SetTokenURIResolver binds a metadata resolver to an edition.
func (r *Registry) SetTokenURIResolver(caller types.Address, seriesID, editionID uint64, ref types.Address) error {
	if err := r.acl.Require(caller, access.RoleManager); err != nil {
		return err
	}
	if _, err := r.openSeries(seriesID); err != nil {
		return err
	}
	ed, ok, err := r.st.edition(seriesID, editionID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("edition %d/%d: %w", seriesID, editionID, ErrEditionNotFound)
	}
	ed.Resolver = ref
	if err := r.st.putEdition(ed); err != nil {
		return fmt.Errorf("edition put: %w", err)
	}
	return r.emit(events.KindResolverSet, map[string]any{
		"seriesId": seriesID, "editionId": editionID, "resolver": ref,
	})
}

type mintedEvent struct {
	Caller        types.Address `json:"caller"`
	Recipient     types.Address `json:"recipient"`
	SeriesID      uint64        `json:"seriesId"`
	EditionID     uint64        `json:"editionId"`
	FirstSequence uint64        `json:"firstSequence"`
	Count         uint64        `json:"count"`
	TokenIDs      []uint64      `json:"tokenIds"`
}

// Mint creates count tokens owned by recipient with the next unused
// sequence numbers of the edition and returns their identifiers.
func (r *Registry) Mint(caller, recipient types.Address, count, seriesID, editionID uint64) ([]uint64, error) {
	if err := r.acl.Require(caller, access.RoleMinter); err != nil {
		return nil, err
	}
	if recipient.IsZero() {
		return nil, ErrInvalidRecipient
	}
	if count == 0 {
		return nil, ErrZeroCount
	}
	if r.maxMint > 0 && count > r.maxMint {
		return nil, fmt.Errorf("count %d over %d: %w", count, r.maxMint, ErrMintLimit)
	}
	ed, err := r.availableEdition(seriesID, editionID)
	if err != nil {
		return nil, err
	}

	first := ed.MintedCount
	end, err := amount.Add(first, count)
	if err != nil {
		return nil, fmt.Errorf("edition %d/%d sequence: %w", seriesID, editionID, tokenid.ErrFieldOutOfRange)
	}
	if _, err := tokenid.Pack(seriesID, editionID, end-1); err != nil {
		return nil, fmt.Errorf("edition %d/%d: %w", seriesID, editionID, err)
	}

	ids := make([]uint64, 0, min(count, 1024))
	for seq := first; seq < end; seq++ {
		id, err := tokenid.Pack(seriesID, editionID, seq)
		if err != nil {
			return nil, err
		}
		tk := &Token{ID: id, SeriesID: seriesID, EditionID: editionID, Sequence: seq, Owner: recipient}
		if err := r.st.putToken(tk); err != nil {
			return nil, fmt.Errorf("token put: %w", err)
		}
		if err := r.st.setOwned(recipient, id, true); err != nil {
			return nil, fmt.Errorf("owner index: %w", err)
		}
		ids = append(ids, id)
	}

	bal, err := r.st.balance(recipient)
	if err != nil {
		return nil, err
	}
	if bal, err = amount.Add(bal, count); err != nil {
		return nil, err
	}
	if err := r.st.putBalance(recipient, bal); err != nil {
		return nil, fmt.Errorf("balance put: %w", err)
	}

	ed.MintedCount = end
	if err := r.st.putEdition(ed); err != nil {
		return nil, fmt.Errorf("edition put: %w", err)
	}

	r.logger.Debug().
		Uint64("series", seriesID).
		Uint64("edition", editionID).
		Uint64("first", first).
		Uint64("count", count).
		Str("recipient", recipient.String()).
		Msg("Minted")

	err = r.emit(events.KindMinted, &mintedEvent{
		Caller: caller, Recipient: recipient, SeriesID: seriesID, EditionID: editionID,
		FirstSequence: first, Count: count, TokenIDs: ids,
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Registry) availableEdition(seriesID, editionID uint64) (*Edition, error) {
	_, ok, err := r.st.series(seriesID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("series %d: %w", seriesID, ErrEditionUnavailable)
	}
	ed, ok, err := r.st.edition(seriesID, editionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("edition %d/%d: %w", seriesID, editionID, ErrEditionUnavailable)
	}
	now := r.now()
	if state := ed.AvailabilityAt(now); state != Available {
		return nil, fmt.Errorf("edition %d/%d is %s at %d: %w", seriesID, editionID, state, now, ErrEditionUnavailable)
	}
	return ed, nil
}

// TokenURI returns the metadata URI of a live token from the resolver
// bound to its edition.
func (r *Registry) TokenURI(id uint64) (string, error) {
	tk, err := r.Token(id)
	if err != nil {
		return "", err
	}
	sr, _, err := r.st.series(tk.SeriesID)
	if err != nil {
		return "", err
	}
	ed, _, err := r.st.edition(tk.SeriesID, tk.EditionID)
	if err != nil {
		return "", err
	}
	if ed.Resolver.IsZero() || r.resolvers == nil {
		return "", fmt.Errorf("edition %d/%d: %w", tk.SeriesID, tk.EditionID, ErrResolverNotSet)
	}
	res, err := r.resolvers.Resolver(ed.Resolver)
	if err != nil {
		return "", err
	}
	seriesID, editionID, seq := tokenid.Unpack(id)
	return res.Resolve(ResolveRequest{
		TokenID:           id,
		SeriesID:          seriesID,
		EditionID:         editionID,
		Sequence:          seq,
		SeriesName:        sr.Name,
		SeriesDescription: sr.Description,
		EditionName:       ed.Name,
	})
}

// Series returns a series by id.
func (r *Registry) Series(id uint64) (*Series, error) {
	sr, ok, err := r.st.series(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("series %d: %w", id, ErrSeriesNotFound)
	}
	return sr, nil
}

// Edition returns an edition by its series and edition ids.
func (r *Registry) Edition(seriesID, editionID uint64) (*Edition, error) {
	ed, ok, err := r.st.edition(seriesID, editionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("edition %d/%d: %w", seriesID, editionID, ErrEditionNotFound)
	}
	return ed, nil
}

// Availability reports the window state of an edition at unix time now.
func (r *Registry) Availability(seriesID, editionID, now uint64) (Availability, error) {
	ed, err := r.Edition(seriesID, editionID)
	if err != nil {
		return 0, err
	}
	return ed.AvailabilityAt(now), nil
}

// Now returns the registry clock as unix seconds.
func (r *Registry) Now() uint64 {
	return r.now()
}

// ListSeries returns every series in id order.
func (r *Registry) ListSeries() ([]Series, error) {
	out := []Series{}
	err := r.st.db.ForEach(prefixSeries, func(_, value []byte) error {
		var sr Series
		if err := unmarshal(value, &sr); err != nil {
			return err
		}
		out = append(out, sr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListEditions returns the editions of a series in id order.
func (r *Registry) ListEditions(seriesID uint64) ([]Edition, error) {
	prefix, err := seriesEditionsPrefix(seriesID)
	if err != nil {
		return nil, err
	}
	out := []Edition{}
	err = r.st.db.ForEach(prefix, func(_, value []byte) error {
		var ed Edition
		if err := unmarshal(value, &ed); err != nil {
			return err
		}
		out = append(out, ed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
