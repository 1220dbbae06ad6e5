// Package events keeps the append-only journal of ledger events. Events are
// written through the same store as the state change that produced them, so
// a discarded operation leaves no event behind.
package events

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/nfb-ledger/internal/storage"
)

// Event kinds.
const (
	KindSeriesSet    = "series_set"
	KindSeriesFrozen = "series_frozen"
	KindEditionSet   = "edition_set"
	KindResolverSet  = "resolver_set"
	KindMinted       = "minted"
	KindTransfer     = "transfer"
	KindApproval     = "approval"
	KindApprovalAll  = "approval_for_all"
	KindBurned       = "burned"

	KindSaleSet         = "sale_set"
	KindPaymentTokenSet = "payment_token_set"
	KindEnforceToggled  = "enforce_token_payment_toggled"
	KindHandlerSet      = "custom_handler_set"
	KindPurchased       = "purchased"
	KindWithdrawn       = "withdrawn"

	KindRoleGranted = "role_granted"
	KindRoleRevoked = "role_revoked"

	KindTokenIssued   = "token_issued"
	KindTokenMinted   = "token_minted"
	KindTokenTransfer = "token_transfer"
	KindTokenApproval = "token_approval"
)

var (
	prefixEvent = []byte("e/") // e/<seq(8)> -> Event JSON
	keyHead     = []byte("h")  // h -> next seq(8)
)

// Event is one journal entry.
type Event struct {
	Seq  uint64          `json:"seq"`
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Emitter records events.
type Emitter interface {
	Emit(kind string, data any) error
}

// Journal persists events in sequence order.
type Journal struct {
	db storage.DB
}

// NewJournal creates a journal over db.
func NewJournal(db storage.DB) *Journal {
	return &Journal{db: db}
}

// Emit appends an event with the next sequence number.
func (j *Journal) Emit(kind string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("event marshal: %w", err)
	}
	seq, err := j.Head()
	if err != nil {
		return err
	}
	ev := Event{Seq: seq, Kind: kind, Data: raw}
	enc, err := json.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("event marshal: %w", err)
	}
	if err := j.db.Put(eventKey(seq), enc); err != nil {
		return fmt.Errorf("event put: %w", err)
	}
	var next [8]byte
	binary.BigEndian.PutUint64(next[:], seq+1)
	return j.db.Put(keyHead, next[:])
}

// Head returns the sequence number the next event will get.
func (j *Journal) Head() (uint64, error) {
	data, err := j.db.Get(keyHead)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("event head: %w", err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("event head: corrupt value of %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// List returns up to limit events with Seq >= from, optionally restricted
// to one kind. A zero limit means no limit.
func (j *Journal) List(from uint64, limit int, kind string) ([]Event, error) {
	out := []Event{}
	stop := errors.New("stop")
	err := j.db.ForEach(prefixEvent, func(key, value []byte) error {
		if len(key) != len(prefixEvent)+8 {
			return nil
		}
		if binary.BigEndian.Uint64(key[len(prefixEvent):]) < from {
			return nil
		}
		var ev Event
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("event unmarshal: %w", err)
		}
		if kind != "" && ev.Kind != kind {
			return nil
		}
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			return stop
		}
		return nil
	})
	if err != nil && !errors.Is(err, stop) {
		return nil, err
	}
	return out, nil
}

func eventKey(seq uint64) []byte {
	key := make([]byte, len(prefixEvent)+8)
	copy(key, prefixEvent)
	binary.BigEndian.PutUint64(key[len(prefixEvent):], seq)
	return key
}

// Recorder collects events in memory. Useful where no journal is wired.
type Recorder struct {
	Events []Event
}

// Emit records the event.
func (r *Recorder) Emit(kind string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	r.Events = append(r.Events, Event{Seq: uint64(len(r.Events)), Kind: kind, Data: raw})
	return nil
}

// Kinds returns the recorded event kinds in order.
func (r *Recorder) Kinds() []string {
	kinds := make([]string, len(r.Events))
	for i, ev := range r.Events {
		kinds[i] = ev.Kind
	}
	return kinds
}
