package registry

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/nfb-ledger/internal/storage"
	"github.com/Klingon-tech/nfb-ledger/pkg/tokenid"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

var (
	prefixSeries   = []byte("s/") // s/<seriesID(8)> -> Series JSON
	prefixEdition  = []byte("e/") // e/<join(series,edition)(8)> -> Edition JSON
	prefixToken    = []byte("t/") // t/<tokenID(8)> -> Token JSON
	prefixOwned    = []byte("o/") // o/<owner(20)><tokenID(8)> -> empty
	prefixBalance  = []byte("b/") // b/<owner(20)> -> count(8)
	prefixOperator = []byte("a/") // a/<owner(20)><operator(20)> -> 1
)

// store wraps typed access to registry records.
type store struct {
	db storage.DB
}

func getJSON(db storage.DB, key []byte, v any) (bool, error) {
	data, err := db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %x: %w", key, err)
	}
	return true, nil
}

func putJSON(db storage.DB, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return db.Put(key, data)
}

func (s *store) series(id uint64) (*Series, bool, error) {
	var sr Series
	ok, err := getJSON(s.db, u64Key(prefixSeries, id), &sr)
	if err != nil {
		return nil, false, fmt.Errorf("series get: %w", err)
	}
	return &sr, ok, nil
}

func (s *store) putSeries(sr *Series) error {
	return putJSON(s.db, u64Key(prefixSeries, sr.ID), sr)
}

func (s *store) edition(seriesID, editionID uint64) (*Edition, bool, error) {
	key, err := editionKey(seriesID, editionID)
	if err != nil {
		return nil, false, err
	}
	var ed Edition
	ok, err := getJSON(s.db, key, &ed)
	if err != nil {
		return nil, false, fmt.Errorf("edition get: %w", err)
	}
	return &ed, ok, nil
}

func (s *store) putEdition(ed *Edition) error {
	key, err := editionKey(ed.SeriesID, ed.EditionID)
	if err != nil {
		return err
	}
	return putJSON(s.db, key, ed)
}

func (s *store) token(id uint64) (*Token, bool, error) {
	var tk Token
	ok, err := getJSON(s.db, u64Key(prefixToken, id), &tk)
	if err != nil {
		return nil, false, fmt.Errorf("token get: %w", err)
	}
	return &tk, ok, nil
}

func (s *store) putToken(tk *Token) error {
	return putJSON(s.db, u64Key(prefixToken, tk.ID), tk)
}

func (s *store) deleteToken(id uint64) error {
	return s.db.Delete(u64Key(prefixToken, id))
}

func (s *store) setOwned(owner types.Address, id uint64, owned bool) error {
	key := ownedKey(owner, id)
	if owned {
		return s.db.Put(key, []byte{})
	}
	return s.db.Delete(key)
}

func (s *store) balance(owner types.Address) (uint64, error) {
	data, err := s.db.Get(addrKey(prefixBalance, owner))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance get: %w", err)
	}
	return binary.BigEndian.Uint64(data), nil
}

func (s *store) putBalance(owner types.Address, n uint64) error {
	key := addrKey(prefixBalance, owner)
	if n == 0 {
		return s.db.Delete(key)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	return s.db.Put(key, buf[:])
}

func (s *store) isOperator(owner, operator types.Address) (bool, error) {
	return s.db.Has(operatorKey(owner, operator))
}

func (s *store) setOperator(owner, operator types.Address, approved bool) error {
	key := operatorKey(owner, operator)
	if approved {
		return s.db.Put(key, []byte{1})
	}
	return s.db.Delete(key)
}

func u64Key(prefix []byte, v uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], v)
	return key
}

// editionKey keys editions by the composite (series, edition) value, so
// the editions of one series share the first six key bytes after the prefix.
func editionKey(seriesID, editionID uint64) ([]byte, error) {
	packed, err := tokenid.JoinSeriesAndEdition(seriesID, editionID)
	if err != nil {
		return nil, err
	}
	return u64Key(prefixEdition, packed), nil
}

func seriesEditionsPrefix(seriesID uint64) ([]byte, error) {
	key, err := editionKey(seriesID, 0)
	if err != nil {
		return nil, err
	}
	return key[:len(key)-2], nil
}

func addrKey(prefix []byte, a types.Address) []byte {
	key := make([]byte, len(prefix)+types.AddressSize)
	copy(key, prefix)
	copy(key[len(prefix):], a[:])
	return key
}

func ownedKey(owner types.Address, id uint64) []byte {
	key := addrKey(prefixOwned, owner)
	return binary.BigEndian.AppendUint64(key, id)
}

func operatorKey(owner, operator types.Address) []byte {
	return append(addrKey(prefixOperator, owner), operator[:]...)
}
