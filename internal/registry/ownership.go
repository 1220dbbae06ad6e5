package registry

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/nfb-ledger/internal/access"
	"github.com/Klingon-tech/nfb-ledger/internal/events"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

func unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("registry unmarshal: %w", err)
	}
	return nil
}

// Token returns a live token.
func (r *Registry) Token(id uint64) (*Token, error) {
	tk, ok, err := r.st.token(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("token %d: %w", id, ErrTokenNotFound)
	}
	return tk, nil
}

// OwnerOf returns the owner of a live token.
func (r *Registry) OwnerOf(id uint64) (types.Address, error) {
	tk, err := r.Token(id)
	if err != nil {
		return types.Address{}, err
	}
	return tk.Owner, nil
}

// BalanceOf returns the number of live tokens owned by owner.
func (r *Registry) BalanceOf(owner types.Address) (uint64, error) {
	return r.st.balance(owner)
}

// TokensOf returns the ids of the live tokens owned by owner in id order.
func (r *Registry) TokensOf(owner types.Address) ([]uint64, error) {
	prefix := addrKey(prefixOwned, owner)
	ids := []uint64{}
	err := r.st.db.ForEach(prefix, func(key, _ []byte) error {
		if len(key) != len(prefix)+8 {
			return nil
		}
		ids = append(ids, binary.BigEndian.Uint64(key[len(prefix):]))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetApproved returns the address approved for a single token.
func (r *Registry) GetApproved(id uint64) (types.Address, error) {
	tk, err := r.Token(id)
	if err != nil {
		return types.Address{}, err
	}
	return tk.Approved, nil
}

// IsApprovedForAll reports whether operator may manage all of owner's tokens.
func (r *Registry) IsApprovedForAll(owner, operator types.Address) (bool, error) {
	return r.st.isOperator(owner, operator)
}

func (r *Registry) authorized(caller types.Address, tk *Token) error {
	if caller == tk.Owner || (!tk.Approved.IsZero() && caller == tk.Approved) {
		return nil
	}
	ok, err := r.st.isOperator(tk.Owner, caller)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return fmt.Errorf("account %s is not owner or approved for token %d: %w", caller, tk.ID, access.ErrPermissionDenied)
}

// Approve lets to transfer or burn one token. The zero address clears.
func (r *Registry) Approve(caller, to types.Address, id uint64) error {
	tk, err := r.Token(id)
	if err != nil {
		return err
	}
	if to == tk.Owner {
		return ErrApprovalToOwner
	}
	if caller != tk.Owner {
		ok, err := r.st.isOperator(tk.Owner, caller)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("account %s is not owner or operator for token %d: %w", caller, id, access.ErrPermissionDenied)
		}
	}
	tk.Approved = to
	if err := r.st.putToken(tk); err != nil {
		return fmt.Errorf("token put: %w", err)
	}
	return r.emit(events.KindApproval, map[string]any{"owner": tk.Owner, "approved": to, "tokenId": id})
}

// SetApprovalForAll grants or revokes operator rights over all of the
// caller's tokens.
func (r *Registry) SetApprovalForAll(caller, operator types.Address, approved bool) error {
	if caller == operator {
		return ErrApproveToCaller
	}
	if err := r.st.setOperator(caller, operator, approved); err != nil {
		return fmt.Errorf("operator put: %w", err)
	}
	return r.emit(events.KindApprovalAll, map[string]any{"owner": caller, "operator": operator, "approved": approved})
}

// TransferFrom moves a token from its owner to another account.
func (r *Registry) TransferFrom(caller, from, to types.Address, id uint64) error {
	tk, err := r.Token(id)
	if err != nil {
		return err
	}
	if tk.Owner != from {
		return fmt.Errorf("token %d: %w", id, ErrWrongOwner)
	}
	if to.IsZero() {
		return ErrInvalidRecipient
	}
	if err := r.authorized(caller, tk); err != nil {
		return err
	}
	if err := r.moveBalance(from, to); err != nil {
		return err
	}
	if err := r.st.setOwned(from, id, false); err != nil {
		return err
	}
	if err := r.st.setOwned(to, id, true); err != nil {
		return err
	}
	tk.Owner = to
	tk.Approved = types.Address{}
	if err := r.st.putToken(tk); err != nil {
		return fmt.Errorf("token put: %w", err)
	}
	return r.emit(events.KindTransfer, map[string]any{"from": from, "to": to, "tokenId": id})
}

func (r *Registry) moveBalance(from, to types.Address) error {
	if from == to {
		return nil
	}
	fb, err := r.st.balance(from)
	if err != nil {
		return err
	}
	tb, err := r.st.balance(to)
	if err != nil {
		return err
	}
	if err := r.st.putBalance(from, fb-1); err != nil {
		return err
	}
	return r.st.putBalance(to, tb+1)
}

// Burn destroys a token. The edition's minted count is left unchanged, so
// the sequence number is never handed out again.
func (r *Registry) Burn(caller types.Address, id uint64) error {
	tk, err := r.Token(id)
	if err != nil {
		return err
	}
	if err := r.authorized(caller, tk); err != nil {
		return err
	}
	bal, err := r.st.balance(tk.Owner)
	if err != nil {
		return err
	}
	if err := r.st.putBalance(tk.Owner, bal-1); err != nil {
		return err
	}
	if err := r.st.setOwned(tk.Owner, id, false); err != nil {
		return err
	}
	if err := r.st.deleteToken(id); err != nil {
		return fmt.Errorf("token delete: %w", err)
	}
	return r.emit(events.KindBurned, map[string]any{"owner": tk.Owner, "caller": caller, "tokenId": id})
}
