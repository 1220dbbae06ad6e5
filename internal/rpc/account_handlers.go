package rpc

import (
	"github.com/Klingon-tech/nfb-ledger/internal/access"
	"github.com/Klingon-tech/nfb-ledger/internal/ledger"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

// maxEvents caps one events_list page.
const maxEvents = 1000

// ── Ledger endpoints ────────────────────────────────────────────────────

func (s *Server) handleLedgerGetInfo(req *Request) (interface{}, *Error) {
	return s.view(func(st *ledger.State) (interface{}, error) {
		info, err := st.Info()
		if err != nil {
			return nil, err
		}
		return &LedgerInfoResult{Info: *info, Network: s.network}, nil
	})
}

func (s *Server) handleEventsList(req *Request) (interface{}, *Error) {
	p := EventsParam{Limit: 100}
	if len(req.Params) > 0 && string(req.Params) != "null" {
		if err := parseParams(req, &p); err != nil {
			return nil, err
		}
	}
	if p.Limit <= 0 || p.Limit > maxEvents {
		p.Limit = maxEvents
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		return st.Events.List(p.From, p.Limit, p.Kind)
	})
}

func (s *Server) handleAccountGetNonce(req *Request) (interface{}, *Error) {
	var p AccountParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		n, err := st.Access.Nonce(p.Account)
		if err != nil {
			return nil, err
		}
		return &NonceResult{Account: p.Account, Nonce: n}, nil
	})
}

// ── Role endpoints ──────────────────────────────────────────────────────

func (s *Server) handleRoleGrant(req *Request) (interface{}, *Error) {
	var p RoleParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		role, err := access.ParseRole(p.Role)
		if err != nil {
			return nil, err
		}
		if err := st.Access.Grant(caller, p.Account, role); err != nil {
			return nil, err
		}
		return rolesOf(st, p.Account)
	})
}

func (s *Server) handleRoleRevoke(req *Request) (interface{}, *Error) {
	var p RoleParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		role, err := access.ParseRole(p.Role)
		if err != nil {
			return nil, err
		}
		if err := st.Access.Revoke(caller, p.Account, role); err != nil {
			return nil, err
		}
		return rolesOf(st, p.Account)
	})
}

func rolesOf(st *ledger.State, account types.Address) (*RoleListResult, error) {
	roles, err := st.Access.RolesOf(account)
	if err != nil {
		return nil, err
	}
	return &RoleListResult{Account: account, Roles: roles}, nil
}

func (s *Server) handleRoleList(req *Request) (interface{}, *Error) {
	var p RoleListParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	if !p.Account.IsZero() {
		return s.view(func(st *ledger.State) (interface{}, error) {
			return rolesOf(st, p.Account)
		})
	}
	role, err := access.ParseRole(p.Role)
	if err != nil {
		return nil, ledgerError(err)
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		members, err := st.Access.Members(role)
		if err != nil {
			return nil, err
		}
		return &RoleListResult{Role: role, Members: members}, nil
	})
}

// ── Payment token endpoints ─────────────────────────────────────────────

func (s *Server) handlePayTokenIssue(req *Request) (interface{}, *Error) {
	var p PayTokenIssueParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		return st.Tokens.Issue(caller, p.Symbol, p.Name, p.Decimals)
	})
}

func (s *Server) handlePayTokenMint(req *Request) (interface{}, *Error) {
	var p PayTokenAmountParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		if err := st.Tokens.Mint(caller, p.Token, p.To, p.Amount); err != nil {
			return nil, err
		}
		return st.Tokens.Info(p.Token)
	})
}

func (s *Server) handlePayTokenApprove(req *Request) (interface{}, *Error) {
	var p PayTokenApproveParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		if err := st.Tokens.Approve(p.Token, caller, p.Spender, p.Amount); err != nil {
			return nil, err
		}
		return &OKResult{OK: true}, nil
	})
}

func (s *Server) handlePayTokenTransfer(req *Request) (interface{}, *Error) {
	var p PayTokenAmountParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		if err := st.Tokens.Transfer(p.Token, caller, p.To, p.Amount); err != nil {
			return nil, err
		}
		bal, err := st.Tokens.BalanceOf(p.Token, caller)
		if err != nil {
			return nil, err
		}
		return &CountResult{Account: caller, Balance: bal}, nil
	})
}

func (s *Server) handlePayTokenBalance(req *Request) (interface{}, *Error) {
	var p PayTokenBalanceParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		if _, err := st.Tokens.Info(p.Token); err != nil {
			return nil, err
		}
		bal, err := st.Tokens.BalanceOf(p.Token, p.Owner)
		if err != nil {
			return nil, err
		}
		return &CountResult{Account: p.Owner, Balance: bal}, nil
	})
}

func (s *Server) handlePayTokenList(req *Request) (interface{}, *Error) {
	return s.view(func(st *ledger.State) (interface{}, error) {
		return st.Tokens.List()
	})
}

// ── Native bank endpoints ───────────────────────────────────────────────

func (s *Server) handleBankBalance(req *Request) (interface{}, *Error) {
	var p AccountParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		bal, err := st.Bank.BalanceOf(p.Account)
		if err != nil {
			return nil, err
		}
		return &CountResult{Account: p.Account, Balance: bal}, nil
	})
}

func (s *Server) handleBankTransfer(req *Request) (interface{}, *Error) {
	var p BankTransferParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		if err := st.Bank.Transfer(caller, p.To, p.Amount); err != nil {
			return nil, err
		}
		bal, err := st.Bank.BalanceOf(caller)
		if err != nil {
			return nil, err
		}
		return &CountResult{Account: caller, Balance: bal}, nil
	})
}
