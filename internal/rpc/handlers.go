package rpc

import (
	"github.com/Klingon-tech/nfb-ledger/internal/ledger"
	"github.com/Klingon-tech/nfb-ledger/internal/registry"
	"github.com/Klingon-tech/nfb-ledger/pkg/tokenid"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

// ── Series endpoints ────────────────────────────────────────────────────

func (s *Server) handleSeriesSet(req *Request) (interface{}, *Error) {
	var p SeriesSetParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		if err := st.Registry.SetSeries(caller, p.Series, p.Name, p.Description); err != nil {
			return nil, err
		}
		return st.Registry.Series(p.Series)
	})
}

func (s *Server) handleSeriesFreeze(req *Request) (interface{}, *Error) {
	var p SeriesParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		if err := st.Registry.FreezeSeries(caller, p.Series); err != nil {
			return nil, err
		}
		return st.Registry.Series(p.Series)
	})
}

func (s *Server) handleSeriesGet(req *Request) (interface{}, *Error) {
	var p SeriesParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		return st.Registry.Series(p.Series)
	})
}

func (s *Server) handleSeriesList(req *Request) (interface{}, *Error) {
	return s.view(func(st *ledger.State) (interface{}, error) {
		return st.Registry.ListSeries()
	})
}

// ── Edition endpoints ───────────────────────────────────────────────────

func editionResult(st *ledger.State, ed *registry.Edition) *EditionResult {
	return &EditionResult{
		Edition:      *ed,
		Availability: ed.AvailabilityAt(st.Registry.Now()).String(),
	}
}

func (s *Server) handleEditionSet(req *Request) (interface{}, *Error) {
	var p EditionSetParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		if err := st.Registry.SetEdition(caller, p.Series, p.Edition, p.AvailableFrom, p.AvailableUntil, p.Name); err != nil {
			return nil, err
		}
		ed, err := st.Registry.Edition(p.Series, p.Edition)
		if err != nil {
			return nil, err
		}
		return editionResult(st, ed), nil
	})
}

func (s *Server) handleEditionSetResolver(req *Request) (interface{}, *Error) {
	var p EditionResolverParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		if err := st.Registry.SetTokenURIResolver(caller, p.Series, p.Edition, p.Resolver); err != nil {
			return nil, err
		}
		ed, err := st.Registry.Edition(p.Series, p.Edition)
		if err != nil {
			return nil, err
		}
		return editionResult(st, ed), nil
	})
}

func (s *Server) handleEditionGet(req *Request) (interface{}, *Error) {
	var p EditionParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		ed, err := st.Registry.Edition(p.Series, p.Edition)
		if err != nil {
			return nil, err
		}
		return editionResult(st, ed), nil
	})
}

func (s *Server) handleEditionList(req *Request) (interface{}, *Error) {
	var p SeriesParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		if _, err := st.Registry.Series(p.Series); err != nil {
			return nil, err
		}
		eds, err := st.Registry.ListEditions(p.Series)
		if err != nil {
			return nil, err
		}
		out := make([]*EditionResult, len(eds))
		for i := range eds {
			out[i] = editionResult(st, &eds[i])
		}
		return out, nil
	})
}

// ── NFB endpoints ───────────────────────────────────────────────────────

func (s *Server) handleNFBMint(req *Request) (interface{}, *Error) {
	var p MintParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		ids, err := st.Registry.Mint(caller, p.Recipient, p.Count, p.Series, p.Edition)
		if err != nil {
			return nil, err
		}
		return &MintResult{TokenIDs: ids}, nil
	})
}

func (s *Server) handleNFBBurn(req *Request) (interface{}, *Error) {
	var p TokenIDParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		if err := st.Registry.Burn(caller, p.ID); err != nil {
			return nil, err
		}
		return &OKResult{OK: true}, nil
	})
}

func (s *Server) handleNFBTransfer(req *Request) (interface{}, *Error) {
	var p TransferParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		from := p.From
		if from.IsZero() {
			from = caller
		}
		if err := st.Registry.TransferFrom(caller, from, p.To, p.ID); err != nil {
			return nil, err
		}
		return ownerResult(st, p.ID)
	})
}

func (s *Server) handleNFBApprove(req *Request) (interface{}, *Error) {
	var p ApproveParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		if err := st.Registry.Approve(caller, p.To, p.ID); err != nil {
			return nil, err
		}
		return ownerResult(st, p.ID)
	})
}

func (s *Server) handleNFBSetApprovalForAll(req *Request) (interface{}, *Error) {
	var p ApprovalForAllParam
	return s.update(req, &p, func(st *ledger.State, caller types.Address) (interface{}, error) {
		if err := st.Registry.SetApprovalForAll(caller, p.Operator, p.Approved); err != nil {
			return nil, err
		}
		return &OKResult{OK: true}, nil
	})
}

func ownerResult(st *ledger.State, id uint64) (*OwnerResult, error) {
	tk, err := st.Registry.Token(id)
	if err != nil {
		return nil, err
	}
	return &OwnerResult{ID: tk.ID, Owner: tk.Owner, Approved: tk.Approved}, nil
}

func (s *Server) handleNFBOwnerOf(req *Request) (interface{}, *Error) {
	var p TokenIDParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		return ownerResult(st, p.ID)
	})
}

func (s *Server) handleNFBBalanceOf(req *Request) (interface{}, *Error) {
	var p OwnerParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		n, err := st.Registry.BalanceOf(p.Owner)
		if err != nil {
			return nil, err
		}
		return &CountResult{Account: p.Owner, Balance: n}, nil
	})
}

func (s *Server) handleNFBTokensOf(req *Request) (interface{}, *Error) {
	var p OwnerParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		ids, err := st.Registry.TokensOf(p.Owner)
		if err != nil {
			return nil, err
		}
		return &TokensResult{Owner: p.Owner, TokenIDs: ids}, nil
	})
}

func (s *Server) handleNFBTokenURI(req *Request) (interface{}, *Error) {
	var p TokenIDParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	return s.view(func(st *ledger.State) (interface{}, error) {
		uri, err := st.Registry.TokenURI(p.ID)
		if err != nil {
			return nil, err
		}
		return &TokenURIResult{ID: p.ID, URI: uri}, nil
	})
}

// nfb_decode is pure: it splits an identifier without touching the ledger.
func (s *Server) handleNFBDecode(req *Request) (interface{}, *Error) {
	var p TokenIDParam
	if err := parseParams(req, &p); err != nil {
		return nil, err
	}
	series, edition, seq := tokenid.Unpack(p.ID)
	return &DecodeResult{
		ID:       p.ID,
		Series:   series,
		Edition:  edition,
		Sequence: seq,
		Label:    tokenid.String(p.ID),
	}, nil
}
