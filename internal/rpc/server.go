// Package rpc implements the JSON-RPC 2.0 API server.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Klingon-tech/nfb-ledger/config"
	"github.com/Klingon-tech/nfb-ledger/internal/access"
	"github.com/Klingon-tech/nfb-ledger/internal/ledger"
	klog "github.com/Klingon-tech/nfb-ledger/internal/log"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
	"github.com/rs/zerolog"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// Server is the JSON-RPC 2.0 HTTP server.
type Server struct {
	addr        string
	ledger      *ledger.Ledger
	network     string
	server      *http.Server
	logger      zerolog.Logger
	ln          net.Listener
	allowedNets []*net.IPNet // Empty = allow all.
	corsOrigins []string     // Empty = no CORS headers.
	limiter     *clientLimiter
}

// New creates a new RPC server over l. The rpcCfg parameter controls IP
// filtering, CORS and rate limiting. A zero-value RPCConfig allows all IPs
// without limits and disables CORS.
func New(addr string, l *ledger.Ledger, rpcCfg ...config.RPCConfig) *Server {
	s := &Server{
		addr:   addr,
		ledger: l,
		logger: klog.RPC,
	}

	if len(rpcCfg) > 0 {
		s.allowedNets = parseAllowedIPs(rpcCfg[0].AllowedIPs)
		s.corsOrigins = rpcCfg[0].CORSOrigins
		s.limiter = newClientLimiter(rpcCfg[0].RateLimit, rpcCfg[0].Burst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// SetNetwork sets the network name reported by ledger_getInfo.
func (s *Server) SetNetwork(network string) {
	s.network = network
}

// parseAllowedIPs converts string IP/CIDR entries into net.IPNet.
func parseAllowedIPs(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		_, ipNet, err := net.ParseCIDR(entry)
		if err == nil {
			nets = append(nets, ipNet)
			continue
		}
		// Try as a single IP (add /32 or /128).
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// handleRequest is the main HTTP handler for JSON-RPC requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if len(s.allowedNets) > 0 {
		ip := net.ParseIP(host)
		if ip == nil || !s.isIPAllowed(ip) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}
	if !s.limiter.allow(host) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(Response{
			JSONRPC: "2.0",
			Error:   &Error{Code: CodeRateLimited, Message: "rate limit exceeded"},
		})
		return
	}

	s.setCORSHeaders(w, r)

	// Handle CORS preflight.
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, nil, CodeInvalidRequest, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, nil, CodeParseError, "failed to read request body")
		return
	}
	if len(body) > maxBodySize {
		writeError(w, nil, CodeInvalidRequest, "request body too large")
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}

	if req.JSONRPC != "2.0" {
		writeError(w, req.ID, CodeInvalidRequest, "jsonrpc must be \"2.0\"")
		return
	}

	result, rpcErr := s.dispatch(r.Context(), &req)
	if rpcErr != nil {
		if rpcErr.Code == CodeInternalError {
			s.logger.Error().Str("method", req.Method).Str("error", rpcErr.Message).Msg("RPC call failed")
		}
		writeJSON(w, Response{
			JSONRPC: "2.0",
			Error:   rpcErr,
			ID:      req.ID,
		})
		return
	}

	writeJSON(w, Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      req.ID,
	})
}

// dispatch routes a request to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, req *Request) (interface{}, *Error) {
	switch req.Method {
	case "ledger_getInfo":
		return s.handleLedgerGetInfo(req)
	case "events_list":
		return s.handleEventsList(req)
	case "account_getNonce":
		return s.handleAccountGetNonce(req)
	case "series_set":
		return s.handleSeriesSet(req)
	case "series_freeze":
		return s.handleSeriesFreeze(req)
	case "series_get":
		return s.handleSeriesGet(req)
	case "series_list":
		return s.handleSeriesList(req)
	case "edition_set":
		return s.handleEditionSet(req)
	case "edition_get":
		return s.handleEditionGet(req)
	case "edition_list":
		return s.handleEditionList(req)
	case "edition_setResolver":
		return s.handleEditionSetResolver(req)
	case "nfb_mint":
		return s.handleNFBMint(req)
	case "nfb_burn":
		return s.handleNFBBurn(req)
	case "nfb_transfer":
		return s.handleNFBTransfer(req)
	case "nfb_approve":
		return s.handleNFBApprove(req)
	case "nfb_setApprovalForAll":
		return s.handleNFBSetApprovalForAll(req)
	case "nfb_ownerOf":
		return s.handleNFBOwnerOf(req)
	case "nfb_balanceOf":
		return s.handleNFBBalanceOf(req)
	case "nfb_tokensOf":
		return s.handleNFBTokensOf(req)
	case "nfb_tokenURI":
		return s.handleNFBTokenURI(req)
	case "nfb_decode":
		return s.handleNFBDecode(req)
	case "sale_set":
		return s.handleSaleSet(req)
	case "sale_setPaymentToken":
		return s.handleSaleSetPaymentToken(req)
	case "sale_toggleEnforceTokenPayment":
		return s.handleSaleToggleEnforceTokenPayment(req)
	case "sale_setCustomHandler":
		return s.handleSaleSetCustomHandler(req)
	case "sale_get":
		return s.handleSaleGet(req)
	case "sale_list":
		return s.handleSaleList(req)
	case "sale_quote":
		return s.handleSaleQuote(req)
	case "sale_purchase":
		return s.handleSalePurchase(ctx, req)
	case "sale_withdrawNative":
		return s.handleSaleWithdrawNative(req)
	case "sale_withdrawTokens":
		return s.handleSaleWithdrawTokens(req)
	case "role_grant":
		return s.handleRoleGrant(req)
	case "role_revoke":
		return s.handleRoleRevoke(req)
	case "role_list":
		return s.handleRoleList(req)
	case "paytoken_issue":
		return s.handlePayTokenIssue(req)
	case "paytoken_mint":
		return s.handlePayTokenMint(req)
	case "paytoken_approve":
		return s.handlePayTokenApprove(req)
	case "paytoken_transfer":
		return s.handlePayTokenTransfer(req)
	case "paytoken_balance":
		return s.handlePayTokenBalance(req)
	case "paytoken_list":
		return s.handlePayTokenList(req)
	case "bank_balance":
		return s.handleBankBalance(req)
	case "bank_transfer":
		return s.handleBankTransfer(req)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

// update authenticates req, decodes its params into target and runs fn as
// one ledger operation. The request nonce is spent in the same operation.
// When the operation is rejected the nonce is still spent, so a signed
// request can never be replayed later.
func (s *Server) update(req *Request, target interface{}, fn func(st *ledger.State, caller types.Address) (interface{}, error)) (interface{}, *Error) {
	caller, nonce, err := authenticate(req)
	if err != nil {
		if errors.Is(err, ErrAuthRequired) || errors.Is(err, ErrInvalidSignature) {
			return nil, ledgerError(err)
		}
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	if target != nil {
		if rpcErr := parseParams(req, target); rpcErr != nil {
			return nil, rpcErr
		}
	}

	var result interface{}
	err = s.ledger.Update(req.Method, func(st *ledger.State) error {
		if err := st.Access.UseNonce(caller, nonce); err != nil {
			return err
		}
		r, err := fn(st, caller)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		if !errors.Is(err, access.ErrStaleNonce) {
			s.spendNonce(caller, nonce)
		}
		return nil, ledgerError(err)
	}
	return result, nil
}

func (s *Server) spendNonce(caller types.Address, nonce uint64) {
	err := s.ledger.Update("nonce", func(st *ledger.State) error {
		return st.Access.UseNonce(caller, nonce)
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("caller", caller.String()).Msg("Failed to spend nonce of rejected request")
	}
}

// view runs fn against a read-only snapshot of the ledger.
func (s *Server) view(fn func(st *ledger.State) (interface{}, error)) (interface{}, *Error) {
	var result interface{}
	err := s.ledger.View(func(st *ledger.State) error {
		r, err := fn(st)
		result = r
		return err
	})
	if err != nil {
		return nil, ledgerError(err)
	}
	return result, nil
}

// writeJSON writes a JSON-RPC response.
func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes a JSON-RPC error response.
func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	})
}

// isIPAllowed checks if the IP is in the allowed networks list.
func (s *Server) isIPAllowed(ip net.IP) bool {
	for _, n := range s.allowedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// setCORSHeaders adds CORS headers based on the configured origins.
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsOrigins) == 0 {
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	allowed := false
	for _, o := range s.corsOrigins {
		if o == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			allowed = true
			break
		}
		if o == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			allowed = true
			break
		}
	}

	if allowed {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	}
}

// parseParams unmarshals the request params into the given target.
func parseParams(req *Request, target interface{}) *Error {
	if len(req.Params) == 0 || string(req.Params) == "null" {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}
	if err := json.Unmarshal(req.Params, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}
