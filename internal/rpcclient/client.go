// Package rpcclient provides a JSON-RPC 2.0 client for nfb ledger nodes.
package rpcclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Klingon-tech/nfb-ledger/internal/rpc"
	"github.com/Klingon-tech/nfb-ledger/pkg/crypto"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
	"github.com/google/uuid"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrNoSigner is returned by CallSigned on a client without a signer.
	ErrNoSigner = errors.New("client has no signer")
	// ErrIDMismatch means the server answered a different request.
	ErrIDMismatch = errors.New("response id does not match request")
)

// Client talks to one node endpoint. Each request carries a fresh UUID as
// its JSON-RPC id.
type Client struct {
	endpoint string
	http     *http.Client

	mu     sync.Mutex // serializes signed calls so nonces stay ordered
	signer crypto.Signer
}

// New returns a client for endpoint with a 10 second HTTP timeout.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, defaultTimeout)
}

// NewWithTimeout returns a client for endpoint. A non-positive timeout
// selects the default.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

// SetSigner sets the key used by CallSigned.
func (c *Client) SetSigner(s crypto.Signer) {
	c.mu.Lock()
	c.signer = s
	c.mu.Unlock()
}

// Caller returns the ledger account of the configured signer.
func (c *Client) Caller() (types.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signer == nil {
		return types.Address{}, ErrNoSigner
	}
	return crypto.AddressFromPubKey(c.signer.PublicKey()), nil
}

type response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    string `json:"data,omitempty"`
	} `json:"error,omitempty"`
	ID interface{} `json:"id"`
}

// RPCError is returned when the server responds with an error. Kind names
// the ledger rejection (e.g. "SoldOut") when there is one.
type RPCError struct {
	Code    int
	Message string
	Kind    string
}

func (e *RPCError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("rpc error %d (%s): %s", e.Code, e.Kind, e.Message)
}

// IsKind reports whether err is an RPCError of the given kind.
func IsKind(err error, kind string) bool {
	var re *RPCError
	return errors.As(err, &re) && re.Kind == kind
}

// Call invokes method with params and decodes the result into result,
// which may be nil to discard it.
func (c *Client) Call(method string, params, result interface{}) error {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		raw = b
	}
	return c.do(method, raw, result)
}

// CallSigned signs params with the client's signer under the caller's next
// nonce and invokes method.
func (c *Client) CallSigned(method string, params, result interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signer == nil {
		return ErrNoSigner
	}

	caller := crypto.AddressFromPubKey(c.signer.PublicKey())
	var n rpc.NonceResult
	if err := c.Call("account_getNonce", rpc.AccountParam{Account: caller}, &n); err != nil {
		return fmt.Errorf("fetch nonce: %w", err)
	}
	raw, err := rpc.SignParams(method, params, n.Nonce+1, c.signer)
	if err != nil {
		return err
	}
	return c.do(method, raw, result)
}

func (c *Client) do(method string, params json.RawMessage, result interface{}) error {
	id := uuid.NewString()
	body, err := json.Marshal(rpc.Request{JSONRPC: "2.0", Method: method, Params: params, ID: id})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.http.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}

	// Errors raised before the request was parsed carry a null id.
	if r.Error != nil {
		return &RPCError{Code: r.Error.Code, Message: r.Error.Message, Kind: r.Error.Data}
	}
	if got, _ := r.ID.(string); got != id {
		return fmt.Errorf("%w: sent %s, got %v", ErrIDMismatch, id, r.ID)
	}
	if result != nil && len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
