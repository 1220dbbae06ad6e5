package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Klingon-tech/nfb-ledger/config"
	"github.com/Klingon-tech/nfb-ledger/internal/events"
	"github.com/Klingon-tech/nfb-ledger/internal/ledger"
	klog "github.com/Klingon-tech/nfb-ledger/internal/log"
	"github.com/Klingon-tech/nfb-ledger/internal/metadata"
	"github.com/Klingon-tech/nfb-ledger/internal/sales"
	"github.com/Klingon-tech/nfb-ledger/internal/storage"
	"github.com/Klingon-tech/nfb-ledger/pkg/crypto"
	"github.com/Klingon-tech/nfb-ledger/pkg/tokenid"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
)

const (
	testNow   = 1_500
	testPrice = 250
)

var imageRef = crypto.DeriveAddress("resolver", "image")

// testEnv holds all components for an RPC test.
type testEnv struct {
	server *Server
	ledger *ledger.Ledger
	admin  *crypto.PrivateKey
	buyer  *crypto.PrivateKey
	url    string
	nonces map[types.Address]uint64
}

func setupTestEnv(t *testing.T) *testEnv {
	return setupTestEnvWithConfig(t, config.RPCConfig{})
}

func setupTestEnvWithConfig(t *testing.T, rpcCfg config.RPCConfig) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	admin, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	buyer, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	l, err := ledger.New(storage.NewMemory(), ledger.Genesis{
		Admins: []types.Address{admin.Address()},
		Alloc:  map[types.Address]uint64{buyer.Address(): 10_000},
	})
	if err != nil {
		t.Fatalf("create ledger: %v", err)
	}
	l.SetClock(func() time.Time { return time.Unix(testNow, 0) })
	l.RegisterResolver(imageRef, &metadata.ImageResolver{Name: "Dawn", Image: "ipfs://dawn.png"})

	srv := New("127.0.0.1:0", l, rpcCfg)
	srv.SetNetwork("testnet")
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		server: srv,
		ledger: l,
		admin:  admin,
		buyer:  buyer,
		url:    fmt.Sprintf("http://%s/", srv.Addr()),
		nonces: make(map[types.Address]uint64),
	}
}

func post(t *testing.T, url string, req Request) Response {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", req.Method, err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rpcResp
}

func rpcCall(t *testing.T, url, method string, params interface{}) Response {
	t.Helper()
	req := Request{JSONRPC: "2.0", Method: method, ID: 1}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("marshal params: %v", err)
		}
		req.Params = raw
	}
	return post(t, url, req)
}

// signedRequest builds a request signed by key with the next nonce.
func (env *testEnv) signedRequest(t *testing.T, key *crypto.PrivateKey, method string, params interface{}) Request {
	t.Helper()
	env.nonces[key.Address()]++
	raw, err := SignParams(method, params, env.nonces[key.Address()], key)
	if err != nil {
		t.Fatalf("sign %s: %v", method, err)
	}
	return Request{JSONRPC: "2.0", Method: method, Params: raw, ID: 1}
}

func (env *testEnv) signedCall(t *testing.T, key *crypto.PrivateKey, method string, params interface{}) Response {
	t.Helper()
	return post(t, env.url, env.signedRequest(t, key, method, params))
}

func decodeResult(t *testing.T, resp Response, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %d %s (%v)", resp.Error.Code, resp.Error.Message, resp.Error.Data)
	}
	data, _ := json.Marshal(resp.Result)
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func expectError(t *testing.T, resp Response, code int, kind string) {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected error %d %s, got result %v", code, kind, resp.Result)
	}
	if resp.Error.Code != code {
		t.Errorf("error code = %d, want %d (%s)", resp.Error.Code, code, resp.Error.Message)
	}
	if kind != "" && resp.Error.Data != kind {
		t.Errorf("error data = %v, want %q", resp.Error.Data, kind)
	}
}

// openSale creates series 1 / edition 1 and puts it on sale.
func (env *testEnv) openSale(t *testing.T, supply, perTx uint64) {
	t.Helper()
	steps := []struct {
		method string
		params interface{}
	}{
		{"series_set", SeriesSetParam{Series: 1, Name: "Genesis", Description: "First series"}},
		{"edition_set", EditionSetParam{Series: 1, Edition: 1, AvailableFrom: 1_000, AvailableUntil: 2_000, Name: "Dawn"}},
		{"edition_setResolver", EditionResolverParam{Series: 1, Edition: 1, Resolver: imageRef}},
		{"sale_set", SaleSetParam{Series: 1, Edition: 1, MaxSupplyForSale: supply, NativePrice: testPrice, MaxUnitsPerTx: perTx}},
	}
	for _, s := range steps {
		resp := env.signedCall(t, env.admin, s.method, s.params)
		if resp.Error != nil {
			t.Fatalf("%s: %s", s.method, resp.Error.Message)
		}
	}
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestRPC_LedgerGetInfo(t *testing.T) {
	env := setupTestEnv(t)

	var info LedgerInfoResult
	decodeResult(t, rpcCall(t, env.url, "ledger_getInfo", nil), &info)

	if info.Network != "testnet" {
		t.Errorf("network = %q, want testnet", info.Network)
	}
	if info.RegistryRef != ledger.RegistryRef {
		t.Errorf("registry ref = %s, want %s", info.RegistryRef, ledger.RegistryRef)
	}
	if info.NativeSupply != 10_000 {
		t.Errorf("native supply = %d, want 10000", info.NativeSupply)
	}
	if info.Time != testNow {
		t.Errorf("time = %d, want %d", info.Time, testNow)
	}
}

func TestRPC_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "nonexistent_method", nil)
	expectError(t, resp, CodeMethodNotFound, "")
}

func TestRPC_InvalidParams(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "series_get", nil)
	expectError(t, resp, CodeInvalidParams, "")

	resp = rpcCall(t, env.url, "bank_balance", map[string]string{"account": "xyz"})
	expectError(t, resp, CodeInvalidParams, "")
}

func TestRPC_InvalidJSON(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Post(env.url, "application/json", bytes.NewReader([]byte("not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	expectError(t, rpcResp, CodeParseError, "")
}

func TestRPC_GetMethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	expectError(t, rpcResp, CodeInvalidRequest, "")
}

func TestRPC_BodySizeLimit(t *testing.T) {
	env := setupTestEnv(t)

	big := `{"jsonrpc":"2.0","method":"ledger_getInfo","id":1,"params":{"pad":"` + strings.Repeat("x", maxBodySize) + `"}}`
	resp, err := http.Post(env.url, "application/json", strings.NewReader(big))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	expectError(t, rpcResp, CodeInvalidRequest, "")
}

// --- Authentication ---

func TestRPC_AuthRequired(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "series_set", SeriesSetParam{Series: 1, Name: "x"})
	expectError(t, resp, CodePermissionDenied, "AuthRequired")
}

func TestRPC_TamperedParams(t *testing.T) {
	env := setupTestEnv(t)

	req := env.signedRequest(t, env.admin, "series_set", SeriesSetParam{Series: 1, Name: "Genesis"})
	req.Params = json.RawMessage(strings.Replace(string(req.Params), "Genesis", "Forged", 1))

	resp := post(t, env.url, req)
	expectError(t, resp, CodePermissionDenied, "InvalidSignature")
}

func TestRPC_SignatureBindsMethod(t *testing.T) {
	env := setupTestEnv(t)

	req := env.signedRequest(t, env.admin, "series_set", SeriesParam{Series: 1})
	req.Method = "series_freeze"

	resp := post(t, env.url, req)
	expectError(t, resp, CodePermissionDenied, "InvalidSignature")
}

func TestRPC_ReplayRejected(t *testing.T) {
	env := setupTestEnv(t)

	req := env.signedRequest(t, env.admin, "series_set", SeriesSetParam{Series: 1, Name: "Genesis"})
	if resp := post(t, env.url, req); resp.Error != nil {
		t.Fatalf("first call: %s", resp.Error.Message)
	}
	expectError(t, post(t, env.url, req), CodePermissionDenied, "StaleNonce")

	var nonce NonceResult
	decodeResult(t, rpcCall(t, env.url, "account_getNonce", AccountParam{Account: env.admin.Address()}), &nonce)
	if nonce.Nonce != 1 {
		t.Errorf("nonce = %d, want 1", nonce.Nonce)
	}
}

func TestRPC_RejectedRequestSpendsNonce(t *testing.T) {
	env := setupTestEnv(t)

	req := env.signedRequest(t, env.admin, "series_freeze", SeriesParam{Series: 9})
	expectError(t, post(t, env.url, req), CodeNotFound, "SeriesNotFound")

	// Creating the series does not make the old request valid again.
	env.signedCall(t, env.admin, "series_set", SeriesSetParam{Series: 9, Name: "Late"})
	expectError(t, post(t, env.url, req), CodePermissionDenied, "StaleNonce")
}

func TestRPC_PermissionDenied(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.signedCall(t, env.buyer, "series_set", SeriesSetParam{Series: 1, Name: "x"})
	expectError(t, resp, CodePermissionDenied, "PermissionDenied")

	resp = rpcCall(t, env.url, "series_get", SeriesParam{Series: 1})
	expectError(t, resp, CodeNotFound, "SeriesNotFound")
}

// --- Registry ---

func TestRPC_SeriesAndEditions(t *testing.T) {
	env := setupTestEnv(t)
	env.openSale(t, 10, 5)

	var series []struct {
		ID     uint64 `json:"id"`
		Name   string `json:"name"`
		Frozen bool   `json:"frozen"`
	}
	decodeResult(t, rpcCall(t, env.url, "series_list", nil), &series)
	if len(series) != 1 || series[0].Name != "Genesis" {
		t.Fatalf("series_list = %+v", series)
	}

	var ed EditionResult
	decodeResult(t, rpcCall(t, env.url, "edition_get", EditionParam{Series: 1, Edition: 1}), &ed)
	if ed.Availability != "available" {
		t.Errorf("availability = %q, want available", ed.Availability)
	}
	if ed.Resolver != imageRef {
		t.Errorf("resolver = %s, want %s", ed.Resolver, imageRef)
	}

	var eds []EditionResult
	decodeResult(t, rpcCall(t, env.url, "edition_list", SeriesParam{Series: 1}), &eds)
	if len(eds) != 1 || eds[0].Name != "Dawn" {
		t.Errorf("edition_list = %+v", eds)
	}

	resp := env.signedCall(t, env.admin, "series_freeze", SeriesParam{Series: 1})
	if resp.Error != nil {
		t.Fatalf("series_freeze: %s", resp.Error.Message)
	}
	resp = env.signedCall(t, env.admin, "edition_set", EditionSetParam{Series: 1, Edition: 2, AvailableFrom: 0, AvailableUntil: 10})
	expectError(t, resp, CodeRejected, "SeriesFrozen")
}

func TestRPC_MintTransferBurn(t *testing.T) {
	env := setupTestEnv(t)
	env.openSale(t, 10, 5)
	holder := env.buyer.Address()

	if resp := env.signedCall(t, env.admin, "role_grant", RoleParam{Role: "minter", Account: env.admin.Address()}); resp.Error != nil {
		t.Fatalf("role_grant: %s", resp.Error.Message)
	}

	var minted MintResult
	decodeResult(t, env.signedCall(t, env.admin, "nfb_mint", MintParam{Recipient: holder, Count: 2, Series: 1, Edition: 1}), &minted)
	if len(minted.TokenIDs) != 2 {
		t.Fatalf("minted %d tokens, want 2", len(minted.TokenIDs))
	}
	first, _ := tokenid.Pack(1, 1, 0)
	if minted.TokenIDs[0] != first {
		t.Errorf("first id = %d, want %d", minted.TokenIDs[0], first)
	}

	var dec DecodeResult
	decodeResult(t, rpcCall(t, env.url, "nfb_decode", TokenIDParam{ID: minted.TokenIDs[1]}), &dec)
	if dec.Series != 1 || dec.Edition != 1 || dec.Sequence != 1 || dec.Label != "1/1/#1" {
		t.Errorf("decode = %+v", dec)
	}

	other := types.Address{0x42}
	var owner OwnerResult
	decodeResult(t, env.signedCall(t, env.buyer, "nfb_transfer", TransferParam{To: other, ID: first}), &owner)
	if owner.Owner != other {
		t.Errorf("owner = %s, want %s", owner.Owner, other)
	}

	var bal CountResult
	decodeResult(t, rpcCall(t, env.url, "nfb_balanceOf", OwnerParam{Owner: holder}), &bal)
	if bal.Balance != 1 {
		t.Errorf("balance = %d, want 1", bal.Balance)
	}

	resp := env.signedCall(t, env.buyer, "nfb_burn", TokenIDParam{ID: first})
	expectError(t, resp, CodePermissionDenied, "")

	if resp := env.signedCall(t, env.buyer, "nfb_burn", TokenIDParam{ID: minted.TokenIDs[1]}); resp.Error != nil {
		t.Fatalf("nfb_burn: %s", resp.Error.Message)
	}
	expectError(t, rpcCall(t, env.url, "nfb_ownerOf", TokenIDParam{ID: minted.TokenIDs[1]}), CodeNotFound, "TokenNotFound")
}

func TestRPC_MintLimit(t *testing.T) {
	env := setupTestEnv(t)
	env.openSale(t, 10, 5)
	env.ledger.SetMintLimit(3)
	to := types.Address{0xC2}

	if resp := env.signedCall(t, env.admin, "role_grant", RoleParam{Role: "minter", Account: env.admin.Address()}); resp.Error != nil {
		t.Fatalf("role_grant: %s", resp.Error.Message)
	}
	expectError(t, env.signedCall(t, env.admin, "nfb_mint", MintParam{Recipient: to, Count: 4, Series: 1, Edition: 1}),
		CodeRejected, "MintLimitExceeded")

	var minted MintResult
	decodeResult(t, env.signedCall(t, env.admin, "nfb_mint", MintParam{Recipient: to, Count: 3, Series: 1, Edition: 1}), &minted)
	if len(minted.TokenIDs) != 3 {
		t.Fatalf("minted %d tokens, want 3", len(minted.TokenIDs))
	}

	expectError(t, env.signedCall(t, env.admin, "sale_set", SaleSetParam{
		Series: 1, Edition: 1, MaxSupplyForSale: 10, NativePrice: testPrice, MaxUnitsPerTx: 5,
	}), CodeRejected, "MintLimitExceeded")

	// The sale opened before the cap still allows 5 per purchase; the mint rejects it.
	expectError(t, env.signedCall(t, env.buyer, "sale_purchase", PurchaseParam{
		Series: 1, Edition: 1, Quantity: 4, Recipient: to, Value: 4 * testPrice,
	}), CodeRejected, "MintLimitExceeded")

	var sale SaleResult
	decodeResult(t, rpcCall(t, env.url, "sale_get", EditionParam{Series: 1, Edition: 1}), &sale)
	if sale.Sold != 0 {
		t.Errorf("sold = %d after rejected purchase, want 0", sale.Sold)
	}
}

// --- Sales ---

func TestRPC_PurchaseFlow(t *testing.T) {
	env := setupTestEnv(t)
	env.openSale(t, 10, 5)
	recipient := types.Address{0xC1}

	var q sales.Quote
	decodeResult(t, rpcCall(t, env.url, "sale_quote", QuoteParam{Series: 1, Edition: 1, Quantity: 3}), &q)
	if q.Native != 3*testPrice {
		t.Fatalf("quote = %d, want %d", q.Native, 3*testPrice)
	}

	var receipt sales.Receipt
	decodeResult(t, env.signedCall(t, env.buyer, "sale_purchase", PurchaseParam{
		Series: 1, Edition: 1, Quantity: 3, Recipient: recipient, Value: q.Native, ReferralCode: "friend",
	}), &receipt)
	if len(receipt.TokenIDs) != 3 || receipt.Buyer != env.buyer.Address() {
		t.Fatalf("receipt = %+v", receipt)
	}

	var sale SaleResult
	decodeResult(t, rpcCall(t, env.url, "sale_get", EditionParam{Series: 1, Edition: 1}), &sale)
	if sale.Sold != 3 || sale.Remaining != 7 {
		t.Errorf("sold/remaining = %d/%d, want 3/7", sale.Sold, sale.Remaining)
	}

	var tokens TokensResult
	decodeResult(t, rpcCall(t, env.url, "nfb_tokensOf", OwnerParam{Owner: recipient}), &tokens)
	if len(tokens.TokenIDs) != 3 {
		t.Errorf("tokensOf = %v", tokens.TokenIDs)
	}

	var uri TokenURIResult
	decodeResult(t, rpcCall(t, env.url, "nfb_tokenURI", TokenIDParam{ID: receipt.TokenIDs[0]}), &uri)
	doc, err := metadata.Decode(uri.URI)
	if err != nil {
		t.Fatalf("decode uri: %v", err)
	}
	if doc.Image != "ipfs://dawn.png" {
		t.Errorf("image = %q", doc.Image)
	}

	var engine CountResult
	decodeResult(t, rpcCall(t, env.url, "bank_balance", AccountParam{Account: sales.EngineAccount}), &engine)
	if engine.Balance != 3*testPrice {
		t.Errorf("engine balance = %d, want %d", engine.Balance, 3*testPrice)
	}

	// Withdraw requires the withdrawer role.
	expectError(t, env.signedCall(t, env.admin, "sale_withdrawNative", nil), CodePermissionDenied, "PermissionDenied")
	env.signedCall(t, env.admin, "role_grant", RoleParam{Role: "withdrawer", Account: env.admin.Address()})

	var w sales.Withdrawal
	decodeResult(t, env.signedCall(t, env.admin, "sale_withdrawNative", nil), &w)
	if w.Amount != 3*testPrice || w.To != env.admin.Address() {
		t.Errorf("withdrawal = %+v", w)
	}
	expectError(t, env.signedCall(t, env.admin, "sale_withdrawNative", nil), CodeRejected, "NothingToWithdraw")
}

func TestRPC_PurchaseRejections(t *testing.T) {
	env := setupTestEnv(t)
	env.openSale(t, 4, 3)
	to := types.Address{0xC1}

	tests := []struct {
		name   string
		params PurchaseParam
		code   int
		kind   string
	}{
		{"zero recipient", PurchaseParam{Series: 1, Edition: 1, Quantity: 1, Value: testPrice}, CodeRejected, "InvalidRecipient"},
		{"not configured", PurchaseParam{Series: 1, Edition: 2, Quantity: 1, Recipient: to}, CodeNotFound, "SaleNotConfigured"},
		{"too many", PurchaseParam{Series: 1, Edition: 1, Quantity: 4, Recipient: to, Value: 4 * testPrice}, CodeRejected, "TooManyUnits"},
		{"wrong value", PurchaseParam{Series: 1, Edition: 1, Quantity: 1, Recipient: to, Value: 1}, CodeRejected, "InvalidPaymentAmount"},
		{"wrong token", PurchaseParam{Series: 1, Edition: 1, Quantity: 1, Recipient: to, PaymentToken: types.Address{9}}, CodeRejected, "PaymentTokenMismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, env.signedCall(t, env.buyer, "sale_purchase", tt.params), tt.code, tt.kind)
		})
	}

	buy := PurchaseParam{Series: 1, Edition: 1, Quantity: 3, Recipient: to, Value: 3 * testPrice}
	if resp := env.signedCall(t, env.buyer, "sale_purchase", buy); resp.Error != nil {
		t.Fatalf("purchase: %s", resp.Error.Message)
	}
	buy.Quantity, buy.Value = 2, 2*testPrice
	expectError(t, env.signedCall(t, env.buyer, "sale_purchase", buy), CodeRejected, "SoldOut")

	var bal CountResult
	decodeResult(t, rpcCall(t, env.url, "bank_balance", AccountParam{Account: env.buyer.Address()}), &bal)
	if bal.Balance != 10_000-3*testPrice {
		t.Errorf("buyer balance = %d, rejected purchases must not charge", bal.Balance)
	}
}

func TestRPC_TokenPayment(t *testing.T) {
	env := setupTestEnv(t)
	env.openSale(t, 10, 5)
	to := types.Address{0xC1}

	var info struct {
		Ref types.Address `json:"ref"`
	}
	decodeResult(t, env.signedCall(t, env.admin, "paytoken_issue", PayTokenIssueParam{Symbol: "USDX", Name: "Dollar", Decimals: 6}), &info)

	steps := []struct {
		key    *crypto.PrivateKey
		method string
		params interface{}
	}{
		{env.admin, "paytoken_mint", PayTokenAmountParam{Token: info.Ref, To: env.buyer.Address(), Amount: 1_000}},
		{env.admin, "sale_setPaymentToken", SalePaymentTokenParam{Series: 1, Edition: 1, Token: info.Ref, TokenPrice: 100, NativeSurcharge: 5}},
		{env.buyer, "paytoken_approve", PayTokenApproveParam{Token: info.Ref, Spender: sales.EngineAccount, Amount: 1_000}},
	}
	for _, s := range steps {
		if resp := env.signedCall(t, s.key, s.method, s.params); resp.Error != nil {
			t.Fatalf("%s: %s", s.method, resp.Error.Message)
		}
	}

	var toggled ToggleResult
	decodeResult(t, env.signedCall(t, env.admin, "sale_toggleEnforceTokenPayment", EditionParam{Series: 1, Edition: 1}), &toggled)
	if !toggled.EnforceTokenPayment {
		t.Fatal("enforcement should be on")
	}
	expectError(t, env.signedCall(t, env.buyer, "sale_purchase", PurchaseParam{
		Series: 1, Edition: 1, Quantity: 1, Recipient: to, Value: testPrice,
	}), CodeRejected, "TokenPaymentRequired")

	var receipt sales.Receipt
	decodeResult(t, env.signedCall(t, env.buyer, "sale_purchase", PurchaseParam{
		Series: 1, Edition: 1, Quantity: 2, Recipient: to, PaymentToken: info.Ref, Value: 10,
	}), &receipt)
	if receipt.TokenPaid != 200 || receipt.NativePaid != 10 {
		t.Errorf("paid %d tokens + %d native, want 200 + 10", receipt.TokenPaid, receipt.NativePaid)
	}

	var bal CountResult
	decodeResult(t, rpcCall(t, env.url, "paytoken_balance", PayTokenBalanceParam{Token: info.Ref, Owner: sales.EngineAccount}), &bal)
	if bal.Balance != 200 {
		t.Errorf("engine token balance = %d, want 200", bal.Balance)
	}
}

// --- Roles and events ---

func TestRPC_Roles(t *testing.T) {
	env := setupTestEnv(t)
	member := types.Address{0x77}

	var roles RoleListResult
	decodeResult(t, env.signedCall(t, env.admin, "role_grant", RoleParam{Role: "manager", Account: member}), &roles)
	if len(roles.Roles) != 1 || roles.Roles[0] != "manager" {
		t.Errorf("roles = %v", roles.Roles)
	}

	var managers RoleListResult
	decodeResult(t, rpcCall(t, env.url, "role_list", RoleListParam{Role: "manager"}), &managers)
	if len(managers.Members) != 2 {
		t.Errorf("managers = %v, want admin and member", managers.Members)
	}

	expectError(t, env.signedCall(t, env.admin, "role_grant", RoleParam{Role: "emperor", Account: member}), CodeInvalidParams, "UnknownRole")
	expectError(t, env.signedCall(t, env.buyer, "role_revoke", RoleParam{Role: "manager", Account: member}), CodePermissionDenied, "PermissionDenied")

	var after RoleListResult
	decodeResult(t, env.signedCall(t, env.admin, "role_revoke", RoleParam{Role: "manager", Account: member}), &after)
	if len(after.Roles) != 0 {
		t.Errorf("roles after revoke = %v", after.Roles)
	}
}

func TestRPC_EventsList(t *testing.T) {
	env := setupTestEnv(t)
	env.openSale(t, 10, 5)

	var all []events.Event
	decodeResult(t, rpcCall(t, env.url, "events_list", nil), &all)
	if len(all) == 0 {
		t.Fatal("expected events")
	}

	var sets []events.Event
	decodeResult(t, rpcCall(t, env.url, "events_list", EventsParam{Kind: events.KindSeriesSet}), &sets)
	if len(sets) != 1 {
		t.Errorf("series_set events = %d, want 1", len(sets))
	}

	var page []events.Event
	decodeResult(t, rpcCall(t, env.url, "events_list", EventsParam{From: all[1].Seq, Limit: 1}), &page)
	if len(page) != 1 || page[0].Seq != all[1].Seq {
		t.Errorf("page = %+v", page)
	}
}

// --- IP Filtering ---

func TestRPC_IPFilter_Allowed(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		AllowedIPs: []string{"127.0.0.1"},
	})

	resp := rpcCall(t, env.url, "ledger_getInfo", nil)
	if resp.Error != nil {
		t.Errorf("expected success for 127.0.0.1, got error: %s", resp.Error.Message)
	}
}

func TestRPC_IPFilter_Blocked(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		AllowedIPs: []string{"10.0.0.0/8"},
	})

	body, _ := json.Marshal(Request{JSONRPC: "2.0", Method: "ledger_getInfo", ID: 1})
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
}

func TestRPC_RateLimit(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{RateLimit: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		if resp := rpcCall(t, env.url, "ledger_getInfo", nil); resp.Error != nil {
			t.Fatalf("request %d: %s", i, resp.Error.Message)
		}
	}

	body, _ := json.Marshal(Request{JSONRPC: "2.0", Method: "ledger_getInfo", ID: 1})
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rpcResp.Error == nil || rpcResp.Error.Code != CodeRateLimited {
		t.Errorf("error = %+v, want code %d", rpcResp.Error, CodeRateLimited)
	}
}

func TestClientLimiter(t *testing.T) {
	var off *clientLimiter
	if newClientLimiter(0, 5) != nil || !off.allow("1.2.3.4") {
		t.Fatal("zero rate should disable limiting")
	}

	l := newClientLimiter(0.001, 0)
	if l.burst != 1 {
		t.Errorf("default burst = %d, want 1", l.burst)
	}
	if !l.allow("10.0.0.1") {
		t.Fatal("first request denied")
	}
	if l.allow("10.0.0.1") {
		t.Error("second request from the same client allowed")
	}
	if !l.allow("10.0.0.2") {
		t.Error("other client shares the bucket")
	}
}

// --- CORS ---

func TestRPC_CORS(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"wildcard", []string{"*"}, "http://example.com", "*"},
		{"specific", []string{"http://myapp.com"}, "http://myapp.com", "http://myapp.com"},
		{"mismatch", []string{"http://myapp.com"}, "http://evil.com", ""},
		{"disabled", nil, "http://example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvWithConfig(t, config.RPCConfig{CORSOrigins: tt.origins})

			body, _ := json.Marshal(Request{JSONRPC: "2.0", Method: "ledger_getInfo", ID: 1})
			httpReq, _ := http.NewRequest("POST", env.url, bytes.NewReader(body))
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("Origin", tt.origin)

			resp, err := http.DefaultClient.Do(httpReq)
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			defer resp.Body.Close()

			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("CORS origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRPC_CORS_Preflight(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{CORSOrigins: []string{"*"}})

	httpReq, _ := http.NewRequest("OPTIONS", env.url, nil)
	httpReq.Header.Set("Origin", "http://example.com")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got != "POST, OPTIONS" {
		t.Errorf("allow methods = %q", got)
	}
}
