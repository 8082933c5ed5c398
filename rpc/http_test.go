package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"fracswap/core/events"
	"fracswap/core/state"
	"fracswap/core/types"
	"fracswap/crypto"
	"fracswap/native/pool"
	"fracswap/native/registry"
	"fracswap/storage"
)

const testToken = "test-token"

type testEnv struct {
	server  *Server
	manager *state.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv(authTokenEnv, testToken)

	manager := state.NewManager(storage.NewMemDB())
	operator := crypto.MustNewAddress(crypto.FracPrefix, bytes.Repeat([]byte{0xAA}, 20))
	reg := registry.New(manager, operator.Array())
	collector := events.NewCollector()

	engine := pool.NewEngine()
	engine.SetState(manager)
	engine.SetAuthority(reg)
	engine.SetEmitter(collector)

	return &testEnv{
		server:  NewServer(engine, reg, collector),
		manager: manager,
	}
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (env *testEnv) call(t *testing.T, token, method string, params interface{}) (int, *envelope) {
	t.Helper()
	rawParams, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []json.RawMessage{rawParams},
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	decoded := &envelope{}
	if err := json.Unmarshal(rec.Body.Bytes(), decoded); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return rec.Code, decoded
}

func testCallerAddress(fill byte) string {
	return crypto.MustNewAddress(crypto.FracPrefix, bytes.Repeat([]byte{fill}, 20)).String()
}

func createNativePool(t *testing.T, env *testEnv) (string, [32]byte) {
	t.Helper()
	status, resp := env.call(t, testToken, "pool_create", map[string]string{
		"collection": testCallerAddress(0xC0),
		"baseToken":  "",
	})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("pool_create failed: status=%d err=%v", status, resp.Error)
	}
	var created poolJSON
	if err := json.Unmarshal(resp.Result, &created); err != nil {
		t.Fatalf("decode pool: %v", err)
	}
	raw, err := hex.DecodeString(created.ID)
	if err != nil || len(raw) != 32 {
		t.Fatalf("malformed pool id %q", created.ID)
	}
	var id [32]byte
	copy(id[:], raw)
	return created.ID, id
}

func TestPoolCreateGetLookupList(t *testing.T) {
	env := newTestEnv(t)
	idHex, _ := createNativePool(t, env)

	status, resp := env.call(t, "", "pool_get", map[string]string{"id": idHex})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("pool_get failed: status=%d err=%v", status, resp.Error)
	}
	var got poolJSON
	if err := json.Unmarshal(resp.Result, &got); err != nil {
		t.Fatalf("decode pool: %v", err)
	}
	if got.ID != idHex || got.BaseToken != pool.NativeToken {
		t.Fatalf("unexpected pool payload: %+v", got)
	}

	status, resp = env.call(t, "", "pool_lookup", map[string]string{
		"collection": testCallerAddress(0xC0),
		"baseToken":  "",
	})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("pool_lookup failed: status=%d err=%v", status, resp.Error)
	}

	status, resp = env.call(t, "", "pool_list", map[string]string{})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("pool_list failed: status=%d err=%v", status, resp.Error)
	}
	var ids []string
	if err := json.Unmarshal(resp.Result, &ids); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(ids) != 1 || ids[0] != idHex {
		t.Fatalf("unexpected pool list %v", ids)
	}
}

func TestCreateRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	status, resp := env.call(t, "", "pool_create", map[string]string{
		"collection": testCallerAddress(0xC0),
		"baseToken":  "",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", status)
	}
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", resp.Error)
	}
}

func TestAddQuoteBuyFlow(t *testing.T) {
	env := newTestEnv(t)
	idHex, id := createNativePool(t, env)

	caller := crypto.MustNewAddress(crypto.FracPrefix, bytes.Repeat([]byte{0x01}, 20))
	if err := env.manager.AccountPut(caller.Array(), &types.Account{Balance: big.NewInt(10_000)}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if err := env.manager.SetFractionalBalance(id, caller.Array(), big.NewInt(10_000)); err != nil {
		t.Fatalf("seed fractional balance: %v", err)
	}

	status, resp := env.call(t, testToken, "pool_add", map[string]string{
		"id":               idHex,
		"caller":           caller.String(),
		"baseAmount":       "1000",
		"fractionalAmount": "1000",
		"minShares":        "0",
		"value":            "1000",
	})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("pool_add failed: status=%d err=%v", status, resp.Error)
	}
	var added opResult
	if err := json.Unmarshal(resp.Result, &added); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if added.Amount != "1000" {
		t.Fatalf("minted shares %q, want 1000", added.Amount)
	}
	if len(added.Events) != 1 || added.Events[0].Type != pool.EventTypeLiquidityAdded {
		t.Fatalf("unexpected events %v", added.Events)
	}

	status, resp = env.call(t, "", "pool_buyQuote", map[string]string{
		"id":     idHex,
		"amount": "100",
	})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("pool_buyQuote failed: status=%d err=%v", status, resp.Error)
	}
	var quote opResult
	if err := json.Unmarshal(resp.Result, &quote); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if quote.Amount != "111" {
		t.Fatalf("buy quote %q, want 111", quote.Amount)
	}

	status, resp = env.call(t, testToken, "pool_buy", map[string]string{
		"id":           idHex,
		"caller":       caller.String(),
		"outputAmount": "100",
		"maxInput":     "200",
		"value":        "200",
	})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("pool_buy failed: status=%d err=%v", status, resp.Error)
	}
	var bought opResult
	if err := json.Unmarshal(resp.Result, &bought); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if bought.Amount != "111" {
		t.Fatalf("buy input %q, want 111", bought.Amount)
	}
}

func TestSlippageMapsToConflict(t *testing.T) {
	env := newTestEnv(t)
	idHex, id := createNativePool(t, env)

	caller := crypto.MustNewAddress(crypto.FracPrefix, bytes.Repeat([]byte{0x01}, 20))
	if err := env.manager.AccountPut(caller.Array(), &types.Account{Balance: big.NewInt(10_000)}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if err := env.manager.SetFractionalBalance(id, caller.Array(), big.NewInt(10_000)); err != nil {
		t.Fatalf("seed fractional balance: %v", err)
	}

	status, resp := env.call(t, testToken, "pool_add", map[string]string{
		"id":               idHex,
		"caller":           caller.String(),
		"baseAmount":       "1000",
		"fractionalAmount": "1000",
		"minShares":        "2000",
		"value":            "1000",
	})
	if status != http.StatusConflict {
		t.Fatalf("status %d, want 409", status)
	}
	if resp.Error == nil || resp.Error.Code != codePoolConflict {
		t.Fatalf("expected conflict error, got %v", resp.Error)
	}
}

func TestUnknownPoolMapsToNotFound(t *testing.T) {
	env := newTestEnv(t)

	status, resp := env.call(t, "", "pool_get", map[string]string{
		"id": hex.EncodeToString(make([]byte, 32)),
	})
	if status != http.StatusNotFound {
		t.Fatalf("status %d, want 404", status)
	}
	if resp.Error == nil || resp.Error.Code != codePoolNotFound {
		t.Fatalf("expected not found error, got %v", resp.Error)
	}
}

func TestMethodNotFound(t *testing.T) {
	env := newTestEnv(t)
	status, resp := env.call(t, "", "pool_bogus", map[string]string{})
	if status != http.StatusNotFound {
		t.Fatalf("status %d, want 404", status)
	}
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %v", resp.Error)
	}
}

func TestInvalidParams(t *testing.T) {
	env := newTestEnv(t)
	status, resp := env.call(t, "", "pool_get", map[string]string{"id": "zz"})
	if status != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", status)
	}
	if resp.Error == nil || resp.Error.Code != codePoolInvalidParams {
		t.Fatalf("expected invalid params error, got %v", resp.Error)
	}
}
