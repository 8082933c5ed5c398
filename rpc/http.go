package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"fracswap/core/events"
	"fracswap/native/pool"
	"fracswap/native/registry"
	"fracswap/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	authTokenEnv    = "FRACSWAP_RPC_TOKEN"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the pool engine and registry over JSON-RPC. Mutating
// methods are serialized behind a single mutex: the engine's execution model
// is one operation at a time against the shared ledger.
type Server struct {
	engine    *pool.Engine
	registry  *registry.Registry
	collector *events.Collector

	mu        sync.Mutex
	authToken string
}

// NewServer wires the server to the engine and registry. The collector must
// be the emitter attached to the engine; its buffered events are returned
// alongside each mutating result.
func NewServer(engine *pool.Engine, reg *registry.Registry, collector *events.Collector) *Server {
	return &Server{
		engine:    engine,
		registry:  reg,
		collector: collector,
		authToken: strings.TrimSpace(os.Getenv(authTokenEnv)),
	}
}

// Start serves the RPC endpoint on addr and blocks.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return http.ListenAndServe(addr, mux)
}

// Handler returns the RPC handler for callers that manage their own server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return mux
}

// RPCRequest is a JSON-RPC 2.0 request with positional parameters.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError carries a module-scoped error code and message.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "server auth token not configured"}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "missing bearer token"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "invalid token"}
	}
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "unable to read request body", nil)
		return
	}
	if len(body) > maxRequestBytes {
		writeError(w, http.StatusRequestEntityTooLarge, nil, codeInvalidRequest, "request body too large", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON-RPC request", err.Error())
		return
	}

	start := time.Now()
	var handlerErr error
	switch req.Method {
	case "pool_create":
		handlerErr = s.handlePoolCreate(w, r, &req)
	case "pool_get":
		handlerErr = s.handlePoolGet(w, &req)
	case "pool_list":
		handlerErr = s.handlePoolList(w, &req)
	case "pool_lookup":
		handlerErr = s.handlePoolLookup(w, &req)
	case "pool_price":
		handlerErr = s.handlePoolPrice(w, &req)
	case "pool_buyQuote":
		handlerErr = s.handleBuyQuote(w, &req)
	case "pool_sellQuote":
		handlerErr = s.handleSellQuote(w, &req)
	case "pool_addQuote":
		handlerErr = s.handleAddQuote(w, &req)
	case "pool_removeQuote":
		handlerErr = s.handleRemoveQuote(w, &req)
	case "pool_add":
		handlerErr = s.handleAdd(w, r, &req)
	case "pool_remove":
		handlerErr = s.handleRemove(w, r, &req)
	case "pool_buy":
		handlerErr = s.handleBuy(w, r, &req)
	case "pool_sell":
		handlerErr = s.handleSell(w, r, &req)
	case "pool_wrap":
		handlerErr = s.handleWrap(w, r, &req)
	case "pool_unwrap":
		handlerErr = s.handleUnwrap(w, r, &req)
	case "pool_nftAdd":
		handlerErr = s.handleNFTAdd(w, r, &req)
	case "pool_nftRemove":
		handlerErr = s.handleNFTRemove(w, r, &req)
	case "pool_nftBuy":
		handlerErr = s.handleNFTBuy(w, r, &req)
	case "pool_nftSell":
		handlerErr = s.handleNFTSell(w, r, &req)
	case "pool_close":
		handlerErr = s.handleClose(w, r, &req)
	case "pool_withdraw":
		handlerErr = s.handleWithdraw(w, r, &req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}
	observability.Pool().Observe(req.Method, start, handlerErr)
}
