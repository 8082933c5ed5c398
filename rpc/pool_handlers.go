package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"fracswap/core/types"
	"fracswap/crypto"
	"fracswap/native/pool"
	"fracswap/native/registry"
)

const (
	codePoolInvalidParams = -32021
	codePoolNotFound      = -32022
	codePoolForbidden     = -32023
	codePoolConflict      = -32024
	codePoolInternal      = -32025
)

type poolIdentityParams struct {
	Collection string `json:"collection"`
	BaseToken  string `json:"baseToken"`
	Root       string `json:"root,omitempty"`
}

type poolIDParams struct {
	ID string `json:"id"`
}

type quoteParams struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
}

type addQuoteParams struct {
	ID               string `json:"id"`
	BaseAmount       string `json:"baseAmount"`
	FractionalAmount string `json:"fractionalAmount"`
}

type addParams struct {
	ID               string `json:"id"`
	Caller           string `json:"caller"`
	BaseAmount       string `json:"baseAmount"`
	FractionalAmount string `json:"fractionalAmount"`
	MinShares        string `json:"minShares"`
	Value            string `json:"value,omitempty"`
}

type removeParams struct {
	ID         string `json:"id"`
	Caller     string `json:"caller"`
	Shares     string `json:"shares"`
	MinBaseOut string `json:"minBaseOut"`
	MinFracOut string `json:"minFractionalOut"`
}

type buyParams struct {
	ID           string `json:"id"`
	Caller       string `json:"caller"`
	OutputAmount string `json:"outputAmount"`
	MaxInput     string `json:"maxInput"`
	Value        string `json:"value,omitempty"`
}

type sellParams struct {
	ID          string `json:"id"`
	Caller      string `json:"caller"`
	InputAmount string `json:"inputAmount"`
	MinOutput   string `json:"minOutput"`
}

type wrapParams struct {
	ID      string     `json:"id"`
	Caller  string     `json:"caller"`
	ItemIDs []string   `json:"itemIds"`
	Proofs  [][]string `json:"proofs,omitempty"`
}

type unwrapParams struct {
	ID      string   `json:"id"`
	Caller  string   `json:"caller"`
	ItemIDs []string `json:"itemIds"`
}

type nftAddParams struct {
	ID         string     `json:"id"`
	Caller     string     `json:"caller"`
	BaseAmount string     `json:"baseAmount"`
	ItemIDs    []string   `json:"itemIds"`
	MinShares  string     `json:"minShares"`
	Proofs     [][]string `json:"proofs,omitempty"`
	Value      string     `json:"value,omitempty"`
}

type nftRemoveParams struct {
	ID         string   `json:"id"`
	Caller     string   `json:"caller"`
	Shares     string   `json:"shares"`
	MinBaseOut string   `json:"minBaseOut"`
	ItemIDs    []string `json:"itemIds"`
}

type nftBuyParams struct {
	ID       string   `json:"id"`
	Caller   string   `json:"caller"`
	ItemIDs  []string `json:"itemIds"`
	MaxInput string   `json:"maxInput"`
	Value    string   `json:"value,omitempty"`
}

type nftSellParams struct {
	ID        string     `json:"id"`
	Caller    string     `json:"caller"`
	ItemIDs   []string   `json:"itemIds"`
	MinOutput string     `json:"minOutput"`
	Proofs    [][]string `json:"proofs,omitempty"`
}

type withdrawParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	ItemID string `json:"itemId"`
}

type poolJSON struct {
	ID                 string `json:"id"`
	Collection         string `json:"collection"`
	BaseToken          string `json:"baseToken"`
	AllowListRoot      string `json:"allowListRoot"`
	FractionalSupply   string `json:"fractionalSupply"`
	ShareSupply        string `json:"shareSupply"`
	BaseReserves       string `json:"baseReserves"`
	FractionalReserves string `json:"fractionalReserves"`
	CreatedAt          int64  `json:"createdAt"`
	CloseAt            int64  `json:"closeAt"`
}

type opResult struct {
	Amount string         `json:"amount,omitempty"`
	Base   string         `json:"baseAmount,omitempty"`
	Frac   string         `json:"fractionalAmount,omitempty"`
	Events []*types.Event `json:"events,omitempty"`
}

// --- parsing helpers ---

func decodeParams(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codePoolInvalidParams, Message: "invalid_params", Data: "exactly one parameter object expected"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codePoolInvalidParams, Message: "invalid_params", Data: err.Error()}
	}
	return nil
}

func parsePoolID(value string) ([32]byte, *RPCError) {
	var id [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	if err != nil || len(raw) != 32 {
		return id, &RPCError{Code: codePoolInvalidParams, Message: "invalid_params", Data: "pool id must be 32 hex bytes"}
	}
	copy(id[:], raw)
	return id, nil
}

func parseRoot(value string) ([32]byte, *RPCError) {
	var root [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return root, nil
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != 32 {
		return root, &RPCError{Code: codePoolInvalidParams, Message: "invalid_params", Data: "root must be 32 hex bytes"}
	}
	copy(root[:], raw)
	return root, nil
}

func parseCaller(value string) ([20]byte, *RPCError) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, &RPCError{Code: codePoolInvalidParams, Message: "invalid_params", Data: err.Error()}
	}
	return addr.Array(), nil
}

func parseAmount(value, field string) (*big.Int, *RPCError) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, &RPCError{Code: codePoolInvalidParams, Message: "invalid_params", Data: fmt.Sprintf("%s must be a non-negative decimal string", field)}
	}
	return amount, nil
}

func parseItemIDs(values []string) ([]*big.Int, *RPCError) {
	ids := make([]*big.Int, 0, len(values))
	for _, value := range values {
		id, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
		if !ok || id.Sign() < 0 {
			return nil, &RPCError{Code: codePoolInvalidParams, Message: "invalid_params", Data: fmt.Sprintf("invalid item id %q", value)}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseProofs(values [][]string) ([][][32]byte, *RPCError) {
	if values == nil {
		return nil, nil
	}
	proofs := make([][][32]byte, 0, len(values))
	for _, proof := range values {
		nodes := make([][32]byte, 0, len(proof))
		for _, node := range proof {
			raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(node), "0x"))
			if err != nil || len(raw) != 32 {
				return nil, &RPCError{Code: codePoolInvalidParams, Message: "invalid_params", Data: "proof nodes must be 32 hex bytes"}
			}
			var fixed [32]byte
			copy(fixed[:], raw)
			nodes = append(nodes, fixed)
		}
		proofs = append(proofs, nodes)
	}
	return proofs, nil
}

func errToRPC(err error) *RPCError {
	switch {
	case errors.Is(err, pool.ErrPoolNotFound), errors.Is(err, registry.ErrPoolNotFound):
		return &RPCError{Code: codePoolNotFound, Message: "not_found", Data: err.Error()}
	case errors.Is(err, pool.ErrUnauthorized):
		return &RPCError{Code: codePoolForbidden, Message: "forbidden", Data: err.Error()}
	case errors.Is(err, pool.ErrZeroAmount), errors.Is(err, pool.ErrValueMismatch), errors.Is(err, pool.ErrProofCount):
		return &RPCError{Code: codePoolInvalidParams, Message: "invalid_params", Data: err.Error()}
	case errors.Is(err, pool.ErrSlippage), errors.Is(err, pool.ErrInsufficientReserves),
		errors.Is(err, pool.ErrNoLiquidity), errors.Is(err, pool.ErrInsufficientBalance),
		errors.Is(err, pool.ErrInsufficientShares), errors.Is(err, pool.ErrInsufficientFunds),
		errors.Is(err, pool.ErrProofInvalid), errors.Is(err, pool.ErrNotItemOwner),
		errors.Is(err, pool.ErrPoolClosed), errors.Is(err, pool.ErrNotClosed),
		errors.Is(err, pool.ErrGracePeriodActive), errors.Is(err, registry.ErrPoolExists):
		return &RPCError{Code: codePoolConflict, Message: "conflict", Data: err.Error()}
	default:
		return &RPCError{Code: codePoolInternal, Message: "internal_error", Data: err.Error()}
	}
}

func (s *Server) writeRPCError(w http.ResponseWriter, id interface{}, rpcErr *RPCError) {
	status := http.StatusBadRequest
	switch rpcErr.Code {
	case codePoolNotFound:
		status = http.StatusNotFound
	case codePoolForbidden:
		status = http.StatusForbidden
	case codePoolConflict:
		status = http.StatusConflict
	case codePoolInternal:
		status = http.StatusInternalServerError
	}
	writeError(w, status, id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
}

func (s *Server) poolJSON(p *pool.Pool) (*poolJSON, error) {
	baseReserves, err := s.engine.BaseTokenReserves(p.ID)
	if err != nil {
		return nil, err
	}
	fracReserves, err := s.engine.FractionalTokenReserves(p.ID)
	if err != nil {
		return nil, err
	}
	collection, err := crypto.NewAddress(crypto.FracPrefix, p.Collection[:])
	if err != nil {
		return nil, err
	}
	return &poolJSON{
		ID:                 hex.EncodeToString(p.ID[:]),
		Collection:         collection.String(),
		BaseToken:          p.BaseToken,
		AllowListRoot:      hex.EncodeToString(p.AllowListRoot[:]),
		FractionalSupply:   p.FractionalSupply.String(),
		ShareSupply:        p.ShareSupply.String(),
		BaseReserves:       baseReserves.String(),
		FractionalReserves: fracReserves.String(),
		CreatedAt:          p.CreatedAt,
		CloseAt:            p.CloseAt,
	}, nil
}

func (s *Server) drainEvents() []*types.Event {
	if s.collector == nil {
		return nil
	}
	return s.collector.Drain()
}

// --- registry handlers ---

func (s *Server) handlePoolCreate(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params poolIdentityParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	collection, rpcErr := parseCaller(params.Collection)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	root, rpcErr := parseRoot(params.Root)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	s.mu.Lock()
	created, err := s.registry.Create(collection, params.BaseToken, root)
	s.mu.Unlock()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	result, err := s.poolJSON(created)
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, result)
	return nil
}

func (s *Server) handlePoolGet(w http.ResponseWriter, req *RPCRequest) error {
	var params poolIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	p, err := s.engine.GetPool(id)
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	result, err := s.poolJSON(p)
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, result)
	return nil
}

func (s *Server) handlePoolList(w http.ResponseWriter, req *RPCRequest) error {
	ids, err := s.registry.List()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	encoded := make([]string, 0, len(ids))
	for _, id := range ids {
		encoded = append(encoded, hex.EncodeToString(id[:]))
	}
	writeResult(w, req.ID, encoded)
	return nil
}

func (s *Server) handlePoolLookup(w http.ResponseWriter, req *RPCRequest) error {
	var params poolIdentityParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	collection, rpcErr := parseCaller(params.Collection)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	root, rpcErr := parseRoot(params.Root)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	p, err := s.registry.Lookup(collection, params.BaseToken, root)
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	result, err := s.poolJSON(p)
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, result)
	return nil
}

// --- quote handlers ---

func (s *Server) handlePoolPrice(w http.ResponseWriter, req *RPCRequest) error {
	var params poolIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	price, err := s.engine.Price(id)
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Amount: price.String()})
	return nil
}

func (s *Server) handleBuyQuote(w http.ResponseWriter, req *RPCRequest) error {
	return s.handleQuote(w, req, func(id [32]byte, amount *big.Int) (*big.Int, error) {
		return s.engine.BuyQuote(id, amount)
	})
}

func (s *Server) handleSellQuote(w http.ResponseWriter, req *RPCRequest) error {
	return s.handleQuote(w, req, func(id [32]byte, amount *big.Int) (*big.Int, error) {
		return s.engine.SellQuote(id, amount)
	})
}

func (s *Server) handleQuote(w http.ResponseWriter, req *RPCRequest, quote func([32]byte, *big.Int) (*big.Int, error)) error {
	var params quoteParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	result, err := quote(id, amount)
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Amount: result.String()})
	return nil
}

func (s *Server) handleAddQuote(w http.ResponseWriter, req *RPCRequest) error {
	var params addQuoteParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	baseAmount, rpcErr := parseAmount(params.BaseAmount, "baseAmount")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	fracAmount, rpcErr := parseAmount(params.FractionalAmount, "fractionalAmount")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	shares, err := s.engine.AddQuote(id, baseAmount, fracAmount)
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Amount: shares.String()})
	return nil
}

func (s *Server) handleRemoveQuote(w http.ResponseWriter, req *RPCRequest) error {
	var params quoteParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	shares, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	baseOut, fracOut, err := s.engine.RemoveQuote(id, shares)
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Base: baseOut.String(), Frac: fracOut.String()})
	return nil
}

// --- mutating handlers ---

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params addParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	caller, rpcErr := parseCaller(params.Caller)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	baseAmount, rpcErr := parseAmount(params.BaseAmount, "baseAmount")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	fracAmount, rpcErr := parseAmount(params.FractionalAmount, "fractionalAmount")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	minShares, rpcErr := parseAmount(params.MinShares, "minShares")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	value, rpcErr := parseAmount(params.Value, "value")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	s.mu.Lock()
	shares, err := s.engine.Add(caller, id, baseAmount, fracAmount, minShares, value)
	drained := s.drainEvents()
	s.mu.Unlock()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Amount: shares.String(), Events: drained})
	return nil
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params removeParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	caller, rpcErr := parseCaller(params.Caller)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	shares, rpcErr := parseAmount(params.Shares, "shares")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	minBaseOut, rpcErr := parseAmount(params.MinBaseOut, "minBaseOut")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	minFracOut, rpcErr := parseAmount(params.MinFracOut, "minFractionalOut")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	s.mu.Lock()
	baseOut, fracOut, err := s.engine.Remove(caller, id, shares, minBaseOut, minFracOut)
	drained := s.drainEvents()
	s.mu.Unlock()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Base: baseOut.String(), Frac: fracOut.String(), Events: drained})
	return nil
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params buyParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	caller, rpcErr := parseCaller(params.Caller)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	outputAmount, rpcErr := parseAmount(params.OutputAmount, "outputAmount")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	maxInput, rpcErr := parseAmount(params.MaxInput, "maxInput")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	value, rpcErr := parseAmount(params.Value, "value")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	s.mu.Lock()
	input, err := s.engine.Buy(caller, id, outputAmount, maxInput, value)
	drained := s.drainEvents()
	s.mu.Unlock()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Amount: input.String(), Events: drained})
	return nil
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params sellParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	caller, rpcErr := parseCaller(params.Caller)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	inputAmount, rpcErr := parseAmount(params.InputAmount, "inputAmount")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	minOutput, rpcErr := parseAmount(params.MinOutput, "minOutput")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	s.mu.Lock()
	output, err := s.engine.Sell(caller, id, inputAmount, minOutput)
	drained := s.drainEvents()
	s.mu.Unlock()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Amount: output.String(), Events: drained})
	return nil
}

func (s *Server) handleWrap(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params wrapParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	caller, rpcErr := parseCaller(params.Caller)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	itemIDs, rpcErr := parseItemIDs(params.ItemIDs)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	proofs, rpcErr := parseProofs(params.Proofs)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	s.mu.Lock()
	minted, err := s.engine.Wrap(caller, id, itemIDs, proofs)
	drained := s.drainEvents()
	s.mu.Unlock()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Amount: minted.String(), Events: drained})
	return nil
}

func (s *Server) handleUnwrap(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params unwrapParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	caller, rpcErr := parseCaller(params.Caller)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	itemIDs, rpcErr := parseItemIDs(params.ItemIDs)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	s.mu.Lock()
	burned, err := s.engine.Unwrap(caller, id, itemIDs)
	drained := s.drainEvents()
	s.mu.Unlock()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Amount: burned.String(), Events: drained})
	return nil
}

func (s *Server) handleNFTAdd(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params nftAddParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	caller, rpcErr := parseCaller(params.Caller)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	baseAmount, rpcErr := parseAmount(params.BaseAmount, "baseAmount")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	itemIDs, rpcErr := parseItemIDs(params.ItemIDs)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	minShares, rpcErr := parseAmount(params.MinShares, "minShares")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	proofs, rpcErr := parseProofs(params.Proofs)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	value, rpcErr := parseAmount(params.Value, "value")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	s.mu.Lock()
	shares, err := s.engine.NFTAdd(caller, id, baseAmount, itemIDs, minShares, proofs, value)
	drained := s.drainEvents()
	s.mu.Unlock()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Amount: shares.String(), Events: drained})
	return nil
}

func (s *Server) handleNFTRemove(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params nftRemoveParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	caller, rpcErr := parseCaller(params.Caller)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	shares, rpcErr := parseAmount(params.Shares, "shares")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	minBaseOut, rpcErr := parseAmount(params.MinBaseOut, "minBaseOut")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	itemIDs, rpcErr := parseItemIDs(params.ItemIDs)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	s.mu.Lock()
	baseOut, err := s.engine.NFTRemove(caller, id, shares, minBaseOut, itemIDs)
	drained := s.drainEvents()
	s.mu.Unlock()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Base: baseOut.String(), Events: drained})
	return nil
}

func (s *Server) handleNFTBuy(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params nftBuyParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	caller, rpcErr := parseCaller(params.Caller)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	itemIDs, rpcErr := parseItemIDs(params.ItemIDs)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	maxInput, rpcErr := parseAmount(params.MaxInput, "maxInput")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	value, rpcErr := parseAmount(params.Value, "value")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	s.mu.Lock()
	input, err := s.engine.NFTBuy(caller, id, itemIDs, maxInput, value)
	drained := s.drainEvents()
	s.mu.Unlock()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Amount: input.String(), Events: drained})
	return nil
}

func (s *Server) handleNFTSell(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params nftSellParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	caller, rpcErr := parseCaller(params.Caller)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	itemIDs, rpcErr := parseItemIDs(params.ItemIDs)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	minOutput, rpcErr := parseAmount(params.MinOutput, "minOutput")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	proofs, rpcErr := parseProofs(params.Proofs)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	s.mu.Lock()
	output, err := s.engine.NFTSell(caller, id, itemIDs, minOutput, proofs)
	drained := s.drainEvents()
	s.mu.Unlock()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Amount: output.String(), Events: drained})
	return nil
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params struct {
		ID     string `json:"id"`
		Caller string `json:"caller"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	caller, rpcErr := parseCaller(params.Caller)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	s.mu.Lock()
	closeAt, err := s.engine.Close(caller, id)
	drained := s.drainEvents()
	s.mu.Unlock()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, struct {
		CloseAt int64          `json:"closeAt"`
		Events  []*types.Event `json:"events,omitempty"`
	}{CloseAt: closeAt, Events: drained})
	return nil
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params withdrawParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	id, rpcErr := parsePoolID(params.ID)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	caller, rpcErr := parseCaller(params.Caller)
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	itemID, rpcErr := parseAmount(params.ItemID, "itemId")
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return errors.New(rpcErr.Message)
	}
	s.mu.Lock()
	err := s.engine.Withdraw(caller, id, itemID)
	drained := s.drainEvents()
	s.mu.Unlock()
	if err != nil {
		s.writeRPCError(w, req.ID, errToRPC(err))
		return err
	}
	writeResult(w, req.ID, opResult{Events: drained})
	return nil
}
