package genesis

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"fracswap/core/state"
	"fracswap/core/types"
	"fracswap/crypto"
)

// Document seeds the initial ledger state: native balances, token balances
// and item ownership. It is applied once, when the daemon starts with an
// empty database.
type Document struct {
	Accounts []AccountAlloc `json:"accounts"`
	Tokens   []TokenAlloc   `json:"tokens"`
	Items    []ItemAlloc    `json:"items"`
}

// AccountAlloc seeds a native balance.
type AccountAlloc struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// TokenAlloc seeds a fungible-token balance.
type TokenAlloc struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// ItemAlloc seeds ownership of one non-fungible item.
type ItemAlloc struct {
	Collection string `json:"collection"`
	ItemID     string `json:"itemId"`
	Owner      string `json:"owner"`
}

// Load reads a genesis document from disk.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	doc := &Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("genesis: parse %s: %w", path, err)
	}
	return doc, nil
}

// Apply writes the allocations into the state manager.
func Apply(doc *Document, manager *state.Manager) error {
	if doc == nil || manager == nil {
		return fmt.Errorf("genesis: nil document or manager")
	}
	for _, alloc := range doc.Accounts {
		addr, err := decodeAddr(alloc.Address)
		if err != nil {
			return err
		}
		balance, err := decodeAmount(alloc.Balance)
		if err != nil {
			return err
		}
		if err := manager.AccountPut(addr, &types.Account{Balance: balance}); err != nil {
			return err
		}
	}
	for _, alloc := range doc.Tokens {
		symbol := strings.ToUpper(strings.TrimSpace(alloc.Symbol))
		if symbol == "" {
			return fmt.Errorf("genesis: token alloc missing symbol")
		}
		addr, err := decodeAddr(alloc.Address)
		if err != nil {
			return err
		}
		balance, err := decodeAmount(alloc.Balance)
		if err != nil {
			return err
		}
		if err := manager.TokenSetBalance(symbol, addr, balance); err != nil {
			return err
		}
	}
	for _, alloc := range doc.Items {
		collection, err := decodeAddr(alloc.Collection)
		if err != nil {
			return err
		}
		owner, err := decodeAddr(alloc.Owner)
		if err != nil {
			return err
		}
		itemID, ok := new(big.Int).SetString(strings.TrimSpace(alloc.ItemID), 10)
		if !ok || itemID.Sign() < 0 {
			return fmt.Errorf("genesis: invalid item id %q", alloc.ItemID)
		}
		if err := manager.ItemSetOwner(collection, itemID, owner); err != nil {
			return err
		}
	}
	return nil
}

func decodeAddr(value string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, fmt.Errorf("genesis: invalid address %q: %w", value, err)
	}
	return addr.Array(), nil
}

func decodeAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("genesis: invalid amount %q", value)
	}
	return amount, nil
}
