package pool

import (
	"math/big"

	"fracswap/core/events"
	"fracswap/core/types"
)

// overlay is a copy-on-write view over the engine state. Every public engine
// operation runs against a fresh overlay and commits only on success, so a
// failure at any stage leaves no observable side effect. This is the
// transactional scope that makes batch operations all-or-nothing.
type overlay struct {
	base State

	pools       map[[32]byte]*Pool
	accounts    map[[20]byte]*types.Account
	tokens      map[tokenKey]*big.Int
	fractionals map[balanceKey]*big.Int
	shares      map[balanceKey]*big.Int
	items       map[itemKey][20]byte
	dropped     map[[32]byte]struct{}

	pending []events.Event
}

type tokenKey struct {
	symbol string
	addr   [20]byte
}

type balanceKey struct {
	poolID [32]byte
	addr   [20]byte
}

type itemKey struct {
	collection [20]byte
	itemID     string
}

func newOverlay(base State) *overlay {
	return &overlay{
		base:        base,
		pools:       make(map[[32]byte]*Pool),
		accounts:    make(map[[20]byte]*types.Account),
		tokens:      make(map[tokenKey]*big.Int),
		fractionals: make(map[balanceKey]*big.Int),
		shares:      make(map[balanceKey]*big.Int),
		items:       make(map[itemKey][20]byte),
		dropped:     make(map[[32]byte]struct{}),
	}
}

func itemKeyFor(collection [20]byte, itemID *big.Int) itemKey {
	id := ""
	if itemID != nil {
		id = itemID.String()
	}
	return itemKey{collection: collection, itemID: id}
}

func (o *overlay) PoolGet(id [32]byte) (*Pool, bool, error) {
	if staged, ok := o.pools[id]; ok {
		return staged.Clone(), true, nil
	}
	return o.base.PoolGet(id)
}

func (o *overlay) PoolPut(p *Pool) error {
	if p == nil {
		return ErrPoolNotFound
	}
	o.pools[p.ID] = p.Clone()
	return nil
}

func (o *overlay) AccountGet(addr [20]byte) (*types.Account, error) {
	if staged, ok := o.accounts[addr]; ok {
		return staged.Copy(), nil
	}
	return o.base.AccountGet(addr)
}

func (o *overlay) AccountPut(addr [20]byte, account *types.Account) error {
	o.accounts[addr] = account.Copy()
	return nil
}

func (o *overlay) TokenBalance(symbol string, addr [20]byte) (*big.Int, error) {
	if staged, ok := o.tokens[tokenKey{symbol: symbol, addr: addr}]; ok {
		return new(big.Int).Set(staged), nil
	}
	return o.base.TokenBalance(symbol, addr)
}

func (o *overlay) TokenSetBalance(symbol string, addr [20]byte, amount *big.Int) error {
	o.tokens[tokenKey{symbol: symbol, addr: addr}] = cloneBigInt(amount)
	return nil
}

func (o *overlay) FractionalBalance(poolID [32]byte, addr [20]byte) (*big.Int, error) {
	if staged, ok := o.fractionals[balanceKey{poolID: poolID, addr: addr}]; ok {
		return new(big.Int).Set(staged), nil
	}
	return o.base.FractionalBalance(poolID, addr)
}

func (o *overlay) SetFractionalBalance(poolID [32]byte, addr [20]byte, amount *big.Int) error {
	o.fractionals[balanceKey{poolID: poolID, addr: addr}] = cloneBigInt(amount)
	return nil
}

func (o *overlay) ShareBalance(poolID [32]byte, addr [20]byte) (*big.Int, error) {
	if staged, ok := o.shares[balanceKey{poolID: poolID, addr: addr}]; ok {
		return new(big.Int).Set(staged), nil
	}
	return o.base.ShareBalance(poolID, addr)
}

func (o *overlay) SetShareBalance(poolID [32]byte, addr [20]byte, amount *big.Int) error {
	o.shares[balanceKey{poolID: poolID, addr: addr}] = cloneBigInt(amount)
	return nil
}

func (o *overlay) ItemOwner(collection [20]byte, itemID *big.Int) ([20]byte, bool, error) {
	if staged, ok := o.items[itemKeyFor(collection, itemID)]; ok {
		return staged, true, nil
	}
	return o.base.ItemOwner(collection, itemID)
}

func (o *overlay) ItemSetOwner(collection [20]byte, itemID *big.Int, owner [20]byte) error {
	o.items[itemKeyFor(collection, itemID)] = owner
	return nil
}

func (o *overlay) RegistryDelete(key [32]byte) error {
	o.dropped[key] = struct{}{}
	return nil
}

func (o *overlay) queue(evt events.Event) {
	if evt != nil {
		o.pending = append(o.pending, evt)
	}
}

// commit flushes the staged writes to the base state and returns the queued
// events for emission. Write order is irrelevant for correctness because the
// execution model is single-writer, but pools go last so readers of the base
// state never see supplies ahead of balances.
func (o *overlay) commit() ([]events.Event, error) {
	for addr, account := range o.accounts {
		if err := o.base.AccountPut(addr, account); err != nil {
			return nil, err
		}
	}
	for key, amount := range o.tokens {
		if err := o.base.TokenSetBalance(key.symbol, key.addr, amount); err != nil {
			return nil, err
		}
	}
	for key, amount := range o.fractionals {
		if err := o.base.SetFractionalBalance(key.poolID, key.addr, amount); err != nil {
			return nil, err
		}
	}
	for key, amount := range o.shares {
		if err := o.base.SetShareBalance(key.poolID, key.addr, amount); err != nil {
			return nil, err
		}
	}
	for key, owner := range o.items {
		id, ok := new(big.Int).SetString(key.itemID, 10)
		if !ok {
			id = big.NewInt(0)
		}
		if err := o.base.ItemSetOwner(key.collection, id, owner); err != nil {
			return nil, err
		}
	}
	for key := range o.dropped {
		if err := o.base.RegistryDelete(key); err != nil {
			return nil, err
		}
	}
	for _, p := range o.pools {
		if err := o.base.PoolPut(p); err != nil {
			return nil, err
		}
	}
	return o.pending, nil
}
