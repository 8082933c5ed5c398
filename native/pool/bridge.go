package pool

import (
	"fmt"
	"math/big"

	"fracswap/crypto/merkle"
)

// Wrap deposits the listed items into the pool and mints len(itemIDs)*One
// fractional units to the caller. Each identifier must carry a membership
// proof against the allow-list root unless the root is the zero sentinel, in
// which case any identifier is eligible. A single invalid proof or failed
// item transfer aborts the entire batch.
func (e *Engine) Wrap(caller [20]byte, poolID [32]byte, itemIDs []*big.Int, proofs [][][32]byte) (*big.Int, error) {
	ov, err := e.begin()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPool(ov, poolID)
	if err != nil {
		return nil, err
	}
	minted, err := e.wrap(ov, p, caller, itemIDs, proofs)
	if err != nil {
		return nil, err
	}
	if err := e.finish(ov); err != nil {
		return nil, err
	}
	return minted, nil
}

func (e *Engine) wrap(ov *overlay, p *Pool, caller [20]byte, itemIDs []*big.Int, proofs [][][32]byte) (*big.Int, error) {
	if p.Closed() {
		return nil, ErrPoolClosed
	}
	if len(itemIDs) == 0 {
		return nil, ErrZeroAmount
	}
	if err := validateItemIDs(p, itemIDs, proofs); err != nil {
		return nil, err
	}

	minted := new(big.Int).Mul(big.NewInt(int64(len(itemIDs))), One)
	if err := e.fractionalMint(ov, p, caller, minted); err != nil {
		return nil, err
	}
	vault := p.Vault()
	for _, itemID := range itemIDs {
		if err := e.itemTransfer(ov, p, itemID, caller, vault); err != nil {
			return nil, fmt.Errorf("wrap item %s: %w", itemID, err)
		}
	}
	if err := ov.PoolPut(p); err != nil {
		return nil, err
	}
	ov.queue(Wrapped{PoolID: p.ID, Caller: caller, ItemIDs: itemIDs, Minted: minted})
	return minted, nil
}

// Unwrap burns len(itemIDs)*One fractional units from the caller and returns
// the listed items. There is no allow-list check on exit: any item the pool
// holds can be unwrapped by whoever burns the matching units.
func (e *Engine) Unwrap(caller [20]byte, poolID [32]byte, itemIDs []*big.Int) (*big.Int, error) {
	ov, err := e.begin()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPool(ov, poolID)
	if err != nil {
		return nil, err
	}
	burned, err := e.unwrap(ov, p, caller, itemIDs)
	if err != nil {
		return nil, err
	}
	if err := e.finish(ov); err != nil {
		return nil, err
	}
	return burned, nil
}

func (e *Engine) unwrap(ov *overlay, p *Pool, caller [20]byte, itemIDs []*big.Int) (*big.Int, error) {
	if len(itemIDs) == 0 {
		return nil, ErrZeroAmount
	}
	burned := new(big.Int).Mul(big.NewInt(int64(len(itemIDs))), One)
	if err := e.fractionalBurn(ov, p, caller, burned); err != nil {
		return nil, err
	}
	vault := p.Vault()
	for _, itemID := range itemIDs {
		if err := e.itemTransfer(ov, p, itemID, vault, caller); err != nil {
			return nil, fmt.Errorf("unwrap item %s: %w", itemID, err)
		}
	}
	if err := ov.PoolPut(p); err != nil {
		return nil, err
	}
	ov.queue(Unwrapped{PoolID: p.ID, Caller: caller, ItemIDs: itemIDs, Burned: burned})
	return burned, nil
}

// validateItemIDs checks every identifier's membership proof against the
// allow-list root. A zero root disables the check entirely. Duplicate
// identifiers are deliberately not rejected here; the second transfer of a
// duplicated item fails at the ownership layer and aborts the batch.
func validateItemIDs(p *Pool, itemIDs []*big.Int, proofs [][][32]byte) error {
	if p.Unrestricted() {
		return nil
	}
	if len(proofs) != len(itemIDs) {
		return ErrProofCount
	}
	for i, itemID := range itemIDs {
		if !merkle.Verify(p.AllowListRoot, merkle.Leaf(itemID), proofs[i]) {
			return fmt.Errorf("item %s: %w", itemID, ErrProofInvalid)
		}
	}
	return nil
}
