package pool

import "math/big"

// Composite operations chain the fractionalization bridge with liquidity or
// exchange operations in a single staged scope, so the whole chain either
// commits or leaves no trace. Operations that consume items wrap (and
// validate) before pricing; operations that produce items price first and
// unwrap last, so the caller never holds fractional units mid-operation.

// NFTAdd wraps the listed items and adds them as liquidity together with the
// base-asset deposit.
func (e *Engine) NFTAdd(caller [20]byte, poolID [32]byte, baseAmount *big.Int, itemIDs []*big.Int, minShares *big.Int, proofs [][][32]byte, value *big.Int) (*big.Int, error) {
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
	shares, err := e.add(ov, p, caller, baseAmount, minted, minShares, value)
	if err != nil {
		return nil, err
	}
	if err := e.finish(ov); err != nil {
		return nil, err
	}
	return shares, nil
}

// NFTRemove burns shares for reserves and unwraps the listed items from the
// fractional output. The fractional minimum is implied by the item count.
func (e *Engine) NFTRemove(caller [20]byte, poolID [32]byte, shares, minBaseOut *big.Int, itemIDs []*big.Int) (*big.Int, error) {
	ov, err := e.begin()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPool(ov, poolID)
	if err != nil {
		return nil, err
	}
	minFracOut := new(big.Int).Mul(big.NewInt(int64(len(itemIDs))), One)
	baseOut, _, err := e.remove(ov, p, caller, shares, minBaseOut, minFracOut)
	if err != nil {
		return nil, err
	}
	if _, err := e.unwrap(ov, p, caller, itemIDs); err != nil {
		return nil, err
	}
	if err := e.finish(ov); err != nil {
		return nil, err
	}
	return baseOut, nil
}

// NFTBuy buys enough fractional units for the listed items and unwraps them.
func (e *Engine) NFTBuy(caller [20]byte, poolID [32]byte, itemIDs []*big.Int, maxInput, value *big.Int) (*big.Int, error) {
	ov, err := e.begin()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPool(ov, poolID)
	if err != nil {
		return nil, err
	}
	outputAmount := new(big.Int).Mul(big.NewInt(int64(len(itemIDs))), One)
	input, err := e.buy(ov, p, caller, outputAmount, maxInput, value)
	if err != nil {
		return nil, err
	}
	if _, err := e.unwrap(ov, p, caller, itemIDs); err != nil {
		return nil, err
	}
	if err := e.finish(ov); err != nil {
		return nil, err
	}
	return input, nil
}

// NFTSell wraps the listed items and sells the minted fractional units.
func (e *Engine) NFTSell(caller [20]byte, poolID [32]byte, itemIDs []*big.Int, minOutput *big.Int, proofs [][][32]byte) (*big.Int, error) {
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
	output, err := e.sell(ov, p, caller, minted, minOutput)
	if err != nil {
		return nil, err
	}
	if err := e.finish(ov); err != nil {
		return nil, err
	}
	return output, nil
}
