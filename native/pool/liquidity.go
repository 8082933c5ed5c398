package pool

import "math/big"

// Add deposits base asset and fractional units, minting proportional
// pool-share units to the caller. For native-priced pools the attached value
// must equal baseAmount; otherwise it must be zero. Fails with ErrSlippage if
// the minted shares fall below minShares.
func (e *Engine) Add(caller [20]byte, poolID [32]byte, baseAmount, fracAmount, minShares, value *big.Int) (*big.Int, error) {
	ov, err := e.begin()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPool(ov, poolID)
	if err != nil {
		return nil, err
	}
	shares, err := e.add(ov, p, caller, baseAmount, fracAmount, minShares, value)
	if err != nil {
		return nil, err
	}
	if err := e.finish(ov); err != nil {
		return nil, err
	}
	return shares, nil
}

func (e *Engine) add(ov *overlay, p *Pool, caller [20]byte, baseAmount, fracAmount, minShares, value *big.Int) (*big.Int, error) {
	if baseAmount == nil || baseAmount.Sign() <= 0 || fracAmount == nil || fracAmount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if err := checkValue(p, baseAmount, value); err != nil {
		return nil, err
	}

	// Quote against pre-transfer reserves.
	baseReserve, err := e.baseReserves(ov, p)
	if err != nil {
		return nil, err
	}
	fracReserve, err := e.fracReserves(ov, p)
	if err != nil {
		return nil, err
	}
	shares, err := quoteAdd(baseReserve, fracReserve, p.ShareSupply, baseAmount, fracAmount)
	if err != nil {
		return nil, err
	}
	if minShares != nil && shares.Cmp(minShares) < 0 {
		return nil, ErrSlippage
	}

	vault := p.Vault()
	// Internal ledger move happens before external transfers so the pool's
	// own accounting is settled first.
	if err := e.fractionalTransfer(ov, p, caller, vault, fracAmount); err != nil {
		return nil, err
	}
	if err := e.shareMint(ov, p, caller, shares); err != nil {
		return nil, err
	}
	if err := e.baseTransfer(ov, p, caller, vault, baseAmount); err != nil {
		return nil, err
	}
	if err := ov.PoolPut(p); err != nil {
		return nil, err
	}
	ov.queue(LiquidityAdded{PoolID: p.ID, Caller: caller, BaseAmount: baseAmount, FracAmount: fracAmount, Shares: shares})
	return shares, nil
}

// Remove burns pool-share units and pays out the proportional reserves.
// Fails with ErrSlippage if either output is below its minimum.
func (e *Engine) Remove(caller [20]byte, poolID [32]byte, shares, minBaseOut, minFracOut *big.Int) (*big.Int, *big.Int, error) {
	ov, err := e.begin()
	if err != nil {
		return nil, nil, err
	}
	p, err := e.loadPool(ov, poolID)
	if err != nil {
		return nil, nil, err
	}
	baseOut, fracOut, err := e.remove(ov, p, caller, shares, minBaseOut, minFracOut)
	if err != nil {
		return nil, nil, err
	}
	if err := e.finish(ov); err != nil {
		return nil, nil, err
	}
	return baseOut, fracOut, nil
}

func (e *Engine) remove(ov *overlay, p *Pool, caller [20]byte, shares, minBaseOut, minFracOut *big.Int) (*big.Int, *big.Int, error) {
	baseReserve, err := e.baseReserves(ov, p)
	if err != nil {
		return nil, nil, err
	}
	fracReserve, err := e.fracReserves(ov, p)
	if err != nil {
		return nil, nil, err
	}
	baseOut, fracOut, err := quoteRemove(baseReserve, fracReserve, p.ShareSupply, shares)
	if err != nil {
		return nil, nil, err
	}
	if minBaseOut != nil && baseOut.Cmp(minBaseOut) < 0 {
		return nil, nil, ErrSlippage
	}
	if minFracOut != nil && fracOut.Cmp(minFracOut) < 0 {
		return nil, nil, ErrSlippage
	}

	vault := p.Vault()
	if err := e.fractionalTransfer(ov, p, vault, caller, fracOut); err != nil {
		return nil, nil, err
	}
	if err := e.shareBurn(ov, p, caller, shares); err != nil {
		return nil, nil, err
	}
	if err := e.baseTransfer(ov, p, vault, caller, baseOut); err != nil {
		return nil, nil, err
	}
	if err := ov.PoolPut(p); err != nil {
		return nil, nil, err
	}
	ov.queue(LiquidityRemoved{PoolID: p.ID, Caller: caller, Shares: shares, BaseAmount: baseOut, FracAmount: fracOut})
	return baseOut, fracOut, nil
}
