package pool

import "math/big"

// Buy purchases outputAmount fractional units from the pool. For
// native-priced pools the attached value must equal maxInput and the excess
// over the quoted input is refunded; for token-priced pools exactly the
// quoted input is pulled. The max-then-refund pattern exists because a native
// attachment is fixed at call time while the exact cost is only known after
// quoting.
func (e *Engine) Buy(caller [20]byte, poolID [32]byte, outputAmount, maxInput, value *big.Int) (*big.Int, error) {
	ov, err := e.begin()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPool(ov, poolID)
	if err != nil {
		return nil, err
	}
	input, err := e.buy(ov, p, caller, outputAmount, maxInput, value)
	if err != nil {
		return nil, err
	}
	if err := e.finish(ov); err != nil {
		return nil, err
	}
	return input, nil
}

func (e *Engine) buy(ov *overlay, p *Pool, caller [20]byte, outputAmount, maxInput, value *big.Int) (*big.Int, error) {
	if err := checkValue(p, maxInput, value); err != nil {
		return nil, err
	}
	baseReserve, err := e.baseReserves(ov, p)
	if err != nil {
		return nil, err
	}
	fracReserve, err := e.fracReserves(ov, p)
	if err != nil {
		return nil, err
	}
	input, err := quoteBuy(baseReserve, fracReserve, outputAmount)
	if err != nil {
		return nil, err
	}
	if maxInput == nil || input.Cmp(maxInput) > 0 {
		return nil, ErrSlippage
	}

	vault := p.Vault()
	if err := e.fractionalTransfer(ov, p, vault, caller, outputAmount); err != nil {
		return nil, err
	}
	if IsNativeToken(p.BaseToken) {
		// Take the full attachment, then refund the difference.
		if err := e.baseTransfer(ov, p, caller, vault, maxInput); err != nil {
			return nil, err
		}
		refund := new(big.Int).Sub(maxInput, input)
		if err := e.baseTransfer(ov, p, vault, caller, refund); err != nil {
			return nil, err
		}
	} else {
		if err := e.baseTransfer(ov, p, caller, vault, input); err != nil {
			return nil, err
		}
	}
	if err := ov.PoolPut(p); err != nil {
		return nil, err
	}
	ov.queue(Bought{PoolID: p.ID, Caller: caller, OutputAmount: outputAmount, InputAmount: input})
	return input, nil
}

// Sell swaps inputAmount fractional units for base asset. Fails with
// ErrSlippage when the quoted output is below minOutput.
func (e *Engine) Sell(caller [20]byte, poolID [32]byte, inputAmount, minOutput *big.Int) (*big.Int, error) {
	ov, err := e.begin()
	if err != nil {
		return nil, err
	}
	p, err := e.loadPool(ov, poolID)
	if err != nil {
		return nil, err
	}
	output, err := e.sell(ov, p, caller, inputAmount, minOutput)
	if err != nil {
		return nil, err
	}
	if err := e.finish(ov); err != nil {
		return nil, err
	}
	return output, nil
}

func (e *Engine) sell(ov *overlay, p *Pool, caller [20]byte, inputAmount, minOutput *big.Int) (*big.Int, error) {
	baseReserve, err := e.baseReserves(ov, p)
	if err != nil {
		return nil, err
	}
	fracReserve, err := e.fracReserves(ov, p)
	if err != nil {
		return nil, err
	}
	output, err := quoteSell(baseReserve, fracReserve, inputAmount)
	if err != nil {
		return nil, err
	}
	if minOutput != nil && output.Cmp(minOutput) < 0 {
		return nil, ErrSlippage
	}

	vault := p.Vault()
	if err := e.fractionalTransfer(ov, p, caller, vault, inputAmount); err != nil {
		return nil, err
	}
	if err := e.baseTransfer(ov, p, vault, caller, output); err != nil {
		return nil, err
	}
	if err := ov.PoolPut(p); err != nil {
		return nil, err
	}
	ov.queue(Sold{PoolID: p.ID, Caller: caller, InputAmount: inputAmount, OutputAmount: output})
	return output, nil
}
