package pool

import "math/big"

// Constant-product quotes with a 0.3% fee charged on the input side, using
// the classic 997/1000 integer factors. All quote math reads reserves before
// any transfer in the enclosing operation mutates them.

var (
	feeNumerator   = big.NewInt(997)
	feeDenominator = big.NewInt(1000)
)

func quoteBuy(baseReserve, fracReserve, outputAmount *big.Int) (*big.Int, error) {
	if outputAmount == nil || outputAmount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if fracReserve.Cmp(outputAmount) <= 0 {
		return nil, ErrInsufficientReserves
	}
	// inputAmount = outputAmount * 1000 * baseReserve / ((fracReserve - outputAmount) * 997)
	numerator := new(big.Int).Mul(outputAmount, feeDenominator)
	numerator.Mul(numerator, baseReserve)
	denominator := new(big.Int).Sub(fracReserve, outputAmount)
	denominator.Mul(denominator, feeNumerator)
	return numerator.Quo(numerator, denominator), nil
}

func quoteSell(baseReserve, fracReserve, inputAmount *big.Int) (*big.Int, error) {
	if inputAmount == nil || inputAmount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	// outputAmount = inputAmount*997 * baseReserve / (fracReserve*1000 + inputAmount*997)
	inputWithFee := new(big.Int).Mul(inputAmount, feeNumerator)
	numerator := new(big.Int).Mul(inputWithFee, baseReserve)
	denominator := new(big.Int).Mul(fracReserve, feeDenominator)
	denominator.Add(denominator, inputWithFee)
	if denominator.Sign() == 0 {
		return nil, ErrNoLiquidity
	}
	return numerator.Quo(numerator, denominator), nil
}

func quoteAdd(baseReserve, fracReserve, shareSupply, baseAmount, fracAmount *big.Int) (*big.Int, error) {
	if baseAmount == nil || baseAmount.Sign() <= 0 || fracAmount == nil || fracAmount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if shareSupply.Sign() == 0 {
		// The initial deposit defines the price; seed supply with the
		// geometric mean of the deposited amounts.
		product := new(big.Int).Mul(baseAmount, fracAmount)
		return product.Sqrt(product), nil
	}
	if baseReserve.Sign() == 0 || fracReserve.Sign() == 0 {
		return nil, ErrInsufficientReserves
	}
	// Minimum of the two proportional shares protects existing holders from
	// dilution by unbalanced deposits.
	baseShare := new(big.Int).Mul(baseAmount, shareSupply)
	baseShare.Quo(baseShare, baseReserve)
	fracShare := new(big.Int).Mul(fracAmount, shareSupply)
	fracShare.Quo(fracShare, fracReserve)
	if baseShare.Cmp(fracShare) < 0 {
		return baseShare, nil
	}
	return fracShare, nil
}

func quoteRemove(baseReserve, fracReserve, shareSupply, shareAmount *big.Int) (*big.Int, *big.Int, error) {
	if shareAmount == nil || shareAmount.Sign() <= 0 {
		return nil, nil, ErrZeroAmount
	}
	if shareSupply.Sign() == 0 {
		return nil, nil, ErrNoLiquidity
	}
	baseOut := new(big.Int).Mul(baseReserve, shareAmount)
	baseOut.Quo(baseOut, shareSupply)
	fracOut := new(big.Int).Mul(fracReserve, shareAmount)
	fracOut.Quo(fracOut, shareSupply)
	return baseOut, fracOut, nil
}

func quotePrice(baseReserve, fracReserve *big.Int) (*big.Int, error) {
	if fracReserve.Sign() == 0 {
		return nil, ErrNoLiquidity
	}
	price := new(big.Int).Mul(baseReserve, One)
	return price.Quo(price, fracReserve), nil
}

// --- view methods ---

// BaseTokenReserves returns the pool vault's base-asset balance.
func (e *Engine) BaseTokenReserves(poolID [32]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	p, err := e.loadPool(e.state, poolID)
	if err != nil {
		return nil, err
	}
	return e.baseReserves(e.state, p)
}

// FractionalTokenReserves returns the pool vault's own fractional balance.
func (e *Engine) FractionalTokenReserves(poolID [32]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	p, err := e.loadPool(e.state, poolID)
	if err != nil {
		return nil, err
	}
	return e.fracReserves(e.state, p)
}

// Price returns the base-asset price of One fractional units.
func (e *Engine) Price(poolID [32]byte) (*big.Int, error) {
	base, frac, _, err := e.reserves(poolID)
	if err != nil {
		return nil, err
	}
	return quotePrice(base, frac)
}

// BuyQuote returns the base-asset input required to buy outputAmount
// fractional units.
func (e *Engine) BuyQuote(poolID [32]byte, outputAmount *big.Int) (*big.Int, error) {
	base, frac, _, err := e.reserves(poolID)
	if err != nil {
		return nil, err
	}
	return quoteBuy(base, frac, outputAmount)
}

// SellQuote returns the base-asset output received for selling inputAmount
// fractional units.
func (e *Engine) SellQuote(poolID [32]byte, inputAmount *big.Int) (*big.Int, error) {
	base, frac, _, err := e.reserves(poolID)
	if err != nil {
		return nil, err
	}
	return quoteSell(base, frac, inputAmount)
}

// AddQuote returns the pool-share units minted for a deposit of the supplied
// amounts.
func (e *Engine) AddQuote(poolID [32]byte, baseAmount, fracAmount *big.Int) (*big.Int, error) {
	base, frac, p, err := e.reserves(poolID)
	if err != nil {
		return nil, err
	}
	return quoteAdd(base, frac, p.ShareSupply, baseAmount, fracAmount)
}

// RemoveQuote returns the proportional base and fractional outputs for
// burning shareAmount pool-share units.
func (e *Engine) RemoveQuote(poolID [32]byte, shareAmount *big.Int) (*big.Int, *big.Int, error) {
	base, frac, p, err := e.reserves(poolID)
	if err != nil {
		return nil, nil, err
	}
	return quoteRemove(base, frac, p.ShareSupply, shareAmount)
}

func (e *Engine) reserves(poolID [32]byte) (*big.Int, *big.Int, *Pool, error) {
	if e == nil || e.state == nil {
		return nil, nil, nil, errNilState
	}
	p, err := e.loadPool(e.state, poolID)
	if err != nil {
		return nil, nil, nil, err
	}
	base, err := e.baseReserves(e.state, p)
	if err != nil {
		return nil, nil, nil, err
	}
	frac, err := e.fracReserves(e.state, p)
	if err != nil {
		return nil, nil, nil, err
	}
	return base, frac, p, nil
}
