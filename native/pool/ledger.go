package pool

import (
	"math/big"
)

// The single balance-move primitive shared by every fractional-unit transfer:
// debit the source, credit the destination. Underflow on the source side is
// the only failure mode and aborts the enclosing operation.
func (e *Engine) fractionalTransfer(st State, p *Pool, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrZeroAmount
	}
	fromBalance, err := st.FractionalBalance(p.ID, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := st.FractionalBalance(p.ID, to)
	if err != nil {
		return err
	}
	if err := st.SetFractionalBalance(p.ID, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return st.SetFractionalBalance(p.ID, to, new(big.Int).Add(toBalance, amount))
}

func (e *Engine) fractionalMint(st State, p *Pool, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	balance, err := st.FractionalBalance(p.ID, to)
	if err != nil {
		return err
	}
	if err := st.SetFractionalBalance(p.ID, to, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	p.FractionalSupply = new(big.Int).Add(cloneBigInt(p.FractionalSupply), amount)
	return nil
}

func (e *Engine) fractionalBurn(st State, p *Pool, from [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	balance, err := st.FractionalBalance(p.ID, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if err := st.SetFractionalBalance(p.ID, from, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	supply := cloneBigInt(p.FractionalSupply)
	if supply.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	p.FractionalSupply = supply.Sub(supply, amount)
	return nil
}

func (e *Engine) shareMint(st State, p *Pool, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	balance, err := st.ShareBalance(p.ID, to)
	if err != nil {
		return err
	}
	if err := st.SetShareBalance(p.ID, to, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	p.ShareSupply = new(big.Int).Add(cloneBigInt(p.ShareSupply), amount)
	return nil
}

func (e *Engine) shareBurn(st State, p *Pool, from [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	balance, err := st.ShareBalance(p.ID, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientShares
	}
	if err := st.SetShareBalance(p.ID, from, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	supply := cloneBigInt(p.ShareSupply)
	if supply.Cmp(amount) < 0 {
		return ErrInsufficientShares
	}
	p.ShareSupply = supply.Sub(supply, amount)
	return nil
}

// baseTransfer moves base asset between two parties, using the native
// account ledger or the token ledger depending on the pool's base token.
func (e *Engine) baseTransfer(st State, p *Pool, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrZeroAmount
	}
	if IsNativeToken(p.BaseToken) {
		fromAcc, err := st.AccountGet(from)
		if err != nil {
			return err
		}
		fromAcc = fromAcc.Copy()
		if fromAcc.Balance.Cmp(amount) < 0 {
			return ErrInsufficientFunds
		}
		toAcc, err := st.AccountGet(to)
		if err != nil {
			return err
		}
		toAcc = toAcc.Copy()
		fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
		toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
		if err := st.AccountPut(from, fromAcc); err != nil {
			return err
		}
		return st.AccountPut(to, toAcc)
	}
	fromBalance, err := st.TokenBalance(p.BaseToken, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	toBalance, err := st.TokenBalance(p.BaseToken, to)
	if err != nil {
		return err
	}
	if err := st.TokenSetBalance(p.BaseToken, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return st.TokenSetBalance(p.BaseToken, to, new(big.Int).Add(toBalance, amount))
}

// itemTransfer moves a single item of the pool's collection. The move fails
// unless the transferor currently owns the item, which is also what makes a
// duplicated identifier in a wrap batch abort on its second transfer.
func (e *Engine) itemTransfer(st State, p *Pool, itemID *big.Int, from, to [20]byte) error {
	owner, ok, err := st.ItemOwner(p.Collection, itemID)
	if err != nil {
		return err
	}
	if !ok || owner != from {
		return ErrNotItemOwner
	}
	return st.ItemSetOwner(p.Collection, itemID, to)
}

func (e *Engine) baseReserves(st State, p *Pool) (*big.Int, error) {
	vault := p.Vault()
	if IsNativeToken(p.BaseToken) {
		account, err := st.AccountGet(vault)
		if err != nil {
			return nil, err
		}
		return cloneBigInt(account.Balance), nil
	}
	return st.TokenBalance(p.BaseToken, vault)
}

func (e *Engine) fracReserves(st State, p *Pool) (*big.Int, error) {
	return st.FractionalBalance(p.ID, p.Vault())
}
