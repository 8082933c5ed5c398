package pool

import (
	"math/big"

	"fracswap/core/types"
)

// State is the backend the engine operates against. The daemon binds it to
// the persistent state manager; tests use an in-memory map implementation.
// Implementations must return deep copies so staged mutations never leak.
type State interface {
	PoolGet(id [32]byte) (*Pool, bool, error)
	PoolPut(p *Pool) error

	AccountGet(addr [20]byte) (*types.Account, error)
	AccountPut(addr [20]byte, account *types.Account) error

	TokenBalance(symbol string, addr [20]byte) (*big.Int, error)
	TokenSetBalance(symbol string, addr [20]byte, amount *big.Int) error

	FractionalBalance(poolID [32]byte, addr [20]byte) (*big.Int, error)
	SetFractionalBalance(poolID [32]byte, addr [20]byte, amount *big.Int) error

	ShareBalance(poolID [32]byte, addr [20]byte) (*big.Int, error)
	SetShareBalance(poolID [32]byte, addr [20]byte, amount *big.Int) error

	ItemOwner(collection [20]byte, itemID *big.Int) ([20]byte, bool, error)
	ItemSetOwner(collection [20]byte, itemID *big.Int, owner [20]byte) error

	RegistryDelete(key [32]byte) error
}

// Authority resolves the privileged operator consulted by Close and Withdraw.
// The registry implements it.
type Authority interface {
	Owner() ([20]byte, error)
}
