package pool

import "math/big"

// Close requests pool closure. Only the registry owner may call it. The
// close timestamp is set to now plus the grace period, wrapping is disabled
// immediately, and the pool's identity mapping is removed from the registry
// so the triple can be created anew. The transition is irreversible.
func (e *Engine) Close(caller [20]byte, poolID [32]byte) (int64, error) {
	if err := e.requireOwner(caller); err != nil {
		return 0, err
	}
	ov, err := e.begin()
	if err != nil {
		return 0, err
	}
	p, err := e.loadPool(ov, poolID)
	if err != nil {
		return 0, err
	}
	if p.Closed() {
		return 0, ErrPoolClosed
	}
	p.CloseAt = e.now() + GracePeriod
	if err := ov.RegistryDelete(IdentityKey(p.Collection, p.BaseToken, p.AllowListRoot)); err != nil {
		return 0, err
	}
	if err := ov.PoolPut(p); err != nil {
		return 0, err
	}
	ov.queue(Closed{PoolID: p.ID, Caller: caller, CloseAt: p.CloseAt})
	if err := e.finish(ov); err != nil {
		return 0, err
	}
	return p.CloseAt, nil
}

// Withdraw transfers a stranded item to the registry owner. It requires a
// prior close request and an elapsed grace period. Liquidating the item and
// redistributing proceeds happens outside the engine.
func (e *Engine) Withdraw(caller [20]byte, poolID [32]byte, itemID *big.Int) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	ov, err := e.begin()
	if err != nil {
		return err
	}
	p, err := e.loadPool(ov, poolID)
	if err != nil {
		return err
	}
	if !p.Closed() {
		return ErrNotClosed
	}
	if e.now() < p.CloseAt {
		return ErrGracePeriodActive
	}
	if err := e.itemTransfer(ov, p, itemID, p.Vault(), caller); err != nil {
		return err
	}
	ov.queue(Withdrawn{PoolID: p.ID, Caller: caller, ItemID: itemID})
	return e.finish(ov)
}

func (e *Engine) requireOwner(caller [20]byte) error {
	if e == nil || e.authority == nil {
		return ErrUnauthorized
	}
	owner, err := e.authority.Owner()
	if err != nil {
		return err
	}
	if owner == ([20]byte{}) || owner != caller {
		return ErrUnauthorized
	}
	return nil
}
