package pool

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"fracswap/core/types"
	"fracswap/crypto"
)

const (
	EventTypeLiquidityAdded   = "pool.liquidity_added"
	EventTypeLiquidityRemoved = "pool.liquidity_removed"
	EventTypeBought           = "pool.bought"
	EventTypeSold             = "pool.sold"
	EventTypeWrapped          = "pool.wrapped"
	EventTypeUnwrapped        = "pool.unwrapped"
	EventTypeClosed           = "pool.closed"
	EventTypeWithdrawn        = "pool.withdrawn"
)

// LiquidityAdded is emitted when a deposit mints pool-share units.
type LiquidityAdded struct {
	PoolID     [32]byte
	Caller     [20]byte
	BaseAmount *big.Int
	FracAmount *big.Int
	Shares     *big.Int
}

func (LiquidityAdded) EventType() string { return EventTypeLiquidityAdded }

func (e LiquidityAdded) Event() *types.Event {
	attrs := poolAttrs(e.PoolID, e.Caller)
	attrs["baseAmount"] = bigString(e.BaseAmount)
	attrs["fractionalAmount"] = bigString(e.FracAmount)
	attrs["shares"] = bigString(e.Shares)
	return &types.Event{Type: EventTypeLiquidityAdded, Attributes: attrs}
}

// LiquidityRemoved is emitted when pool-share units are burned for reserves.
type LiquidityRemoved struct {
	PoolID     [32]byte
	Caller     [20]byte
	Shares     *big.Int
	BaseAmount *big.Int
	FracAmount *big.Int
}

func (LiquidityRemoved) EventType() string { return EventTypeLiquidityRemoved }

func (e LiquidityRemoved) Event() *types.Event {
	attrs := poolAttrs(e.PoolID, e.Caller)
	attrs["shares"] = bigString(e.Shares)
	attrs["baseAmount"] = bigString(e.BaseAmount)
	attrs["fractionalAmount"] = bigString(e.FracAmount)
	return &types.Event{Type: EventTypeLiquidityRemoved, Attributes: attrs}
}

// Bought is emitted when fractional units are bought from the pool.
type Bought struct {
	PoolID       [32]byte
	Caller       [20]byte
	OutputAmount *big.Int
	InputAmount  *big.Int
}

func (Bought) EventType() string { return EventTypeBought }

func (e Bought) Event() *types.Event {
	attrs := poolAttrs(e.PoolID, e.Caller)
	attrs["outputAmount"] = bigString(e.OutputAmount)
	attrs["inputAmount"] = bigString(e.InputAmount)
	return &types.Event{Type: EventTypeBought, Attributes: attrs}
}

// Sold is emitted when fractional units are sold to the pool.
type Sold struct {
	PoolID       [32]byte
	Caller       [20]byte
	InputAmount  *big.Int
	OutputAmount *big.Int
}

func (Sold) EventType() string { return EventTypeSold }

func (e Sold) Event() *types.Event {
	attrs := poolAttrs(e.PoolID, e.Caller)
	attrs["inputAmount"] = bigString(e.InputAmount)
	attrs["outputAmount"] = bigString(e.OutputAmount)
	return &types.Event{Type: EventTypeSold, Attributes: attrs}
}

// Wrapped is emitted when items enter the pool and fractional units are
// minted.
type Wrapped struct {
	PoolID  [32]byte
	Caller  [20]byte
	ItemIDs []*big.Int
	Minted  *big.Int
}

func (Wrapped) EventType() string { return EventTypeWrapped }

func (e Wrapped) Event() *types.Event {
	attrs := poolAttrs(e.PoolID, e.Caller)
	attrs["itemIds"] = joinItemIDs(e.ItemIDs)
	attrs["minted"] = bigString(e.Minted)
	return &types.Event{Type: EventTypeWrapped, Attributes: attrs}
}

// Unwrapped is emitted when fractional units are burned and items leave the
// pool.
type Unwrapped struct {
	PoolID  [32]byte
	Caller  [20]byte
	ItemIDs []*big.Int
	Burned  *big.Int
}

func (Unwrapped) EventType() string { return EventTypeUnwrapped }

func (e Unwrapped) Event() *types.Event {
	attrs := poolAttrs(e.PoolID, e.Caller)
	attrs["itemIds"] = joinItemIDs(e.ItemIDs)
	attrs["burned"] = bigString(e.Burned)
	return &types.Event{Type: EventTypeUnwrapped, Attributes: attrs}
}

// Closed is emitted when the registry owner requests pool closure.
type Closed struct {
	PoolID  [32]byte
	Caller  [20]byte
	CloseAt int64
}

func (Closed) EventType() string { return EventTypeClosed }

func (e Closed) Event() *types.Event {
	attrs := poolAttrs(e.PoolID, e.Caller)
	attrs["closeAt"] = strconv.FormatInt(e.CloseAt, 10)
	return &types.Event{Type: EventTypeClosed, Attributes: attrs}
}

// Withdrawn is emitted when a stranded item is withdrawn after the grace
// period.
type Withdrawn struct {
	PoolID [32]byte
	Caller [20]byte
	ItemID *big.Int
}

func (Withdrawn) EventType() string { return EventTypeWithdrawn }

func (e Withdrawn) Event() *types.Event {
	attrs := poolAttrs(e.PoolID, e.Caller)
	attrs["itemId"] = bigString(e.ItemID)
	return &types.Event{Type: EventTypeWithdrawn, Attributes: attrs}
}

func poolAttrs(poolID [32]byte, caller [20]byte) map[string]string {
	return map[string]string{
		"poolId": hex.EncodeToString(poolID[:]),
		"caller": crypto.MustNewAddress(crypto.FracPrefix, caller[:]).String(),
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func joinItemIDs(ids []*big.Int) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += bigString(id)
	}
	return out
}
