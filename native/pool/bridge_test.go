package pool

import (
	"errors"
	"math/big"
	"testing"

	"fracswap/crypto/merkle"
)

func seedItems(st *mockState, collection [20]byte, owner [20]byte, ids ...int64) []*big.Int {
	itemIDs := make([]*big.Int, 0, len(ids))
	for _, id := range ids {
		itemID := big.NewInt(id)
		st.items[itemKeyFor(collection, itemID)] = owner
		itemIDs = append(itemIDs, itemID)
	}
	return itemIDs
}

func TestWrapMintsPerItem(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := seedPool(t, st, NativeToken, [32]byte{})
	itemIDs := seedItems(st, p.Collection, caller, 1, 2)

	minted, err := engine.Wrap(caller, p.ID, itemIDs, nil)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(2), One)
	if minted.Cmp(want) != 0 {
		t.Fatalf("minted %v, want %v", minted, want)
	}

	callerFrac, err := st.FractionalBalance(p.ID, caller)
	if err != nil {
		t.Fatalf("fractional balance: %v", err)
	}
	if callerFrac.Cmp(want) != 0 {
		t.Fatalf("caller fractional %v, want %v", callerFrac, want)
	}
	stored, _, err := st.PoolGet(p.ID)
	if err != nil {
		t.Fatalf("pool get: %v", err)
	}
	if stored.FractionalSupply.Cmp(want) != 0 {
		t.Fatalf("fractional supply %v, want %v", stored.FractionalSupply, want)
	}
	for _, itemID := range itemIDs {
		owner, ok, err := st.ItemOwner(p.Collection, itemID)
		if err != nil || !ok {
			t.Fatalf("item owner lookup failed: %v", err)
		}
		if owner != p.Vault() {
			t.Fatalf("item %v not held by vault", itemID)
		}
	}
}

func TestWrapDuplicateIDAbortsBatch(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := seedPool(t, st, NativeToken, [32]byte{})
	seedItems(st, p.Collection, caller, 1)

	_, err := engine.Wrap(caller, p.ID, []*big.Int{big.NewInt(1), big.NewInt(1)}, nil)
	if !errors.Is(err, ErrNotItemOwner) {
		t.Fatalf("expected ErrNotItemOwner, got %v", err)
	}

	// Nothing committed: the item stays with the caller and no units exist.
	owner, ok, err := st.ItemOwner(p.Collection, big.NewInt(1))
	if err != nil || !ok {
		t.Fatalf("item owner lookup failed: %v", err)
	}
	if owner != caller {
		t.Fatalf("item moved despite aborted batch")
	}
	callerFrac, err := st.FractionalBalance(p.ID, caller)
	if err != nil {
		t.Fatalf("fractional balance: %v", err)
	}
	if callerFrac.Sign() != 0 {
		t.Fatalf("fractional units minted despite aborted batch: %v", callerFrac)
	}
	stored, _, err := st.PoolGet(p.ID)
	if err != nil {
		t.Fatalf("pool get: %v", err)
	}
	if stored.FractionalSupply != nil && stored.FractionalSupply.Sign() != 0 {
		t.Fatalf("supply mutated despite aborted batch: %v", stored.FractionalSupply)
	}
}

func TestWrapNotOwnedItem(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	other := newTestAddress(0x02)
	p := seedPool(t, st, NativeToken, [32]byte{})
	seedItems(st, p.Collection, other, 7)

	if _, err := engine.Wrap(caller, p.ID, []*big.Int{big.NewInt(7)}, nil); !errors.Is(err, ErrNotItemOwner) {
		t.Fatalf("expected ErrNotItemOwner, got %v", err)
	}
}

func TestWrapEmptyBatch(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := seedPool(t, st, NativeToken, [32]byte{})

	if _, err := engine.Wrap(caller, p.ID, nil, nil); err != ErrZeroAmount {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestWrapAllowList(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)

	allowed := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	tree := merkle.NewTree(allowed)
	p := seedPool(t, st, NativeToken, tree.Root())
	seedItems(st, p.Collection, caller, 1, 4)

	proof, ok := tree.Proof(big.NewInt(1))
	if !ok {
		t.Fatalf("proof for listed item missing")
	}
	minted, err := engine.Wrap(caller, p.ID, []*big.Int{big.NewInt(1)}, [][][32]byte{proof})
	if err != nil {
		t.Fatalf("wrap with valid proof: %v", err)
	}
	if minted.Cmp(One) != 0 {
		t.Fatalf("minted %v, want %v", minted, One)
	}

	// Item 4 is not in the allow list; its proof cannot verify.
	if _, err := engine.Wrap(caller, p.ID, []*big.Int{big.NewInt(4)}, [][][32]byte{proof}); !errors.Is(err, ErrProofInvalid) {
		t.Fatalf("expected ErrProofInvalid, got %v", err)
	}

	// Proof count must match the batch size.
	if _, err := engine.Wrap(caller, p.ID, []*big.Int{big.NewInt(2), big.NewInt(3)}, [][][32]byte{proof}); err != ErrProofCount {
		t.Fatalf("expected ErrProofCount, got %v", err)
	}
}

func TestWrapZeroRootSkipsProofs(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := seedPool(t, st, NativeToken, [32]byte{})
	seedItems(st, p.Collection, caller, 42)

	// No proofs required for an unrestricted pool, even for arbitrary IDs.
	if _, err := engine.Wrap(caller, p.ID, []*big.Int{big.NewInt(42)}, nil); err != nil {
		t.Fatalf("unrestricted wrap: %v", err)
	}
}

func TestWrapClosedPool(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := seedPool(t, st, NativeToken, [32]byte{})
	p.CloseAt = 500
	if err := st.PoolPut(p); err != nil {
		t.Fatalf("pool put: %v", err)
	}
	seedItems(st, p.Collection, caller, 1)

	if _, err := engine.Wrap(caller, p.ID, []*big.Int{big.NewInt(1)}, nil); err != ErrPoolClosed {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestUnwrapRoundTrip(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := seedPool(t, st, NativeToken, [32]byte{})
	itemIDs := seedItems(st, p.Collection, caller, 1, 2)

	if _, err := engine.Wrap(caller, p.ID, itemIDs, nil); err != nil {
		t.Fatalf("wrap: %v", err)
	}
	burned, err := engine.Unwrap(caller, p.ID, itemIDs)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(2), One)
	if burned.Cmp(want) != 0 {
		t.Fatalf("burned %v, want %v", burned, want)
	}

	for _, itemID := range itemIDs {
		owner, ok, err := st.ItemOwner(p.Collection, itemID)
		if err != nil || !ok {
			t.Fatalf("item owner lookup failed: %v", err)
		}
		if owner != caller {
			t.Fatalf("item %v not returned to caller", itemID)
		}
	}
	callerFrac, err := st.FractionalBalance(p.ID, caller)
	if err != nil {
		t.Fatalf("fractional balance: %v", err)
	}
	if callerFrac.Sign() != 0 {
		t.Fatalf("fractional units left after round trip: %v", callerFrac)
	}
	stored, _, err := st.PoolGet(p.ID)
	if err != nil {
		t.Fatalf("pool get: %v", err)
	}
	if stored.FractionalSupply.Sign() != 0 {
		t.Fatalf("supply left after round trip: %v", stored.FractionalSupply)
	}
}

func TestUnwrapWithoutUnits(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	stranger := newTestAddress(0x05)
	p := seedPool(t, st, NativeToken, [32]byte{})
	itemIDs := seedItems(st, p.Collection, caller, 1)

	if _, err := engine.Wrap(caller, p.ID, itemIDs, nil); err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if _, err := engine.Unwrap(stranger, p.ID, itemIDs); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestUnwrapAllowedAfterClose(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := seedPool(t, st, NativeToken, [32]byte{})
	itemIDs := seedItems(st, p.Collection, caller, 1)

	if _, err := engine.Wrap(caller, p.ID, itemIDs, nil); err != nil {
		t.Fatalf("wrap: %v", err)
	}
	stored, _, err := st.PoolGet(p.ID)
	if err != nil {
		t.Fatalf("pool get: %v", err)
	}
	stored.CloseAt = 500
	if err := st.PoolPut(stored); err != nil {
		t.Fatalf("pool put: %v", err)
	}

	// Exit stays open during the grace period; only entry is disabled.
	if _, err := engine.Unwrap(caller, p.ID, itemIDs); err != nil {
		t.Fatalf("unwrap after close: %v", err)
	}
}
