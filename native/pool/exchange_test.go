package pool

import (
	"math/big"
	"testing"
)

func TestBuyNativeRefundsExcess(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := bootstrapNative(t, engine, st, caller)

	input, err := engine.Buy(caller, p.ID, big.NewInt(100), big.NewInt(200), big.NewInt(200))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	requireBig(t, 111, input, "quoted input")

	// Only the quoted input leaves the caller; the rest of the attachment
	// comes back.
	requireBig(t, 9000-111, nativeBalance(t, st, caller), "caller native after buy")
	requireBig(t, 1111, nativeBalance(t, st, p.Vault()), "vault base after buy")
	callerFrac, err := st.FractionalBalance(p.ID, caller)
	if err != nil {
		t.Fatalf("fractional balance: %v", err)
	}
	requireBig(t, 9100, callerFrac, "caller fractional after buy")
	vaultFrac, err := st.FractionalBalance(p.ID, p.Vault())
	if err != nil {
		t.Fatalf("fractional balance: %v", err)
	}
	requireBig(t, 900, vaultFrac, "vault fractional after buy")
}

func TestBuySlippageLeavesNoSideEffect(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := bootstrapNative(t, engine, st, caller)

	if _, err := engine.Buy(caller, p.ID, big.NewInt(100), big.NewInt(110), big.NewInt(110)); err != ErrSlippage {
		t.Fatalf("expected ErrSlippage, got %v", err)
	}
	requireBig(t, 9000, nativeBalance(t, st, caller), "caller native untouched")
	requireBig(t, 1000, nativeBalance(t, st, p.Vault()), "vault base untouched")
}

func TestBuyValueMismatch(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := bootstrapNative(t, engine, st, caller)

	if _, err := engine.Buy(caller, p.ID, big.NewInt(100), big.NewInt(200), big.NewInt(150)); err != ErrValueMismatch {
		t.Fatalf("expected ErrValueMismatch, got %v", err)
	}
}

func TestBuyTokenPoolPullsExactInput(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := seedPool(t, st, "USDC", [32]byte{})
	fundToken(st, "USDC", caller, 10_000)
	fundFractional(st, p.ID, caller, 10_000)
	if _, err := engine.Add(caller, p.ID, big.NewInt(1000), big.NewInt(1000), big.NewInt(0), big.NewInt(0)); err != nil {
		t.Fatalf("bootstrap add: %v", err)
	}

	input, err := engine.Buy(caller, p.ID, big.NewInt(100), big.NewInt(200), big.NewInt(0))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	requireBig(t, 111, input, "quoted input")
	callerToken, err := st.TokenBalance("USDC", caller)
	if err != nil {
		t.Fatalf("token balance: %v", err)
	}
	requireBig(t, 9000-111, callerToken, "caller token after buy")
}

func TestSellPaysQuotedOutput(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := bootstrapNative(t, engine, st, caller)

	kBefore := new(big.Int).Mul(big.NewInt(1000), big.NewInt(1000))

	output, err := engine.Sell(caller, p.ID, big.NewInt(100), big.NewInt(0))
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	requireBig(t, 90, output, "quoted output")
	requireBig(t, 9090, nativeBalance(t, st, caller), "caller native after sell")
	requireBig(t, 910, nativeBalance(t, st, p.Vault()), "vault base after sell")

	vaultFrac, err := st.FractionalBalance(p.ID, p.Vault())
	if err != nil {
		t.Fatalf("fractional balance: %v", err)
	}
	requireBig(t, 1100, vaultFrac, "vault fractional after sell")

	// Truncation and the fee both favor the pool, so the product of the
	// reserves never decreases across a sell.
	kAfter := new(big.Int).Mul(big.NewInt(910), vaultFrac)
	if kAfter.Cmp(kBefore) < 0 {
		t.Fatalf("reserve product decreased: %v -> %v", kBefore, kAfter)
	}
}

func TestSellSlippage(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := bootstrapNative(t, engine, st, caller)

	if _, err := engine.Sell(caller, p.ID, big.NewInt(100), big.NewInt(91)); err != ErrSlippage {
		t.Fatalf("expected ErrSlippage, got %v", err)
	}
	requireBig(t, 9000, nativeBalance(t, st, caller), "caller native untouched")
}

func TestSellWithoutBalance(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	stranger := newTestAddress(0x05)
	p := bootstrapNative(t, engine, st, caller)

	if _, err := engine.Sell(stranger, p.ID, big.NewInt(100), big.NewInt(0)); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}
