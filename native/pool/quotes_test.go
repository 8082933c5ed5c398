package pool

import (
	"math/big"
	"testing"
)

func TestQuoteAddBootstrap(t *testing.T) {
	shares, err := quoteAdd(big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(1000), big.NewInt(1000))
	if err != nil {
		t.Fatalf("quoteAdd: %v", err)
	}
	requireBig(t, 1000, shares, "bootstrap shares")

	shares, err = quoteAdd(big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(400), big.NewInt(900))
	if err != nil {
		t.Fatalf("quoteAdd: %v", err)
	}
	requireBig(t, 600, shares, "geometric mean shares")
}

func TestQuoteAddProportional(t *testing.T) {
	// 1000/1000 reserves with 1000 shares outstanding. A balanced deposit
	// mints proportionally; an unbalanced one mints the smaller side.
	shares, err := quoteAdd(big.NewInt(1000), big.NewInt(1000), big.NewInt(1000), big.NewInt(500), big.NewInt(500))
	if err != nil {
		t.Fatalf("quoteAdd: %v", err)
	}
	requireBig(t, 500, shares, "balanced deposit")

	shares, err = quoteAdd(big.NewInt(1000), big.NewInt(1000), big.NewInt(1000), big.NewInt(500), big.NewInt(100))
	if err != nil {
		t.Fatalf("quoteAdd: %v", err)
	}
	requireBig(t, 100, shares, "unbalanced deposit")
}

func TestQuoteAddZeroAmount(t *testing.T) {
	if _, err := quoteAdd(big.NewInt(1000), big.NewInt(1000), big.NewInt(1000), big.NewInt(0), big.NewInt(100)); err != ErrZeroAmount {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if _, err := quoteAdd(big.NewInt(1000), big.NewInt(1000), big.NewInt(1000), big.NewInt(100), nil); err != ErrZeroAmount {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestQuoteBuy(t *testing.T) {
	input, err := quoteBuy(big.NewInt(1000), big.NewInt(1000), big.NewInt(100))
	if err != nil {
		t.Fatalf("quoteBuy: %v", err)
	}
	// 100*1000*1000 / (900*997) truncates to 111.
	requireBig(t, 111, input, "buy input")
}

func TestQuoteBuyDrainsReserves(t *testing.T) {
	if _, err := quoteBuy(big.NewInt(1000), big.NewInt(1000), big.NewInt(1000)); err != ErrInsufficientReserves {
		t.Fatalf("expected ErrInsufficientReserves, got %v", err)
	}
	if _, err := quoteBuy(big.NewInt(1000), big.NewInt(1000), big.NewInt(2000)); err != ErrInsufficientReserves {
		t.Fatalf("expected ErrInsufficientReserves, got %v", err)
	}
	if _, err := quoteBuy(big.NewInt(1000), big.NewInt(1000), big.NewInt(0)); err != ErrZeroAmount {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestQuoteSell(t *testing.T) {
	output, err := quoteSell(big.NewInt(1000), big.NewInt(1000), big.NewInt(100))
	if err != nil {
		t.Fatalf("quoteSell: %v", err)
	}
	// 100*997*1000 / (1000*1000 + 100*997) truncates to 90.
	requireBig(t, 90, output, "sell output")

	if _, err := quoteSell(big.NewInt(1000), big.NewInt(1000), big.NewInt(0)); err != ErrZeroAmount {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestQuoteRemove(t *testing.T) {
	baseOut, fracOut, err := quoteRemove(big.NewInt(1000), big.NewInt(2000), big.NewInt(1000), big.NewInt(250))
	if err != nil {
		t.Fatalf("quoteRemove: %v", err)
	}
	requireBig(t, 250, baseOut, "base out")
	requireBig(t, 500, fracOut, "frac out")

	if _, _, err := quoteRemove(big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(1)); err != ErrNoLiquidity {
		t.Fatalf("expected ErrNoLiquidity, got %v", err)
	}
}

func TestQuotePrice(t *testing.T) {
	price, err := quotePrice(big.NewInt(500), new(big.Int).Mul(big.NewInt(2), One))
	if err != nil {
		t.Fatalf("quotePrice: %v", err)
	}
	requireBig(t, 250, price, "price per One")

	if _, err := quotePrice(big.NewInt(500), big.NewInt(0)); err != ErrNoLiquidity {
		t.Fatalf("expected ErrNoLiquidity, got %v", err)
	}
}

func TestViewQuotesAgainstStoredPool(t *testing.T) {
	engine, st := newTestEngine(t)
	caller := newTestAddress(0x01)
	p := bootstrapNative(t, engine, st, caller)

	input, err := engine.BuyQuote(p.ID, big.NewInt(100))
	if err != nil {
		t.Fatalf("BuyQuote: %v", err)
	}
	requireBig(t, 111, input, "buy quote")

	output, err := engine.SellQuote(p.ID, big.NewInt(100))
	if err != nil {
		t.Fatalf("SellQuote: %v", err)
	}
	requireBig(t, 90, output, "sell quote")

	shares, err := engine.AddQuote(p.ID, big.NewInt(500), big.NewInt(500))
	if err != nil {
		t.Fatalf("AddQuote: %v", err)
	}
	requireBig(t, 500, shares, "add quote")

	baseOut, fracOut, err := engine.RemoveQuote(p.ID, big.NewInt(100))
	if err != nil {
		t.Fatalf("RemoveQuote: %v", err)
	}
	requireBig(t, 100, baseOut, "remove base out")
	requireBig(t, 100, fracOut, "remove frac out")
}
