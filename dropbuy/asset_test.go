// Copyright (c) 2025 BVK Chaitanya

package dropbuy

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/pamt/dropbot/exchange"
	"github.com/pamt/dropbot/ledger"
	"github.com/shopspring/decimal"
)

func testFill(symbol string, price, funds float64) *exchange.Fill {
	p := decimal.NewFromFloat(price)
	f := decimal.NewFromFloat(funds)
	return &exchange.Fill{
		Symbol:   symbol,
		Price:    p,
		Quantity: f.Div(p),
		Funds:    f,
		Time:     time.Now().UTC(),
	}
}

func TestAssetDropTrigger(t *testing.T) {
	state := ledger.NewAssetState(5)
	a, err := NewAsset("KRW-BTC", decimal.NewFromInt(500000), decimal.NewFromInt(2), state)
	if err != nil {
		t.Fatal(err)
	}

	if p := a.Phase(); p != AwaitingInitial {
		t.Fatalf("want %s, got %s", AwaitingInitial, p)
	}
	if v := a.OneAmount(); !v.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("want 100000, got %s", v)
	}

	// The initial installment fires at any price.
	if !a.WantsBuy(decimal.NewFromInt(1000000)) {
		t.Fatal("initial installment must fire unconditionally")
	}
	if err := a.ApplyBuy(testFill("KRW-BTC", 100, 100000)); err != nil {
		t.Fatal(err)
	}

	if p := a.Phase(); p != Accumulating {
		t.Fatalf("want %s, got %s", Accumulating, p)
	}
	if state.NextBuyPrice == nil || !state.NextBuyPrice.Equal(decimal.NewFromInt(98)) {
		t.Fatalf("want next buy price 98, got %v", state.NextBuyPrice)
	}

	// Later installments fire only at or below the trigger.
	if a.WantsBuy(decimal.NewFromFloat(98.01)) {
		t.Fatal("price above the trigger must not fire")
	}
	if !a.WantsBuy(decimal.NewFromInt(98)) {
		t.Fatal("price at the trigger must fire")
	}
	if !a.WantsBuy(decimal.NewFromInt(50)) {
		t.Fatal("price below the trigger must fire")
	}

	// A deep gap still buys just one installment; the next trigger re-anchors
	// on the new fill price.
	if err := a.ApplyBuy(testFill("KRW-BTC", 50, 100000)); err != nil {
		t.Fatal(err)
	}
	if !state.NextBuyPrice.Equal(decimal.NewFromInt(49)) {
		t.Fatalf("want next buy price 49, got %s", state.NextBuyPrice)
	}
	if v := state.InstallmentsRemaining(); v != 3 {
		t.Fatalf("want 3 remaining, got %d", v)
	}
}

func TestAssetCompletion(t *testing.T) {
	state := ledger.NewAssetState(2)
	a, err := NewAsset("KRW-ETH", decimal.NewFromInt(200000), decimal.NewFromInt(3), state)
	if err != nil {
		t.Fatal(err)
	}

	if err := a.ApplyBuy(testFill("KRW-ETH", 1000, 100000)); err != nil {
		t.Fatal(err)
	}
	if err := a.ApplyBuy(testFill("KRW-ETH", 970, 100000)); err != nil {
		t.Fatal(err)
	}

	if p := a.Phase(); p != Completed {
		t.Fatalf("want %s, got %s", Completed, p)
	}
	if !state.Completed {
		t.Fatal("completed flag must be set after the final installment")
	}
	if a.WantsBuy(decimal.NewFromInt(1)) {
		t.Fatal("completed asset must not buy")
	}
}

func TestAssetFrozenAfterExit(t *testing.T) {
	state := ledger.NewAssetState(5)
	a, err := NewAsset("KRW-XRP", decimal.NewFromInt(100000), decimal.NewFromInt(2), state)
	if err != nil {
		t.Fatal(err)
	}

	if err := a.ApplyBuy(testFill("KRW-XRP", 500, 20000)); err != nil {
		t.Fatal(err)
	}
	if err := a.ApplySell(testFill("KRW-XRP", 550, 22000), true /* terminal */); err != nil {
		t.Fatal(err)
	}

	if p := a.Phase(); p != Exited {
		t.Fatalf("want %s, got %s", Exited, p)
	}
	if a.WantsBuy(decimal.NewFromInt(1)) {
		t.Fatal("exited asset must not buy")
	}
	if err := a.ApplyBuy(testFill("KRW-XRP", 400, 20000)); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("want os.ErrClosed, got %v", err)
	}
	if err := a.ApplySell(testFill("KRW-XRP", 600, 1000), false); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("want os.ErrClosed, got %v", err)
	}
}
