// Copyright (c) 2025 BVK Chaitanya

package dropbuy

import (
	"errors"
	"testing"

	"github.com/pamt/dropbot/config"
	"github.com/shopspring/decimal"
)

func TestAllocationsEqualSplit(t *testing.T) {
	total := decimal.NewFromInt(900000)
	assets := []string{"KRW-BTC", "KRW-ETH", "KRW-XRP"}

	budgets, err := Allocations(total, assets, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := decimal.NewFromInt(300000)
	for _, a := range assets {
		if v := budgets[a].Round(0); !v.Equal(want) {
			t.Fatalf("%s: want %s, got %s", a, want, v)
		}
	}
}

func TestAllocationsPercentages(t *testing.T) {
	total := decimal.NewFromInt(1000000)
	assets := []string{"KRW-BTC", "KRW-ETH", "KRW-XRP"}
	weights := map[string]float64{
		"KRW-BTC": 50,
		"KRW-ETH": 30,
		"KRW-XRP": 20,
	}

	budgets, err := Allocations(total, assets, weights)
	if err != nil {
		t.Fatal(err)
	}

	wants := map[string]int64{"KRW-BTC": 500000, "KRW-ETH": 300000, "KRW-XRP": 200000}
	for a, w := range wants {
		if v := budgets[a].Round(0); !v.Equal(decimal.NewFromInt(w)) {
			t.Fatalf("%s: want %d, got %s", a, w, v)
		}
	}
}

func TestAllocationsFractions(t *testing.T) {
	total := decimal.NewFromInt(1000000)
	assets := []string{"KRW-BTC", "KRW-ETH"}
	weights := map[string]float64{
		"KRW-BTC": 0.75,
		"KRW-ETH": 0.25,
	}

	budgets, err := Allocations(total, assets, weights)
	if err != nil {
		t.Fatal(err)
	}

	if v := budgets["KRW-BTC"].Round(0); !v.Equal(decimal.NewFromInt(750000)) {
		t.Fatalf("want 750000, got %s", v)
	}
	if v := budgets["KRW-ETH"].Round(0); !v.Equal(decimal.NewFromInt(250000)) {
		t.Fatalf("want 250000, got %s", v)
	}
}

func TestAllocationsResidualSplit(t *testing.T) {
	total := decimal.NewFromInt(1000000)
	assets := []string{"KRW-BTC", "KRW-ETH", "KRW-XRP"}
	weights := map[string]float64{"KRW-BTC": 50}

	budgets, err := Allocations(total, assets, weights)
	if err != nil {
		t.Fatal(err)
	}

	if v := budgets["KRW-BTC"].Round(0); !v.Equal(decimal.NewFromInt(500000)) {
		t.Fatalf("want 500000, got %s", v)
	}
	// The two unweighted assets split the remaining 50% equally.
	for _, a := range []string{"KRW-ETH", "KRW-XRP"} {
		if v := budgets[a].Round(0); !v.Equal(decimal.NewFromInt(250000)) {
			t.Fatalf("%s: want 250000, got %s", a, v)
		}
	}
}

func TestAllocationsOvercommitted(t *testing.T) {
	total := decimal.NewFromInt(120000)
	assets := []string{"KRW-BTC", "KRW-ETH", "KRW-XRP"}
	weights := map[string]float64{"KRW-BTC": 80, "KRW-ETH": 40}

	budgets, err := Allocations(total, assets, weights)
	if err != nil {
		t.Fatal(err)
	}

	// Weights summing above 100% are rescaled proportionally and leave no
	// residual for the unweighted asset.
	if v := budgets["KRW-BTC"].Round(0); !v.Equal(decimal.NewFromInt(80000)) {
		t.Fatalf("want 80000, got %s", v)
	}
	if v := budgets["KRW-ETH"].Round(0); !v.Equal(decimal.NewFromInt(40000)) {
		t.Fatalf("want 40000, got %s", v)
	}
	if v := budgets["KRW-XRP"].Round(0); !v.IsZero() {
		t.Fatalf("want 0, got %s", v)
	}
}

func TestAllocationsBadInputs(t *testing.T) {
	total := decimal.NewFromInt(100000)

	if _, err := Allocations(total, nil, nil); !errors.Is(err, config.ErrConfig) {
		t.Fatalf("want ErrConfig for empty assets, got %v", err)
	}
	if _, err := Allocations(decimal.Zero, []string{"KRW-BTC"}, nil); !errors.Is(err, config.ErrConfig) {
		t.Fatalf("want ErrConfig for zero capital, got %v", err)
	}
	weights := map[string]float64{"KRW-BTC": -10}
	if _, err := Allocations(total, []string{"KRW-BTC"}, weights); !errors.Is(err, config.ErrConfig) {
		t.Fatalf("want ErrConfig for negative weight, got %v", err)
	}
}
