// Copyright (c) 2025 BVK Chaitanya

package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/bvkgo/kv/kvmemdb"
	"github.com/pamt/dropbot/exchange"
	"github.com/shopspring/decimal"
)

func TestRecordPrice(t *testing.T) {
	ctx := context.Background()
	r := New(kvmemdb.New())

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i, v := range []float64{100, 99, 98.5} {
		r.RecordPrice(ctx, "KRW-BTC", decimal.NewFromFloat(v), base.Add(time.Duration(i)*time.Minute))
	}
	r.RecordPrice(ctx, "KRW-ETH", decimal.NewFromInt(5000), base)

	last, err := r.LastPrice(ctx, "KRW-BTC")
	if err != nil {
		t.Fatal(err)
	}
	if last == nil {
		t.Fatalf("wanted a price point, got none")
	}
	if !last.Price.Equal(decimal.NewFromFloat(98.5)) {
		t.Fatalf("wanted last price 98.5, got %s", last.Price)
	}
	if !last.Time.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("wanted last time %s, got %s", base.Add(2*time.Minute), last.Time)
	}

	none, err := r.LastPrice(ctx, "KRW-XRP")
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Fatalf("wanted no price point, got %v", none)
	}
}

func TestRecordTrade(t *testing.T) {
	ctx := context.Background()
	r := New(kvmemdb.New())

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	fills := []*exchange.Fill{
		{
			Symbol:   "KRW-BTC",
			Price:    decimal.NewFromInt(100),
			Quantity: decimal.NewFromInt(10),
			Funds:    decimal.NewFromInt(1000),
			Time:     base,
		},
		{
			Symbol:   "KRW-BTC",
			Price:    decimal.NewFromInt(98),
			Quantity: decimal.NewFromInt(10),
			Funds:    decimal.NewFromInt(980),
			Time:     base.Add(time.Hour),
		},
	}
	r.RecordTrade(ctx, "BUY", fills[0])
	r.RecordTrade(ctx, "BUY", fills[1])
	r.RecordTrade(ctx, "SELL", &exchange.Fill{
		Symbol:   "KRW-ETH",
		Price:    decimal.NewFromInt(5000),
		Quantity: decimal.NewFromInt(1),
		Funds:    decimal.NewFromInt(5000),
		Time:     base,
	})

	var trades []*TradePoint
	visit := func(v *TradePoint) error {
		trades = append(trades, v)
		return nil
	}
	if err := r.Trades(ctx, "KRW-BTC", visit); err != nil {
		t.Fatal(err)
	}
	if len(trades) != 2 {
		t.Fatalf("wanted 2 trades, got %d", len(trades))
	}
	for i, tp := range trades {
		if tp.Side != "BUY" {
			t.Fatalf("wanted BUY, got %q", tp.Side)
		}
		if !tp.Price.Equal(fills[i].Price) {
			t.Fatalf("wanted price %s, got %s", fills[i].Price, tp.Price)
		}
		if !tp.Time.Equal(fills[i].Time) {
			t.Fatalf("wanted time %s, got %s", fills[i].Time, tp.Time)
		}
	}
}
