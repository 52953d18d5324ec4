// Copyright (c) 2025 BVK Chaitanya

// Package recorder persists observed prices and executed trades into a
// kv.Database as gob-encoded, timestamp-keyed points. The history backs the
// status and db inspection subcommands and is not needed for trading
// decisions, so all writes are best effort.
package recorder

import (
	"context"
	"log/slog"
	"path"
	"time"

	"github.com/bvkgo/kv"
	"github.com/pamt/dropbot/exchange"
	"github.com/pamt/dropbot/kvutil"
	"github.com/shopspring/decimal"
)

const (
	PricesKeyspace = "/prices"
	TradesKeyspace = "/trades"
)

// PricePoint is one observed price sample.
type PricePoint struct {
	Price decimal.Decimal
	Time  time.Time
}

// TradePoint is one executed market order.
type TradePoint struct {
	Side     string
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Funds    decimal.Decimal
	Time     time.Time
}

type Recorder struct {
	db kv.Database
}

func New(db kv.Database) *Recorder {
	return &Recorder{db: db}
}

// PriceKey returns the db key for a price sample of a symbol at a timestamp.
func PriceKey(symbol string, at time.Time) string {
	return path.Join(PricesKeyspace, symbol, at.UTC().Format(time.RFC3339Nano))
}

// TradeKey returns the db key for a trade of a symbol at a timestamp.
func TradeKey(symbol string, at time.Time) string {
	return path.Join(TradesKeyspace, symbol, at.UTC().Format(time.RFC3339Nano))
}

func (r *Recorder) RecordPrice(ctx context.Context, symbol string, price decimal.Decimal, at time.Time) {
	p := &PricePoint{Price: price, Time: at.UTC()}
	if err := kvutil.SetDB(ctx, r.db, PriceKey(symbol, at), p); err != nil {
		slog.WarnContext(ctx, "could not record price point (ignored)", "symbol", symbol, "error", err)
	}
}

func (r *Recorder) RecordTrade(ctx context.Context, side string, fill *exchange.Fill) {
	t := &TradePoint{
		Side:     side,
		Price:    fill.Price,
		Quantity: fill.Quantity,
		Funds:    fill.Funds,
		Time:     fill.Time.UTC(),
	}
	if err := kvutil.SetDB(ctx, r.db, TradeKey(fill.Symbol, fill.Time), t); err != nil {
		slog.WarnContext(ctx, "could not record trade point (ignored)", "side", side, "symbol", fill.Symbol, "error", err)
	}
}

// LastPrice returns the most recent recorded price sample for a symbol.
// Returns nil when no samples exist.
func (r *Recorder) LastPrice(ctx context.Context, symbol string) (*PricePoint, error) {
	begin, end := kvutil.PathRange(path.Join(PricesKeyspace, symbol))
	_, p, err := kvutil.LastDB[PricePoint](ctx, r.db, begin, end)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Trades visits all recorded trades for a symbol in time order.
func (r *Recorder) Trades(ctx context.Context, symbol string, fn func(*TradePoint) error) error {
	begin, end := kvutil.PathRange(path.Join(TradesKeyspace, symbol))
	return kvutil.AscendDB(ctx, r.db, begin, end, func(ctx context.Context, _ kv.Reader, _ string, t *TradePoint) error {
		return fn(t)
	})
}
