// Copyright (c) 2025 BVK Chaitanya

// Package exchange defines the market client interface used by the trading
// engine and a dry-run simulator implementation. Live exchange clients (see
// the upbit package) and the simulator are interchangeable behind the Market
// interface.
package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrTransient indicates a network or exchange API failure. The caller is
	// expected to skip the current decision and retry on the next tick.
	ErrTransient = errors.New("transient market error")

	// ErrInsufficientFunds indicates the order was rejected because the quote
	// currency balance cannot cover it.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrBelowMinimum indicates the computed order value is below the
	// exchange's minimum order size.
	ErrBelowMinimum = errors.New("order value below exchange minimum")
)

// Fill describes the outcome of a completed market order.
type Fill struct {
	Symbol string

	// Price is the (average) execution price.
	Price decimal.Decimal

	// Quantity is the base asset quantity bought or sold.
	Quantity decimal.Decimal

	// Funds is the quote currency value of the fill (price times quantity for
	// simulated fills; executed funds as reported by the exchange otherwise).
	Funds decimal.Decimal

	Time time.Time
}

// Market is the minimal exchange surface required by the engine. All amounts
// are in the quote currency (KRW) unless stated otherwise.
type Market interface {
	// GetPrice returns the current price for a symbol like "KRW-BTC".
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// GetBalance returns the available KRW balance.
	GetBalance(ctx context.Context) (decimal.Decimal, error)

	// MarketBuy spends the given KRW amount on a market buy order and returns
	// the resulting fill.
	MarketBuy(ctx context.Context, symbol string, funds decimal.Decimal) (*Fill, error)

	// MarketSell sells the given base asset quantity at market and returns the
	// resulting fill.
	MarketSell(ctx context.Context, symbol string, quantity decimal.Decimal) (*Fill, error)
}
