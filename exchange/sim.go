// Copyright (c) 2025 BVK Chaitanya

package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Simulator is a dry-run Market implementation. It fabricates fills against a
// virtual KRW balance using prices from an underlying price source and never
// touches a live account.
type Simulator struct {
	source PriceSource

	mu sync.Mutex

	balance decimal.Decimal

	// lastPrice remembers the most recent observed price per symbol so that
	// fills can be fabricated even when a fresh quote is unavailable.
	lastPrice map[string]decimal.Decimal
}

// PriceSource supplies current prices for the simulator. The live upbit
// client's public (unauthenticated) quote API satisfies this.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// NewSimulator creates a dry-run market with the given starting KRW balance.
func NewSimulator(source PriceSource, balance decimal.Decimal) *Simulator {
	return &Simulator{
		source:    source,
		balance:   balance,
		lastPrice: make(map[string]decimal.Decimal),
	}
}

var _ Market = &Simulator{}

func (s *Simulator) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	p, err := s.source.GetPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	s.mu.Lock()
	s.lastPrice[symbol] = p
	s.mu.Unlock()
	return p, nil
}

func (s *Simulator) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}

func (s *Simulator) MarketBuy(ctx context.Context, symbol string, funds decimal.Decimal) (*Fill, error) {
	price, err := s.price(ctx, symbol)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if funds.GreaterThan(s.balance) {
		return nil, fmt.Errorf("simulated balance %s cannot cover %s: %w", s.balance, funds, ErrInsufficientFunds)
	}
	s.balance = s.balance.Sub(funds)

	fill := &Fill{
		Symbol:   symbol,
		Price:    price,
		Quantity: funds.Div(price),
		Funds:    funds,
		Time:     time.Now().UTC(),
	}
	slog.InfoContext(ctx, "dry-run buy", "symbol", symbol, "funds", funds, "price", price, "quantity", fill.Quantity)
	return fill, nil
}

func (s *Simulator) MarketSell(ctx context.Context, symbol string, quantity decimal.Decimal) (*Fill, error) {
	price, err := s.price(ctx, symbol)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	value := quantity.Mul(price)
	s.balance = s.balance.Add(value)

	fill := &Fill{
		Symbol:   symbol,
		Price:    price,
		Quantity: quantity,
		Funds:    value,
		Time:     time.Now().UTC(),
	}
	slog.InfoContext(ctx, "dry-run sell", "symbol", symbol, "quantity", quantity, "price", price, "value", value)
	return fill, nil
}

// price returns a fresh quote, falling back to the last observed price when
// the source is unavailable.
func (s *Simulator) price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	p, err := s.source.GetPrice(ctx, symbol)
	if err == nil {
		s.mu.Lock()
		s.lastPrice[symbol] = p
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Lock()
	last, ok := s.lastPrice[symbol]
	s.mu.Unlock()
	if !ok || last.IsZero() {
		return decimal.Zero, err
	}
	return last, nil
}
