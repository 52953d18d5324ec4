// Copyright (c) 2025 BVK Chaitanya

// Package monitor runs the single-threaded tick loop that drives the
// drop-buy and exit engines over a fixed asset order and commits every trade
// to the ledger before moving on. The loop carries no state of its own, so
// the process can stop and restart at any tick boundary.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pamt/dropbot/ctxutil"
	"github.com/pamt/dropbot/dropbuy"
	"github.com/pamt/dropbot/exchange"
	"github.com/pamt/dropbot/ledger"
	"github.com/shopspring/decimal"
)

// Recorder receives observed prices and executed trades for offline
// analysis. Recording is best effort; implementations log their own failures.
type Recorder interface {
	RecordPrice(ctx context.Context, symbol string, price decimal.Decimal, at time.Time)
	RecordTrade(ctx context.Context, side string, fill *exchange.Fill)
}

type Options struct {
	// Interval between ticks.
	Interval time.Duration

	// MinOrder is the exchange's minimum order value in KRW.
	MinOrder decimal.Decimal

	// InitialBuy runs the first tick immediately at startup instead of after
	// one interval, which executes the initial installment for assets that
	// have no purchase yet.
	InitialBuy bool
}

func (v *Options) setDefaults() {
	if v.Interval == 0 {
		v.Interval = time.Hour
	}
}

func (v *Options) Check() error {
	if v.Interval < 0 {
		return fmt.Errorf("interval cannot be negative")
	}
	if v.MinOrder.IsNegative() {
		return fmt.Errorf("minimum order value cannot be negative")
	}
	return nil
}

type Monitor struct {
	market exchange.Market
	store  *ledger.Store

	opts Options
	exit dropbuy.ExitPolicy

	// assets are evaluated in this fixed order on every tick.
	assets []*dropbuy.Asset

	// states is the full ledger document; asset states alias into it so that
	// a single Save persists everything.
	states map[string]*ledger.AssetState

	recorder Recorder
}

// New creates a monitor over the given assets. The states map must contain
// the ledger state aliased by every asset.
func New(market exchange.Market, store *ledger.Store, assets []*dropbuy.Asset, states map[string]*ledger.AssetState, exit dropbuy.ExitPolicy, opts *Options) (*Monitor, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	if err := exit.Check(); err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("monitor needs at least one asset: %w", os.ErrInvalid)
	}
	for _, a := range assets {
		if _, ok := states[a.Symbol()]; !ok {
			return nil, fmt.Errorf("asset %q has no entry in the ledger states", a.Symbol())
		}
	}
	m := &Monitor{
		market: market,
		store:  store,
		opts:   *opts,
		exit:   exit,
		assets: assets,
		states: states,
	}
	return m, nil
}

// SetRecorder attaches a best-effort price/trade recorder.
func (m *Monitor) SetRecorder(r Recorder) {
	m.recorder = r
}

// Run executes ticks until the context is canceled or a ledger write fails.
// Cancellation is observed only between ticks so that a tick always commits
// atomically with respect to ledger writes.
func (m *Monitor) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "monitor loop starting",
		"assets", len(m.assets), "interval", m.opts.Interval, "initial-buy", m.opts.InitialBuy)

	if !m.opts.InitialBuy {
		ctxutil.Sleep(ctx, m.opts.Interval)
	}
	for ctx.Err() == nil {
		if err := m.Tick(ctx); err != nil {
			slog.ErrorContext(ctx, "monitor loop aborting on unrecoverable error", "error", err)
			return err
		}
		ctxutil.Sleep(ctx, m.opts.Interval)
	}
	slog.InfoContext(ctx, "monitor loop stopped", "cause", context.Cause(ctx))
	return context.Cause(ctx)
}

// Tick evaluates every asset once, in the configured order: the drop-trigger
// engine first, then the exit engine against the updated holdings. Returns
// non-nil only for unrecoverable failures; per-asset market errors are logged
// and retried on the next tick.
func (m *Monitor) Tick(ctx context.Context) error {
	for _, a := range m.assets {
		if a.State().Exited {
			continue
		}
		price, err := m.market.GetPrice(ctx, a.Symbol())
		if err != nil {
			slog.WarnContext(ctx, "could not fetch price (skipped for this tick)",
				"symbol", a.Symbol(), "error", err)
			continue
		}
		if m.recorder != nil {
			m.recorder.RecordPrice(ctx, a.Symbol(), price, time.Now().UTC())
		}

		if err := m.buyStep(ctx, a, price); err != nil {
			return err
		}
		if err := m.exitStep(ctx, a, price); err != nil {
			return err
		}
	}
	return nil
}

// buyStep fires at most one installment for the asset. Market failures are
// recoverable: nothing is recorded and the installment is retried on the next
// qualifying tick. A ledger write failure is returned as-is and is fatal.
func (m *Monitor) buyStep(ctx context.Context, a *dropbuy.Asset, price decimal.Decimal) error {
	if !a.WantsBuy(price) {
		return nil
	}

	amount := a.OneAmount()
	if amount.LessThan(m.opts.MinOrder) {
		slog.WarnContext(ctx, "installment value is below the exchange minimum (skipped; shrink INSTALLMENTS or raise the budget)",
			"symbol", a.Symbol(), "installment", amount, "minimum", m.opts.MinOrder, "error", exchange.ErrBelowMinimum)
		return nil
	}

	done := len(a.State().Purchased)
	slog.InfoContext(ctx, "placing installment buy",
		"symbol", a.Symbol(), "installment", fmt.Sprintf("%d/%d", done+1, a.State().InstallmentsTotal),
		"funds", amount, "price", price)

	fill, err := m.market.MarketBuy(ctx, a.Symbol(), amount)
	if err != nil {
		logMarketError(ctx, "buy", a.Symbol(), err)
		return nil
	}
	if err := a.ApplyBuy(fill); err != nil {
		return fmt.Errorf("could not record buy fill for %q: %w", a.Symbol(), err)
	}
	if err := m.store.Save(m.states); err != nil {
		// The order has executed but the ledger write failed; stopping here
		// keeps the unrecorded-order window to exactly one fill.
		return fmt.Errorf("could not persist ledger after buy of %q: %w", a.Symbol(), err)
	}
	if m.recorder != nil {
		m.recorder.RecordTrade(ctx, "BUY", fill)
	}

	slog.InfoContext(ctx, "installment bought",
		"symbol", a.Symbol(), "price", fill.Price, "quantity", fill.Quantity,
		"next-buy-price", a.State().NextBuyPrice, "remaining", a.State().InstallmentsRemaining())
	return nil
}

// exitStep evaluates the profit target against holdings as of this tick,
// including a buy that may have just happened.
func (m *Monitor) exitStep(ctx context.Context, a *dropbuy.Asset, price decimal.Decimal) error {
	quantity, profit, ok := m.exit.Evaluate(a, price)
	if !ok {
		return nil
	}

	if value := quantity.Mul(price); value.LessThan(m.opts.MinOrder) {
		slog.WarnContext(ctx, "exit sale value is below the exchange minimum (skipped)",
			"symbol", a.Symbol(), "value", value, "minimum", m.opts.MinOrder, "error", exchange.ErrBelowMinimum)
		return nil
	}

	slog.InfoContext(ctx, "profit target reached; placing exit sell",
		"symbol", a.Symbol(), "quantity", quantity, "price", price,
		"profit-krw", profit.KRW, "profit-pct", profit.Pct)

	fill, err := m.market.MarketSell(ctx, a.Symbol(), quantity)
	if err != nil {
		logMarketError(ctx, "sell", a.Symbol(), err)
		return nil
	}
	terminal := m.exit.Terminal(a, fill.Quantity, price)
	if err := a.ApplySell(fill, terminal); err != nil {
		return fmt.Errorf("could not record sell fill for %q: %w", a.Symbol(), err)
	}
	if err := m.store.Save(m.states); err != nil {
		return fmt.Errorf("could not persist ledger after sell of %q: %w", a.Symbol(), err)
	}
	if m.recorder != nil {
		m.recorder.RecordTrade(ctx, "SELL", fill)
	}

	slog.InfoContext(ctx, "exit sell executed",
		"symbol", a.Symbol(), "price", fill.Price, "quantity", fill.Quantity,
		"realized-krw", fill.Funds, "exited", a.State().Exited)
	return nil
}

func logMarketError(ctx context.Context, action, symbol string, err error) {
	switch {
	case errors.Is(err, exchange.ErrInsufficientFunds):
		slog.WarnContext(ctx, "order rejected for insufficient funds (will retry next tick)",
			"symbol", symbol, "action", action, "error", err)
	case errors.Is(err, exchange.ErrBelowMinimum):
		slog.WarnContext(ctx, "order rejected below the exchange minimum (will retry next tick)",
			"symbol", symbol, "action", action, "error", err)
	default:
		slog.WarnContext(ctx, "order failed (will retry next tick)",
			"symbol", symbol, "action", action, "error", err)
	}
}
