// Copyright (c) 2025 BVK Chaitanya

package dropbuy

import (
	"fmt"
	"log/slog"

	"github.com/pamt/dropbot/exchange"
	"github.com/pamt/dropbot/ledger"
	"github.com/shopspring/decimal"
)

// Phase is the accumulation phase of an asset, derived from its ledger state.
type Phase string

const (
	// AwaitingInitial means no installment has been purchased yet.
	AwaitingInitial Phase = "AWAITING_INITIAL"

	// Accumulating means at least one installment was bought and more remain.
	Accumulating Phase = "ACCUMULATING"

	// Completed means every installment has been purchased.
	Completed Phase = "COMPLETED"

	// Exited means the exit condition fired and the asset is frozen.
	Exited Phase = "EXITED"
)

// Asset binds one symbol's ledger state to its runtime strategy parameters.
// The target budget and drop percentage are derived from the configuration on
// every startup and are never persisted.
type Asset struct {
	symbol string

	budget  decimal.Decimal
	dropPct decimal.Decimal

	state *ledger.AssetState
}

func NewAsset(symbol string, budget, dropPct decimal.Decimal, state *ledger.AssetState) (*Asset, error) {
	if len(symbol) == 0 {
		return nil, fmt.Errorf("asset symbol is empty")
	}
	if state == nil {
		return nil, fmt.Errorf("asset %q has no ledger state", symbol)
	}
	if dropPct.LessThanOrEqual(decimal.Zero) || dropPct.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("asset %q drop percentage %s out of range", symbol, dropPct)
	}
	return &Asset{symbol: symbol, budget: budget, dropPct: dropPct, state: state}, nil
}

func (a *Asset) String() string {
	return "dropbuy:" + a.symbol
}

func (a *Asset) LogValue() slog.Value {
	return slog.StringValue(a.String())
}

func (a *Asset) Symbol() string {
	return a.symbol
}

func (a *Asset) Budget() decimal.Decimal {
	return a.budget
}

func (a *Asset) DropPct() decimal.Decimal {
	return a.dropPct
}

func (a *Asset) State() *ledger.AssetState {
	return a.state
}

// Phase derives the accumulation phase from the ledger state.
func (a *Asset) Phase() Phase {
	switch {
	case a.state.Exited:
		return Exited
	case len(a.state.Purchased) == 0:
		return AwaitingInitial
	case a.state.InstallmentsRemaining() == 0:
		return Completed
	default:
		return Accumulating
	}
}

// OneAmount is the fixed KRW size of a single installment.
func (a *Asset) OneAmount() decimal.Decimal {
	return a.budget.Div(decimal.NewFromInt(int64(a.state.InstallmentsTotal)))
}

// WantsBuy reports whether the current price authorizes the next installment.
// The first installment is authorized unconditionally; later installments
// require the price to be at or below the derived trigger. At most one
// installment fires per tick regardless of how far the price gapped down.
func (a *Asset) WantsBuy(price decimal.Decimal) bool {
	switch a.Phase() {
	case Exited, Completed:
		return false
	case AwaitingInitial:
		return true
	}
	return a.state.NextBuyPrice != nil && price.LessThanOrEqual(*a.state.NextBuyPrice)
}

// ApplyBuy records a buy fill in the ledger and recomputes the trigger for
// the next installment from the fill price.
func (a *Asset) ApplyBuy(fill *exchange.Fill) error {
	p := ledger.Purchase{
		AmountSpent: fill.Funds,
		FillPrice:   fill.Price,
		Quantity:    fill.Quantity,
		Timestamp:   fill.Time,
	}
	return a.state.RecordPurchase(p, a.dropPct)
}

// ApplySell records a sell fill in the ledger. The terminal flag freezes the
// asset against any further buys or sells.
func (a *Asset) ApplySell(fill *exchange.Fill, terminal bool) error {
	s := ledger.Sale{
		Quantity:    fill.Quantity,
		FillPrice:   fill.Price,
		Timestamp:   fill.Time,
		RealizedKRW: fill.Funds,
	}
	return a.state.RecordSale(s, terminal)
}
