// Copyright (c) 2025 BVK Chaitanya

// Package ledger implements the durable per-asset record of purchases, sales
// and derived accumulation state. The ledger file is the single source of
// truth for the strategy: installment counts and holdings are always
// recomputed from the append-only purchase and sale logs, never trusted from
// separately stored counters.
package ledger

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// ErrLedgerIO indicates the ledger file could not be read or written. The
// engine must not continue with an uncommitted decision when this happens.
var ErrLedgerIO = errors.New("ledger i/o failure")

// Purchase is one installment fill. Entries are append-only.
type Purchase struct {
	AmountSpent decimal.Decimal `json:"amount_spent"`
	FillPrice   decimal.Decimal `json:"fill_price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Sale is one exit fill. Entries are append-only.
type Sale struct {
	Quantity    decimal.Decimal `json:"quantity"`
	FillPrice   decimal.Decimal `json:"fill_price"`
	Timestamp   time.Time       `json:"timestamp"`
	RealizedKRW decimal.Decimal `json:"realized_krw"`
}

// AssetState is the persisted accumulation state for one symbol. The target
// budget is intentionally not part of this state; it is derived from the
// configured allocations on every startup so that a stale stored value cannot
// diverge from the configuration.
type AssetState struct {
	InstallmentsTotal int `json:"installments_total"`

	Purchased []Purchase `json:"purchased"`
	Sold      []Sale     `json:"sold"`

	LastBuyPrice *decimal.Decimal `json:"last_buy_price,omitempty"`
	NextBuyPrice *decimal.Decimal `json:"next_buy_price,omitempty"`

	Completed bool `json:"completed"`
	Exited    bool `json:"exited"`
}

// NewAssetState returns a fresh state with the given installment count.
func NewAssetState(installments int) *AssetState {
	return &AssetState{
		InstallmentsTotal: installments,
		Purchased:         []Purchase{},
		Sold:              []Sale{},
	}
}

// InstallmentsRemaining is always derived from the purchase log.
func (a *AssetState) InstallmentsRemaining() int {
	if r := a.InstallmentsTotal - len(a.Purchased); r > 0 {
		return r
	}
	return 0
}

// TotalSpent returns the KRW spent across all purchases.
func (a *AssetState) TotalSpent() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range a.Purchased {
		sum = sum.Add(p.AmountSpent)
	}
	return sum
}

// TotalBought returns the base quantity acquired across all purchases.
func (a *AssetState) TotalBought() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range a.Purchased {
		sum = sum.Add(p.Quantity)
	}
	return sum
}

// TotalSoldQuantity returns the base quantity liquidated across all sales.
func (a *AssetState) TotalSoldQuantity() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range a.Sold {
		sum = sum.Add(s.Quantity)
	}
	return sum
}

// Held returns the currently held base quantity (never negative).
func (a *AssetState) Held() decimal.Decimal {
	if h := a.TotalBought().Sub(a.TotalSoldQuantity()); h.IsPositive() {
		return h
	}
	return decimal.Zero
}

// AvgCost returns the average purchase price over the full purchase log, or
// zero when nothing was bought. Partial sales do not change the average cost
// of the remaining holdings.
func (a *AssetState) AvgCost() decimal.Decimal {
	bought := a.TotalBought()
	if bought.IsZero() {
		return decimal.Zero
	}
	return a.TotalSpent().Div(bought)
}

// RecordPurchase appends a fill to the purchase log and recomputes the buy
// trigger for the next installment using the given drop percentage. Returns
// os.ErrClosed for an exited asset; exited assets are frozen.
func (a *AssetState) RecordPurchase(p Purchase, dropPct decimal.Decimal) error {
	if a.Exited {
		return fmt.Errorf("asset has exited: %w", os.ErrClosed)
	}
	a.Purchased = append(a.Purchased, p)

	last := p.FillPrice
	next := last.Mul(decimal.NewFromInt(100).Sub(dropPct)).Div(decimal.NewFromInt(100))
	a.LastBuyPrice = &last
	a.NextBuyPrice = &next

	if a.InstallmentsRemaining() == 0 {
		a.Completed = true
	}
	return nil
}

// RecordSale appends a fill to the sale log. The exited flag marks the asset
// as terminally liquidated; no further buys or sells are permitted once set.
func (a *AssetState) RecordSale(s Sale, exited bool) error {
	if a.Exited {
		return fmt.Errorf("asset has exited: %w", os.ErrClosed)
	}
	a.Sold = append(a.Sold, s)
	if exited {
		a.Exited = true
	}
	return nil
}
