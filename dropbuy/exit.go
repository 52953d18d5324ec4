// Copyright (c) 2025 BVK Chaitanya

package dropbuy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ExitPolicy holds the profit-target liquidation parameters. A nil target is
// not configured; when both targets are set either one firing is sufficient.
type ExitPolicy struct {
	TargetPct *decimal.Decimal
	TargetKRW *decimal.Decimal

	// SellFraction in (0, 1] is the fraction of current holdings liquidated
	// when the exit fires.
	SellFraction decimal.Decimal

	// MinOrder is the exchange's minimum order value in KRW. Holdings whose
	// remaining value falls below it after a partial sale are treated as dust
	// and the asset is marked exited.
	MinOrder decimal.Decimal
}

func (p *ExitPolicy) Check() error {
	one := decimal.NewFromInt(1)
	if p.SellFraction.LessThanOrEqual(decimal.Zero) || p.SellFraction.GreaterThan(one) {
		return fmt.Errorf("sell fraction %s must be in (0, 1]", p.SellFraction)
	}
	return nil
}

// Configured reports whether any profit target is set; without one the exit
// engine never fires.
func (p *ExitPolicy) Configured() bool {
	return p.TargetPct != nil || p.TargetKRW != nil
}

// Profit is the unrealized position snapshot for one asset at a price.
type Profit struct {
	Held    decimal.Decimal
	AvgCost decimal.Decimal
	Price   decimal.Decimal

	KRW decimal.Decimal
	Pct decimal.Decimal
}

// Unrealized computes the asset's profit snapshot at the given price. The
// average cost comes from the full purchase log; quantities already sold are
// excluded from the held amount but do not change the average cost of what
// remains.
func (a *Asset) Unrealized(price decimal.Decimal) *Profit {
	held := a.state.Held()
	avg := a.state.AvgCost()

	v := &Profit{Held: held, AvgCost: avg, Price: price}
	if held.IsZero() || avg.IsZero() {
		return v
	}
	diff := price.Sub(avg)
	v.KRW = diff.Mul(held)
	v.Pct = diff.Div(avg).Mul(decimal.NewFromInt(100))
	return v
}

// Evaluate decides whether the exit fires for the asset at the given price
// and returns the quantity to liquidate. Thresholds are inclusive.
func (p *ExitPolicy) Evaluate(a *Asset, price decimal.Decimal) (decimal.Decimal, *Profit, bool) {
	profit := a.Unrealized(price)
	if a.state.Exited || !p.Configured() {
		return decimal.Zero, profit, false
	}
	if profit.Held.IsZero() || profit.AvgCost.IsZero() {
		return decimal.Zero, profit, false
	}

	fired := false
	if p.TargetPct != nil && profit.Pct.GreaterThanOrEqual(*p.TargetPct) {
		fired = true
	}
	if p.TargetKRW != nil && profit.KRW.GreaterThanOrEqual(*p.TargetKRW) {
		fired = true
	}
	if !fired {
		return decimal.Zero, profit, false
	}
	return profit.Held.Mul(p.SellFraction), profit, true
}

// Terminal reports whether the asset should be frozen after selling the given
// quantity at the given price. A full-fraction sale is always terminal;
// partial sales become terminal once the leftover holding is dust below the
// exchange minimum.
func (p *ExitPolicy) Terminal(a *Asset, soldQuantity, price decimal.Decimal) bool {
	if p.SellFraction.Equal(decimal.NewFromInt(1)) {
		return true
	}
	left := a.state.Held().Sub(soldQuantity)
	if !left.IsPositive() {
		return true
	}
	return left.Mul(price).LessThan(p.MinOrder)
}
