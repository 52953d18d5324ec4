// Copyright (c) 2025 BVK Chaitanya

// Package dropbuy implements the drop-buy accumulation strategy: budget
// allocation across assets, the per-asset installment trigger state machine
// and the profit-target exit evaluation. The package is pure decision logic;
// order placement and persistence belong to the callers.
package dropbuy

import (
	"fmt"

	"github.com/pamt/dropbot/config"
	"github.com/shopspring/decimal"
)

// Allocations computes the per-symbol target budget from the total investable
// capital and the operator supplied weights.
//
// Weights may be expressed as percentages (values summing towards 100) or as
// fractions (summing towards 1.0); any single value greater than one marks
// the whole set as percentages. Assets without an explicit weight split the
// residual weight equally. When the explicit weights overcommit (residual
// below zero) all weights are rescaled proportionally instead of failing.
func Allocations(totalCapital decimal.Decimal, assets []string, weights map[string]float64) (map[string]decimal.Decimal, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("asset list is empty: %w", config.ErrConfig)
	}
	if !totalCapital.IsPositive() {
		return nil, fmt.Errorf("total capital %s must be positive: %w", totalCapital, config.ErrConfig)
	}

	percentages := false
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("negative weight %v: %w", w, config.ErrConfig)
		}
		if w > 1 {
			percentages = true
		}
	}

	explicit := make(map[string]float64, len(weights))
	sum := 0.0
	unweighted := 0
	for _, symbol := range assets {
		w, ok := weights[symbol]
		if !ok {
			unweighted++
			continue
		}
		if percentages {
			w = w / 100
		}
		explicit[symbol] = w
		sum += w
	}

	// Unweighted assets share the residual equally. An overcommitted explicit
	// set leaves nothing for them; proportional rescaling below brings the
	// total back to one.
	implicit := 0.0
	if unweighted > 0 {
		if residual := 1.0 - sum; residual > 0 {
			implicit = residual / float64(unweighted)
		}
	}

	total := sum + implicit*float64(unweighted)
	if total <= 0 {
		return nil, fmt.Errorf("allocation weights sum to zero: %w", config.ErrConfig)
	}

	budgets := make(map[string]decimal.Decimal, len(assets))
	for _, symbol := range assets {
		w, ok := explicit[symbol]
		if !ok {
			w = implicit
		}
		budgets[symbol] = totalCapital.Mul(decimal.NewFromFloat(w / total))
	}
	return budgets, nil
}
