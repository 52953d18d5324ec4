// Copyright (c) 2025 BVK Chaitanya

// Package config builds the typed bot configuration from environment
// variables. A .env file in the working directory is honored when present.
// The engine never parses environment values itself; it only sees the
// normalized numeric values produced here.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// ErrConfig indicates invalid or missing required settings. Configuration
// errors are fatal at startup; the process must not begin monitoring.
var ErrConfig = errors.New("invalid configuration")

// Config holds every recognized option. Optional numeric settings use string
// fields so that "unset" is distinguishable from zero; Parse normalizes them.
type Config struct {
	DryRun        bool            `envconfig:"DRY_RUN" default:"true"`
	SimKRWBalance decimal.Decimal `envconfig:"SIM_KRW_BALANCE" default:"100000"`

	Coins        []string        `envconfig:"COINS" default:"KRW-BTC,KRW-ETH,KRW-XRP"`
	Installments int             `envconfig:"INSTALLMENTS" default:"5"`
	MinKRWOrder  decimal.Decimal `envconfig:"MIN_KRW_ORDER" default:"5000"`

	TotalInvestFraction string `envconfig:"TOTAL_INVEST_FRACTION"`
	TotalInvestKRW      string `envconfig:"TOTAL_INVEST_KRW"`

	Allocations    string  `envconfig:"ALLOCATIONS"`
	DropPct        float64 `envconfig:"DROP_PCT" default:"2.0"`
	DropPctPerCoin string  `envconfig:"DROP_PCT_PER_COIN"`
	InitialBuy     bool    `envconfig:"INITIAL_BUY" default:"true"`

	MonitorIntervalMin string `envconfig:"MONITOR_INTERVAL_MIN"`
	MonitorIntervalSec string `envconfig:"MONITOR_INTERVAL_SEC"`

	TargetProfitPct string  `envconfig:"TARGET_PROFIT_PCT"`
	TargetProfitKRW string  `envconfig:"TARGET_PROFIT_KRW"`
	SellFraction    float64 `envconfig:"SELL_FRACTION" default:"1.0"`

	PurchasesFile string `envconfig:"PURCHASES_FILE" default:"purchases.json"`

	// Normalized values produced by Parse.

	// Weights maps symbol to its explicit allocation weight, exactly as
	// written by the operator (percentage or fraction; the allocation engine
	// disambiguates by magnitude).
	Weights map[string]float64

	// DropPcts maps symbol to its drop percentage override.
	DropPcts map[string]float64

	// InvestFraction is used when InvestKRW is nil.
	InvestFraction float64
	InvestKRW      *decimal.Decimal

	ProfitTargetPct *decimal.Decimal
	ProfitTargetKRW *decimal.Decimal

	Interval time.Duration
}

// Load reads the optional env file, populates Config from the environment
// and normalizes/validates it. An empty envFile means "./.env".
func Load(envFile string) (*Config, error) {
	// The env file is optional; production deployments configure through the
	// environment directly.
	if len(envFile) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFile); err != nil {
		return nil, fmt.Errorf("could not load env file %q: %v: %w", envFile, err, ErrConfig)
	}

	c := new(Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("could not process environment: %v: %w", err, ErrConfig)
	}
	if err := c.Parse(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse normalizes the raw settings and validates the combination rules.
func (c *Config) Parse() error {
	if len(c.Coins) == 0 {
		return fmt.Errorf("COINS cannot be empty: %w", ErrConfig)
	}
	if c.Installments <= 0 {
		return fmt.Errorf("INSTALLMENTS must be positive, got %d: %w", c.Installments, ErrConfig)
	}
	if c.MinKRWOrder.IsNegative() {
		return fmt.Errorf("MIN_KRW_ORDER cannot be negative: %w", ErrConfig)
	}
	if c.SellFraction <= 0 || c.SellFraction > 1.0 {
		return fmt.Errorf("SELL_FRACTION must be in (0.0, 1.0], got %v: %w", c.SellFraction, ErrConfig)
	}
	if c.DropPct <= 0 || c.DropPct >= 100 {
		return fmt.Errorf("DROP_PCT must be in (0, 100), got %v: %w", c.DropPct, ErrConfig)
	}

	weights, err := parseSymbolMap(c.Allocations)
	if err != nil {
		return fmt.Errorf("could not parse ALLOCATIONS %q: %v: %w", c.Allocations, err, ErrConfig)
	}
	c.Weights = weights

	drops, err := parseSymbolMap(c.DropPctPerCoin)
	if err != nil {
		return fmt.Errorf("could not parse DROP_PCT_PER_COIN %q: %v: %w", c.DropPctPerCoin, err, ErrConfig)
	}
	c.DropPcts = drops

	if len(c.TotalInvestFraction) != 0 && len(c.TotalInvestKRW) != 0 {
		return fmt.Errorf("TOTAL_INVEST_FRACTION and TOTAL_INVEST_KRW are mutually exclusive: %w", ErrConfig)
	}
	c.InvestFraction = 0.5
	if len(c.TotalInvestFraction) != 0 {
		f, err := strconv.ParseFloat(c.TotalInvestFraction, 64)
		if err != nil || f <= 0 || f > 1.0 {
			return fmt.Errorf("TOTAL_INVEST_FRACTION must be in (0.0, 1.0], got %q: %w", c.TotalInvestFraction, ErrConfig)
		}
		c.InvestFraction = f
	}
	if len(c.TotalInvestKRW) != 0 {
		v, err := decimal.NewFromString(c.TotalInvestKRW)
		if err != nil || !v.IsPositive() {
			return fmt.Errorf("TOTAL_INVEST_KRW must be a positive amount, got %q: %w", c.TotalInvestKRW, ErrConfig)
		}
		c.InvestKRW = &v
	}

	if len(c.MonitorIntervalMin) != 0 && len(c.MonitorIntervalSec) != 0 {
		return fmt.Errorf("MONITOR_INTERVAL_MIN and MONITOR_INTERVAL_SEC are mutually exclusive: %w", ErrConfig)
	}
	c.Interval = 60 * time.Minute
	if len(c.MonitorIntervalMin) != 0 {
		n, err := strconv.Atoi(c.MonitorIntervalMin)
		if err != nil || n <= 0 {
			return fmt.Errorf("MONITOR_INTERVAL_MIN must be a positive integer, got %q: %w", c.MonitorIntervalMin, ErrConfig)
		}
		c.Interval = time.Duration(n) * time.Minute
	}
	if len(c.MonitorIntervalSec) != 0 {
		n, err := strconv.Atoi(c.MonitorIntervalSec)
		if err != nil || n <= 0 {
			return fmt.Errorf("MONITOR_INTERVAL_SEC must be a positive integer, got %q: %w", c.MonitorIntervalSec, ErrConfig)
		}
		c.Interval = time.Duration(n) * time.Second
	}

	if len(c.TargetProfitPct) != 0 {
		v, err := decimal.NewFromString(c.TargetProfitPct)
		if err != nil {
			return fmt.Errorf("TARGET_PROFIT_PCT must be numeric, got %q: %w", c.TargetProfitPct, ErrConfig)
		}
		c.ProfitTargetPct = &v
	}
	if len(c.TargetProfitKRW) != 0 {
		v, err := decimal.NewFromString(c.TargetProfitKRW)
		if err != nil {
			return fmt.Errorf("TARGET_PROFIT_KRW must be numeric, got %q: %w", c.TargetProfitKRW, ErrConfig)
		}
		c.ProfitTargetKRW = &v
	}

	for symbol := range c.Weights {
		if !hasSymbol(c.Coins, symbol) {
			return fmt.Errorf("ALLOCATIONS symbol %q is not in COINS: %w", symbol, ErrConfig)
		}
	}
	for symbol := range c.DropPcts {
		if !hasSymbol(c.Coins, symbol) {
			return fmt.Errorf("DROP_PCT_PER_COIN symbol %q is not in COINS: %w", symbol, ErrConfig)
		}
		if v := c.DropPcts[symbol]; v <= 0 || v >= 100 {
			return fmt.Errorf("drop percentage for %q must be in (0, 100), got %v: %w", symbol, v, ErrConfig)
		}
	}
	return nil
}

// DropPctFor returns the symbol's drop percentage override or the global
// default.
func (c *Config) DropPctFor(symbol string) decimal.Decimal {
	if v, ok := c.DropPcts[symbol]; ok {
		return decimal.NewFromFloat(v)
	}
	return decimal.NewFromFloat(c.DropPct)
}

// TotalInvest resolves the investable capital against the available balance.
// A configured absolute amount wins over the fraction; either way the result
// is capped at the available balance.
func (c *Config) TotalInvest(balance decimal.Decimal) decimal.Decimal {
	invest := balance.Mul(decimal.NewFromFloat(c.InvestFraction))
	if c.InvestKRW != nil {
		invest = *c.InvestKRW
	}
	if invest.GreaterThan(balance) {
		invest = balance
	}
	return invest
}

// parseSymbolMap parses comma-separated "SYMBOL:value" pairs, e.g.
// "KRW-BTC:50,KRW-ETH:30".
func parseSymbolMap(s string) (map[string]float64, error) {
	m := make(map[string]float64)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if len(part) == 0 {
			continue
		}
		symbol, value, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("entry %q is not SYMBOL:value", part)
		}
		symbol = strings.TrimSpace(symbol)
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q has a non-numeric value", part)
		}
		if _, ok := m[symbol]; ok {
			return nil, fmt.Errorf("symbol %q is repeated", symbol)
		}
		m[symbol] = f
	}
	return m, nil
}

func hasSymbol(coins []string, symbol string) bool {
	for _, c := range coins {
		if c == symbol {
			return true
		}
	}
	return false
}
