// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// clearEnv removes every recognized setting from the environment so that the
// developer's own shell exports cannot leak into the assertions. t.Setenv
// registers the restore; the unset makes envconfig fall back to defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DRY_RUN", "SIM_KRW_BALANCE", "COINS", "INSTALLMENTS", "MIN_KRW_ORDER",
		"TOTAL_INVEST_FRACTION", "TOTAL_INVEST_KRW", "ALLOCATIONS", "DROP_PCT",
		"DROP_PCT_PER_COIN", "INITIAL_BUY", "MONITOR_INTERVAL_MIN",
		"MONITOR_INTERVAL_SEC", "TARGET_PROFIT_PCT", "TARGET_PROFIT_KRW",
		"SELL_FRACTION", "PURCHASES_FILE",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if !c.DryRun {
		t.Fatal("want dry-run by default")
	}
	if len(c.Coins) != 3 {
		t.Fatalf("want 3 default coins, got %v", c.Coins)
	}
	if c.Installments != 5 {
		t.Fatalf("want 5 installments, got %d", c.Installments)
	}
	if c.Interval != 60*time.Minute {
		t.Fatalf("want 60m interval, got %s", c.Interval)
	}
	if c.InvestFraction != 0.5 {
		t.Fatalf("want 0.5 invest fraction, got %v", c.InvestFraction)
	}
	if c.ProfitTargetPct != nil || c.ProfitTargetKRW != nil {
		t.Fatal("want no profit targets by default")
	}
	if !c.DropPctFor("KRW-BTC").Equal(decimal.NewFromFloat(2.0)) {
		t.Fatalf("want default drop 2.0, got %s", c.DropPctFor("KRW-BTC"))
	}
}

func TestLoadFullConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRY_RUN", "false")
	t.Setenv("COINS", "KRW-BTC,KRW-ETH,KRW-SOL")
	t.Setenv("ALLOCATIONS", "KRW-BTC:50,KRW-ETH:30,KRW-SOL:20")
	t.Setenv("DROP_PCT_PER_COIN", "KRW-SOL:3.5")
	t.Setenv("TOTAL_INVEST_KRW", "750000")
	t.Setenv("MONITOR_INTERVAL_SEC", "30")
	t.Setenv("TARGET_PROFIT_PCT", "5")
	t.Setenv("TARGET_PROFIT_KRW", "10000")
	t.Setenv("SELL_FRACTION", "0.5")

	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if c.DryRun {
		t.Fatal("want live mode")
	}
	if v := c.Weights["KRW-ETH"]; v != 30 {
		t.Fatalf("want weight 30, got %v", v)
	}
	if c.Interval != 30*time.Second {
		t.Fatalf("want 30s interval, got %s", c.Interval)
	}
	if c.InvestKRW == nil || !c.InvestKRW.Equal(decimal.NewFromInt(750000)) {
		t.Fatalf("want 750000 invest, got %v", c.InvestKRW)
	}
	if c.ProfitTargetPct == nil || !c.ProfitTargetPct.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("want 5%% target, got %v", c.ProfitTargetPct)
	}
	if c.ProfitTargetKRW == nil || !c.ProfitTargetKRW.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("want 10000 KRW target, got %v", c.ProfitTargetKRW)
	}
	if !c.DropPctFor("KRW-SOL").Equal(decimal.NewFromFloat(3.5)) {
		t.Fatalf("want 3.5 drop for KRW-SOL, got %s", c.DropPctFor("KRW-SOL"))
	}
	if !c.DropPctFor("KRW-BTC").Equal(decimal.NewFromFloat(2.0)) {
		t.Fatalf("want default drop for KRW-BTC, got %s", c.DropPctFor("KRW-BTC"))
	}
}

func TestLoadRejectsBothInvestSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOTAL_INVEST_FRACTION", "0.5")
	t.Setenv("TOTAL_INVEST_KRW", "100000")

	if _, err := Load(""); !errors.Is(err, ErrConfig) {
		t.Fatalf("want ErrConfig, got %v", err)
	}
}

func TestLoadRejectsBothIntervals(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONITOR_INTERVAL_MIN", "10")
	t.Setenv("MONITOR_INTERVAL_SEC", "30")

	if _, err := Load(""); !errors.Is(err, ErrConfig) {
		t.Fatalf("want ErrConfig, got %v", err)
	}
}

func TestLoadRejectsUnknownAllocationSymbol(t *testing.T) {
	clearEnv(t)
	t.Setenv("COINS", "KRW-BTC")
	t.Setenv("ALLOCATIONS", "KRW-DOGE:50")

	if _, err := Load(""); !errors.Is(err, ErrConfig) {
		t.Fatalf("want ErrConfig, got %v", err)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	for _, kv := range [][2]string{
		{"INSTALLMENTS", "0"},
		{"SELL_FRACTION", "1.5"},
		{"DROP_PCT", "100"},
		{"TOTAL_INVEST_FRACTION", "2.0"},
		{"MONITOR_INTERVAL_MIN", "-1"},
		{"TARGET_PROFIT_PCT", "abc"},
	} {
		t.Run(kv[0], func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(""); !errors.Is(err, ErrConfig) {
				t.Fatalf("%s=%s: want ErrConfig, got %v", kv[0], kv[1], err)
			}
		})
	}
}

func TestTotalInvest(t *testing.T) {
	clearEnv(t)
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	balance := decimal.NewFromInt(1000000)
	if v := c.TotalInvest(balance); !v.Equal(decimal.NewFromInt(500000)) {
		t.Fatalf("want half the balance, got %s", v)
	}

	// An absolute amount wins but is capped at the balance.
	amount := decimal.NewFromInt(2000000)
	c.InvestKRW = &amount
	if v := c.TotalInvest(balance); !v.Equal(balance) {
		t.Fatalf("want the invest amount capped at balance, got %s", v)
	}
}

func TestParseSymbolMap(t *testing.T) {
	m, err := parseSymbolMap(" KRW-BTC:50, KRW-ETH:0.3 ")
	if err != nil {
		t.Fatal(err)
	}
	if m["KRW-BTC"] != 50 || m["KRW-ETH"] != 0.3 {
		t.Fatalf("unexpected map %v", m)
	}

	if _, err := parseSymbolMap("KRW-BTC=50"); err == nil {
		t.Fatal("want error for a malformed entry")
	}
	if _, err := parseSymbolMap("KRW-BTC:50,KRW-BTC:60"); err == nil {
		t.Fatal("want error for a repeated symbol")
	}
}
