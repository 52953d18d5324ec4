// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pamt/dropbot/config"
	"github.com/pamt/dropbot/dropbuy"
	"github.com/pamt/dropbot/ledger"
	"github.com/pamt/dropbot/subcmds/cmdutil"
	"github.com/pamt/dropbot/upbit"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

type Status struct {
	cmdutil.DirFlags

	envFile string

	noPrices bool
}

func (c *Status) Purpose() string {
	return "Status prints a summary of all asset positions"
}

func (c *Status) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.DirFlags.SetFlags(fset)
	fset.StringVar(&c.envFile, "env-file", "", "path to the env file with bot settings")
	fset.BoolVar(&c.noPrices, "no-prices", false, "when true current market prices are not fetched")
	return "status", fset, cli.CmdFunc(c.run)
}

func (c *Status) run(ctx context.Context, args []string) error {
	cfg, err := config.Load(c.envFile)
	if err != nil {
		return err
	}

	ledgerPath, err := c.LedgerPath(cfg.PurchasesFile)
	if err != nil {
		return err
	}
	store := ledger.NewStore(ledgerPath)
	states, err := store.Load()
	if err != nil {
		return err
	}

	var symbols []string
	for s := range states {
		symbols = append(symbols, s)
	}
	for _, s := range cfg.Coins {
		if _, ok := states[s]; !ok {
			symbols = append(symbols, s)
		}
	}
	sort.Strings(symbols)

	priceMap := make(map[string]decimal.Decimal)
	if !c.noPrices {
		client, err := upbit.NewPublic(nil /* opts */)
		if err != nil {
			return err
		}
		defer client.Close()
		for _, s := range symbols {
			p, err := client.GetPrice(ctx, s)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not fetch price for %s (ignored): %v\n", s, err)
				continue
			}
			priceMap[s] = p
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tPHASE\tBUYS\tHELD\tAVG-COST\tSPENT\tPRICE\tPROFIT\tPROFIT%")
	for _, s := range symbols {
		st, ok := states[s]
		if !ok {
			st = ledger.NewAssetState(cfg.Installments)
		}
		a, err := dropbuy.NewAsset(s, decimal.Zero, cfg.DropPctFor(s), st)
		if err != nil {
			return err
		}
		buys := fmt.Sprintf("%d/%d", len(st.Purchased), st.InstallmentsTotal)
		price, profit, profitPct := "-", "-", "-"
		if p, ok := priceMap[s]; ok {
			price = p.String()
			if v := a.Unrealized(p); v != nil {
				profit = v.KRW.Round(0).String()
				profitPct = v.Pct.Round(2).String() + "%"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s, a.Phase(), buys, st.Held(), st.AvgCost().Round(2), st.TotalSpent().Round(0), price, profit, profitPct)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Println()
	if err := c.printProcess(); err != nil {
		fmt.Printf("bot process: not running (%v)\n", err)
	}
	return nil
}

// printProcess reports the running bot instance identified by the pid file.
func (c *Status) printProcess() error {
	dataDir, err := c.DataDir()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(dataDir, "dropbot.pid"))
	if err != nil {
		return err
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return err
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	if running, err := p.IsRunning(); err != nil || !running {
		return errors.New("process has exited")
	}
	var uptime time.Duration
	if ms, err := p.CreateTime(); err == nil {
		uptime = time.Since(time.UnixMilli(ms)).Round(time.Second)
	}
	var rss uint64
	if mi, err := p.MemoryInfo(); err == nil {
		rss = mi.RSS
	}
	cpu, _ := p.CPUPercent()
	fmt.Printf("bot process: pid %d up %s cpu %.1f%% rss %d KiB\n", pid, uptime, cpu, rss/1024)
	return nil
}
