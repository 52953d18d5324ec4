// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pamt/dropbot/config"
	"github.com/pamt/dropbot/dropbuy"
	"github.com/pamt/dropbot/subcmds/cmdutil"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

type Alloc struct {
	cmdutil.DirFlags

	envFile string

	balance float64
}

func (c *Alloc) Purpose() string {
	return "Alloc previews per-asset budgets for a balance"
}

func (c *Alloc) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("alloc", flag.ContinueOnError)
	c.DirFlags.SetFlags(fset)
	fset.StringVar(&c.envFile, "env-file", "", "path to the env file with bot settings")
	fset.Float64Var(&c.balance, "balance", 0, "account KRW balance to divide")
	return "alloc", fset, cli.CmdFunc(c.run)
}

func (c *Alloc) Description() string {
	return `

Command "alloc" shows how the configured allocation weights divide a KRW
balance into per-asset budgets and installment amounts, without placing any
orders. Use it to sanity-check ALLOCATIONS and INSTALLMENTS values before a
run:

  $ dropbot alloc --balance=1000000 --env-file=bot.env

`
}

func (c *Alloc) run(ctx context.Context, args []string) error {
	cfg, err := config.Load(c.envFile)
	if err != nil {
		return err
	}
	if c.balance <= 0 {
		return fmt.Errorf("--balance flag must be positive")
	}

	balance := decimal.NewFromFloat(c.balance)
	total := cfg.TotalInvest(balance)
	allocs, err := dropbuy.Allocations(total, cfg.Coins, cfg.Weights)
	if err != nil {
		return err
	}

	fmt.Printf("balance %s KRW, committing %s KRW in %d installments per asset\n\n",
		balance, total, cfg.Installments)

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tBUDGET\tINSTALLMENT\tDROP%")
	for _, coin := range cfg.Coins {
		budget := allocs[coin]
		one := budget.Div(decimal.NewFromInt(int64(cfg.Installments)))
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			coin, budget.Round(0), one.Round(0), cfg.DropPctFor(coin))
		if one.LessThan(cfg.MinKRWOrder) {
			fmt.Fprintf(tw, "\t(installment below %s KRW minimum)\t\t\n", cfg.MinKRWOrder)
		}
	}
	return tw.Flush()
}
