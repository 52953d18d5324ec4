// Copyright (c) 2025 BVK Chaitanya

package ledger

import (
	"context"
	"flag"
	"fmt"
	"os"

	store "github.com/pamt/dropbot/ledger"
	"github.com/pamt/dropbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Clear struct {
	cmdutil.DirFlags

	file string

	force bool
}

func (c *Clear) Purpose() string {
	return "Removes asset entries from the purchases file"
}

func (c *Clear) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("clear", flag.ContinueOnError)
	c.DirFlags.SetFlags(fset)
	fset.StringVar(&c.file, "file", "purchases.json", "name of the purchases file")
	fset.BoolVar(&c.force, "force", false, "required to clear assets that still hold a position")
	return "clear", fset, cli.CmdFunc(c.run)
}

func (c *Clear) Description() string {
	return `

Command "clear" removes the named assets from the purchases file so that they
restart accumulation from scratch on the next run. Assets that still hold
unsold quantity are kept unless --force is given, because clearing them loses
track of coins bought on the exchange.

  $ dropbot ledger clear KRW-BTC

`
}

func (c *Clear) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("needs one or more (asset symbol) arguments")
	}

	fpath, err := c.LedgerPath(c.file)
	if err != nil {
		return err
	}
	s := store.NewStore(fpath)
	states, err := s.Load()
	if err != nil {
		return err
	}

	for _, arg := range args {
		st, ok := states[arg]
		if !ok {
			return fmt.Errorf("no asset %q in %q: %w", arg, fpath, os.ErrNotExist)
		}
		if st.Held().IsPositive() && !st.Exited && !c.force {
			return fmt.Errorf("asset %q still holds %s; use --force to clear anyway", arg, st.Held())
		}
		delete(states, arg)
	}

	if err := s.Save(states); err != nil {
		return err
	}
	fmt.Printf("removed %d asset(s) from %s\n", len(args), fpath)
	return nil
}
