// Copyright (c) 2025 BVK Chaitanya

// Package ledger implements subcommands that inspect and edit the purchases
// file.
package ledger

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	store "github.com/pamt/dropbot/ledger"
	"github.com/pamt/dropbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Show struct {
	cmdutil.DirFlags

	file string
}

func (c *Show) Purpose() string {
	return "Prints the purchases file content"
}

func (c *Show) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("show", flag.ContinueOnError)
	c.DirFlags.SetFlags(fset)
	fset.StringVar(&c.file, "file", "purchases.json", "name of the purchases file")
	return "show", fset, cli.CmdFunc(c.run)
}

func (c *Show) run(ctx context.Context, args []string) error {
	fpath, err := c.LedgerPath(c.file)
	if err != nil {
		return err
	}
	states, err := store.NewStore(fpath).Load()
	if err != nil {
		return err
	}

	if len(args) != 0 {
		selected := make(map[string]*store.AssetState)
		for _, arg := range args {
			st, ok := states[arg]
			if !ok {
				return fmt.Errorf("no asset %q in %q: %w", arg, fpath, os.ErrNotExist)
			}
			selected[arg] = st
		}
		states = selected
	}

	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", data)
	return nil
}
