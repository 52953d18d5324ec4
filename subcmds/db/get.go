// Copyright (c) 2025 BVK Chaitanya

// Package db implements subcommands that inspect the history database.
package db

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/pamt/dropbot/kvutil"
	"github.com/pamt/dropbot/recorder"
	"github.com/pamt/dropbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Get struct {
	cmdutil.DBFlags
}

func (c *Get) Purpose() string {
	return "Prints the value of a key in the history database"
}

func (c *Get) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("get", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	return "get", fset, cli.CmdFunc(c.run)
}

func (c *Get) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one (key) argument")
	}
	key := args[0]

	db, closer, err := c.DBFlags.GetDatabase()
	if err != nil {
		return err
	}
	defer closer()

	var value interface{}
	switch {
	case strings.HasPrefix(key, recorder.PricesKeyspace):
		value, err = kvutil.GetDB[recorder.PricePoint](ctx, db, key)
	case strings.HasPrefix(key, recorder.TradesKeyspace):
		value, err = kvutil.GetDB[recorder.TradePoint](ctx, db, key)
	default:
		return fmt.Errorf("key %q is outside the known keyspaces", key)
	}
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", data)
	return nil
}
