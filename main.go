// Copyright (c) 2025 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/pamt/dropbot/subcmds"
	"github.com/pamt/dropbot/subcmds/db"
	ledgercmds "github.com/pamt/dropbot/subcmds/ledger"
	"github.com/pamt/dropbot/subcmds/setup"
	"github.com/visvasity/cli"
)

func main() {
	dbCmds := []cli.Command{
		new(db.Get),
		new(db.List),
	}

	ledgerCmds := []cli.Command{
		new(ledgercmds.Show),
		new(ledgercmds.Clear),
	}

	setupCmds := []cli.Command{
		new(setup.Upbit),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Status),
		new(subcmds.Alloc),
		cli.NewGroup("ledger", "View/edit the purchases file", ledgerCmds...),
		cli.NewGroup("db", "View the price/trade history database", dbCmds...),
		cli.NewGroup("setup", "Configure exchange api keys", setupCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
