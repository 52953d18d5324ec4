// Copyright (c) 2025 BVK Chaitanya

package db

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"regexp"
	"strings"

	"github.com/bvkgo/kv"
	"github.com/pamt/dropbot/kvutil"
	"github.com/pamt/dropbot/recorder"
	"github.com/pamt/dropbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type List struct {
	cmdutil.DBFlags

	keyRe string

	printValues bool
}

func (c *List) Purpose() string {
	return "Prints keys (and values) in the history database"
}

func (c *List) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	fset.StringVar(&c.keyRe, "key-regexp", "", "regular expression to select keys")
	fset.BoolVar(&c.printValues, "print-values", false, "when true values are printed as JSON")
	return "list", fset, cli.CmdFunc(c.run)
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	var keyRe *regexp.Regexp
	if len(c.keyRe) != 0 {
		re, err := regexp.Compile(c.keyRe)
		if err != nil {
			return fmt.Errorf("could not compile key-regexp value: %w", err)
		}
		keyRe = re
	}

	db, closer, err := c.DBFlags.GetDatabase()
	if err != nil {
		return err
	}
	defer closer()

	print := func(k string, v interface{}) error {
		if keyRe != nil && !keyRe.MatchString(k) {
			return nil
		}
		if !c.printValues {
			fmt.Println(k)
			return nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", k, data)
		return nil
	}

	for _, keyspace := range []string{recorder.PricesKeyspace, recorder.TradesKeyspace} {
		begin, end := kvutil.PathRange(keyspace)
		var err error
		if strings.HasPrefix(keyspace, recorder.PricesKeyspace) {
			err = kvutil.AscendDB(ctx, db, begin, end, func(_ context.Context, _ kv.Reader, k string, v *recorder.PricePoint) error {
				return print(k, v)
			})
		} else {
			err = kvutil.AscendDB(ctx, db, begin, end, func(_ context.Context, _ kv.Reader, k string, v *recorder.TradePoint) error {
				return print(k, v)
			})
		}
		if err != nil {
			return err
		}
	}
	return nil
}
