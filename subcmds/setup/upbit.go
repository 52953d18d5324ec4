// Copyright (c) 2025 BVK Chaitanya

// Package setup implements subcommands that store api credentials.
package setup

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pamt/dropbot/subcmds"
	"github.com/pamt/dropbot/subcmds/cmdutil"
	"github.com/pamt/dropbot/upbit"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Upbit struct {
	cmdutil.DirFlags

	skipTesting bool

	key    string
	secret string
}

func (c *Upbit) Purpose() string {
	return "Setup configures Upbit API access parameters"
}

func (c *Upbit) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("upbit", flag.ContinueOnError)
	c.DirFlags.SetFlags(fset)
	fset.StringVar(&c.key, "access-key", "", "Upbit API access key as a string")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "upbit", fset, cli.CmdFunc(c.run)
}

func (c *Upbit) Description() string {
	return `

Command "upbit" helps users configure Upbit exchange API keys.

Upbit API keys are required to query balances and put buy/sell orders on the
Upbit exchange. The secret key is read from the terminal without echo:

  $ dropbot setup upbit --access-key=xxxx

Keys are saved to the secrets.json file under the data directory.

`
}

func (c *Upbit) run(ctx context.Context, args []string) error {
	dataDir, err := c.DataDir()
	if err != nil {
		return err
	}

	if len(c.key) == 0 {
		return fmt.Errorf("--access-key flag is required")
	}
	if len(c.secret) == 0 {
		fmt.Print("Secret key: ")
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("could not read secret key: %w", err)
		}
		c.secret = strings.TrimSpace(string(data))
	}
	if len(c.secret) == 0 {
		return fmt.Errorf("secret key cannot be empty")
	}

	secretsPath := filepath.Join(dataDir, "secrets.json")
	secrets, err := subcmds.SecretsFromFile(secretsPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if secrets == nil {
		secrets = &subcmds.Secrets{}
	}

	secrets.Upbit = &upbit.Credentials{
		AccessKey: c.key,
		SecretKey: c.secret,
	}
	if err := secrets.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		client, err := upbit.New(secrets.Upbit, nil /* opts */)
		if err != nil {
			return err
		}
		defer client.Close()
		balance, err := client.GetBalance(ctx)
		if err != nil {
			return fmt.Errorf("could not verify the api keys: %w", err)
		}
		fmt.Printf("authenticated; available balance is %s KRW\n", balance)
	}

	data, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(secretsPath, data, 0600); err != nil {
		return fmt.Errorf("could not write secrets file %q: %w", secretsPath, err)
	}
	fmt.Printf("saved api keys to %s\n", secretsPath)
	return nil
}
