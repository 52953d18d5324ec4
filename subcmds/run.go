// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
	"github.com/pamt/dropbot/config"
	"github.com/pamt/dropbot/ctxutil"
	"github.com/pamt/dropbot/daemonize"
	"github.com/pamt/dropbot/dropbuy"
	"github.com/pamt/dropbot/exchange"
	"github.com/pamt/dropbot/ledger"
	"github.com/pamt/dropbot/monitor"
	"github.com/pamt/dropbot/recorder"
	"github.com/pamt/dropbot/subcmds/cmdutil"
	"github.com/pamt/dropbot/upbit"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
	"github.com/visvasity/sglog"
)

type Run struct {
	cmdutil.DirFlags

	background bool

	envFile     string
	secretsPath string

	noRecord bool
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.DirFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.StringVar(&c.envFile, "env-file", "", "path to the env file with bot settings")
	fset.StringVar(&c.secretsPath, "secrets-file", "", "path to the api credentials file")
	fset.BoolVar(&c.noRecord, "no-record", false, "when true prices and trades are not saved to the history database")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs the accumulation bot in foreground or background"
}

func (c *Run) Description() string {
	return `

Command "run" starts the bot. Settings are read from the environment,
optionally seeded from an env file, and the purchases ledger is loaded from
the data directory (or the configured path). Interrupted runs resume from
the ledger automatically.

Live trading needs Upbit API keys in a secrets file in JSON format:

    {
        "upbit":{
            "access_key":"111111111",
            "secret_key":"2222222222"
        }
    }

Without credentials use DRY_RUN=true, which trades against a simulated KRW
balance at live market prices.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir, err := c.DataDir()
	if err != nil {
		return err
	}
	// Flag paths become absolute before daemonizing; the background process
	// runs with "/" as its working directory.
	if len(c.envFile) != 0 {
		if c.envFile, err = filepath.Abs(c.envFile); err != nil {
			return fmt.Errorf("could not determine env-file absolute path: %w", err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if c.envFile, err = filepath.Abs(".env"); err != nil {
			return fmt.Errorf("could not determine env-file absolute path: %w", err)
		}
	}
	if len(c.secretsPath) == 0 {
		c.secretsPath = filepath.Join(dataDir, "secrets.json")
	}

	cfg, err := config.Load(c.envFile)
	if err != nil {
		return err
	}

	pidPath := filepath.Join(dataDir, "dropbot.pid")
	if c.background {
		check := func(ctx context.Context) error {
			return checkPidFile(pidPath)
		}
		os.Remove(pidPath)
		if err := daemonize.Daemonize(ctx, check); err != nil {
			return err
		}
	}

	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("could not create log directory %q: %w", logDir, err)
	}
	backend := sglog.NewBackend(&sglog.Options{
		LogDirs: []string{logDir},
	})
	defer backend.Close()
	slog.SetDefault(slog.New(backend.Handler()))

	log.SetFlags(log.Flags() | log.Lmicroseconds)
	log.Printf("using data directory %s and purchases file %s", dataDir, cfg.PurchasesFile)

	lockPath := filepath.Join(dataDir, "dropbot.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		// A previous instance may still be releasing the lock while it shuts
		// down; briefly retry before giving up.
		log.Printf("lock file %q is busy; waiting for the previous instance", lockPath)
		if err := ctxutil.RetryTimeout(ctx, time.Second, 10*time.Second, flock.TryLock); err != nil {
			return fmt.Errorf("could not get lock on file %q (is another instance running?): %w", lockPath, err)
		}
	}
	defer flock.Unlock()

	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		return fmt.Errorf("could not write pid file %q: %w", pidPath, err)
	}
	defer os.Remove(pidPath)

	ledgerPath, err := c.LedgerPath(cfg.PurchasesFile)
	if err != nil {
		return err
	}
	store := ledger.NewStore(ledgerPath)
	states, err := store.Load()
	if err != nil {
		return err
	}

	var market exchange.Market
	if cfg.DryRun {
		client, err := upbit.NewPublic(nil /* opts */)
		if err != nil {
			return err
		}
		defer client.Close()
		client.WatchTickers(cfg.Coins)
		market = exchange.NewSimulator(client, cfg.SimKRWBalance)
		log.Printf("dry-run mode: trading with a simulated balance of %s KRW", cfg.SimKRWBalance)
	} else {
		secrets, err := SecretsFromFile(c.secretsPath)
		if err != nil {
			return fmt.Errorf("could not load secrets file %q: %w", c.secretsPath, err)
		}
		if secrets.Upbit == nil {
			return fmt.Errorf("secrets file %q has no upbit api keys: %w", c.secretsPath, os.ErrInvalid)
		}
		client, err := upbit.New(secrets.Upbit, nil /* opts */)
		if err != nil {
			return err
		}
		defer client.Close()
		client.WatchTickers(cfg.Coins)
		market = client
	}

	balance, err := market.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch account balance: %w", err)
	}
	total := cfg.TotalInvest(balance)
	allocs, err := dropbuy.Allocations(total, cfg.Coins, cfg.Weights)
	if err != nil {
		return err
	}
	log.Printf("balance %s KRW, committing %s KRW across %s", balance, total, strings.Join(cfg.Coins, ","))

	var assets []*dropbuy.Asset
	for _, coin := range cfg.Coins {
		st, ok := states[coin]
		if !ok {
			st = ledger.NewAssetState(cfg.Installments)
			states[coin] = st
		}
		a, err := dropbuy.NewAsset(coin, allocs[coin], cfg.DropPctFor(coin), st)
		if err != nil {
			return err
		}
		assets = append(assets, a)
		slog.Info("prepared asset", "asset", a, "budget", allocs[coin])
	}

	exit := dropbuy.ExitPolicy{
		TargetPct:    cfg.ProfitTargetPct,
		TargetKRW:    cfg.ProfitTargetKRW,
		SellFraction: decimal.NewFromFloat(cfg.SellFraction),
		MinOrder:     cfg.MinKRWOrder,
	}
	mopts := &monitor.Options{
		Interval:   cfg.Interval,
		MinOrder:   cfg.MinKRWOrder,
		InitialBuy: cfg.InitialBuy,
	}
	m, err := monitor.New(market, store, assets, states, exit, mopts)
	if err != nil {
		return err
	}

	if !c.noRecord {
		bopts := badger.DefaultOptions(filepath.Join(dataDir, "db"))
		bdb, err := badger.Open(bopts)
		if err != nil {
			return fmt.Errorf("could not open the history database: %w", err)
		}
		defer bdb.Close()
		m.SetRecorder(recorder.New(kvbadger.New(bdb, cmdutil.IsGoodKey)))
	}

	log.Printf("started dropbot with %d assets at interval %s", len(assets), cfg.Interval)
	if err := m.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("dropbot is shutting down")
			return nil
		}
		return err
	}
	return nil
}

// checkPidFile verifies that the pid file refers to a live dropbot process.
// The parent polls this after respawning to confirm the background instance
// initialized far enough to take the instance lock.
func checkPidFile(pidPath string) error {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return err
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid pid file content: %w", err)
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return fmt.Errorf("no process with pid %d: %w", pid, err)
	}
	if running, err := p.IsRunning(); err != nil || !running {
		return fmt.Errorf("process %d is not running", pid)
	}
	// A freshly started daemon wrote the file moments ago.
	if fi, err := os.Stat(pidPath); err == nil && time.Since(fi.ModTime()) > time.Minute {
		return fmt.Errorf("pid file %q is stale", pidPath)
	}
	return nil
}
