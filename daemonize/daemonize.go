// Copyright (c) 2025 BVK Chaitanya

// Package daemonize turns a shell-invoked process into a background daemon
// by respawning it detached from the terminal.
package daemonize

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"log/syslog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pamt/dropbot/ctxutil"
	"golang.org/x/sys/unix"
)

// DaemonizeEnvKey marks the respawned child process. We expect this
// environment variable to be unique and unset in the invoking shell. When
// set, its value holds the parent pid.
var DaemonizeEnvKey = "DROPBOT_DAEMONIZE"

// Daemonize respawns the current program in the background with the same
// command-line arguments. It must run early during startup, before the
// lockfile is taken or the database is opened.
//
// Standard input and outputs of the background process are replaced with
// /dev/null and the standard library log is redirected to syslog.
//
// The parent process polls the check function until the background process
// reports healthy or dies; check typically verifies the pidfile refers to a
// live new instance. On success Daemonize exits the parent and returns nil
// in the background process. On failure it returns a non-nil error to the
// parent and exits the background process.
func Daemonize(ctx context.Context, check func(context.Context) error) error {
	if v := os.Getenv(DaemonizeEnvKey); len(v) == 0 {
		if err := respawn(ctx, check); err != nil {
			return err
		}
		os.Exit(0)
	}
	if err := detach(); err != nil {
		os.Exit(1)
	}
	return nil
}

func respawn(ctx context.Context, check func(context.Context) error) error {
	binary, err := exec.LookPath(os.Args[0])
	if err != nil {
		return fmt.Errorf("failed to lookup binary: %w", err)
	}
	binaryPath, err := filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for binary: %w", err)
	}

	file, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open /dev/null: %w", err)
	}

	// Receive a signal when the child process dies.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGCHLD, os.Interrupt)
	defer stop()

	attr := &os.ProcAttr{
		Dir:   "/",
		Env:   append(os.Environ(), fmt.Sprintf("%s=%d", DaemonizeEnvKey, os.Getpid())),
		Files: []*os.File{file, file, file},
	}
	if _, err := os.StartProcess(binaryPath, os.Args, attr); err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}

	if check != nil {
		time.Sleep(time.Second)
		checkf := func() error {
			if err := check(ctx); err != nil {
				slog.WarnContext(ctx, "daemon process not yet initialized", "error", err)
				return err
			}
			return nil
		}
		if err := ctxutil.Retry(ctx, time.Second, checkf); err != nil {
			return fmt.Errorf("could not initialize the background process: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("could not initialize the background process: %w", err)
	}
	return nil
}

func detach() error {
	syslogger, err := syslog.New(syslog.LOG_INFO, "dropbot")
	if err != nil {
		return fmt.Errorf("could not create syslog: %w", err)
	}
	log.SetOutput(syslogger)

	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("could not set session id: %w", err)
	}
	return nil
}
