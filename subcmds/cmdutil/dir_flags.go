// Copyright (c) 2025 BVK Chaitanya

// Package cmdutil holds flag sets shared by multiple subcommands.
package cmdutil

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// DirFlags resolves the data directory holding the purchases ledger, the
// history database, the secrets file and the lock file.
type DirFlags struct {
	dataDir string
}

func (f *DirFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.dataDir, "data-dir", "", "path to the data directory")
}

// DataDir returns the absolute path of the data directory, creating it when
// missing. Defaults to $HOME/.dropbot.
func (f *DirFlags) DataDir() (string, error) {
	dir := f.dataDir
	if len(dir) == 0 {
		dir = filepath.Join(os.Getenv("HOME"), ".dropbot")
	}
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("could not stat data directory %q: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("could not create data directory %q: %w", dir, err)
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("could not determine data-dir %q absolute path: %w", dir, err)
	}
	return abs, nil
}

// LedgerPath resolves a purchases file path against the data directory.
// Absolute paths are returned unchanged.
func (f *DirFlags) LedgerPath(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir, err := f.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
