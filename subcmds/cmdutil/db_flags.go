// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"flag"
	"fmt"
	"path"
	"path/filepath"

	"github.com/bvkgo/kv"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
)

// DBFlags opens the history database under the data directory.
type DBFlags struct {
	DirFlags

	readOnly bool
}

func (f *DBFlags) SetFlags(fset *flag.FlagSet) {
	f.DirFlags.SetFlags(fset)
	fset.BoolVar(&f.readOnly, "read-only", false, "opens the database in read-only mode")
}

// DBDir returns the history database directory under the data directory.
func (f *DBFlags) DBDir() (string, error) {
	dir, err := f.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "db"), nil
}

// GetDatabase opens the badger-backed history database. The caller must
// invoke the returned closer.
func (f *DBFlags) GetDatabase() (kv.Database, func(), error) {
	dir, err := f.DBDir()
	if err != nil {
		return nil, nil, err
	}
	bopts := badger.DefaultOptions(dir).WithReadOnly(f.readOnly)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open the database at %q: %w", dir, err)
	}
	db := kvbadger.New(bdb, IsGoodKey)
	return db, func() { bdb.Close() }, nil
}

// IsGoodKey restricts database keys to clean absolute paths.
func IsGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}
