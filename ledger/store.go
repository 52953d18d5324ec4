// Copyright (c) 2025 BVK Chaitanya

package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store reads and writes the ledger file. Writes are atomic: state is
// serialized into a temporary file in the same directory and renamed over the
// ledger path so that a crash mid-write never leaves a corrupt document.
//
// The file is exclusively owned by a single bot process; concurrent access
// from multiple processes is unsupported.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the ledger document. A missing file is not an error and yields
// an empty ledger; any other failure wraps ErrLedgerIO.
func (s *Store) Load() (map[string]*AssetState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*AssetState), nil
		}
		return nil, fmt.Errorf("could not read ledger file %q: %w", s.path, ErrLedgerIO)
	}
	states := make(map[string]*AssetState)
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("could not parse ledger file %q: %v: %w", s.path, err, ErrLedgerIO)
	}
	for _, a := range states {
		if a.Purchased == nil {
			a.Purchased = []Purchase{}
		}
		if a.Sold == nil {
			a.Sold = []Sale{}
		}
	}
	return states, nil
}

// Save writes the full ledger document synchronously. Callers invoke this
// after every committed trade decision, never batched.
func (s *Store) Save(states map[string]*AssetState) error {
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal ledger: %v: %w", err, ErrLedgerIO)
	}

	dir := filepath.Dir(s.path)
	fp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary ledger file in %q: %w", dir, ErrLedgerIO)
	}
	tmp := fp.Name()
	defer os.Remove(tmp)

	if _, err := fp.Write(data); err != nil {
		fp.Close()
		return fmt.Errorf("could not write temporary ledger file %q: %w", tmp, ErrLedgerIO)
	}
	if err := fp.Sync(); err != nil {
		fp.Close()
		return fmt.Errorf("could not sync temporary ledger file %q: %w", tmp, ErrLedgerIO)
	}
	if err := fp.Close(); err != nil {
		return fmt.Errorf("could not close temporary ledger file %q: %w", tmp, ErrLedgerIO)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("could not replace ledger file %q: %w", s.path, ErrLedgerIO)
	}
	return nil
}
