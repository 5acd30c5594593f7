// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package store provides atomic, mutex-guarded persistence of a club's
// catalog and round-state files. One directory per club holds
// catalog.json and state.json; writes are serialized to a sibling temp
// file in the same directory and then renamed over the target so a
// reader never observes a torn file.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/wingedpig/clubbot/internal/catalog"
	"github.com/wingedpig/clubbot/internal/engineerr"
	"github.com/wingedpig/clubbot/internal/round"
)

const (
	catalogFileName = "catalog.json"
	stateFileName   = "state.json"
)

// ClubStore owns the on-disk files for one club plus an in-memory
// mirror. A single mutex guards both the files and the mirror so that a
// mutation accepted by a command is immediately visible to the next
// inbound message without a re-read from disk.
type ClubStore struct {
	mu  sync.Mutex
	dir string

	catalog *catalog.Catalog
	state   *round.RoundState

	// corrupt is set once a read fails to decode; it makes the store
	// refuse further operations for this club until an operator
	// intervenes; other clubs keep working.
	corrupt error
}

// Open loads (or lazily zero-values) the catalog and round state for the
// club directory dir, creating dir if it does not exist.
func Open(dir string) (*ClubStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create club dir: %w", err)
	}

	s := &ClubStore{dir: dir}

	cat, err := loadCatalog(filepath.Join(dir, catalogFileName))
	if err != nil {
		s.corrupt = err
		return s, err
	}
	s.catalog = cat

	st, err := loadState(filepath.Join(dir, stateFileName))
	if err != nil {
		s.corrupt = err
		return s, err
	}
	s.state = st

	return s, nil
}

// Corrupt reports whether this club's store has refused to load due to
// a decode failure, and the error that caused it.
func (s *ClubStore) Corrupt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corrupt
}

// View runs fn with read access to the in-memory catalog and state
// mirrors, under the club lock. fn must not retain the pointers past
// the call.
func (s *ClubStore) View(fn func(c *catalog.Catalog, st *round.RoundState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.corrupt != nil {
		return s.corrupt
	}
	fn(s.catalog, s.state)
	return nil
}

// Mutate runs fn with write access to the in-memory mirrors under the
// club lock, then persists whichever of catalog/state fn reports it
// changed. Persistence happens before the lock is released, so the
// caller's subsequent (unlocked) outbound sends always follow a
// committed write.
func (s *ClubStore) Mutate(fn func(c *catalog.Catalog, st *round.RoundState) (saveCatalog, saveState bool, err error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.corrupt != nil {
		return s.corrupt
	}

	saveCatalog, saveState, err := fn(s.catalog, s.state)
	if err != nil {
		return err
	}

	if saveCatalog {
		if err := writeAtomic(filepath.Join(s.dir, catalogFileName), s.catalog); err != nil {
			return fmt.Errorf("persist catalog: %w", err)
		}
	}
	if saveState {
		if err := writeAtomic(filepath.Join(s.dir, stateFileName), s.state); err != nil {
			return fmt.Errorf("persist state: %w", err)
		}
	}
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &catalog.Catalog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c catalog.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w: %w", err, engineerr.ErrCorruptState)
	}
	return &c, nil
}

// loadState reads state.json, tolerating a missing file by returning a
// zero RoundState.
func loadState(path string) (*round.RoundState, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return round.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	st := round.NewState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode state: %w: %w", err, engineerr.ErrCorruptState)
	}
	st.EnsureMaps()
	return st, nil
}

// writeAtomic serializes v and writes it via tmp-file-then-rename.
func writeAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create tmp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write tmp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close tmp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename tmp to %s: %w", filepath.Base(path), err)
	}
	return nil
}
