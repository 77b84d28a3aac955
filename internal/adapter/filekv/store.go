// Package filekv implements the statestore port as a local JSON snapshot file.
package filekv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/selfai-labs/selfai/internal/port/statestore"
)

// Store persists session snapshots to a single JSON file. Writes go through
// a temp file and rename so a partial write never corrupts the snapshot.
type Store struct {
	path string
}

var _ statestore.Store = (*Store)(nil)

// New creates a file-backed snapshot store at the given path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the current snapshot. A missing file yields (nil, nil).
func (s *Store) Load(_ context.Context) (*statestore.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var snap statestore.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", s.path, err)
	}
	return &snap, nil
}

// Save writes the snapshot atomically. Last write wins.
func (s *Store) Save(_ context.Context, snap statestore.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".selfai-state-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
