// Package file provides the default name-cache store: a single JSON document
// on local disk, written atomically via a sibling temp file and rename.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ramses-exporter/internal/namecache"
)

// Store persists name-cache snapshots to a JSON file.
type Store struct {
	path string
}

// NewStore creates a store for the given file path. The file does not need
// to exist yet.
func NewStore(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

// Load reads the snapshot from disk. A missing file yields an empty
// snapshot; malformed JSON is an error the caller downgrades to a warning.
func (s *Store) Load() (*namecache.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptySnapshot(), nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	snap := emptySnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to parse cache file %s: %w", s.path, err)
	}
	if snap.Zones == nil {
		snap.Zones = make(map[string]namecache.Entry)
	}
	if snap.Devices == nil {
		snap.Devices = make(map[string]namecache.Entry)
	}
	return snap, nil
}

// Save writes the snapshot to a temp file in the same directory and renames
// it over the destination. Rename is atomic on POSIX filesystems, so the
// on-disk file is always a complete snapshot even if the process is killed
// mid-save.
func (s *Store) Save(snap *namecache.Snapshot) error {
	if snap.LastUpdated == "" {
		snap.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		// Leave no stray temp file behind on a failed rename.
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

func emptySnapshot() *namecache.Snapshot {
	return &namecache.Snapshot{
		Zones:   make(map[string]namecache.Entry),
		Devices: make(map[string]namecache.Entry),
	}
}
