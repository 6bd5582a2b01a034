package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// SnapshotFile is the name of the cache file inside the data directory.
const SnapshotFile = "cache.yaml"

// Store manages the on-disk cache of the remote task store.
type Store struct {
	Root string // e.g., ~/.local/share/taskchain
}

// NewStore creates a Store rooted at the given directory.
// It creates the directory if it doesn't exist.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{Root: root}, nil
}

// SnapshotPath returns the path to the cache file.
func (s *Store) SnapshotPath() string {
	return filepath.Join(s.Root, SnapshotFile)
}

// Load reads the cached snapshot. It returns nil without error when no
// cache exists yet.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.SnapshotPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", SnapshotFile, err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", SnapshotFile, err)
	}
	return &snap, nil
}

// Save writes snap to disk, replacing the previous cache atomically.
func (s *Store) Save(snap *Snapshot) error {
	if snap.Updated.IsZero() {
		snap.Updated = time.Now()
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("serializing snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(s.Root, SnapshotFile+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", SnapshotFile, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", SnapshotFile, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", SnapshotFile, err)
	}
	return os.Rename(tmp.Name(), s.SnapshotPath())
}

// Delete removes the cache. A missing cache is not an error.
func (s *Store) Delete() error {
	err := os.Remove(s.SnapshotPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s: %w", SnapshotFile, err)
	}
	return nil
}
