package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rflorenc/foreman-inventory/internal/inventory"
)

const fileName = "inventory.json"

// Store caches the built inventory as one JSON file so repeated invocations
// (ansible calls --list and --host many times in a row) skip the API.
type Store struct {
	path   string
	maxAge time.Duration
}

// New returns a store rooted at dir. maxAge 0 disables reuse: Load always
// misses, but Save still writes so a later run can opt back in.
func New(dir string, maxAge time.Duration) *Store {
	return &Store{path: filepath.Join(dir, fileName), maxAge: maxAge}
}

// Path returns the cache file location.
func (s *Store) Path() string { return s.path }

// Load returns the cached inventory, or nil when the file is missing, stale
// or unreadable. Cache problems are never fatal, a miss just means refetch.
func (s *Store) Load() *inventory.Inventory {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil
	}
	if s.maxAge <= 0 || time.Since(info.ModTime()) > s.maxAge {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("reading inventory cache")
		return nil
	}
	var inv inventory.Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("discarding corrupt inventory cache")
		return nil
	}
	return &inv
}

// Save writes the inventory atomically: temp file in the same directory,
// then rename over the final path.
func (s *Store) Save(inv *inventory.Inventory) error {
	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding inventory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), fileName+".*")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("setting cache permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}
