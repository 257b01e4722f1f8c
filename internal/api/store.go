package api

import (
	"sync"
	"time"

	"github.com/rflorenc/foreman-inventory/internal/inventory"
)

// InventoryStore provides thread-safe storage for the latest built
// inventory. Refresh jobs swap a new one in; handlers read whatever is
// current.
type InventoryStore struct {
	mu      sync.RWMutex
	inv     *inventory.Inventory
	builtAt time.Time
	jobID   string
}

func NewInventoryStore() *InventoryStore {
	return &InventoryStore{}
}

// Set replaces the stored inventory. jobID names the refresh job that built
// it; a cache preload passes "".
func (s *InventoryStore) Set(inv *inventory.Inventory, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inv = inv
	s.builtAt = time.Now()
	s.jobID = jobID
}

// Get returns the current inventory, or nil before the first load.
func (s *InventoryStore) Get() *inventory.Inventory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inv
}

// Info reports when the current inventory was stored and by which job.
func (s *InventoryStore) Info() (builtAt time.Time, jobID string, loaded bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.builtAt, s.jobID, s.inv != nil
}
