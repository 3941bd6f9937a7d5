// Package store provides RestrictionStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/harvestline/allocation-engine/allocation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	sets map[allocation.CustomerID]allocation.RestrictionSet
}

func NewMemory() *Memory {
	return &Memory{
		sets: make(map[allocation.CustomerID]allocation.RestrictionSet),
	}
}

// GetRestrictions returns the stored set, or nil when none exists.
func (m *Memory) GetRestrictions(_ context.Context, customerID allocation.CustomerID) (*allocation.RestrictionSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.sets[customerID]
	if !ok {
		return nil, nil
	}
	return &set, nil
}

// SaveRestrictions replaces the customer's set wholesale. Latest write wins.
func (m *Memory) SaveRestrictions(_ context.Context, set allocation.RestrictionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sets[set.CustomerID] = set
	return nil
}

// DeleteRestrictions removes the customer's set. No-op if absent.
func (m *Memory) DeleteRestrictions(_ context.Context, customerID allocation.CustomerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sets, customerID)
	return nil
}
