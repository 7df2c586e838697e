package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/nathoo/netquest/engine"
	"github.com/nathoo/netquest/engine/state"
	"github.com/nathoo/netquest/types"
)

// MemoryStore keeps player snapshots in process.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*types.PlayerState
}

var (
	_ engine.Persister   = (*MemoryStore)(nil)
	_ engine.StateLoader = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: map[string]*types.PlayerState{}}
}

// Persist stores a copy of the snapshot.
func (m *MemoryStore) Persist(_ context.Context, st *types.PlayerState) error {
	if st == nil || st.PlayerID == "" {
		return fmt.Errorf("persist: player id is required")
	}
	m.mu.Lock()
	m.states[st.PlayerID] = state.Clone(st)
	m.mu.Unlock()
	return nil
}

// LoadState returns a copy of the last snapshot, or (nil, nil).
func (m *MemoryStore) LoadState(_ context.Context, playerID string) (*types.PlayerState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[playerID]
	if !ok {
		return nil, nil
	}
	return state.Clone(st), nil
}

// Delete removes a player's snapshot.
func (m *MemoryStore) Delete(_ context.Context, playerID string) error {
	m.mu.Lock()
	delete(m.states, playerID)
	m.mu.Unlock()
	return nil
}
