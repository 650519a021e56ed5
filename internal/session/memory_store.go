package session

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory session store for demo/development.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*State // by user ID
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*State),
	}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	// Registries are immutable, so a shallow copy is enough.
	cp := *st
	return &cp, nil
}

func (m *MemoryStore) Save(_ context.Context, st *State, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[st.UserID]
	switch {
	case !ok && expectedVersion != 0:
		return ErrVersionConflict
	case ok && cur.Version != expectedVersion:
		return ErrVersionConflict
	}

	cp := *st
	m.sessions[st.UserID] = &cp
	return nil
}

func (m *MemoryStore) ListUserIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

var _ Store = (*MemoryStore)(nil)
