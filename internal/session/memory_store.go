package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for testing
// and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
	}
}

// Get retrieves a user's session state.
func (s *MemoryStore) Get(_ context.Context, userID string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[userID]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrSessionNotFound
	}

	state := entry.state
	return &state, nil
}

// Save stores a user's session state, resetting its TTL.
func (s *MemoryStore) Save(_ context.Context, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.UpdatedAt = time.Now()
	s.sessions[state.UserID] = memoryEntry{
		state:     *state,
		expiresAt: time.Now().Add(s.ttl),
	}

	return nil
}

// Delete removes a user's session state.
func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}
