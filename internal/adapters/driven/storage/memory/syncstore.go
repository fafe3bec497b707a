package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure SyncStateStore implements the interface.
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

type storedState struct {
	state     domain.UserSyncState
	expiresAt time.Time
}

// SyncStateStore is an in-memory implementation of driven.SyncStateStore.
type SyncStateStore struct {
	mu     sync.RWMutex
	states map[string]storedState
	now    func() time.Time
}

// NewSyncStateStore creates a new in-memory sync state store.
func NewSyncStateStore() *SyncStateStore {
	return &SyncStateStore{
		states: make(map[string]storedState),
		now:    time.Now,
	}
}

// Save stores or replaces a user's sync state, refreshing its TTL.
func (s *SyncStateStore) Save(_ context.Context, state *domain.UserSyncState) error {
	if state == nil || state.UserID == "" {
		return domain.ErrInvalidInput
	}

	ttl := state.ExpiresAfter
	if ttl <= 0 {
		ttl = domain.DefaultStateTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.UserID] = storedState{
		state:     copyState(state),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Load retrieves sync state for a user.
// Returns nil and no error if absent or expired.
func (s *SyncStateStore) Load(_ context.Context, userID string) (*domain.UserSyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.states[userID]
	if !ok || !s.now().Before(stored.expiresAt) {
		return nil, nil
	}
	state := copyState(&stored.state)
	return &state, nil
}

// Delete removes sync state for a user.
func (s *SyncStateStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

// PurgeExpired removes states whose TTL has passed.
func (s *SyncStateStore) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	purged := 0
	for id, stored := range s.states {
		if !now.Before(stored.expiresAt) {
			delete(s.states, id)
			purged++
		}
	}
	return purged, nil
}

func copyState(state *domain.UserSyncState) domain.UserSyncState {
	out := *state
	out.CalendarCursors = make(map[string]string, len(state.CalendarCursors))
	for k, v := range state.CalendarCursors {
		out.CalendarCursors[k] = v
	}
	return out
}
