package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure UserStore implements the interface.
var _ driven.UserStore = (*UserStore)(nil)

// UserStore is an in-memory implementation of driven.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.UserConfig
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]domain.UserConfig),
	}
}

// Get retrieves a user's configuration.
func (s *UserStore) Get(_ context.Context, userID string) (domain.UserConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cfg.Clone(), nil
}

// Merge writes fields into the user's configuration, creating it if needed.
func (s *UserStore) Merge(_ context.Context, userID string, fields domain.UserConfig) error {
	if userID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.users[userID]
	if !ok {
		cfg = make(domain.UserConfig, len(fields))
		s.users[userID] = cfg
	}
	for k, v := range fields {
		cfg[k] = v
	}
	return nil
}

// Delete removes the user's configuration.
func (s *UserStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.users, userID)
	return nil
}

// List returns all known user IDs, sorted.
func (s *UserStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
