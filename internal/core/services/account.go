package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
)

// Ensure AccountService implements the interface.
var _ driving.AccountService = (*AccountService)(nil)

// UserLocker runs fn while no sync of the user is in progress.
// SyncService implements it.
type UserLocker interface {
	WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error
}

// AccountService manages user configurations and their sync state.
type AccountService struct {
	users  driven.UserStore
	states driven.SyncStateStore
	locker UserLocker
}

// NewAccountService creates a new account service.
// Removals and state resets take the locker's user lock; a nil locker is
// only safe when nothing syncs concurrently.
func NewAccountService(users driven.UserStore, states driven.SyncStateStore, locker UserLocker) *AccountService {
	return &AccountService{users: users, states: states, locker: locker}
}

// Connect merges the token fields, plus any extra profile fields, into the
// user's configuration. Token fields win over extra fields of the same name.
func (s *AccountService) Connect(ctx context.Context, userID string, token domain.Token, extra map[string]string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return fmt.Errorf("%w: an access or refresh token is required", domain.ErrInvalidInput)
	}

	fields := make(domain.UserConfig, len(extra)+3)
	for k, v := range extra {
		fields[k] = v
	}
	for k, v := range token.Fields() {
		fields[k] = v
	}
	if token.AccessToken == "" {
		// Refresh-only import keeps any stored access token.
		delete(fields, domain.ConfigKeyToken)
	}

	if err := s.users.Merge(ctx, userID, fields); err != nil {
		return fmt.Errorf("save user %s: %w", userID, err)
	}
	return nil
}

// Get returns the user's configuration.
func (s *AccountService) Get(ctx context.Context, userID string) (domain.UserConfig, error) {
	return s.users.Get(ctx, userID)
}

// List returns all connected user IDs.
func (s *AccountService) List(ctx context.Context) ([]string, error) {
	return s.users.List(ctx)
}

// Remove deletes the user's configuration, then their sync state.
func (s *AccountService) Remove(ctx context.Context, userID string) error {
	return s.withUserLock(ctx, userID, func(ctx context.Context) error {
		if err := s.users.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete user %s: %w", userID, err)
		}
		if err := s.states.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete sync state for %s: %w", userID, err)
		}
		return nil
	})
}

// State returns the user's sync state, or nil if none is stored.
func (s *AccountService) State(ctx context.Context, userID string) (*domain.UserSyncState, error) {
	state, err := s.states.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load sync state for %s: %w", userID, err)
	}
	return state, nil
}

// ResetState discards the user's cursors.
func (s *AccountService) ResetState(ctx context.Context, userID string) error {
	return s.withUserLock(ctx, userID, func(ctx context.Context) error {
		if err := s.states.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete sync state for %s: %w", userID, err)
		}
		return nil
	})
}

func (s *AccountService) withUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithUserLock(ctx, userID, fn)
}
