package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Ensure SyncService implements the interface.
var _ driving.UserSynchronizer = (*SyncService)(nil)

// SyncService iterates a user's calendars, drives the controller per
// calendar and persists the resulting cursors.
//
// A single mutex serialises SyncUser, so scheduled and on-demand syncs
// never race on the same cursor state. When a SyncLock is set, the user's
// cross-process lock is held as well.
type SyncService struct {
	gate       *CredentialGate
	providers  driven.ProviderFactory
	states     driven.SyncStateStore
	controller *SyncController
	config     FetcherConfig
	stateTTL   time.Duration
	now        func() time.Time
	locks      driven.SyncLock

	mu sync.Mutex
}

// NewSyncService creates a user sync orchestrator.
func NewSyncService(
	gate *CredentialGate,
	providers driven.ProviderFactory,
	states driven.SyncStateStore,
	controller *SyncController,
	config FetcherConfig,
) *SyncService {
	if controller == nil {
		controller = NewSyncController()
	}
	return &SyncService{
		gate:       gate,
		providers:  providers,
		states:     states,
		controller: controller,
		config:     config,
		stateTTL:   domain.DefaultStateTTL,
		now:        time.Now,
	}
}

// SetStateTTL overrides the time-to-live written with each saved state.
func (s *SyncService) SetStateTTL(ttl time.Duration) {
	if ttl > 0 {
		s.stateTTL = ttl
	}
}

// SetSyncLock sets the cross-process lock taken for every user operation.
func (s *SyncService) SetSyncLock(lock driven.SyncLock) {
	s.locks = lock
}

// WithUserLock runs fn while holding the sync mutex and, when configured, the
// user's cross-process lock. Every access to a user's sync state goes
// through here.
func (s *SyncService) WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locks != nil {
		release, err := s.locks.Acquire(ctx, userID)
		if err != nil {
			return fmt.Errorf("acquire sync lock for %s: %w", userID, err)
		}
		defer release()
	}

	return fn(ctx)
}

// SyncUser runs one sync for every calendar of the user.
//
// Change records are returned grouped by calendar in listing order. A
// calendar's failure never aborts the others, except an authentication
// failure, which skips the user's remaining calendars. State is saved
// even when some calendars failed.
func (s *SyncService) SyncUser(ctx context.Context, userID string) ([]domain.ChangeRecord, error) {
	var records []domain.ChangeRecord
	err := s.WithUserLock(ctx, userID, func(ctx context.Context) error {
		var err error
		records, err = s.syncUser(ctx, userID)
		return err
	})
	return records, err
}

//nolint:gocyclo // Orchestration function with necessary sequential steps
func (s *SyncService) syncUser(ctx context.Context, userID string) ([]domain.ChangeRecord, error) {
	log := logger.FromContext(ctx).With("uid", userID)
	ctx = logger.NewContext(ctx, log)

	// 1. Credential gate
	cred, err := s.gate.EnsureValidCredential(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("credential: %w", err)
	}

	provider, err := s.providers.ForUser(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	// 2. Current calendar list
	calendars, err := provider.ListCalendars(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrAuthInvalid) {
			if authErr := s.gate.HandleAuthFailure(ctx, userID); authErr != nil {
				log.Warn("auth failure handling: %v", authErr)
			}
		}
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	if len(calendars) == 0 {
		log.Info("no calendars")
		return nil, nil
	}

	// 3. Stored cursors, re-read every cycle
	previous, err := s.states.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}

	fetcher := NewListFetcher(provider, s.config, func(ctx context.Context) error {
		return s.gate.HandleAuthFailure(ctx, userID)
	})

	next := domain.NewUserSyncState(userID)
	next.ExpiresAfter = s.stateTTL

	var records []domain.ChangeRecord
	var authErr error

	for i, cal := range calendars {
		cursor := previous.Cursor(cal.ID)

		if authErr != nil {
			carryCursor(next, cal.ID, cursor)
			continue
		}

		// 4. Controller per calendar
		result := s.controller.Run(ctx, fetcher, cal.ID, cursor)

		if result.OK() {
			records = append(records, result.Changes...)
			newCursor := result.NewCursor
			if newCursor == "" {
				newCursor = cursor
			}
			carryCursor(next, cal.ID, newCursor)
			log.Debug("calendar %d/%d %s: %d changes", i+1, len(calendars), cal.ID, len(result.Changes))
			continue
		}

		// Previous cursor stays so the next cycle retries from the same point.
		carryCursor(next, cal.ID, cursor)

		if result.Outcome == domain.OutcomeFatalError {
			log.Error("calendar %s: %s: %v", cal.ID, result.Outcome, result.Err)
		} else {
			log.Warn("calendar %s: %s: %v", cal.ID, result.Outcome, result.Err)
		}

		if errors.Is(result.Err, domain.ErrAuthInvalid) || errors.Is(result.Err, domain.ErrDisconnected) {
			authErr = result.Err
			log.Warn("skipping remaining calendars after auth failure")
		}
	}

	// 5. Persist partial progress
	next.LastSync = s.now()
	if err := s.states.Save(ctx, next); err != nil {
		return records, fmt.Errorf("save sync state: %w", err)
	}

	log.Info("synced %d calendars, %d changes", len(calendars), len(records))

	if authErr != nil {
		return records, fmt.Errorf("sync stopped: %w", authErr)
	}
	return records, nil
}

// SyncCalendar runs the controller for a single calendar under the same lock
// as SyncUser, starting from an explicit cursor. Stored state is untouched.
func (s *SyncService) SyncCalendar(ctx context.Context, userID, calendarID, cursor string) (*domain.CalendarSyncResult, error) {
	var result *domain.CalendarSyncResult
	err := s.WithUserLock(ctx, userID, func(ctx context.Context) error {
		var err error
		result, err = s.syncCalendar(ctx, userID, calendarID, cursor)
		return err
	})
	return result, err
}

func (s *SyncService) syncCalendar(ctx context.Context, userID, calendarID, cursor string) (*domain.CalendarSyncResult, error) {
	ctx = logger.NewContext(ctx, logger.FromContext(ctx).With("uid", userID))

	cred, err := s.gate.EnsureValidCredential(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("credential: %w", err)
	}

	provider, err := s.providers.ForUser(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	fetcher := NewListFetcher(provider, s.config, func(ctx context.Context) error {
		return s.gate.HandleAuthFailure(ctx, userID)
	})

	result := s.controller.Run(ctx, fetcher, calendarID, cursor)
	return &result, nil
}

func carryCursor(state *domain.UserSyncState, calendarID, cursor string) {
	if cursor != "" {
		state.CalendarCursors[calendarID] = cursor
	}
}
