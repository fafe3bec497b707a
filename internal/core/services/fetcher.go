package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Fetcher defaults.
const (
	// DefaultPageSize is the maximum number of events requested per page.
	DefaultPageSize = 2500

	// DefaultLookback is subtracted from now to form the start of a full-sync
	// window, so items starting on the boundary are not missed.
	DefaultLookback = 5 * time.Second
)

// FetcherConfig configures a ListFetcher.
type FetcherConfig struct {
	// PageSize caps events per page. Zero means DefaultPageSize.
	PageSize int

	// Lookback is applied before now for window-mode queries.
	// Zero means DefaultLookback.
	Lookback time.Duration
}

func (c FetcherConfig) withDefaults() FetcherConfig {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Lookback <= 0 {
		c.Lookback = DefaultLookback
	}
	return c
}

// PageFetcher fetches one page of a calendar walk.
// An empty cursor selects window mode.
type PageFetcher interface {
	FetchPage(ctx context.Context, calendarID, cursor, pageToken string) (*domain.EventPage, error)
}

// ListFetcher performs single-page provider queries for one user.
//
// The first authentication error triggers onAuthFailure; later calls fail
// fast with the same error rather than rediscovering it per request.
type ListFetcher struct {
	provider      driven.CalendarProvider
	config        FetcherConfig
	onAuthFailure func(ctx context.Context) error
	now           func() time.Time

	mu          sync.Mutex
	windowStart map[string]time.Time
	authErr     error
}

// Ensure ListFetcher implements PageFetcher.
var _ PageFetcher = (*ListFetcher)(nil)

// NewListFetcher creates a fetcher bound to a user's provider.
// onAuthFailure may be nil.
func NewListFetcher(
	provider driven.CalendarProvider,
	config FetcherConfig,
	onAuthFailure func(ctx context.Context) error,
) *ListFetcher {
	return &ListFetcher{
		provider:      provider,
		config:        config.withDefaults(),
		onAuthFailure: onAuthFailure,
		now:           time.Now,
		windowStart:   make(map[string]time.Time),
	}
}

// FetchPage runs one provider query.
// Cursor mode when cursor is non-empty, window mode otherwise. The window
// start is fixed on the first page of a walk and reused for its later pages.
func (f *ListFetcher) FetchPage(ctx context.Context, calendarID, cursor, pageToken string) (*domain.EventPage, error) {
	f.mu.Lock()
	if f.authErr != nil {
		err := f.authErr
		f.mu.Unlock()
		return nil, err
	}
	query := domain.EventQuery{
		Cursor:    cursor,
		PageToken: pageToken,
		PageSize:  f.config.PageSize,
	}
	if cursor == "" {
		start, ok := f.windowStart[calendarID]
		if pageToken == "" || !ok {
			start = f.now().Add(-f.config.Lookback)
			f.windowStart[calendarID] = start
		}
		query.TimeMin = start
	}
	f.mu.Unlock()

	page, err := f.provider.ListEvents(ctx, calendarID, query)
	if err != nil {
		if errors.Is(err, domain.ErrAuthInvalid) {
			f.handleAuthFailure(ctx, err)
		}
		return nil, fmt.Errorf("list events %s: %w", calendarID, err)
	}

	for i := range page.Items {
		if page.Items[i].CalendarID == "" {
			page.Items[i].CalendarID = calendarID
		}
	}
	return page, nil
}

func (f *ListFetcher) handleAuthFailure(ctx context.Context, err error) {
	f.mu.Lock()
	f.authErr = err
	f.mu.Unlock()

	if f.onAuthFailure == nil {
		return
	}
	if cbErr := f.onAuthFailure(ctx); cbErr != nil {
		logger.FromContext(ctx).Warn("auth failure handling: %v", cbErr)
	}
}
