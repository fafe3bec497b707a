package calendar

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/calsync/internal/connectors/google"
	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.CalendarProvider = (*Provider)(nil)

// Provider is one user's view of the Google Calendar API.
type Provider struct {
	svc         *calendar.Service
	config      *Config
	rateLimiter *google.RateLimiter
}

// NewProvider creates a provider over an authenticated service.
func NewProvider(svc *calendar.Service, config *Config, rateLimiter *google.RateLimiter) *Provider {
	if config == nil {
		config = DefaultConfig()
	}
	if rateLimiter == nil {
		rateLimiter = google.NewRateLimiter(config.RateLimit)
	}
	return &Provider{
		svc:         svc,
		config:      config,
		rateLimiter: rateLimiter,
	}
}

// ListCalendars walks every page of the user's calendar list.
func (p *Provider) ListCalendars(ctx context.Context) ([]domain.Calendar, error) {
	var calendars []domain.Calendar
	pageToken := ""

	for pages := 0; pages < p.config.MaxCalendarListPages; pages++ {
		if err := p.wait(ctx); err != nil {
			return nil, err
		}

		call := p.svc.CalendarList.List().Context(ctx).MaxResults(p.config.CalendarListPageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, p.handleError(err)
		}

		for _, item := range resp.Items {
			calendars = append(calendars, domain.Calendar{
				ID:      item.Id,
				Summary: item.Summary,
				Primary: item.Primary,
			})
		}

		if strings.TrimSpace(resp.NextPageToken) == "" {
			return calendars, nil
		}
		pageToken = resp.NextPageToken
	}

	return nil, fmt.Errorf("calendar list: %w", domain.ErrPageLimit)
}

// ListEvents fetches one page of events.
// Cursor mode sends syncToken only; window mode sends timeMin/timeMax.
func (p *Provider) ListEvents(ctx context.Context, calendarID string, query domain.EventQuery) (*domain.EventPage, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	call := p.svc.Events.List(calendarID).
		Context(ctx).
		SingleEvents(p.config.SingleEvents)

	if query.PageSize > 0 {
		call = call.MaxResults(int64(query.PageSize))
	}

	if query.IncrementalMode() {
		call = call.SyncToken(query.Cursor)
	} else {
		call = call.ShowDeleted(p.config.ShowDeleted)
		if !query.TimeMin.IsZero() {
			call = call.TimeMin(query.TimeMin.Format(time.RFC3339))
		}
		if !query.TimeMax.IsZero() {
			call = call.TimeMax(query.TimeMax.Format(time.RFC3339))
		}
	}

	if query.PageToken != "" {
		call = call.PageToken(query.PageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, p.handleError(err)
	}

	page := &domain.EventPage{
		Items:         make([]domain.Event, 0, len(resp.Items)),
		NextPageToken: resp.NextPageToken,
		NextCursor:    resp.NextSyncToken,
	}
	for _, item := range resp.Items {
		if item == nil || item.Id == "" {
			continue
		}
		page.Items = append(page.Items, NormaliseEvent(item, calendarID))
	}

	return page, nil
}

func (p *Provider) wait(ctx context.Context) error {
	ok, err := p.rateLimiter.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	if !ok {
		return fmt.Errorf("%w: backing off until %s",
			domain.ErrRateLimited, p.rateLimiter.RetryAt().Format(time.RFC3339))
	}
	return nil
}

func (p *Provider) handleError(err error) error {
	if google.IsRateLimited(err) {
		p.rateLimiter.RecordRateLimitError(google.RetryAfter(err))
	}
	return google.WrapError(err)
}

// Factory builds Providers per user. Rate limiters are kept per user so a
// backoff window outlives a single cycle.
type Factory struct {
	config *Config
	opts   []option.ClientOption

	mu       sync.Mutex
	limiters map[string]*google.RateLimiter
}

// Ensure Factory implements the interface.
var _ driven.ProviderFactory = (*Factory)(nil)

// NewFactory creates a provider factory. Extra client options (endpoint,
// HTTP client) are passed to every service.
func NewFactory(config *Config, opts ...option.ClientOption) *Factory {
	if config == nil {
		config = DefaultConfig()
	}
	return &Factory{
		config:   config,
		opts:     opts,
		limiters: make(map[string]*google.RateLimiter),
	}
}

// ForUser returns a provider authorised with cred.
func (f *Factory) ForUser(ctx context.Context, cred *domain.Credential) (driven.CalendarProvider, error) {
	ts := google.NewTokenSource(ctx, google.NewCredentialTokenProvider(cred))
	svc, err := google.NewCalendarService(ctx, ts, f.opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return NewProvider(svc, f.config, f.limiter(cred.UserID)), nil
}

func (f *Factory) limiter(userID string) *google.RateLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[userID]
	if !ok {
		l = google.NewRateLimiter(f.config.RateLimit)
		f.limiters[userID] = l
	}
	return l
}
