package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// --- Mock implementations for sync testing ---

// pageResponse is one scripted provider reply.
type pageResponse struct {
	page *domain.EventPage
	err  error
}

// mockProvider implements driven.CalendarProvider with scripted replies.
// Replies for a calendar are consumed in order; the last one repeats.
type mockProvider struct {
	mu        sync.Mutex
	calendars []domain.Calendar
	listErr   error
	replies   map[string][]pageResponse
	queries   map[string][]domain.EventQuery
	panicOn   string
	block     func()
}

func newMockProvider(calendars ...string) *mockProvider {
	p := &mockProvider{
		replies: make(map[string][]pageResponse),
		queries: make(map[string][]domain.EventQuery),
	}
	for _, id := range calendars {
		p.calendars = append(p.calendars, domain.Calendar{ID: id, Summary: id})
	}
	return p
}

func (m *mockProvider) script(calendarID string, replies ...pageResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[calendarID] = append(m.replies[calendarID], replies...)
}

func (m *mockProvider) ListCalendars(_ context.Context) ([]domain.Calendar, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.calendars, nil
}

func (m *mockProvider) ListEvents(_ context.Context, calendarID string, query domain.EventQuery) (*domain.EventPage, error) {
	if m.block != nil {
		m.block()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicOn == calendarID {
		panic("provider exploded")
	}
	m.queries[calendarID] = append(m.queries[calendarID], query)

	replies := m.replies[calendarID]
	if len(replies) == 0 {
		return &domain.EventPage{}, nil
	}
	reply := replies[0]
	if len(replies) > 1 {
		m.replies[calendarID] = replies[1:]
	}
	return reply.page, reply.err
}

func (m *mockProvider) calls(calendarID string) []domain.EventQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.EventQuery(nil), m.queries[calendarID]...)
}

// mockFactory implements driven.ProviderFactory.
type mockFactory struct {
	mu        sync.Mutex
	providers map[string]*mockProvider
	err       error
	creds     []*domain.Credential
}

func newMockFactory() *mockFactory {
	return &mockFactory{providers: make(map[string]*mockProvider)}
}

func (m *mockFactory) ForUser(_ context.Context, cred *domain.Credential) (driven.CalendarProvider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = append(m.creds, cred)
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.providers[cred.UserID]
	if !ok {
		return nil, fmt.Errorf("no provider for %s", cred.UserID)
	}
	return p, nil
}

// mockRefresher implements driven.TokenRefresher.
type mockRefresher struct {
	mu    sync.Mutex
	token *domain.Token
	err   error
	calls []string
}

func (m *mockRefresher) Refresh(_ context.Context, refreshToken string) (*domain.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, refreshToken)
	if m.err != nil {
		return nil, m.err
	}
	return m.token, nil
}

func (m *mockRefresher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockNotifier implements driven.DisconnectNotifier.
type mockNotifier struct {
	mu    sync.Mutex
	users []string
	err   error
}

func (m *mockNotifier) NotifyDisconnected(_ context.Context, userID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.users = append(m.users, userID)
	return nil
}

func (m *mockNotifier) notified() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.users...)
}

// dispatched is one record received by mockSink.
type dispatched struct {
	kind   string
	record domain.ChangeRecord
	userID string
}

// mockSink implements driven.EventSink.
type mockSink struct {
	mu       sync.Mutex
	received []dispatched
	failItem string
	panicOn  string
}

func (m *mockSink) Dispatch(_ context.Context, kind string, record domain.ChangeRecord, userID string) error {
	if m.panicOn != "" && record.ItemID == m.panicOn {
		panic("sink exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failItem != "" && record.ItemID == m.failItem {
		return errors.New("sink rejected record")
	}
	m.received = append(m.received, dispatched{kind: kind, record: record, userID: userID})
	return nil
}

func (m *mockSink) all() []dispatched {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]dispatched(nil), m.received...)
}

// scriptedFetcher implements PageFetcher for controller tests.
type scriptedFetcher struct {
	replies []pageResponse
	calls   []fetchCall
}

type fetchCall struct {
	cursor    string
	pageToken string
}

func (s *scriptedFetcher) FetchPage(_ context.Context, _, cursor, pageToken string) (*domain.EventPage, error) {
	s.calls = append(s.calls, fetchCall{cursor: cursor, pageToken: pageToken})
	if len(s.replies) == 0 {
		return &domain.EventPage{}, nil
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return reply.page, reply.err
}

// --- helpers ---

func events(ids ...string) []domain.Event {
	out := make([]domain.Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Event{ID: id, Status: "confirmed"})
	}
	return out
}

func lastPage(cursor string, items ...domain.Event) pageResponse {
	return pageResponse{page: &domain.EventPage{Items: items, NextCursor: cursor}}
}

func midPage(next string, items ...domain.Event) pageResponse {
	return pageResponse{page: &domain.EventPage{Items: items, NextPageToken: next}}
}

func failure(err error) pageResponse {
	return pageResponse{err: err}
}
