package cli

import (
	"bytes"
	"context"
	"sort"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// mockSyncer implements driving.UserSynchronizer and driving.CalendarSyncer.
type mockSyncer struct {
	records []domain.ChangeRecord
	err     error
	result  *domain.CalendarSyncResult
	legacy  map[string]any

	userID string
	calID  string
	cursor string
}

func (m *mockSyncer) SyncUser(_ context.Context, userID string) ([]domain.ChangeRecord, error) {
	m.userID = userID
	return m.records, m.err
}

func (m *mockSyncer) CalendarSync(_ context.Context, userID, calendarID, cursor string) (*domain.CalendarSyncResult, error) {
	m.userID, m.calID, m.cursor = userID, calendarID, cursor
	return m.result, m.err
}

func (m *mockSyncer) LegacyEventsSync(_ context.Context, userID, calendarID, queryToken string) map[string]any {
	m.userID, m.calID, m.cursor = userID, calendarID, queryToken
	return m.legacy
}

// mockScheduler implements driving.Scheduler.
type mockScheduler struct {
	result   domain.CycleResult
	history  []domain.CycleResult
	startErr error
	started  bool
}

func (m *mockScheduler) Start(_ context.Context) error {
	m.started = true
	return m.startErr
}

func (m *mockScheduler) Stop() error { return nil }

func (m *mockScheduler) RunCycle(_ context.Context) domain.CycleResult { return m.result }

func (m *mockScheduler) History(_ context.Context, limit int) ([]domain.CycleResult, error) {
	if limit > 0 && len(m.history) > limit {
		return m.history[:limit], nil
	}
	return m.history, nil
}

// mockAccounts implements driving.AccountService.
type mockAccounts struct {
	users  map[string]domain.UserConfig
	states map[string]*domain.UserSyncState

	lastToken domain.Token
	lastExtra map[string]string
}

func newMockAccounts() *mockAccounts {
	return &mockAccounts{
		users:  make(map[string]domain.UserConfig),
		states: make(map[string]*domain.UserSyncState),
	}
}

func (m *mockAccounts) Connect(_ context.Context, userID string, token domain.Token, extra map[string]string) error {
	if token.AccessToken == "" && token.RefreshToken == "" {
		return domain.ErrInvalidInput
	}
	m.lastToken, m.lastExtra = token, extra
	m.users[userID] = token.Fields()
	return nil
}

func (m *mockAccounts) Get(_ context.Context, userID string) (domain.UserConfig, error) {
	config, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return config, nil
}

func (m *mockAccounts) List(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockAccounts) Remove(_ context.Context, userID string) error {
	if _, ok := m.users[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.users, userID)
	delete(m.states, userID)
	return nil
}

func (m *mockAccounts) State(_ context.Context, userID string) (*domain.UserSyncState, error) {
	return m.states[userID], nil
}

func (m *mockAccounts) ResetState(_ context.Context, userID string) error {
	delete(m.states, userID)
	return nil
}

// mockSettings implements driving.SettingsService.
type mockSettings struct {
	settings domain.AppSettings

	enabledSet  *bool
	intervalSet int
	clientID    string
	secret      string
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) SetPollingEnabled(enabled bool) error {
	m.enabledSet = &enabled
	return nil
}

func (m *mockSettings) SetPollingInterval(minutes int) error {
	if minutes < 5 {
		return domain.ErrInvalidInput
	}
	m.intervalSet = minutes
	return nil
}

func (m *mockSettings) SetGoogleClient(clientID, clientSecret string) error {
	m.clientID, m.secret = clientID, clientSecret
	return nil
}

// withServices installs services for one test and restores the previous ones.
func withServices(t *testing.T, s *Services) {
	t.Helper()
	prevSyncer, prevCal, prevSched := userSyncer, calendarSyncer, scheduler
	prevAccounts, prevSettings, prevBuilder := accountService, settingsService, builder

	userSyncer, calendarSyncer, scheduler = nil, nil, nil
	accountService, settingsService, builder = nil, nil, nil
	SetServices(s)

	t.Cleanup(func() {
		userSyncer, calendarSyncer, scheduler = prevSyncer, prevCal, prevSched
		accountService, settingsService, builder = prevAccounts, prevSettings, prevBuilder
		closeFn = nil
	})
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag in the tree to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}
