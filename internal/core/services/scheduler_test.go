package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/calsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/logger"
)

// mockSynchronizer implements driving.UserSynchronizer for poller testing.
type mockSynchronizer struct {
	mu      sync.Mutex
	records map[string][]domain.ChangeRecord
	errs    map[string]error
	panicOn string
	calls   []string
}

func (m *mockSynchronizer) SyncUser(_ context.Context, userID string) ([]domain.ChangeRecord, error) {
	m.mu.Lock()
	m.calls = append(m.calls, userID)
	m.mu.Unlock()
	if userID == m.panicOn {
		panic("sync exploded")
	}
	return m.records[userID], m.errs[userID]
}

func (m *mockSynchronizer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestUsers(t *testing.T, ids ...string) *memory.UserStore {
	t.Helper()
	users := memory.NewUserStore()
	for _, id := range ids {
		require.NoError(t, users.Merge(context.Background(), id, domain.UserConfig{"token": "t"}))
	}
	return users
}

func record(kind domain.ChangeKind, id string) domain.ChangeRecord {
	return domain.ChangeRecord{Kind: kind, CalendarID: "C1", ItemID: id, Event: domain.Event{ID: id}}
}

func TestNewPoller_ClampsInterval(t *testing.T) {
	p := NewPoller(domain.PollingConfig{Enabled: true, Interval: time.Minute}, nil, nil, nil, nil, nil)
	assert.Equal(t, domain.MinPollingInterval, p.config.Interval)

	p = NewPoller(domain.PollingConfig{Enabled: true}, nil, nil, nil, nil, nil)
	assert.Equal(t, domain.DefaultPollingInterval, p.config.Interval)
}

func TestPoller_RunCycle_DispatchesRecords(t *testing.T) {
	syncer := &mockSynchronizer{records: map[string][]domain.ChangeRecord{
		"U1": {record(domain.ChangeUpserted, "e1"), record(domain.ChangeDeleted, "e2")},
		"U2": {record(domain.ChangeUpserted, "e3")},
	}}
	sink := &mockSink{}
	cycles := memory.NewCycleStore()
	p := NewPoller(domain.DefaultPollingConfig(), newTestUsers(t, "U1", "U2"), syncer, sink, nil, cycles)

	result := p.RunCycle(context.Background())

	assert.Equal(t, int64(1), result.Cycle)
	assert.Equal(t, 2, result.Users)
	assert.Equal(t, 3, result.Records)
	assert.Zero(t, result.Failures)
	assert.True(t, result.Success())

	got := sink.all()
	require.Len(t, got, 3)
	assert.Equal(t, domain.EventKindUpdated, got[0].kind)
	assert.Equal(t, "U1", got[0].userID)
	assert.Equal(t, domain.EventKindDeleted, got[1].kind)
	assert.Equal(t, "U2", got[2].userID)

	history, err := cycles.ListCycles(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 3, history[0].Records)
}

func TestPoller_RunCycle_IsolatesDispatchFailures(t *testing.T) {
	syncer := &mockSynchronizer{records: map[string][]domain.ChangeRecord{
		"U1": {record(domain.ChangeUpserted, "e1"), record(domain.ChangeUpserted, "bad"), record(domain.ChangeUpserted, "e3")},
	}}
	sink := &mockSink{failItem: "bad"}
	p := NewPoller(domain.DefaultPollingConfig(), newTestUsers(t, "U1"), syncer, sink, nil, nil)

	result := p.RunCycle(context.Background())

	assert.Equal(t, 2, result.Records)
	assert.Equal(t, 1, result.Failures)
	assert.Len(t, sink.all(), 2)
}

func TestPoller_RunCycle_RecoversDispatchPanic(t *testing.T) {
	syncer := &mockSynchronizer{records: map[string][]domain.ChangeRecord{
		"U1": {record(domain.ChangeUpserted, "boom"), record(domain.ChangeUpserted, "e2")},
	}}
	sink := &mockSink{panicOn: "boom"}
	p := NewPoller(domain.DefaultPollingConfig(), newTestUsers(t, "U1"), syncer, sink, nil, nil)

	result := p.RunCycle(context.Background())

	assert.Equal(t, 1, result.Records)
	assert.Equal(t, 1, result.Failures)
}

func TestPoller_RunCycle_IsolatesUsers(t *testing.T) {
	syncer := &mockSynchronizer{
		records: map[string][]domain.ChangeRecord{
			"U1": {record(domain.ChangeUpserted, "e1")},
			"U3": {record(domain.ChangeUpserted, "e3")},
		},
		errs:    map[string]error{"U1": errors.New("partial"), "U2": domain.ErrDisconnected},
		panicOn: "U4",
	}
	sink := &mockSink{}
	p := NewPoller(domain.DefaultPollingConfig(), newTestUsers(t, "U1", "U2", "U3", "U4"), syncer, sink, nil, nil)

	result := p.RunCycle(context.Background())

	assert.Equal(t, 4, result.Users)
	assert.Equal(t, 3, result.Failures)
	assert.Equal(t, 2, result.Records, "records returned alongside an error still dispatch")
	assert.True(t, result.Success())
}

func TestPoller_RunCycle_CounterAndLogPrefix(t *testing.T) {
	defer func() {
		logger.SetVerbose(false)
		logger.SetOutput(os.Stderr)
	}()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetVerbose(true)

	syncer := &mockSynchronizer{records: map[string][]domain.ChangeRecord{
		"U1": {record(domain.ChangeUpserted, "bad")},
	}}
	sink := &mockSink{failItem: "bad"}
	p := NewPoller(domain.DefaultPollingConfig(), newTestUsers(t, "U1"), syncer, sink, nil, nil)

	p.RunCycle(context.Background())
	second := p.RunCycle(context.Background())

	assert.Equal(t, int64(2), second.Cycle)
	assert.Equal(t, int64(2), p.Cycles())

	output := buf.String()
	assert.Contains(t, output, "sync=1 user=0 n_event=0")
	assert.Contains(t, output, "sync=2 ")
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		assert.Contains(t, line, "sync=", "every cycle line carries the counter")
	}
}

func TestPoller_RunCycle_PurgesExpiredState(t *testing.T) {
	states := memory.NewSyncStateStore()
	require.NoError(t, states.Save(context.Background(), &domain.UserSyncState{
		UserID:       "gone",
		ExpiresAfter: time.Nanosecond,
	}))
	time.Sleep(time.Millisecond)

	p := NewPoller(domain.DefaultPollingConfig(), newTestUsers(t), &mockSynchronizer{}, &mockSink{}, states, nil)
	p.RunCycle(context.Background())

	purged, err := states.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, purged, "already purged by the cycle")
}

func TestPoller_StartDisabled(t *testing.T) {
	syncer := &mockSynchronizer{}
	p := NewPoller(domain.PollingConfig{Enabled: false}, newTestUsers(t, "U1"), syncer, &mockSink{}, nil, nil)

	err := p.Start(context.Background())

	assert.NoError(t, err)
	assert.Zero(t, syncer.callCount())
}

func TestPoller_StartAndStop(t *testing.T) {
	syncer := &mockSynchronizer{}
	p := NewPoller(domain.PollingConfig{Enabled: true, Interval: time.Hour}, newTestUsers(t, "U1"), syncer, &mockSink{}, nil, nil)

	done := make(chan error, 1)
	go func() { done <- p.Start(context.Background()) }()

	require.Eventually(t, func() bool { return syncer.callCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
	assert.Equal(t, 1, syncer.callCount(), "next cycle waits the full interval")
}

func TestPoller_StartContextCancelled(t *testing.T) {
	p := NewPoller(domain.PollingConfig{Enabled: true, InitialDelay: time.Hour}, newTestUsers(t), &mockSynchronizer{}, &mockSink{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.Cycles())

	// Stop after the loop exited is a no-op.
	assert.NoError(t, p.Stop())
}

func TestPoller_History(t *testing.T) {
	cycles := memory.NewCycleStore()
	syncer := &mockSynchronizer{}
	p := NewPoller(domain.DefaultPollingConfig(), newTestUsers(t, "U1"), syncer, &mockSink{}, nil, cycles)

	p.RunCycle(context.Background())
	p.RunCycle(context.Background())

	history, err := p.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(2), history[0].Cycle)
	assert.Equal(t, 1, history[0].Users)
}

func TestPoller_History_NoStore(t *testing.T) {
	p := NewPoller(domain.DefaultPollingConfig(), nil, nil, nil, nil, nil)

	history, err := p.History(context.Background(), 10)
	assert.NoError(t, err)
	assert.Nil(t, history)
}

func TestPoller_SyncUser_DispatchesBeforeNextCycle(t *testing.T) {
	f := newSyncFixture(t, "C1")
	f.provider.script("C1",
		lastPage("tok1", events("e1", "e2")...),
		lastPage("tok1"),
	)
	sink := &mockSink{}
	p := NewPoller(domain.DefaultPollingConfig(), f.users, f.service, sink, f.states, nil)
	ctx := context.Background()

	records, err := p.SyncUser(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, map[string]string{"C1": "tok1"}, f.storedCursors(t))
	require.Len(t, sink.all(), 2, "an on-demand sync reaches the sink")

	result := p.RunCycle(ctx)
	assert.True(t, result.Success())
	assert.Zero(t, result.Records)

	got := sink.all()
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].record.ItemID)
	assert.Equal(t, "e2", got[1].record.ItemID)
	assert.Equal(t, "U1", got[0].userID)

	calls := f.provider.calls("C1")
	require.Len(t, calls, 2)
	assert.Equal(t, "tok1", calls[1].Cursor)
}

func TestPoller_SyncUser_DispatchFailure(t *testing.T) {
	syncer := &mockSynchronizer{records: map[string][]domain.ChangeRecord{
		"U1": {record(domain.ChangeUpserted, "e1"), record(domain.ChangeUpserted, "bad")},
	}}
	sink := &mockSink{failItem: "bad"}
	p := NewPoller(domain.DefaultPollingConfig(), newTestUsers(t, "U1"), syncer, sink, nil, nil)

	records, err := p.SyncUser(context.Background(), "U1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 records failed")
	assert.Len(t, records, 2)
	assert.Len(t, sink.all(), 1)
}

func TestPoller_SyncUser_DispatchesRecordsDespiteSyncError(t *testing.T) {
	syncer := &mockSynchronizer{
		records: map[string][]domain.ChangeRecord{"U1": {record(domain.ChangeDeleted, "e1")}},
		errs:    map[string]error{"U1": domain.ErrDisconnected},
	}
	sink := &mockSink{}
	p := NewPoller(domain.DefaultPollingConfig(), newTestUsers(t, "U1"), syncer, sink, nil, nil)

	records, err := p.SyncUser(context.Background(), "U1")

	assert.ErrorIs(t, err, domain.ErrDisconnected)
	assert.Len(t, records, 1)
	require.Len(t, sink.all(), 1)
	assert.Equal(t, domain.EventKindDeleted, sink.all()[0].kind)
}

func TestPoller_SyncUser_RecoversPanic(t *testing.T) {
	syncer := &mockSynchronizer{panicOn: "U1"}
	p := NewPoller(domain.DefaultPollingConfig(), newTestUsers(t, "U1"), syncer, &mockSink{}, nil, nil)

	_, err := p.SyncUser(context.Background(), "U1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}
