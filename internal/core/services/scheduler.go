package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Ensure Poller implements the interfaces.
var (
	_ driving.Scheduler        = (*Poller)(nil)
	_ driving.UserSynchronizer = (*Poller)(nil)
)

// Poller fires the user sync across all known users on a fixed delay.
// Cycles never overlap: the next one is scheduled only after the previous
// returns.
type Poller struct {
	config domain.PollingConfig
	users  driven.UserStore
	syncer driving.UserSynchronizer
	sink   driven.EventSink
	states driven.SyncStateStore
	cycles driven.CycleStore

	counter atomic.Int64

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPoller creates a poller.
// The states and cycles stores are optional; without them expired state is
// not purged and cycle history is not recorded.
func NewPoller(
	config domain.PollingConfig,
	users driven.UserStore,
	syncer driving.UserSynchronizer,
	sink driven.EventSink,
	states driven.SyncStateStore,
	cycles driven.CycleStore,
) *Poller {
	config.Interval = domain.ClampPollingInterval(config.Interval)
	if config.InitialDelay < 0 {
		config.InitialDelay = 0
	}
	return &Poller{
		config: config,
		users:  users,
		syncer: syncer,
		sink:   sink,
		states: states,
		cycles: cycles,
	}
}

// Cycles returns the number of cycles started so far.
func (p *Poller) Cycles() int64 {
	return p.counter.Load()
}

// Start waits the initial delay, then runs cycles until the context is
// cancelled or Stop is called. Returns immediately if polling is disabled.
func (p *Poller) Start(ctx context.Context) error {
	if !p.config.Enabled {
		logger.Info("polling disabled")
		return nil
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil // Already running
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.wg.Add(1)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.running && p.stopCh == stopCh {
			p.running = false
			close(stopCh)
		}
		p.mu.Unlock()
		p.wg.Done()
	}()

	logger.Info("polling every %s, first cycle in %s", p.config.Interval, p.config.InitialDelay)

	delay := p.config.InitialDelay
	for {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-stopCh:
			timer.Stop()
			return nil
		case <-timer.C:
		}

		p.RunCycle(ctx)
		delay = p.config.Interval
	}
}

// Stop ends polling after the current cycle completes.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// RunCycle runs one pass over all users. Failures are recovered at the
// lowest level: record, then user, then the cycle itself.
func (p *Poller) RunCycle(ctx context.Context) (result domain.CycleResult) {
	n := p.counter.Add(1)
	log := logger.With("sync", n)
	ctx = logger.NewContext(ctx, log)

	result = domain.CycleResult{Cycle: n, StartedAt: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Sprintf("panic: %v", r)
			log.Error("cycle aborted: %v", r)
		}
		result.EndedAt = time.Now()
		p.finishCycle(ctx, &result)
	}()

	userIDs, err := p.users.List(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("list users: %v", err)
		log.Error("list users: %v", err)
		return result
	}

	log.Info("cycle started, %d users", len(userIDs))

	for i, userID := range userIDs {
		userCtx := logger.NewContext(ctx, log.With("user", i))
		result.Users++

		records, err := p.syncUser(userCtx, userID)
		if err != nil {
			result.Failures++
			logger.FromContext(userCtx).Warn("sync %s: %v", userID, err)
		}

		delivered, failed := p.dispatchAll(userCtx, userID, records)
		result.Records += delivered
		result.Failures += failed
	}

	log.Info("cycle finished: users=%d records=%d failures=%d", result.Users, result.Records, result.Failures)
	return result
}

// SyncUser syncs one user outside the polling loop and hands the records to
// the sink the same way a cycle does, so an on-demand sync never advances
// cursors past changes the sink has not seen. The records are returned for
// display; records dispatched despite a sync error are still returned.
func (p *Poller) SyncUser(ctx context.Context, userID string) ([]domain.ChangeRecord, error) {
	ctx = logger.NewContext(ctx, logger.FromContext(ctx).With("sync", "manual"))

	records, syncErr := p.syncUser(ctx, userID)

	var dispatchErr error
	if _, failed := p.dispatchAll(ctx, userID, records); failed > 0 {
		dispatchErr = fmt.Errorf("dispatch: %d of %d records failed", failed, len(records))
	}
	return records, errors.Join(syncErr, dispatchErr)
}

// dispatchAll hands every record to the sink. A failing record never stops
// the others.
func (p *Poller) dispatchAll(ctx context.Context, userID string, records []domain.ChangeRecord) (delivered, failed int) {
	for j, rec := range records {
		eventCtx := logger.NewContext(ctx, logger.FromContext(ctx).With("n_event", j))
		if err := p.dispatch(eventCtx, rec, userID); err != nil {
			failed++
			logger.FromContext(eventCtx).Warn("dispatch %s %s: %v", rec.Kind.EventKind(), rec.ItemID, err)
			continue
		}
		delivered++
	}
	return delivered, failed
}

// syncUser runs the user sync, converting a panic into an error.
func (p *Poller) syncUser(ctx context.Context, userID string) (records []domain.ChangeRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.syncer.SyncUser(ctx, userID)
}

// dispatch hands one record to the sink, converting a panic into an error.
func (p *Poller) dispatch(ctx context.Context, rec domain.ChangeRecord, userID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.sink.Dispatch(ctx, rec.Kind.EventKind(), rec, userID)
}

// finishCycle runs the housekeeping that follows every cycle.
func (p *Poller) finishCycle(ctx context.Context, result *domain.CycleResult) {
	log := logger.FromContext(ctx)

	if p.states != nil {
		purged, err := p.states.PurgeExpired(ctx)
		if err != nil {
			log.Warn("purge expired sync state: %v", err)
		} else if purged > 0 {
			log.Info("purged %d expired sync states", purged)
		}
	}

	if p.cycles == nil {
		return
	}
	if err := p.cycles.RecordCycle(ctx, result); err != nil {
		log.Warn("record cycle: %v", err)
	}
	if err := p.cycles.PruneHistory(ctx, domain.DefaultCycleHistory); err != nil {
		log.Warn("prune cycle history: %v", err)
	}
}

// History returns recent cycle results, most recent first.
// Returns nil when no cycle store is configured.
func (p *Poller) History(ctx context.Context, limit int) ([]domain.CycleResult, error) {
	if p.cycles == nil {
		return nil, nil
	}
	results, err := p.cycles.ListCycles(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	return results, nil
}
