package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure SyncLock implements the interface.
var _ driven.SyncLock = (*SyncLock)(nil)

// SyncLock is an in-memory implementation of driven.SyncLock.
// Instances sharing one SyncLock behave like processes sharing a store.
type SyncLock struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewSyncLock creates a new in-memory sync lock.
func NewSyncLock() *SyncLock {
	return &SyncLock{held: make(map[string]chan struct{})}
}

// Acquire blocks until the user's lock is free or ctx is done.
func (l *SyncLock) Acquire(ctx context.Context, userID string) (func(), error) {
	for {
		l.mu.Lock()
		busy, ok := l.held[userID]
		if !ok {
			done := make(chan struct{})
			l.held[userID] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, userID)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-busy:
		}
	}
}

// Held reports whether the user's lock is currently taken.
func (l *SyncLock) Held(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[userID]
	return ok
}
