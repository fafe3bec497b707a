package sqlite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Lease settings for the sync lock.
const (
	// DefaultLockLease bounds how long a crashed holder blocks a user.
	DefaultLockLease = 15 * time.Minute

	// DefaultLockRetry is the polling interval while waiting for a lease.
	DefaultLockRetry = 250 * time.Millisecond
)

// syncLock implements driven.SyncLock with lease rows in sync_locks.
// Every acquisition gets its own owner token, so the lock is not
// re-entrant even within one process.
type syncLock struct {
	store *Store
	lease time.Duration
	retry time.Duration
}

var _ driven.SyncLock = (*syncLock)(nil)

// SyncLock returns a cross-process SyncLock backed by this store.
func (s *Store) SyncLock() driven.SyncLock {
	return &syncLock{store: s, lease: DefaultLockLease, retry: DefaultLockRetry}
}

// Acquire waits until the user's lease row is free or expired and takes it.
func (l *syncLock) Acquire(ctx context.Context, userID string) (func(), error) {
	owner := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.tryAcquire(ctx, userID, owner)
		if err != nil {
			return nil, err
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() { l.release(userID, owner) })
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// tryAcquire inserts the lease, or takes over an expired one, in a single
// statement. Zero affected rows means another owner holds a live lease.
func (l *syncLock) tryAcquire(ctx context.Context, userID, owner string) (bool, error) {
	now := l.store.now()
	res, err := l.store.db.ExecContext(ctx, `
		INSERT INTO sync_locks (user_id, owner, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			owner = excluded.owner,
			expires_at = excluded.expires_at
		WHERE sync_locks.expires_at <= ?
	`, userID, owner, now.Add(l.lease).UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("acquiring sync lock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquiring sync lock: %w", err)
	}
	return n == 1, nil
}

// release drops the lease only if this owner still holds it.
func (l *syncLock) release(userID, owner string) {
	_, err := l.store.db.ExecContext(context.Background(),
		"DELETE FROM sync_locks WHERE user_id = ? AND owner = ?", userID, owner)
	if err != nil {
		logger.Warn("releasing sync lock for %s: %v", userID, err)
	}
}
