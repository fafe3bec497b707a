package driven

import "context"

// SyncLock serialises access to one user's sync state across every process
// sharing the same stores.
type SyncLock interface {
	// Acquire blocks until the user's lock is held or ctx is done.
	// The returned release function may be called more than once.
	Acquire(ctx context.Context, userID string) (release func(), err error)
}
