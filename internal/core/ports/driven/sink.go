package driven

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// EventSink accepts change records. Delivery and ordering downstream are
// the sink's responsibility.
type EventSink interface {
	// Dispatch delivers one change record owned by userID.
	// kind is domain.EventKindUpdated or domain.EventKindDeleted.
	Dispatch(ctx context.Context, kind string, record domain.ChangeRecord, userID string) error
}

// DisconnectNotifier is the sink's companion channel for account events.
type DisconnectNotifier interface {
	// NotifyDisconnected reports that a user must re-authenticate.
	NotifyDisconnected(ctx context.Context, userID, reason string) error
}
