// Package domain defines the core business entities for calsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - UserSyncState: Per-user, per-calendar resumption cursors
//   - CalendarSyncResult: The outcome of syncing one calendar in one cycle
//   - ChangeRecord: One upsert or delete of a calendar item
//   - Event: A normalised calendar item
//   - UserConfig / Credential: Stored user fields and the access credential
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
