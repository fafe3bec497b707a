// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - CalendarProvider: Lists calendars and pages through events
//   - ProviderFactory: Builds a CalendarProvider for one user's credential
//   - UserStore: Per-user configuration (tokens, profile fields)
//   - SyncStateStore: Per-user, per-calendar sync cursors with a TTL
//   - TokenRefresher: Exchanges a refresh token for a new access token
//   - EventSink: Receives change records
//   - DisconnectNotifier: Receives user-disconnected notifications
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - CycleStore: Polling cycle history. Without it, cycles are only logged.
//   - SyncLock: Cross-process per-user lock. Without it, only syncs within
//     one process are serialised.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
