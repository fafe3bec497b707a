// Package services implements the driving port interfaces.
// Services contain the core sync engine and orchestrate calls to
// driven ports (adapters):
//
//   - CredentialGate: validates and refreshes access credentials
//   - ListFetcher: single-page provider queries in cursor or window mode
//   - SyncController: the per-calendar full/incremental state machine
//   - SyncService: per-user orchestration and cursor persistence
//   - Poller: the fixed-delay polling scheduler
//   - SyncFacade: single-calendar sync in typed and map-shaped forms
//
// Services are pure Go with no CGO or external dependencies.
package services
