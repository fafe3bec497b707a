package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Authentication Errors.

	// ErrAuthInvalid indicates the provider rejected the access credential.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrAuthRevoked indicates the refresh token was revoked or the grant is invalid.
	// It can never succeed again without the user re-authorising.
	ErrAuthRevoked = errors.New("authentication revoked")

	// ErrTokenRefreshFailed indicates a refresh attempt failed for a reason
	// that may clear up on its own (network, rate limiting, provider outage).
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// ErrDisconnected indicates the user has been disconnected and no further
	// provider calls may be made for them.
	ErrDisconnected = errors.New("user disconnected")

	// Provider Errors.

	// ErrCursorInvalid indicates the provider no longer accepts a sync cursor.
	// The caller should fall back to a full sync.
	ErrCursorInvalid = errors.New("sync cursor invalid, full resync required")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient indicates a failure that is safe to retry on the next cycle
	// (network errors, 5xx responses).
	ErrTransient = errors.New("transient provider error")

	// ErrPageLimit indicates pagination did not finish within the page bound.
	ErrPageLimit = errors.New("page limit reached before final page")
)

// IsTransient reports whether err is worth retrying on the next cycle without
// operator attention.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrPageLimit) ||
		errors.Is(err, ErrTokenRefreshFailed)
}
