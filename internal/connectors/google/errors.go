package google

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// Error reasons Google reports in googleapi.ErrorItem.Reason.
const (
	reasonFullSyncRequired      = "fullSyncRequired"
	reasonRateLimitExceeded     = "rateLimitExceeded"
	reasonUserRateLimitExceeded = "userRateLimitExceeded"
	reasonAuthError             = "authError"
)

// IsCursorInvalid returns true if the error indicates the sync token is no
// longer accepted (410 GONE).
//
// Google signals this with status 410 and reason fullSyncRequired. The
// message check ("sync token") is a best-effort fallback for responses that
// arrive with a different code; provider error text is not a stable contract.
func IsCursorInvalid(err error) bool {
	if errors.Is(err, domain.ErrCursorInvalid) {
		return true
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusGone || hasReason(gerr, reasonFullSyncRequired) {
		return true
	}
	return strings.Contains(strings.ToLower(gerr.Message), "sync token")
}

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	if errors.Is(err, domain.ErrAuthInvalid) {
		return true
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusUnauthorized || hasReason(gerr, reasonAuthError) {
		return true
	}
	msg := strings.ToLower(gerr.Message)
	return strings.Contains(msg, "invalid credentials") || strings.Contains(msg, "autherror")
}

// IsRateLimited returns true if the error indicates rate limiting.
// Google uses 429, and 403 with a rate limit reason.
func IsRateLimited(err error) bool {
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	return gerr.Code == http.StatusForbidden &&
		(hasReason(gerr, reasonRateLimitExceeded) || hasReason(gerr, reasonUserRateLimitExceeded))
}

// IsTransient returns true for server errors and network failures.
func IsTransient(err error) bool {
	if errors.Is(err, domain.ErrTransient) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= http.StatusInternalServerError
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}

// RetryAfter returns the Retry-After delay of a rate limited response,
// or zero if the response did not carry one.
func RetryAfter(err error) time.Duration {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	secs, convErr := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if convErr != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// WrapError classifies a Google API error onto a domain sentinel.
// The original error stays in the chain for errors.As.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case IsCursorInvalid(err):
		return wrap(domain.ErrCursorInvalid, err)
	case IsUnauthorized(err):
		return wrap(domain.ErrAuthInvalid, err)
	case IsRateLimited(err):
		return wrap(domain.ErrRateLimited, err)
	case IsTransient(err):
		return wrap(domain.ErrTransient, err)
	default:
		return err
	}
}

func wrap(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func hasReason(gerr *googleapi.Error, reason string) bool {
	for _, item := range gerr.Errors {
		if item.Reason == reason {
			return true
		}
	}
	return false
}
