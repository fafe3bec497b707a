package google

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRetryAfter is the backoff applied when a rate limited response
// carries no Retry-After header.
const DefaultRetryAfter = 60 * time.Second

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultCalendarRateLimit stays well below Google's per-user quota.
var DefaultCalendarRateLimit = RateLimitConfig{RequestsPerSecond: 5.0, BurstSize: 10}

// RateLimiter provides rate limiting for Google API requests.
// It uses a token bucket algorithm with a backoff window after 429 responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter creates a rate limiter with the given configuration.
// A zero configuration uses DefaultCalendarRateLimit.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 || cfg.BurstSize <= 0 {
		cfg = DefaultCalendarRateLimit
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// During a backoff window it returns immediately with ok=false instead of
// sleeping, since a cycle must not block for the full window.
func (r *RateLimiter) Wait(ctx context.Context) (ok bool, err error) {
	if r.backingOff() {
		return false, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// RecordRateLimitError starts a backoff window.
// Call this when receiving a rate limited response from Google APIs.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	r.retryAt = time.Now().Add(retryAfter)
}

// RetryAt returns the end of the current backoff window, if any.
func (r *RateLimiter) RetryAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAt
}

func (r *RateLimiter) backingOff() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Now().Before(r.retryAt)
}
