package google

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter_Defaults(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{})
	require.NotNil(t, r)
	assert.Equal(t, DefaultCalendarRateLimit.BurstSize, r.limiter.Burst())
}

func TestRateLimiter_Wait(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 100, BurstSize: 2})

	ok, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_Backoff(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 100, BurstSize: 2})

	r.RecordRateLimitError(time.Hour)

	ok, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "wait does not sleep through a backoff window")
	assert.True(t, r.RetryAt().After(time.Now().Add(59*time.Minute)))
}

func TestRateLimiter_DefaultBackoff(t *testing.T) {
	r := NewRateLimiter(DefaultCalendarRateLimit)

	before := time.Now()
	r.RecordRateLimitError(0)

	assert.WithinDuration(t, before.Add(DefaultRetryAfter), r.RetryAt(), time.Second)
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	ok, err := r.Wait(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err = r.Wait(ctx)
	assert.Error(t, err)
	assert.False(t, ok)
}
