package domain

import "time"

// Polling cadence bounds.
const (
	// MinPollingInterval is the floor applied to any configured interval.
	MinPollingInterval = 5 * time.Minute

	// DefaultPollingInterval is used when no interval is configured or the
	// configured value cannot be parsed.
	DefaultPollingInterval = 10 * time.Minute

	// DefaultInitialDelay is the wait before the first cycle.
	DefaultInitialDelay = 5 * time.Second

	// DefaultCycleHistory is how many cycle results are retained.
	DefaultCycleHistory = 100
)

// PollingConfig holds polling scheduler configuration.
type PollingConfig struct {
	// Enabled is the master switch for background polling.
	Enabled bool

	// Interval is the fixed delay between the end of one cycle and the
	// start of the next.
	Interval time.Duration

	// InitialDelay is the wait before the first cycle.
	InitialDelay time.Duration
}

// DefaultPollingConfig returns sensible defaults for the poller.
func DefaultPollingConfig() PollingConfig {
	return PollingConfig{
		Enabled:      true,
		Interval:     DefaultPollingInterval,
		InitialDelay: DefaultInitialDelay,
	}
}

// ClampPollingInterval applies the default to unset intervals and the floor
// to short ones.
func ClampPollingInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultPollingInterval
	}
	if d < MinPollingInterval {
		return MinPollingInterval
	}
	return d
}

// CycleResult represents the outcome of one polling cycle.
type CycleResult struct {
	// Cycle is the monotonically increasing cycle number.
	Cycle int64

	// StartedAt is when the cycle started.
	StartedAt time.Time

	// EndedAt is when the cycle completed.
	EndedAt time.Time

	// Users is the number of users visited.
	Users int

	// Records is the number of change records dispatched.
	Records int

	// Failures counts user syncs and record dispatches that failed.
	Failures int

	// Error contains the message of a cycle-level failure, if any.
	Error string
}

// Success reports whether the cycle finished without a cycle-level failure.
func (r *CycleResult) Success() bool {
	return r.Error == ""
}

// Duration returns how long the cycle ran.
func (r *CycleResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}
