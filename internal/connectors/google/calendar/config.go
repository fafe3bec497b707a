package calendar

import (
	"strconv"

	"github.com/custodia-labs/calsync/internal/connectors/google"
)

// Config holds Google Calendar connector configuration.
type Config struct {
	// ShowDeleted includes cancelled events in full-sync windows.
	// Incremental queries always report cancellations.
	ShowDeleted bool
	// SingleEvents expands recurring events into instances.
	SingleEvents bool
	// CalendarListPageSize is the page size for calendar list requests.
	CalendarListPageSize int64
	// MaxCalendarListPages bounds the calendar list walk.
	MaxCalendarListPages int
	// RateLimit throttles requests per user.
	RateLimit google.RateLimitConfig
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		CalendarListPageSize: 250,
		MaxCalendarListPages: 10,
		RateLimit:            google.DefaultCalendarRateLimit,
	}
}

// ParseConfig builds a configuration from flattened settings.
// Unknown or malformed values keep their defaults.
func ParseConfig(values map[string]string) *Config {
	cfg := DefaultConfig()

	if val := values["show_deleted"]; val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.ShowDeleted = b
		}
	}

	if val := values["single_events"]; val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.SingleEvents = b
		}
	}

	if val := values["requests_per_second"]; val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil && f > 0 {
			cfg.RateLimit.RequestsPerSecond = f
		}
	}

	return cfg
}
