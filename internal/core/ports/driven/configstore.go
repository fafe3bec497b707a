package driven

// ConfigStore provides access to application configuration as flat
// dot-notation keys (e.g. "polling.interval_minutes").
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	// Returns empty string if key doesn't exist or isn't a string.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	// Numeric strings are parsed. Returns 0 if the key doesn't exist or
	// can't be read as an integer.
	GetInt(key string) int

	// GetBool retrieves a boolean configuration value.
	// Strings accepted by strconv.ParseBool are parsed. Returns false otherwise.
	GetBool(key string) bool

	// Keys returns all configured keys in sorted order.
	Keys() []string

	// Set stores a configuration value.
	// The value is persisted immediately.
	Set(key string, value any) error

	// Unset removes a key. Removing a missing key is not an error.
	Unset(key string) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
