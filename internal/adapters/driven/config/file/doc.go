// Package file provides file-based implementations of driven port interfaces.
//
// ConfigStore keeps settings in ~/.calsync/config.toml. Keys are exposed as
// flat dot-notation names; any key can be overridden by an environment
// variable named CALSYNC_ followed by the key upper-cased with dots
// replaced by underscores (polling.interval_minutes becomes
// CALSYNC_POLLING_INTERVAL_MINUTES).
package file
