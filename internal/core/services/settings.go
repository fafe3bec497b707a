package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyPollingEnabled      = "polling.enabled"
	keyPollingInterval     = "polling.interval_minutes"
	keyPollingInitialDelay = "polling.initial_delay"
	keyGoogleClientID      = "google.client_id"
	keyGoogleClientSecret  = "google.client_secret"
	keyGoogleTokenURL      = "google.token_url"
	keyGooglePageSize      = "google.page_size"
	keyGoogleLookback      = "google.lookback"
	keyStateTTL            = "sync.state_ttl"
)

// SettingsService resolves application settings from the config store.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultPollingConfig()

	return &domain.AppSettings{
		Polling: domain.PollingConfig{
			Enabled:      s.getBool(keyPollingEnabled, defaults.Enabled),
			Interval:     s.pollingInterval(),
			InitialDelay: s.getDuration(keyPollingInitialDelay, defaults.InitialDelay),
		},
		Google: domain.GoogleSettings{
			ClientID:     s.configStore.GetString(keyGoogleClientID),
			ClientSecret: s.configStore.GetString(keyGoogleClientSecret),
			TokenURL:     s.configStore.GetString(keyGoogleTokenURL),
		},
		PageSize: s.getInt(keyGooglePageSize, DefaultPageSize),
		Lookback: s.getDuration(keyGoogleLookback, DefaultLookback),
		StateTTL: s.getDuration(keyStateTTL, domain.DefaultStateTTL),
	}, nil
}

// FetcherConfig returns the fetcher configuration from settings.
func (s *SettingsService) FetcherConfig() FetcherConfig {
	settings, err := s.Get()
	if err != nil {
		return FetcherConfig{}
	}
	return FetcherConfig{PageSize: settings.PageSize, Lookback: settings.Lookback}
}

// Section returns the values stored under "<name>." formatted as strings,
// keyed by the remainder of the key.
func (s *SettingsService) Section(name string) map[string]string {
	prefix := name + "."
	values := make(map[string]string)
	for _, key := range s.configStore.Keys() {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok || rest == "" {
			continue
		}
		if val, exists := s.configStore.Get(key); exists {
			values[rest] = fmt.Sprint(val)
		}
	}
	return values
}

// SetPollingEnabled turns background polling on or off.
func (s *SettingsService) SetPollingEnabled(enabled bool) error {
	if err := s.configStore.Set(keyPollingEnabled, enabled); err != nil {
		return fmt.Errorf("save polling enabled: %w", err)
	}
	return nil
}

// SetPollingInterval sets the polling cadence in minutes.
func (s *SettingsService) SetPollingInterval(minutes int) error {
	if time.Duration(minutes)*time.Minute < domain.MinPollingInterval {
		return fmt.Errorf("%w: polling interval must be at least %s",
			domain.ErrInvalidInput, domain.MinPollingInterval)
	}
	if err := s.configStore.Set(keyPollingInterval, minutes); err != nil {
		return fmt.Errorf("save polling interval: %w", err)
	}
	return nil
}

// SetGoogleClient stores the OAuth client used for token refresh.
func (s *SettingsService) SetGoogleClient(clientID, clientSecret string) error {
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("%w: client id and secret are required", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(keyGoogleClientID, clientID); err != nil {
		return fmt.Errorf("save google client_id: %w", err)
	}
	if err := s.configStore.Set(keyGoogleClientSecret, clientSecret); err != nil {
		return fmt.Errorf("save google client_secret: %w", err)
	}
	return nil
}

// pollingInterval reads the cadence in minutes. Missing or unparseable values
// fall back to the default, and short ones are raised to the floor.
func (s *SettingsService) pollingInterval() time.Duration {
	val, exists := s.configStore.Get(keyPollingInterval)
	if !exists {
		return domain.DefaultPollingInterval
	}

	var minutes int64
	switch v := val.(type) {
	case int64:
		minutes = v
	case int:
		minutes = int64(v)
	case float64:
		minutes = int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return domain.DefaultPollingInterval
		}
		minutes = parsed
	default:
		return domain.DefaultPollingInterval
	}

	return domain.ClampPollingInterval(time.Duration(minutes) * time.Minute)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
