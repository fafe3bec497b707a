package domain

import "time"

// GoogleSettings holds the OAuth client used for refresh-token exchange.
type GoogleSettings struct {
	// ClientID is the OAuth client ID.
	ClientID string

	// ClientSecret is the OAuth client secret.
	ClientSecret string

	// TokenURL overrides the token endpoint. Empty means Google's default.
	TokenURL string
}

// IsConfigured returns true if a client is configured.
func (s GoogleSettings) IsConfigured() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// AppSettings is the resolved application configuration.
type AppSettings struct {
	Polling PollingConfig
	Google  GoogleSettings

	// PageSize caps events per provider page.
	PageSize int

	// Lookback is subtracted from now for full-sync windows.
	Lookback time.Duration

	// StateTTL is the sync state time-to-live.
	StateTTL time.Duration
}
