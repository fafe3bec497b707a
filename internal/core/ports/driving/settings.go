package driving

import "github.com/custodia-labs/calsync/internal/core/domain"

// SettingsService reads and updates application settings.
type SettingsService interface {
	// Get resolves settings from configuration, applying defaults and floors.
	Get() (*domain.AppSettings, error)

	// SetPollingEnabled turns background polling on or off.
	SetPollingEnabled(enabled bool) error

	// SetPollingInterval sets the polling cadence in minutes.
	// Values below the minimum are rejected.
	SetPollingInterval(minutes int) error

	// SetGoogleClient stores the OAuth client used for token refresh.
	SetGoogleClient(clientID, clientSecret string) error
}
