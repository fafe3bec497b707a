package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	pollingEnable   bool
	pollingDisable  bool
	pollingInterval int
	googleClientID  string
	googleSecret    string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure polling and the Google OAuth client.

Settings live in ~/.calsync/config.toml; any key can be overridden with a
CALSYNC_ environment variable (e.g. CALSYNC_POLLING_INTERVAL_MINUTES).`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsPollingCmd = &cobra.Command{
	Use:   "polling",
	Short: "Configure background polling",
	RunE:  runSettingsPolling,
}

var settingsGoogleCmd = &cobra.Command{
	Use:   "google",
	Short: "Configure the Google OAuth client used for token refresh",
	RunE:  runSettingsGoogle,
}

func init() {
	settingsPollingCmd.Flags().BoolVar(&pollingEnable, "enable", false, "enable polling")
	settingsPollingCmd.Flags().BoolVar(&pollingDisable, "disable", false, "disable polling")
	settingsPollingCmd.Flags().IntVar(&pollingInterval, "interval", 0, "polling interval in minutes (minimum 5)")
	settingsPollingCmd.MarkFlagsMutuallyExclusive("enable", "disable")

	settingsGoogleCmd.Flags().StringVar(&googleClientID, "client-id", "", "OAuth client ID")
	settingsGoogleCmd.Flags().StringVar(&googleSecret, "client-secret", "", "OAuth client secret")
	_ = settingsGoogleCmd.MarkFlagRequired("client-id")
	_ = settingsGoogleCmd.MarkFlagRequired("client-secret")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsPollingCmd)
	settingsCmd.AddCommand(settingsGoogleCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(titleStyle.Render("Current Settings"))
	cmd.Println()

	cmd.Println("[Polling]")
	cmd.Printf("  Enabled: %s\n", yesNo(settings.Polling.Enabled))
	cmd.Printf("  Interval: %s\n", settings.Polling.Interval)
	cmd.Printf("  Initial delay: %s\n", settings.Polling.InitialDelay)
	cmd.Println()

	cmd.Println("[Google]")
	if settings.Google.ClientID != "" {
		cmd.Printf("  Client ID: %s\n", settings.Google.ClientID)
	} else {
		cmd.Println("  Client ID: (not set)")
	}
	if settings.Google.ClientSecret != "" {
		cmd.Printf("  Client secret: %s\n", maskSecret(settings.Google.ClientSecret))
	} else {
		cmd.Println("  Client secret: (not set)")
	}
	if settings.Google.TokenURL != "" {
		cmd.Printf("  Token URL: %s\n", settings.Google.TokenURL)
	}
	cmd.Printf("  Page size: %d\n", settings.PageSize)
	cmd.Printf("  Lookback: %s\n", settings.Lookback)
	cmd.Println()

	cmd.Println("[Sync]")
	cmd.Printf("  State TTL: %s\n", settings.StateTTL)
	cmd.Println()

	if !settings.Google.IsConfigured() {
		cmd.Println(warningStyle.Render("Warning: no OAuth client; expired access tokens cannot be refreshed."))
		cmd.Println("Run 'calsync settings google --client-id ... --client-secret ...' to fix.")
	}
	return nil
}

func runSettingsPolling(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if !pollingEnable && !pollingDisable && pollingInterval == 0 {
		return errors.New("nothing to change: use --enable, --disable or --interval")
	}

	if pollingEnable || pollingDisable {
		if err := settingsService.SetPollingEnabled(pollingEnable); err != nil {
			return fmt.Errorf("failed to set polling: %w", err)
		}
		cmd.Printf("Polling enabled: %s\n", yesNo(pollingEnable))
	}
	if pollingInterval != 0 {
		if err := settingsService.SetPollingInterval(pollingInterval); err != nil {
			return fmt.Errorf("failed to set polling interval: %w", err)
		}
		cmd.Printf("Polling interval: %d minutes\n", pollingInterval)
	}
	return nil
}

func runSettingsGoogle(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.SetGoogleClient(googleClientID, googleSecret); err != nil {
		return fmt.Errorf("failed to set google client: %w", err)
	}
	cmd.Println("Google OAuth client saved.")
	return nil
}

// maskSecret shows only the last four characters.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
