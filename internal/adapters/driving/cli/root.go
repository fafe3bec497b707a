// Package cli provides the cobra command tree for calsync.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/calsync/internal/core/ports/driving"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Options holds the global flags.
type Options struct {
	// DataDir holds the SQLite database. Empty means ~/.calsync/data.
	DataDir string

	// ConfigDir holds config.toml. Empty means ~/.calsync.
	ConfigDir string

	// SinkPath is the JSON Lines output for change records.
	// Empty or "-" writes to stdout.
	SinkPath string

	// Verbose enables debug and info logging.
	Verbose bool
}

// Services are the driving ports the commands call.
type Services struct {
	Syncer    driving.UserSynchronizer
	Calendars driving.CalendarSyncer
	Scheduler driving.Scheduler
	Accounts  driving.AccountService
	Settings  driving.SettingsService

	// Close releases stores and files. Optional.
	Close func() error
}

// Builder wires services from the parsed global flags.
type Builder func(opts Options) (*Services, error)

// skipWiring marks commands that run without services.
const skipWiring = "skip-wiring"

var (
	version = "dev"

	opts    Options
	builder Builder
	closeFn func() error

	userSyncer      driving.UserSynchronizer
	calendarSyncer  driving.CalendarSyncer
	scheduler       driving.Scheduler
	accountService  driving.AccountService
	settingsService driving.SettingsService
)

var rootCmd = &cobra.Command{
	Use:   "calsync",
	Short: "Incremental Google Calendar sync",
	Long: `calsync keeps per-user Google Calendar sync cursors and emits a change
record for every event created, updated or cancelled since the last sync.

Run 'calsync run' to poll all connected users on a fixed interval, or use
'calsync sync' and 'calsync events-sync' for on-demand syncs.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.DataDir, "data-dir", "", "database directory (default ~/.calsync/data)")
	flags.StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default ~/.calsync)")
	flags.StringVar(&opts.SinkPath, "sink", "-", "JSON Lines file for change records ('-' for stdout)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command with the given build version and wiring.
func Execute(buildVersion string, build Builder) error {
	if buildVersion != "" {
		version = buildVersion
	}
	builder = build

	err := rootCmd.Execute()
	if closeErr := closeServices(); err == nil {
		err = closeErr
	}
	return err
}

// SetServices installs services directly, bypassing the builder.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	userSyncer = s.Syncer
	calendarSyncer = s.Calendars
	scheduler = s.Scheduler
	accountService = s.Accounts
	settingsService = s.Settings
	closeFn = s.Close
}

func initServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)

	if builder == nil || cmd.Annotations[skipWiring] != "" {
		return nil
	}

	services, err := builder(opts)
	if err != nil {
		return err
	}
	if services == nil {
		return errors.New("no services configured")
	}
	SetServices(services)
	return nil
}

func closeServices() error {
	if closeFn == nil {
		return nil
	}
	fn := closeFn
	closeFn = nil
	return fn()
}
