package main

import (
	"errors"
	"os"

	"github.com/custodia-labs/calsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/calsync/internal/adapters/driven/oauth"
	"github.com/custodia-labs/calsync/internal/adapters/driven/sink"
	"github.com/custodia-labs/calsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/calsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/calsync/internal/connectors/google/calendar"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/services"
	"github.com/custodia-labs/calsync/internal/logger"
)

// build wires the stores, connectors and services behind the CLI.
func build(opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, err
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(opts.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("database: %s", store.Path())

	out, err := openSink(opts.SinkPath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var refresher driven.TokenRefresher
	if settings.Google.IsConfigured() {
		refresher = oauth.NewRefresher(settings.Google)
	} else {
		logger.Info("no Google OAuth client configured; expired tokens will not be refreshed")
	}

	users := store.UserStore()
	states := store.SyncStateStore()

	gate := services.NewCredentialGate(users, refresher, out)
	providers := calendar.NewFactory(calendar.ParseConfig(settingsService.Section("calendar")))

	syncService := services.NewSyncService(gate, providers, states, nil, settingsService.FetcherConfig())
	syncService.SetStateTTL(settings.StateTTL)
	syncService.SetSyncLock(store.SyncLock())

	poller := services.NewPoller(settings.Polling, users, syncService, out, states, store.CycleStore())

	return &cli.Services{
		Syncer:    poller,
		Calendars: services.NewSyncFacade(syncService),
		Scheduler: poller,
		Accounts:  services.NewAccountService(users, states, syncService),
		Settings:  settingsService,
		Close: func() error {
			return errors.Join(out.Close(), store.Close())
		},
	}, nil
}

func openSink(path string) (*sink.JSONLSink, error) {
	if path == "" || path == "-" {
		return sink.New(os.Stdout), nil
	}
	return sink.OpenFile(path)
}
