// Package container assembles the application with dependency injection.
package container

import (
	"woo-sync/internal/app"
	"woo-sync/internal/config"
	"woo-sync/internal/db"
	"woo-sync/internal/encryption"
	"woo-sync/internal/handler"
	"woo-sync/internal/httpclient"
	"woo-sync/internal/router"
	"woo-sync/internal/services"
	"woo-sync/internal/store"
	"woo-sync/internal/types"

	"go.uber.org/dig"
)

// BuildContainer creates and configures the dig container with every
// application component.
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		// Infrastructure
		config.NewManager,
		func(manager *config.Manager) types.ConfigManager { return manager },
		store.NewStore,
		db.NewDB,
		func(configManager types.ConfigManager) (encryption.Service, error) {
			return encryption.NewService(configManager.GetEncryptionKey())
		},
		httpclient.NewManager,

		// Services
		services.NewSettingsService,
		services.NewCredentialService,
		services.NewOrderService,
		services.NewLocationService,
		services.NewRunService,
		services.NewReportService,
		services.NewSyncManager,

		// HTTP layer
		handler.NewServer,
		handler.NewSyncHandler,
		handler.NewReportHandler,
		router.NewRouter,

		// Application
		app.NewApp,
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}
