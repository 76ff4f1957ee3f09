//go:build wireinject
// +build wireinject

package di

import (
	"PriceTrend/pkg/config"
	"PriceTrend/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,
		ProvidePublisher,
		ProvideFeed,

		// Repositories
		ProvideSeriesStore,

		// Services and use cases
		ProvideImporter,
		ProvidePoller,
		ProvideQueryService,
		ProvideHandlers,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
