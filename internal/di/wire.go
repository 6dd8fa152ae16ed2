//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"CycleScope/pkg/config"
	"CycleScope/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Repositories
		ProvideSnapshotPublisher,
		ProvideMarketData,
		ProvideRegistry,

		// Use cases
		ProvideDashboardUseCase,
		ProvideScreenersUseCase,
		ProvideRefreshUseCase,
		ProvideRefreshHandler,

		// Transport
		ProvideKafkaConsumer,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
