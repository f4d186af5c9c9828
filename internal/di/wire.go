//go:build wireinject
// +build wireinject

package di

import (
	"SectorPulse/pkg/config"
	"SectorPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,
		ProvideRateLimiter,
		ProvidePool,
		ProvideCascade,
		ProvideWarehouse,

		// Reference data and sources
		ProvideResolver,
		ProvideSources,

		// Use cases
		ProvideSeriesFetcher,
		ProvideFlowFetcher,
		ProvideSnapshotFetcher,
		ProvideReportPublisher,
		ProvideSectorReportService,
		ProvideScreenerService,

		// Delivery
		ProvideHandler,
		ProvideApp,
	)
	return nil, nil, nil
}
