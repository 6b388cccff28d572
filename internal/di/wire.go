//go:build wireinject
// +build wireinject

package di

import (
	"TradeLens/pkg/config"
	"TradeLens/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Storage
		ProvideStore,
		ProvideExecutionStore,
		ProvideStrategyStore,

		// Domain services
		ProvideMatcher,
		ProvideMetricsAnalyzer,
		ProvideSegmenter,
		ProvideDistribution,
		ProvideTiltAnalyzer,
		ProvideReporter,
		ProvideImporter,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCacheService,
		ProvideKafkaProducer,
		ProvideEventPublisher,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,
		ProvideArchiveSink,
		ProvideHub,

		// Background jobs
		ProvideWarmupJob,
		ProvideArchiveSyncJob,
		ProvideQueue,
		ProvideJobEnqueuer,

		// Use cases
		ProvideAnalyticsUseCase,
		ProvideTradesUseCase,
		ProvideStrategiesUseCase,
		ProvideIngestPipeline,
		ProvideExecutionsFeedHandler,

		// HTTP surface
		ProvideAnalyticsHandler,
		ProvideTradesHandler,
		ProvideStrategiesHandler,
		ProvideHealthChecks,
		ProvideSystemHandler,
		ProvideRouter,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
