package di

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"TradeLens/internal/domain/repository"
	domsvc "TradeLens/internal/domain/service"
	"TradeLens/internal/handler/api"
	mid "TradeLens/internal/middleware"
	internalrepo "TradeLens/internal/repository"
	svcanalytics "TradeLens/internal/services/analytics"
	"TradeLens/internal/services/csvimport"
	"TradeLens/internal/services/pairing"
	"TradeLens/internal/usecase"
	pkgcache "TradeLens/pkg/cache"
	pkgch "TradeLens/pkg/clickhouse"
	"TradeLens/pkg/config"
	xhttp "TradeLens/pkg/http"
	pkgkafka "TradeLens/pkg/kafka"
	applogger "TradeLens/pkg/logger"
	"TradeLens/pkg/metrics"
	pkgqueue "TradeLens/pkg/queue"
	"TradeLens/pkg/server"
	"TradeLens/pkg/ws"

	segkafka "github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger. Development gets readable
// console output at debug level; everything else logs JSON at info.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{Level: "info", Format: "json", Output: "stdout"}
	if cfg.Environment == "development" {
		lc.Level = "debug"
		lc.Format = "console"
	}
	lgr, err := applogger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return lgr, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStore opens the SQLite journal database.
func ProvideStore(cfg *config.Config) (*internalrepo.Store, error) {
	store, err := internalrepo.NewStore(cfg.SQLite.Path,
		internalrepo.WithBusyTimeout(cfg.SQLite.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}
	return store, nil
}

// ProvideExecutionStore binds the journal's execution port.
func ProvideExecutionStore(store *internalrepo.Store) repository.ExecutionStore {
	return store
}

// ProvideStrategyStore binds the journal's strategy port.
func ProvideStrategyStore(store *internalrepo.Store) repository.StrategyStore {
	return store
}

// ProvideMatcher creates the lot matcher.
func ProvideMatcher() domsvc.LotMatcher {
	return pairing.NewMatcher()
}

// ProvideMetricsAnalyzer creates the scalar metrics calculator.
func ProvideMetricsAnalyzer() domsvc.MetricsAnalyzer {
	return svcanalytics.NewMetricsCalculator()
}

// ProvideSegmenter creates the per-dimension segmenter.
func ProvideSegmenter() domsvc.SegmentationAnalyzer {
	return svcanalytics.NewSegmenter()
}

// ProvideDistribution creates the histogram and concentration analyzer.
func ProvideDistribution(cfg *config.Config) domsvc.DistributionAnalyzer {
	return svcanalytics.NewDistribution(cfg.Analytics.HistogramBins)
}

// ProvideTiltAnalyzer creates the streak analyzer.
func ProvideTiltAnalyzer(cfg *config.Config) domsvc.TiltAnalyzer {
	return svcanalytics.NewTiltAnalyzer(
		cfg.Analytics.Tilt.MinTrades,
		cfg.Analytics.Tilt.MaxStreakDepth,
		cfg.Analytics.Tilt.MinSampleSize,
	)
}

// ProvideReporter creates the dashboard series reporter.
func ProvideReporter() domsvc.Reporter {
	return svcanalytics.NewDashboardReporter()
}

// ProvideImporter creates the CSV execution parser.
func ProvideImporter(cfg *config.Config) *csvimport.Importer {
	return csvimport.NewImporter(cfg.Import.MaxRows)
}

// ProvideRedisCache connects to Redis when configured, nil otherwise. The
// same connection backs the L2 cache and the job queue.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Cache.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		pkgcache.WithRedisPool(10, 5, 30*time.Second),
		pkgcache.WithRedisPrefix("tradelens"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService picks the cache topology: layered when Redis is up,
// in-process only otherwise, nil when caching is disabled outright.
func ProvideCacheService(cfg *config.Config, redisCache *pkgcache.RedisCache) pkgcache.Service {
	if !cfg.Cache.Enabled {
		return nil
	}
	if redisCache != nil {
		return pkgcache.NewLayeredCache(redisCache,
			pkgcache.WithLayeredMemorySize(cfg.Cache.MemorySize),
			pkgcache.WithLayeredCleanup(2*cfg.Cache.TTL),
		)
	}
	return pkgcache.NewMemoryCache(
		pkgcache.WithMemoryMaxSize(cfg.Cache.MemorySize),
		pkgcache.WithMemoryCleanup(2*cfg.Cache.TTL),
	)
}

// ProvideKafkaProducer creates a Kafka producer, nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher emits journal-changed events to the events topic.
// Returning a nil interface rather than a typed nil keeps the disabled
// path on the use cases' nil checks.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
}

// ProvideKafkaConsumer creates the executions feed consumer, nil when
// Kafka is disabled. A lifecycle hook carries the upstream trace id into
// handler contexts and logs exhausted messages.
func ProvideKafkaConsumer(cfg *config.Config, lgr *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Before: func(ctx context.Context, _ string, km segkafka.Message, data []byte) (context.Context, segkafka.Message, []byte, error) {
			ctx = pkgkafka.WithStartTime(ctx, time.Now())
			return pkgkafka.WithTraceID(ctx, pkgkafka.ExtractTraceID(km)), km, data, nil
		},
		Err: func(ctx context.Context, topic string, km segkafka.Message, _ []byte, err error) {
			fields := []applogger.Field{
				applogger.String("topic", topic),
				applogger.Int("partition", km.Partition),
				applogger.Int64("offset", km.Offset),
				applogger.Error(err),
			}
			if id, ok := ctx.Value(pkgkafka.CtxTraceID).(string); ok {
				fields = append(fields, applogger.String("trace_id", id))
			}
			if t, ok := ctx.Value(pkgkafka.CtxStartTime).(time.Time); ok {
				fields = append(fields, applogger.Duration("after", time.Since(t)))
			}
			lgr.Warn("executions feed message failed", fields...)
		},
	})
	return consumer, nil
}

// ProvideClickHouseClient connects to the warehouse, nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideArchiveSink creates the paired-trade warehouse sink and ensures
// its schema, nil when ClickHouse is disabled.
func ProvideArchiveSink(chClient *pkgch.Client, cfg *config.Config) (repository.ArchiveSink, error) {
	if chClient == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := chClient.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	sink := internalrepo.NewClickHouseArchive(chClient, cfg.ClickHouse.Database+".paired_trades")
	if err := sink.Init(ctx); err != nil {
		return nil, fmt.Errorf("archive schema: %w", err)
	}
	return sink, nil
}

// ProvideHub creates the WebSocket broadcast hub, nil when disabled.
func ProvideHub(cfg *config.Config, lgr *applogger.Logger) *ws.Hub {
	if !cfg.WebSocket.Enabled {
		return nil
	}
	opts := []ws.HubOption{
		ws.WithSendBuffer(cfg.WebSocket.SendBuffer),
		ws.WithPingInterval(cfg.WebSocket.PingInterval),
	}
	if cfg.WebSocket.WriteTimeout > 0 {
		opts = append(opts, ws.WithWriteTimeout(cfg.WebSocket.WriteTimeout))
	}
	if cfg.WebSocket.MaxMessageBytes > 0 {
		opts = append(opts, ws.WithMaxMessageBytes(cfg.WebSocket.MaxMessageBytes))
	}
	return ws.NewHub(lgr, opts...)
}

// ProvideAnalyticsUseCase creates the read-side use case with the tuning
// knobs from config applied.
func ProvideAnalyticsUseCase(
	store repository.ExecutionStore,
	strategies repository.StrategyStore,
	matcher domsvc.LotMatcher,
	metricsAn domsvc.MetricsAnalyzer,
	segmenter domsvc.SegmentationAnalyzer,
	dist domsvc.DistributionAnalyzer,
	tilt domsvc.TiltAnalyzer,
	reporter domsvc.Reporter,
	cacheSvc pkgcache.Service,
	recorder repository.Metrics,
	lgr *applogger.Logger,
	cfg *config.Config,
) *usecase.AnalyticsUseCase {
	uc := usecase.NewAnalyticsUseCase(store, strategies, matcher, metricsAn, segmenter, dist, tilt, reporter, cacheSvc, recorder, lgr)
	uc.SetCacheTTL(cfg.Analytics.CacheTTL)
	uc.SetConcentrationBounds(cfg.Analytics.ConcentrationMin, cfg.Analytics.ConcentrationMax)
	uc.SetDefaultPairing(cfg.Analytics.DefaultPairing)
	return uc
}

// ProvideWarmupJob creates the post-write cache warmer.
func ProvideWarmupJob(analyticsUC *usecase.AnalyticsUseCase, cacheSvc pkgcache.Service, cfg *config.Config, lgr *applogger.Logger) *usecase.WarmupJob {
	job := usecase.NewWarmupJob(analyticsUC, lgr)
	job.SetDefaultConcentration(cfg.Analytics.ConcentrationDefault)
	if cacheSvc != nil {
		job.SetSingleFlight(cacheSvc)
	}
	return job
}

// ProvideArchiveSyncJob creates the warehouse export job.
func ProvideArchiveSyncJob(
	store repository.ExecutionStore,
	matcher domsvc.LotMatcher,
	archive repository.ArchiveSink,
	lgr *applogger.Logger,
) *usecase.ArchiveSyncJob {
	return usecase.NewArchiveSyncJob(store, matcher, archive, lgr)
}

// ProvideQueue creates the Redis-backed job queue with both jobs
// registered, nil when the queue is disabled or Redis is absent.
func ProvideQueue(
	cfg *config.Config,
	lgr *applogger.Logger,
	redisCache *pkgcache.RedisCache,
	warmup *usecase.WarmupJob,
	archive *usecase.ArchiveSyncJob,
) *pkgqueue.RedisQueue {
	if !cfg.Queue.Enabled || redisCache == nil {
		return nil
	}
	q := pkgqueue.NewRedisQueue(lgr, &pkgqueue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryMax,
		RetryDelay: cfg.Queue.RetryDelay,
	}, redisCache.Client(), pkgqueue.ModeProducerConsumer)
	q.RegisterJobs([]pkgqueue.Job{warmup, archive})
	return q
}

// ProvideJobEnqueuer exposes the queue to the write path, nil interface
// when background jobs are off.
func ProvideJobEnqueuer(q *pkgqueue.RedisQueue) usecase.JobEnqueuer {
	if q == nil {
		return nil
	}
	return q
}

// ProvideTradesUseCase creates the write-side use case.
func ProvideTradesUseCase(
	store repository.ExecutionStore,
	importer *csvimport.Importer,
	cacheSvc pkgcache.Service,
	events repository.EventPublisher,
	hub *ws.Hub,
	jobs usecase.JobEnqueuer,
	recorder repository.Metrics,
	lgr *applogger.Logger,
) *usecase.TradesUseCase {
	return usecase.NewTradesUseCase(store, importer, cacheSvc, events, hub, jobs, recorder, lgr)
}

// ProvideStrategiesUseCase creates the strategy label use case.
func ProvideStrategiesUseCase(
	strategies repository.StrategyStore,
	events repository.EventPublisher,
	hub *ws.Hub,
	lgr *applogger.Logger,
) *usecase.StrategiesUseCase {
	return usecase.NewStrategiesUseCase(strategies, events, hub, lgr)
}

// ProvideIngestPipeline guards the executions feed with validation,
// per-symbol throttling and an outage buffer before the journal store.
func ProvideIngestPipeline(trades *usecase.TradesUseCase, recorder repository.Metrics) *mid.IngestPipeline {
	return mid.NewIngestPipeline(trades, recorder,
		mid.WithMaxRPS(20),
		mid.WithBufferSize(1000),
	)
}

// ProvideExecutionsFeedHandler consumes broker executions from the feed
// topic through the ingest pipeline.
func ProvideExecutionsFeedHandler(cfg *config.Config, pipeline *mid.IngestPipeline, lgr *applogger.Logger) *usecase.KafkaExecutionsHandler {
	return usecase.NewKafkaExecutionsHandler(cfg.Kafka.Topic, pipeline, lgr)
}

// ProvideAnalyticsHandler creates the analytics HTTP handler.
func ProvideAnalyticsHandler(lgr *applogger.Logger, analyticsUC *usecase.AnalyticsUseCase) *api.AnalyticsEchoHandler {
	return api.NewAnalyticsEchoHandler(lgr, analyticsUC)
}

// ProvideTradesHandler creates the trades HTTP handler with the configured
// import throttle.
func ProvideTradesHandler(lgr *applogger.Logger, tradesUC *usecase.TradesUseCase, cfg *config.Config) *api.TradesEchoHandler {
	h := api.NewTradesEchoHandler(lgr, tradesUC)
	h.SetImportRate(cfg.Import.RateBurst, cfg.Import.RatePerMinute)
	h.SetMaxPayload(cfg.Import.MaxPayloadBytes)
	return h
}

// ProvideStrategiesHandler creates the strategies HTTP handler.
func ProvideStrategiesHandler(lgr *applogger.Logger, strategiesUC *usecase.StrategiesUseCase) *api.StrategiesEchoHandler {
	return api.NewStrategiesEchoHandler(lgr, strategiesUC)
}

// ProvideHealthChecks assembles the probes for everything the process
// depends on.
func ProvideHealthChecks(
	store repository.ExecutionStore,
	archive repository.ArchiveSink,
	redisCache *pkgcache.RedisCache,
) map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"store": store.Health,
	}
	if archive != nil {
		checks["clickhouse"] = archive.Health
	}
	if redisCache != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisCache.Client().Ping(ctx).Err()
		}
	}
	return checks
}

// ProvideSystemHandler creates the health and WebSocket handler.
func ProvideSystemHandler(lgr *applogger.Logger, hub *ws.Hub, checks map[string]api.HealthCheck) *api.SystemEchoHandler {
	return api.NewSystemEchoHandler(lgr, hub, checks)
}

// ProvideRouter bundles the route groups into one HTTP handler.
func ProvideRouter(
	analyticsH *api.AnalyticsEchoHandler,
	tradesH *api.TradesEchoHandler,
	strategiesH *api.StrategiesEchoHandler,
	systemH *api.SystemEchoHandler,
) xhttp.Handler {
	return api.NewRouter(analyticsH, tradesH, strategiesH, systemH)
}

// kafkaLogSink adapts the Kafka producer to the log collector's publisher
// interface.
type kafkaLogSink struct {
	producer *pkgkafka.Producer
}

func (s kafkaLogSink) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return s.producer.Publish(ctx, topic, nil, payload)
}

// ProvideApp assembles the application server and attaches the optional
// infrastructure the lifecycle manages.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	handler xhttp.Handler,
	store repository.ExecutionStore,
	hub *ws.Hub,
	q *pkgqueue.RedisQueue,
	consumer *pkgkafka.Consumer,
	feed *usecase.KafkaExecutionsHandler,
	pipeline *mid.IngestPipeline,
	events repository.EventPublisher,
	cacheSvc pkgcache.Service,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	app := server.New(cfg, lgr, handler)
	app.Store = store
	app.Hub = hub
	app.Queue = q
	if consumer != nil {
		app.Consumer = consumer
		app.Feed = feed
		app.Pipeline = pipeline
	}
	app.Events = events
	if closer, ok := cacheSvc.(io.Closer); ok {
		app.Cache = closer
	}
	app.CHClient = chClient

	// Ship aggregated error logs to the logs topic when Kafka carries one.
	if producer != nil && cfg.Kafka.LogsTopic != "" {
		lgr.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      kafkaLogSink{producer: producer},
		})
	}

	return app
}
