package di

import (
	"fmt"
	"time"

	"CycleScope/internal/domain/repository"
	"CycleScope/internal/handler/api"
	internalrepo "CycleScope/internal/repository"
	"CycleScope/internal/service/marketdata"
	"CycleScope/internal/services/indicators"
	"CycleScope/internal/usecase"
	"CycleScope/pkg/cache"
	"CycleScope/pkg/config"
	pkgkafka "CycleScope/pkg/kafka"
	applogger "CycleScope/pkg/logger"
	"CycleScope/pkg/metrics"
	"CycleScope/pkg/server"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
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

// ProvideLogger builds the application logger and attaches the Kafka log collector when enabled.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Logging.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collector.FlushInterval,
			CountThreshold: cfg.Logging.Collector.CountThreshold,
			Source:         "cyclescope/" + cfg.Environment,
			Topic:          cfg.Logging.Collector.Topic,
			Publisher:      producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache builds an in-process cache, layered over Redis when enabled.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
		), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected",
		applogger.String("host", cfg.Cache.Redis.Host),
		applogger.Int("port", cfg.Cache.Redis.Port),
	)
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredMemoryTTL(time.Hour),
	), nil
}

// ProvideSnapshotPublisher publishes to Kafka, or drops snapshots when Kafka is disabled.
func ProvideSnapshotPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.SnapshotPublisher {
	if producer == nil {
		return internalrepo.NopSnapshotPublisher{}
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topics.Dashboard, cfg.Kafka.Topics.Screener)
}

// ProvideMarketData wraps the upstream adapters in the tagged cache.
func ProvideMarketData(cfg *config.Config, c cache.Service, m repository.Metrics, l *applogger.Logger) *internalrepo.CachedMarketData {
	upstream := marketdata.NewProvider(cfg, l, m)
	return internalrepo.NewCachedMarketData(upstream, upstream, c, cfg.Cache.TTL, m, l)
}

func ProvideRegistry(md *internalrepo.CachedMarketData) *indicators.Registry {
	return indicators.NewRegistry(md, time.Now)
}

func ProvideDashboardUseCase(cfg *config.Config, md *internalrepo.CachedMarketData, reg *indicators.Registry, m repository.Metrics, l *applogger.Logger) *usecase.DashboardUseCase {
	return usecase.NewDashboardUseCase(md, reg, m, l, cfg.Dashboard.FetchTimeout, cfg.Dashboard.IndicatorTimeout)
}

func ProvideScreenersUseCase(md *internalrepo.CachedMarketData, m repository.Metrics, l *applogger.Logger) *usecase.ScreenersUseCase {
	return usecase.NewScreenersUseCase(md, m, l)
}

func ProvideRefreshUseCase(
	cfg *config.Config,
	c cache.Service,
	md *internalrepo.CachedMarketData,
	dash *usecase.DashboardUseCase,
	scr *usecase.ScreenersUseCase,
	pub repository.SnapshotPublisher,
	l *applogger.Logger,
) *usecase.RefreshUseCase {
	return usecase.NewRefreshUseCase(c, md, dash, scr, pub, cfg.Dashboard.RefreshLockTTL, l)
}

// ProvideRefreshHandler registers the refresh use case on the refresh topic.
func ProvideRefreshHandler(cfg *config.Config, refresh *usecase.RefreshUseCase, l *applogger.Logger) *usecase.RefreshHandler {
	return usecase.NewRefreshHandler(cfg.Kafka.Topics.Refresh, refresh, l)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil when no refresh topic is consumed.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.Topics.Refresh == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset(cfg.Kafka.Consumer.OffsetReset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerHandlerTimeout(cfg.Kafka.Consumer.HandlerTimeout),
		pkgkafka.WithConsumerMaxAge(cfg.Kafka.Consumer.MaxAge),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	dash *usecase.DashboardUseCase,
	scr *usecase.ScreenersUseCase,
	refresh *usecase.RefreshUseCase,
) *api.DashboardEchoHandler {
	return api.NewDashboardEchoHandler(l, dash, scr, refresh, cfg.Dashboard.RefreshSecret)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	h *api.DashboardEchoHandler,
	consumer *pkgkafka.Consumer,
	kh *usecase.RefreshHandler,
	refresh *usecase.RefreshUseCase,
	pub repository.SnapshotPublisher,
	c cache.Service,
) *server.App {
	return server.New(cfg, l, h, consumer, kh, refresh, pub, c)
}
