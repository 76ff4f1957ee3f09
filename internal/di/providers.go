package di

import (
	"context"
	"fmt"
	"time"

	"PriceTrend/internal/domain/repository"
	"PriceTrend/internal/handler/api"
	"PriceTrend/internal/handler/web"
	internalrepo "PriceTrend/internal/repository"
	"PriceTrend/internal/service/feed"
	"PriceTrend/internal/service/importer"
	"PriceTrend/internal/service/poller"
	"PriceTrend/internal/usecase"
	"PriceTrend/pkg/cache"
	pkgch "PriceTrend/pkg/clickhouse"
	"PriceTrend/pkg/config"
	xhttp "PriceTrend/pkg/http"
	pkgkafka "PriceTrend/pkg/kafka"
	"PriceTrend/pkg/logger"
	"PriceTrend/pkg/metrics"
	"PriceTrend/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// series schema exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideSeriesStore creates the ClickHouse-backed series store.
func ProvideSeriesStore(chClient *pkgch.Client, cfg *config.Config) repository.SeriesStore {
	table := cfg.ClickHouse.Database + "." + cfg.ClickHouse.Table
	return internalrepo.NewClickHouseSeriesStore(chClient.DB(), table)
}

// ProvideCache creates the query cache backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Cache.Backend == "redis" {
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	}
	return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxSize)), nil
}

// ProvidePublisher creates the Kafka sample publisher, or a noop when
// Kafka is disabled.
func ProvidePublisher(cfg *config.Config) (repository.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NoopPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideFeed creates the configured live price feed.
func ProvideFeed(cfg *config.Config, log *logger.Logger) repository.PriceFeed {
	if cfg.Feed.Mode == "websocket" {
		return feed.NewStreamFeed(cfg.Feed.WebSocketURL, cfg.Feed.Channel, cfg.Feed.PingInterval, log)
	}
	return feed.NewRestFeed(cfg.Feed.TickerURL, cfg.Feed.Timeout)
}

// ProvideImporter creates the bulk historical importer.
func ProvideImporter(store repository.SeriesStore, m repository.Metrics, log *logger.Logger, cfg *config.Config) *importer.Importer {
	return importer.New(store, m, log, cfg.Import.HistoryFile)
}

// ProvidePoller creates the hourly live poller.
func ProvidePoller(
	store repository.SeriesStore,
	f repository.PriceFeed,
	pub repository.Publisher,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *poller.Poller {
	return poller.New(store, f, pub, m, log, cfg.Poller.Interval)
}

// ProvideQueryService creates the cached range query service.
func ProvideQueryService(
	store repository.SeriesStore,
	c cache.Service,
	m repository.Metrics,
	log *logger.Logger,
	imp *importer.Importer,
) *usecase.QueryService {
	engine := usecase.NewRangeQueryEngine(store)
	return usecase.NewQueryService(engine, c, m, log, imp.Finished)
}

// ProvideHandlers assembles the HTTP route handlers.
func ProvideHandlers(
	log *logger.Logger,
	queries *usecase.QueryService,
	store repository.SeriesStore,
	cfg *config.Config,
) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewPricesHandler(log, queries, store),
		web.NewPagesHandler(cfg.Server.StaticDir),
	}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	imp *importer.Importer,
	p *poller.Poller,
	handlers []xhttp.Handler,
	chClient *pkgch.Client,
	c cache.Service,
	pub repository.Publisher,
	f repository.PriceFeed,
) *server.App {
	return server.New(cfg, log, imp, p, handlers, chClient, c, pub, f)
}
