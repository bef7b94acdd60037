package di

import (
	"context"
	"fmt"
	"time"

	"Duka/internal/cache"
	"Duka/internal/duka"
	"Duka/internal/export"
	pkgcache "Duka/pkg/cache"
	pkgch "Duka/pkg/clickhouse"
	"Duka/pkg/config"
	pkgkafka "Duka/pkg/kafka"
	applogger "Duka/pkg/logger"
	pkgmetrics "Duka/pkg/metrics"
	"Duka/pkg/queue"
	"Duka/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the ops daemon's structured logger with a bounded
// in-memory collector so /debug/logs has something to show.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   time.Minute,
		CountThreshold: 500,
		Topic:          "duka.logs",
		Publisher:      noopPublisher{},
	})
	return l, nil
}

// noopPublisher discards periodic collector flushes; the daemon reads the
// collector's live Snapshot() instead of shipping logs anywhere.
type noopPublisher struct{}

func (noopPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return nil
}

// ProvideBytesCache builds the fetcher's byte cache from cfg.Cache.Backend.
func ProvideBytesCache(cfg *config.Config) (duka.BytesCache, error) {
	switch cfg.Cache.Backend {
	case "", "memory":
		maxSize := cfg.Cache.Memory.MaxSize
		if maxSize <= 0 {
			maxSize = 10000
		}
		return cache.NewMemoryCache(maxSize, cfg.Cache.TTL), nil
	case "file":
		dir := cfg.Cache.File.Dir
		if dir == "" {
			dir = ".duka-cache"
		}
		return cache.NewFileCache(dir), nil
	case "redis":
		base, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(cfg.Cache.Redis.Host),
			pkgcache.WithRedisPort(cfg.Cache.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("cache redis: %w", err)
		}
		return cache.NewRedisCache(base, cfg.Cache.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache.backend %q", cfg.Cache.Backend)
	}
}

// ProvideQueueRedisClient opens the raw Redis client the job queue runs on;
// separate from ProvideBytesCache's client since the two serve different
// TTL and key-space needs.
func ProvideQueueRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Queue.Redis.Host, cfg.Queue.Redis.Port),
		Password: cfg.Queue.Redis.Password,
		DB:       cfg.Queue.Redis.DB,
	})
}

// ProvideRedisQueue creates the job queue in producer-consumer mode: the
// HTTP handler enqueues export.run jobs, the same process's workers drain
// them.
func ProvideRedisQueue(cfg *config.Config, logger *applogger.Logger, client *redis.Client) *queue.RedisQueue {
	qcfg := &queue.QueueConfig{Workers: 4, RetryLimit: 3, RetryDelay: 10 * time.Second}
	if cfg.Queue.StreamKey == "" {
		return queue.NewRedisQueue(logger, qcfg, client, queue.ModeProducerConsumer)
	}
	return queue.NewRedisQueue(logger, qcfg, client, queue.ModeProducerConsumer, queue.WithKeyPrefix(cfg.Queue.StreamKey))
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// tick/bar tables exist before the sink writes to them.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer from cfg.Kafka.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
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

// ProvideSink selects and constructs the export.Sink cfg.Export.Sink names.
// Exactly one of chClient/producer is used; the other may be nil.
func ProvideSink(cfg *config.Config, chClient *pkgch.Client, producer *pkgkafka.Producer) (export.Sink, error) {
	switch cfg.Export.Sink {
	case "", "clickhouse":
		sink := export.NewClickHouseSink(chClient, cfg.ClickHouse.Database)
		if err := sink.EnsureSchema(context.Background()); err != nil {
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return sink, nil
	case "kafka":
		return export.NewKafkaSink(producer, cfg.Kafka.Topic), nil
	default:
		return nil, fmt.Errorf("unknown export.sink %q", cfg.Export.Sink)
	}
}

// ProvideMetrics creates the Prometheus recorder the export pipeline
// reports batch throughput, latency and error counts through.
func ProvideMetrics() *pkgmetrics.Recorder {
	return pkgmetrics.New()
}

// ProvideApp wires the fully-constructed ops daemon.
func ProvideApp(cfg *config.Config, logger *applogger.Logger, rq *queue.RedisQueue, chClient *pkgch.Client, producer *pkgkafka.Producer, sink export.Sink, cache duka.BytesCache, metrics *pkgmetrics.Recorder) *server.App {
	return server.New(cfg, logger, rq, chClient, producer, sink, cache, metrics)
}
