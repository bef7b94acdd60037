//go:build wireinject
// +build wireinject

package di

import (
	"Duka/pkg/config"
	"Duka/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the ops daemon.
// Wire generates wire_gen.go from this function; it is never compiled
// itself (wireinject build tag).
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideBytesCache,
		ProvideQueueRedisClient,
		ProvideRedisQueue,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideSink,
		ProvideMetrics,
		ProvideApp,
	)
	return &server.App{}, nil
}
