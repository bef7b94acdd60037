// Package export implements the optional downstream consumer that drains a
// duka.Stream into a durable sink (ClickHouse or Kafka) through a
// backpressure-aware pipeline, and can be dispatched as a queued job
// instead of blocking an HTTP request.
package export

import (
	"context"

	"Duka"
)

// Sink is anything a Pipeline can drain decoded records into.
type Sink interface {
	// Write persists one batch of records. Implementations should be
	// idempotent enough to tolerate at-least-once delivery from retries.
	Write(ctx context.Context, instrument string, granularity duka.Granularity, records []duka.Record) error
	Close() error
}
