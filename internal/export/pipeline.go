package export

import (
	"context"
	"iter"
	"time"

	"github.com/cenkalti/backoff/v4"

	"Duka"
	applogger "Duka/pkg/logger"
	pkgmetrics "Duka/pkg/metrics"
)

// PipelineConfig tunes the backpressure behaviour between a duka.Stream and
// a Sink.
type PipelineConfig struct {
	BatchSize     int           // records per Sink.Write call
	BufferSize    int           // bounded channel depth between reader and writer
	RatePerSecond int           // token-bucket cap on Sink.Write calls per second; 0 disables limiting
	MaxRetries    int           // retries on a failed Write before giving up on that batch
}

// Pipeline sits between a duka.Stream and a Sink: it batches records,
// rate-limits writes with a token bucket, and retries a failed batch with
// exponential backoff before surfacing the error, so a slow or flaky sink
// applies backpressure instead of silently dropping data.
type Pipeline struct {
	sink    Sink
	cfg     PipelineConfig
	logger  *applogger.Logger
	metrics *pkgmetrics.Recorder
}

func NewPipeline(sink Sink, cfg PipelineConfig, logger *applogger.Logger) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.BatchSize * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Pipeline{sink: sink, cfg: cfg, logger: logger}
}

// WithMetrics attaches a Prometheus recorder; batches written, batch
// latency and write errors are then observed under it.
func (p *Pipeline) WithMetrics(m *pkgmetrics.Recorder) *Pipeline {
	p.metrics = m
	return p
}

// Run drains seq into the sink, batch by batch, until the sequence ends or
// ctx is cancelled. It returns the first unrecoverable error, which is
// either a stream error or a batch that exhausted its retry budget.
func (p *Pipeline) Run(ctx context.Context, instrument string, granularity duka.Granularity, seq iter.Seq2[duka.Record, error]) (int, error) {
	buf := make(chan duka.Record, p.cfg.BufferSize)
	streamErrCh := make(chan error, 1)

	go func() {
		defer close(buf)
		for rec, err := range seq {
			if err != nil {
				streamErrCh <- err
				return
			}
			select {
			case buf <- rec:
			case <-ctx.Done():
				streamErrCh <- ctx.Err()
				return
			}
		}
		streamErrCh <- nil
	}()

	var tokens <-chan time.Time
	if p.cfg.RatePerSecond > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(p.cfg.RatePerSecond))
		defer ticker.Stop()
		tokens = ticker.C
	}

	written := 0
	batch := make([]duka.Record, 0, p.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if tokens != nil {
			select {
			case <-tokens:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := p.writeWithRetry(ctx, instrument, granularity, batch); err != nil {
			return err
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	for rec := range buf {
		batch = append(batch, rec)
		if len(batch) >= p.cfg.BatchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}

	if err := <-streamErrCh; err != nil {
		return written, err
	}
	return written, nil
}

func (p *Pipeline) writeWithRetry(ctx context.Context, instrument string, granularity duka.Granularity, batch []duka.Record) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(p.cfg.MaxRetries)), ctx)

	attempt := 0
	op := func() error {
		attempt++
		start := time.Now()
		err := p.sink.Write(ctx, instrument, granularity, batch)
		if p.metrics != nil {
			p.metrics.RecordLatency("export_write_batch", time.Since(start).Seconds())
		}
		if err != nil {
			if p.metrics != nil {
				p.metrics.RecordError("export_write")
			}
			if p.logger != nil {
				p.logger.Warn("export batch write failed, retrying",
					applogger.String("instrument", instrument),
					applogger.Int("attempt", attempt),
					applogger.Int("records", len(batch)),
					applogger.Error(err))
			}
			return err
		}
		if p.metrics != nil {
			p.metrics.RecordMessageSent(sinkKind(p.sink), instrument)
		}
		return nil
	}

	return backoff.Retry(op, bo)
}

func sinkKind(s Sink) string {
	switch s.(type) {
	case *ClickHouseSink:
		return "clickhouse"
	case *KafkaSink:
		return "kafka"
	default:
		return "unknown"
	}
}
