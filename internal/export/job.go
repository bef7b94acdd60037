package export

import (
	"context"
	"fmt"
	"time"

	"Duka"
	applogger "Duka/pkg/logger"
	pkgmetrics "Duka/pkg/metrics"
	"Duka/pkg/queue"
)

// Request describes one export run: stream Instrument/Granularity/[From,To)
// at Side and drain it into Sink through Pipeline.
type Request struct {
	Instrument  string    `json:"instrument"`
	Granularity string    `json:"granularity"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Side        string    `json:"side"`
}

// Job dispatches a Request through the ops daemon's Redis-backed queue
// (pkg/queue) so an export run doesn't block the HTTP request that
// triggered it. It implements pkg/queue.Job.
type Job struct {
	sink     Sink
	pipeline *PipelineConfig
	policy   duka.Options
	cache    duka.BytesCache
	logger   *applogger.Logger
	metrics  *pkgmetrics.Recorder
}

// NewJob builds a queue.Job that streams a Request into sink using the
// given pipeline tuning. policy supplies the deployment-wide duka.Options
// defaults (retry policy, batch size, timeouts, a BaseURL override) that
// every run starts from; Instrument/Granularity/From/To/Side are always
// taken from the submitted Request and override policy, and HaltOnError is
// always set to true. cache
// may be nil, in which case each run fetches without a byte cache. metrics
// may be nil, in which case the pipeline runs without Prometheus
// instrumentation.
func NewJob(sink Sink, pipeline PipelineConfig, policy duka.Options, cache duka.BytesCache, logger *applogger.Logger, metrics *pkgmetrics.Recorder) *Job {
	return &Job{sink: sink, pipeline: &pipeline, policy: policy, cache: cache, logger: logger, metrics: metrics}
}

func (j *Job) Name() string { return "duka.export" }
func (j *Job) Type() string { return "export.run" }

func (j *Job) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[Request](payload)
	if err != nil {
		return fmt.Errorf("export job: decode payload: %w", err)
	}

	opts := j.policy
	opts.Instrument = req.Instrument
	opts.Granularity = duka.Granularity(req.Granularity)
	opts.From = req.From
	opts.To = req.To
	opts.Side = duka.Side(req.Side)
	opts.HaltOnError = true
	if j.cache != nil {
		opts = duka.WithCache(opts, j.cache)
	}
	seq, err := duka.Stream(ctx, opts)
	if err != nil {
		return fmt.Errorf("export job: %w", err)
	}

	pipeline := NewPipeline(j.sink, *j.pipeline, j.logger).WithMetrics(j.metrics)
	written, err := pipeline.Run(ctx, req.Instrument, opts.Granularity, seq)
	if j.logger != nil {
		fields := []applogger.Field{
			applogger.String("instrument", req.Instrument),
			applogger.String("granularity", req.Granularity),
			applogger.Int("records_written", written),
		}
		if err != nil {
			fields = append(fields, applogger.Error(err))
		}
		j.logger.Info("export job finished", fields...)
	}
	return err
}
