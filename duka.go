// Package duka is a client library that produces a lazily-materialized,
// chronologically ordered sequence of market observations (raw ticks or
// aggregated OHLCV bars) for a named trading instrument over a
// user-specified time range, by fetching compressed binary files from the
// Dukascopy historical-data endpoint, decompressing and decoding them, and
// assembling the result with bounded parallelism, retry-aware fetching and
// optional caching.
//
// The public surface is intentionally small: Stream is the one entry point,
// returning a single-pass iter.Seq2[Record, error] a caller ranges over.
package duka

import (
	"context"
	"iter"
	"net/http"
	"time"

	"Duka/internal/catalog"
	dk "Duka/internal/duka"
	applogger "Duka/pkg/logger"
)

// Re-exported wire types so callers never need to import internal/duka.
type (
	Granularity = dk.Granularity
	Side        = dk.Side
	Tick        = dk.Tick
	Bar         = dk.Bar
	Record      = dk.Record
	RecordKind  = dk.RecordKind
	DateRange   = dk.DateRange
	RetryDelayFunc = dk.RetryDelayFunc
	BytesCache  = dk.BytesCache
	ErrorCode   = dk.ErrorCode
	Instrument  = dk.Instrument

	ValidationError = dk.ValidationError
	FetchError      = dk.FetchError
	DecodeError     = dk.DecodeError
	UnitError       = dk.UnitError
)

const (
	Ticks  = dk.Ticks
	Minute = dk.Minute
	Hour   = dk.Hour
	Day    = dk.Day

	Bid = dk.Bid
	Ask = dk.Ask
	Mid = dk.Mid

	KindTick = dk.KindTick
	KindBar  = dk.KindBar
)

// DefaultRetryDelay is the fetcher's default backoff: 200ms * 2^attempt.
var DefaultRetryDelay = dk.DefaultRetryDelay

// Options is the caller-facing request. See internal/duka.Options for the
// field-by-field contract; this alias keeps the public API to one package.
type Options = dk.Options

// WithLogger returns a copy of o with a structured logger attached; the
// orchestrator logs per-unit failures through it when HaltOnError is false.
func WithLogger(o Options, l *applogger.Logger) Options {
	o.Logger = l
	return o
}

// WithHTTPClient returns a copy of o using client for all network fetches,
// letting a caller share connection pooling or add transport-level tracing.
func WithHTTPClient(o Options, client *http.Client) Options {
	o.HTTPClient = client
	return o
}

// WithCache returns a copy of o backed by the given BytesCache, overriding
// the default file-backed cache internal/cache.NewFileCache would build
// from o.CacheDir.
func WithCache(o Options, cache BytesCache) Options {
	o.UseCache = true
	o.Cache = cache
	return o
}

// Lookup exposes the bundled instrument catalog directly, mostly useful for
// validating a symbol before building an Options value.
func Lookup(name string) (Instrument, bool) {
	return catalog.Default.Lookup(name)
}

// Stream validates opts and returns the lazy, chronologically ordered
// record sequence it describes. Validation errors are returned
// synchronously; every other failure (fetch, decode, per-unit errors when
// HaltOnError is true) surfaces from the returned sequence itself.
func Stream(ctx context.Context, opts Options) (iter.Seq2[Record, error], error) {
	req, err := opts.Validate(catalog.Default, time.Now())
	if err != nil {
		return nil, err
	}

	fetcher := dk.NewFetcher(req)
	raw := dk.Run(ctx, req, fetcher, time.Now())
	return dk.RangeFilter(raw, req.From, req.To), nil
}

// Collect drains seq into a slice capped at limit records (0 means
// unlimited), stopping the underlying stream promptly once the cap is hit.
// It is sugar on top of Stream, not a replacement for the lazy sequence.
func Collect(seq iter.Seq2[Record, error], limit int) ([]Record, error) {
	var out []Record
	for rec, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
