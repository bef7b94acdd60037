package duka

import (
	"net/http"
	"time"

	"Duka/internal/cache"
	applogger "Duka/pkg/logger"
)

// Options is the caller-facing request shape for Stream. Only Instrument,
// Granularity and one of (From/To) or DateRange are required; everything
// else has a documented default applied by Validate.
type Options struct {
	Instrument  string
	Granularity Granularity

	From, To  time.Time
	DateRange *DateRange

	Side Side

	// BaseURL overrides the fixed dukascopy.com root BuildURL composes
	// against. Empty means BaseURL (the package constant).
	BaseURL          string
	BatchSize        int
	BatchPauseMs     int
	MaxRetries       int
	RetryDelay       RetryDelayFunc
	RetryOnEmpty     bool
	FailAfterRetries bool
	UseCache         bool
	CacheDir         string
	HaltOnError      bool
	UnitTimeout      time.Duration

	Logger     *applogger.Logger
	HTTPClient *http.Client
	Cache      BytesCache
}

const defaultCacheDir = ".duka-cache"

// Validate normalizes o against catalog and returns the fully-resolved
// Request the pipeline consumes, or a *ValidationError. No I/O other than
// the catalog lookup (an in-memory map) happens here.
func (o Options) Validate(catalog InstrumentLookup, now time.Time) (Request, error) {
	inst, ok := catalog.Lookup(o.Instrument)
	if !ok {
		return Request{}, &ValidationError{Code: ErrUnknownInstrument, Field: "instrument", Message: o.Instrument}
	}

	switch o.Granularity {
	case Ticks, Minute, Hour, Day:
	default:
		return Request{}, &ValidationError{Code: ErrInvalidGranularity, Field: "granularity", Message: string(o.Granularity)}
	}

	side := o.Side
	if side == "" {
		side = Bid
	}
	switch side {
	case Bid, Ask, Mid:
	default:
		return Request{}, &ValidationError{Code: ErrInvalidPriceType, Field: "side", Message: string(side)}
	}

	from, to, err := resolveRange(o)
	if err != nil {
		return Request{}, err
	}

	batchSize := o.BatchSize
	if batchSize == 0 {
		batchSize = 10
	}
	if batchSize < 1 {
		return Request{}, &ValidationError{Code: ErrInvalidPositiveInteger, Field: "batch_size", Message: "must be positive"}
	}

	if o.BatchPauseMs < 0 {
		return Request{}, &ValidationError{Code: ErrInvalidNonNegativeInteger, Field: "batch_pause_ms", Message: "must be non-negative"}
	}
	if o.MaxRetries < 0 {
		return Request{}, &ValidationError{Code: ErrInvalidNonNegativeInteger, Field: "max_retries", Message: "must be non-negative"}
	}

	retryDelay := o.RetryDelay
	if retryDelay == nil {
		retryDelay = DefaultRetryDelay
	}

	unitTimeout := o.UnitTimeout
	if unitTimeout <= 0 {
		unitTimeout = 60 * time.Second
	}

	cacheDir := o.CacheDir
	if o.UseCache && cacheDir == "" {
		cacheDir = defaultCacheDir
	}

	effectiveCache := o.Cache
	if o.UseCache && effectiveCache == nil {
		effectiveCache = cache.NewFileCache(cacheDir)
	}

	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}

	return Request{
		Instrument:       inst,
		Granularity:      o.Granularity,
		From:             from,
		To:               to,
		Side:             side,
		BaseURL:          baseURL,
		BatchSize:        batchSize,
		BatchPauseMs:     o.BatchPauseMs,
		MaxRetries:       o.MaxRetries,
		RetryDelay:       retryDelay,
		RetryOnEmpty:     o.RetryOnEmpty,
		FailAfterRetries: o.FailAfterRetries,
		UseCache:         o.UseCache,
		CacheDir:         cacheDir,
		HaltOnError:      o.HaltOnError,
		UnitTimeout:      unitTimeout,
		Logger:           o.Logger,
		HTTPClient:       o.HTTPClient,
		Cache:            effectiveCache,
	}, nil
}

func resolveRange(o Options) (time.Time, time.Time, error) {
	hasFromTo := !o.From.IsZero() || !o.To.IsZero()
	hasRange := o.DateRange != nil

	if hasFromTo && hasRange {
		return time.Time{}, time.Time{}, &ValidationError{Code: ErrInvalidDateRange, Field: "date_range", Message: "specify either from/to or date_range, not both"}
	}
	if !hasFromTo && !hasRange {
		return time.Time{}, time.Time{}, &ValidationError{Code: ErrMissingDateRange, Message: "one of from/to or date_range is required"}
	}

	if hasRange {
		first := floorDay(o.DateRange.First)
		last := floorDay(o.DateRange.Last).AddDate(0, 0, 1)
		if !first.Before(last) {
			return time.Time{}, time.Time{}, &ValidationError{Code: ErrInvalidDateRange, Field: "date_range", Message: "first must be on or before last"}
		}
		return first, last, nil
	}

	from, to := o.From.UTC(), o.To.UTC()
	return from, to, nil
}
