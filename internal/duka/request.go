package duka

import (
	"net/http"
	"time"

	applogger "Duka/pkg/logger"
)

// Request is the fully-validated, normalized form of Options: every field
// has a concrete value, the instrument has been resolved against the
// catalog, and [From,To) is a well-formed half-open UTC range.
type Request struct {
	Instrument Instrument
	Granularity
	From, To time.Time
	Side

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

// effectiveBaseURL falls back to the package's default BaseURL for Request
// values built by hand (tests, mainly) rather than through Options.Validate.
func (r Request) effectiveBaseURL() string {
	if r.BaseURL == "" {
		return BaseURL
	}
	return r.BaseURL
}

// EffectiveBatchSize halves the configured batch size for mid-price
// requests (each unit costs two fetches), floored at 1.
func (r Request) EffectiveBatchSize() int {
	if r.Side != Mid {
		return r.BatchSize
	}
	if r.BatchSize <= 1 {
		return 1
	}
	return r.BatchSize / 2
}
