package duka

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ulikunitz/xz/lzma"

	applogger "Duka/pkg/logger"
)

// DefaultRetryDelay is the fetcher's default backoff policy: 200ms, 400ms,
// 800ms, 1600ms, ... doubling per attempt.
func DefaultRetryDelay(attempt int) time.Duration {
	return 200 * time.Millisecond * time.Duration(uint64(1)<<uint(attempt))
}

// delayFuncBackOff adapts a RetryDelayFunc (attempt -> delay) into the
// stateful backoff.BackOff interface the fetcher drives. Options.RetryDelay
// accepts only this function form; it has no separate fixed-integer
// setting.
type delayFuncBackOff struct {
	fn      RetryDelayFunc
	attempt int
}

func (d *delayFuncBackOff) NextBackOff() time.Duration {
	delay := d.fn(d.attempt)
	d.attempt++
	return delay
}

func (d *delayFuncBackOff) Reset() { d.attempt = 0 }

var _ backoff.BackOff = (*delayFuncBackOff)(nil)

// Fetcher executes a single GET against the Dukascopy datafeed with retry,
// backoff, empty-body handling and optional cache read-through/write-through.
type Fetcher struct {
	client           *http.Client
	maxRetries       int
	retryDelay       RetryDelayFunc
	retryOnEmpty     bool
	failAfterRetries bool
	cache            BytesCache
	useCache         bool
	logger           *applogger.Logger
}

// NewFetcher builds a Fetcher from a resolved Request.
func NewFetcher(req Request) *Fetcher {
	client := req.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: req.UnitTimeout}
	}
	return &Fetcher{
		client:           client,
		maxRetries:       req.MaxRetries,
		retryDelay:       req.RetryDelay,
		retryOnEmpty:     req.RetryOnEmpty,
		failAfterRetries: req.FailAfterRetries,
		cache:            req.Cache,
		useCache:         req.UseCache,
		logger:           req.Logger,
	}
}

// Fetch retrieves and decompresses one resource, driving the retry loop
// described in the fetcher's design: cache read-through, up to
// 1+maxRetries network attempts, then either a terminal error or an empty
// success depending on failAfterRetries.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	key := CacheKey(url)

	if f.useCache && f.cache != nil {
		if data, ok, err := f.cache.GetBytes(ctx, key); err == nil && ok {
			cacheLookups.WithLabelValues("hit").Inc()
			return data, nil
		}
		cacheLookups.WithLabelValues("miss").Inc()
	}

	bo := &delayFuncBackOff{fn: f.retryDelay}
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			delay := bo.NextBackOff()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		data, retryable, err := f.attempt(ctx, url)
		if err == nil {
			fetchTotal.WithLabelValues("ok").Inc()
			if f.useCache && f.cache != nil && len(data) > 0 {
				if werr := f.cache.SetBytes(ctx, key, data); werr != nil && f.logger != nil {
					f.logger.Warn("cache write failed", applogger.String("key", key), applogger.Error(werr))
				}
			}
			return data, nil
		}
		lastErr = err
		if !retryable {
			fetchTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		fetchRetries.WithLabelValues(retryReason(err)).Inc()
		if f.logger != nil {
			f.logger.Debug("fetch attempt failed, retrying",
				applogger.String("url", url), applogger.Int("attempt", attempt), applogger.Error(err))
		}
	}

	if f.failAfterRetries {
		fetchTotal.WithLabelValues("error").Inc()
		return nil, &FetchError{Code: ErrRetryExhausted, URL: url, Cause: lastErr}
	}
	fetchTotal.WithLabelValues("empty").Inc()
	if f.logger != nil {
		f.logger.Warn("retries exhausted, treating as empty",
			applogger.String("url", url), applogger.Error(lastErr))
	}
	return []byte{}, nil
}

// retryReason classifies a retryable fetch error for the fetchRetries
// metric: a FetchError carries its own code, an empty 200 body retried
// under RetryOnEmpty is "empty_body", anything else is a transport or
// decompression failure surfaced as a wrapped error.
func retryReason(err error) string {
	var ferr *FetchError
	if errors.As(err, &ferr) {
		switch ferr.Code {
		case ErrHTTPError:
			return "http_status"
		case ErrDecompression:
			return "decompression"
		default:
			return "transport"
		}
	}
	if strings.Contains(err.Error(), "empty body") {
		return "empty_body"
	}
	if strings.Contains(err.Error(), "decompress") {
		return "decompression"
	}
	return "transport"
}

// attempt performs exactly one network GET and classifies the outcome per
// §4.3: 404 is terminal success with empty bytes, a non-retrying empty 200
// is terminal success, everything else is either a decoded payload or a
// retryable failure.
func (f *Fetcher) attempt(ctx context.Context, url string) (data []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("duka: build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("duka: transport error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return []byte{}, false, nil
	}

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, true, &FetchError{Code: ErrHTTPError, URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("duka: read body: %w", err)
	}

	if len(body) == 0 {
		if f.retryOnEmpty {
			return nil, true, errors.New("duka: empty body")
		}
		return []byte{}, false, nil
	}

	decompressed, err := decompressLZMA(body)
	if err != nil {
		return nil, true, &FetchError{Code: ErrDecompression, URL: url, Cause: err}
	}
	return decompressed, false, nil
}

func decompressLZMA(data []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	return out, nil
}
