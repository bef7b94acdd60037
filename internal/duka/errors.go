package duka

import "fmt"

// ErrorCode is a machine-readable error discriminant, stable across
// releases so callers can switch on it instead of parsing messages.
type ErrorCode string

const (
	ErrUnknownInstrument         ErrorCode = "unknown_instrument"
	ErrInvalidGranularity        ErrorCode = "invalid_granularity"
	ErrInvalidPriceType          ErrorCode = "invalid_price_type"
	ErrInvalidPositiveInteger    ErrorCode = "invalid_positive_integer"
	ErrInvalidNonNegativeInteger ErrorCode = "invalid_non_negative_integer"
	ErrInvalidRetryDelay         ErrorCode = "invalid_retry_delay"
	ErrMissingDateRange          ErrorCode = "missing_date_range"
	ErrInvalidDateRange          ErrorCode = "invalid_date_range"

	ErrRetryExhausted   ErrorCode = "retry_exhausted"
	ErrHTTPError        ErrorCode = "http_error"
	ErrDecompression    ErrorCode = "decompression_error"

	ErrInvalidTickFormat ErrorCode = "invalid_tick_format"
	ErrInvalidBarFormat  ErrorCode = "invalid_bar_format"
	ErrMidMismatch       ErrorCode = "mid_mismatch"
)

// ValidationError is returned synchronously by Options.Validate; it never
// reaches the pipeline.
type ValidationError struct {
	Code    ErrorCode
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("duka: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("duka: %s", e.Message)
}

// FetchError describes a fetch failure for one URL. The HTTP fetcher
// returns one with ErrRetryExhausted once its retry budget is spent and
// FailAfterRetries is set; the retryable per-attempt HTTP-status and
// decompression failures it wraps as Cause are FetchErrors too.
type FetchError struct {
	Code   ErrorCode
	URL    string
	Status int
	Cause  error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("duka: fetch %s: %s: %v", e.URL, e.Code, e.Cause)
	}
	return fmt.Sprintf("duka: fetch %s: %s (status %d)", e.URL, e.Code, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// DecodeError is returned by the tick or bar decoder on malformed input.
type DecodeError struct {
	Code    ErrorCode
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("duka: decode: %s: %s", e.Code, e.Message)
}

// UnitError wraps a per-unit pipeline failure with the plan key that
// produced it, so halt_on_error=true can surface which fetch failed.
type UnitError struct {
	Unit PlanUnit
	Side Side
	Err  error
}

func (e *UnitError) Error() string {
	if e.Side != "" {
		return fmt.Sprintf("duka: unit %s %s %s: %v", e.Unit.Granularity, formatUnitKey(e.Unit), e.Side, e.Err)
	}
	return fmt.Sprintf("duka: unit %s %s: %v", e.Unit.Granularity, formatUnitKey(e.Unit), e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

func formatUnitKey(u PlanUnit) string {
	if u.Granularity == Ticks {
		return fmt.Sprintf("%s:%02d", u.Date.Format("2006-01-02"), u.Hour)
	}
	return u.Date.Format("2006-01-02")
}
