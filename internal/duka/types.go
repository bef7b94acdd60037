// Package duka implements the fetch-decode-assemble engine for Dukascopy
// historical tick and OHLCV bar data: URL construction, period planning,
// the retrying HTTP fetcher, the two binary decoders, and the batch
// orchestrator that ties them into a single ordered record sequence.
package duka

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"Duka/pkg/logger"
)

// Granularity is the unit a request or a fetch plan unit is expressed in.
type Granularity string

const (
	Ticks  Granularity = "ticks"
	Minute Granularity = "minute"
	Hour   Granularity = "hour"
	Day    Granularity = "day"
)

// Side selects which book side a bar request is priced against.
type Side string

const (
	Bid Side = "bid"
	Ask Side = "ask"
	Mid Side = "mid"
)

// Instrument is the catalog entry for a tradable symbol: its remote path
// prefix and the divisor used to turn raw integer prices into decimals.
type Instrument struct {
	Name         string
	RemotePrefix string
	PipValue     decimal.Decimal
	PointValue   decimal.Decimal
}

// Tick is a single quote update.
type Tick struct {
	Time      time.Time
	Ask       decimal.Decimal
	Bid       decimal.Decimal
	AskVolume float32
	BidVolume float32
}

// Bar is an OHLCV summary over one period at the fetch granularity.
type Bar struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume float32
}

// RecordKind tags which payload a Record carries.
type RecordKind int

const (
	KindTick RecordKind = iota
	KindBar
)

// Record is the uniform value yielded by the public stream: a tick or a
// bar tagged by Kind, with Time promoted for range filtering and ordering.
type Record struct {
	Kind RecordKind
	Time time.Time
	Tick Tick
	Bar  Bar
}

// PlanUnit is one remote resource the period planner has decided to fetch.
// Granularity is the *fetch* granularity, which may be finer than the
// request's granularity due to current-period fallback. Date carries the
// containing period's start; Hour is meaningful only when Granularity is
// Ticks.
type PlanUnit struct {
	Granularity Granularity
	Date        time.Time
	Hour        int
}

// RetryDelayFunc computes the backoff before retry attempt N (0-indexed).
type RetryDelayFunc func(attempt int) time.Duration

// DateRange is an inclusive calendar-day range as supplied by a caller;
// Options.Validate lifts it to the half-open UTC range the planner uses.
type DateRange struct {
	First time.Time
	Last  time.Time
}

// BytesCache is the fetcher's pluggable cache contract: a key-addressed
// store of already-decompressed resource bodies.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte) error
}

// InstrumentLookup is the catalog contract Options.Validate consumes.
type InstrumentLookup interface {
	Lookup(name string) (Instrument, bool)
}

// appLogger aliases pkg/logger.Logger within this package.
type appLogger = logger.Logger
